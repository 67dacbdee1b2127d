// Package transport delivers outbound chat messages. The engine only sees
// EnqueueMessage; delivery is fire-and-forget behind a bounded queue with
// send pacing, so a burst of round resolutions cannot trip the chat
// service's flood limits.
package transport

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/detekoi/chatsage-sub000/internal/shared/logger"
)

// Sender performs the actual delivery of one message.
type Sender interface {
	Send(channel string, text string) error
}

type outboundMessage struct {
	channel string
	text    string
}

type Queue struct {
	sender  Sender
	limiter *rate.Limiter
	tasks   chan outboundMessage
}

// NewQueue builds a queue draining into sender at most rps messages per
// second with the given burst.
func NewQueue(sender Sender, rps float64, burst int) *Queue {
	return &Queue{
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		tasks:   make(chan outboundMessage, 256),
	}
}

// EnqueueMessage queues text for delivery to channel. Never blocks; if the
// queue is full the message is dropped and logged.
func (q *Queue) EnqueueMessage(channel string, text string) {
	select {
	case q.tasks <- outboundMessage{channel: channel, text: text}:
	default:
		logger.Warningf("[Transport] Queue full, dropping message for channel %s", channel)
	}
}

// Run drains the queue until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-q.tasks:
			if err := q.limiter.Wait(ctx); err != nil {
				return
			}
			if err := q.sender.Send(msg.channel, msg.text); err != nil {
				logger.Warningf("[Transport] Send to %s failed: %v", msg.channel, err)
			}
		}
	}
}

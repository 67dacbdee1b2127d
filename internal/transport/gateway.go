package transport

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/detekoi/chatsage-sub000/internal/shared/logger"
)

// GatewaySender delivers messages over a websocket connection to the chat
// gateway. Reconnects lazily on send failure.
type GatewaySender struct {
	url    string
	locker sync.Mutex
	conn   *websocket.Conn
}

type gatewayFrame struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

func NewGatewaySender(url string) *GatewaySender {
	return &GatewaySender{url: url}
}

func (g *GatewaySender) dial() error {
	conn, _, err := websocket.DefaultDialer.Dial(g.url, nil)
	if err != nil {
		return err
	}
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(time.Minute))
		return nil
	})
	g.conn = conn
	logger.Infof("[Transport] Connected to chat gateway %s", g.url)
	return nil
}

func (g *GatewaySender) Send(channel string, text string) error {
	g.locker.Lock()
	defer g.locker.Unlock()

	if g.conn == nil {
		if err := g.dial(); err != nil {
			return err
		}
	}

	data, err := json.Marshal(gatewayFrame{Channel: channel, Text: text})
	if err != nil {
		return err
	}

	g.conn.SetWriteDeadline(time.Now().Add(time.Second * 20))
	if err := g.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		// one reconnect attempt, then give up on this message
		g.conn.Close()
		g.conn = nil
		if err := g.dial(); err != nil {
			return err
		}
		g.conn.SetWriteDeadline(time.Now().Add(time.Second * 20))
		return g.conn.WriteMessage(websocket.TextMessage, data)
	}
	return nil
}

func (g *GatewaySender) Close() {
	g.locker.Lock()
	defer g.locker.Unlock()
	if g.conn != nil {
		g.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		g.conn.Close()
		g.conn = nil
	}
}

// ConsoleSender logs messages instead of delivering them. Used when no
// gateway URL is configured.
type ConsoleSender struct{}

func (ConsoleSender) Send(channel string, text string) error {
	logger.Infof("[Chat %s] %s", channel, text)
	return nil
}

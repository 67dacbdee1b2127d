package game

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/detekoi/chatsage-sub000/internal/domain"
	"github.com/detekoi/chatsage-sub000/internal/shared/logger"
)

type pendingReport struct {
	reason      string
	totalRounds int
	items       []domain.SessionItem
	expiresAt   time.Time
}

// PendingReportStore holds in-flight report disambiguations keyed by
// channel+reporter, bounded by a TTL.
type PendingReportStore struct {
	locker  sync.Mutex
	pending map[string]pendingReport
}

func NewPendingReportStore() *PendingReportStore {
	return &PendingReportStore{pending: make(map[string]pendingReport)}
}

func reportKey(channel string, reporter string) string {
	return channel + "\x00" + reporter
}

func (s *PendingReportStore) Put(channel string, reporter string, report pendingReport) {
	s.locker.Lock()
	defer s.locker.Unlock()
	s.pending[reportKey(channel, reporter)] = report
}

// Get returns the pending report for channel+reporter. An entry past its
// TTL is removed and reported as expired.
func (s *PendingReportStore) Get(channel string, reporter string, now time.Time) (pendingReport, bool, bool) {
	s.locker.Lock()
	defer s.locker.Unlock()
	key := reportKey(channel, reporter)
	report, ok := s.pending[key]
	if !ok {
		return pendingReport{}, false, false
	}
	if now.After(report.expiresAt) {
		delete(s.pending, key)
		return pendingReport{}, false, true
	}
	return report, true, false
}

func (s *PendingReportStore) Delete(channel string, reporter string) {
	s.locker.Lock()
	defer s.locker.Unlock()
	delete(s.pending, reportKey(channel, reporter))
}

// EvictExpired drops entries whose TTL has passed. Called from the ticker.
func (s *PendingReportStore) EvictExpired(now time.Time) {
	s.locker.Lock()
	defer s.locker.Unlock()
	for key, report := range s.pending {
		if now.After(report.expiresAt) {
			delete(s.pending, key)
		}
	}
}

// InitiateReportProcess flags the last completed session's question, or,
// for multi-round sessions, asks the reporter which round they mean.
func (e *Engine) InitiateReportProcess(ctx context.Context, channel string, reason string, reporter string) CommandResult {
	fctx, cancel := context.WithTimeout(ctx, COLLABORATOR_TIMEOUT)
	defer cancel()

	session, err := e.repo.GetLatestCompletedSession(fctx, channel)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return fail("No recent trivia session to report.")
		}
		logger.Warningf("[Engine %s] Fetching latest session failed: %v", channel, err)
		return fail("Couldn't look up the last session, try again later.")
	}
	if len(session.Items) == 0 {
		return fail("No recent trivia session to report.")
	}

	if len(session.Items) == 1 {
		return e.flagItem(ctx, channel, session.Items[0], reason, reporter)
	}

	e.reports.Put(channel, reporter, pendingReport{
		reason:      reason,
		totalRounds: session.TotalRounds,
		items:       session.Items,
		expiresAt:   e.now().Add(PENDING_REPORT_TTL),
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "Which round are you reporting? Reply with a number 1-%d:", len(session.Items))
	for _, item := range session.Items {
		fmt.Fprintf(&sb, " %d) %s", item.RoundNumber, truncate(item.Question, 60))
	}
	return succeed(sb.String())
}

// FinalizeReportWithRoundNumber consumes the reporter's numeric reply.
func (e *Engine) FinalizeReportWithRoundNumber(ctx context.Context, channel string, reporter string, roundNumberText string) CommandResult {
	report, ok, expired := e.reports.Get(channel, reporter, e.now())
	if expired {
		return failBecause(domain.ErrInvalidReportTarget, "Your report session timed out. Start the report again.")
	}
	if !ok {
		return failBecause(domain.ErrNoPendingReport, "You have no pending report.")
	}

	roundNumber, err := strconv.Atoi(strings.TrimSpace(roundNumberText))
	if err != nil || roundNumber < 1 || roundNumber > report.totalRounds {
		return failBecause(domain.ErrInvalidReportTarget, fmt.Sprintf("Please reply with a round number between 1 and %d.", report.totalRounds))
	}

	var target *domain.SessionItem
	for i := range report.items {
		if report.items[i].RoundNumber == roundNumber {
			target = &report.items[i]
			break
		}
	}
	if target == nil {
		return failBecause(domain.ErrInvalidReportTarget, fmt.Sprintf("Round %d wasn't part of that session.", roundNumber))
	}

	result := e.flagItem(ctx, channel, *target, report.reason, reporter)
	if result.Success {
		e.reports.Delete(channel, reporter)
	}
	return result
}

func (e *Engine) flagItem(ctx context.Context, channel string, item domain.SessionItem, reason string, reporter string) CommandResult {
	fctx, cancel := context.WithTimeout(ctx, COLLABORATOR_TIMEOUT)
	defer cancel()

	if err := e.repo.FlagRecordByID(fctx, item.RecordID, reason, reporter); err != nil {
		logger.Warningf("[Engine %s] Flagging record %s failed: %v", channel, item.RecordID, err)
		return fail("Couldn't flag that question, try again later.")
	}
	logger.Infof("[Engine %s] Record %s flagged by %s: %s", channel, item.RecordID, reporter, reason)
	return succeed(fmt.Sprintf("Thanks! Round %d (%s) was flagged for review.", item.RoundNumber, truncate(item.Question, 60)))
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}

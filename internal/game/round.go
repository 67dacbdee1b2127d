package game

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/detekoi/chatsage-sub000/internal/domain"
	"github.com/detekoi/chatsage-sub000/internal/match"
	"github.com/detekoi/chatsage-sub000/internal/shared/logger"
)

// runSelection drives the question-generation retry loop for one round.
// gen pins the attempt to the session/round it was started for; if the
// state moved on (stop, restart) the result is discarded.
func (e *Engine) runSelection(st *GameState, gen uint64) {
	st.locker.Lock()
	if st.phase != PHASE_SELECTING || st.generation != gen {
		st.locker.Unlock()
		return
	}
	channel := st.channel
	topic := st.topic
	cfg := st.config
	round, total := st.currentRound, st.totalRounds
	st.locker.Unlock()

	excludedQuestions, excludedAnswers := e.buildExclusionLists(st, channel, topic)

	for attempt := 1; attempt <= GENERATION_ATTEMPTS; attempt++ {
		if attempt > 1 {
			time.Sleep(GENERATION_BACKOFF)
		}

		ctx, cancel := context.WithTimeout(context.Background(), COLLABORATOR_TIMEOUT)
		candidate, err := e.oracle.GenerateQuestion(ctx, topic, cfg.Difficulty, excludedQuestions, excludedAnswers)
		cancel()

		if err != nil {
			logger.Warningf("[Engine %s] Question generation attempt %d/%d failed: %v", channel, attempt, GENERATION_ATTEMPTS, err)
			continue
		}
		if reason, ok := e.validateCandidate(st, candidate, excludedAnswers); !ok {
			logger.Infof("[Engine %s] Discarding candidate question (attempt %d/%d): %s", channel, attempt, GENERATION_ATTEMPTS, reason)
			continue
		}

		if e.postQuestion(st, gen, candidate, round, total) {
			return
		}
		// Signature collided with a question accepted meanwhile, or the
		// session moved on. postQuestion already decided which.
		st.locker.Lock()
		stale := st.phase != PHASE_SELECTING || st.generation != gen
		st.locker.Unlock()
		if stale {
			return
		}
	}

	st.locker.Lock()
	defer st.locker.Unlock()
	if st.phase != PHASE_SELECTING || st.generation != gen {
		return
	}
	logger.Warningf("[Engine %s] Generation budget exhausted, terminating session %s", channel, st.sessionID)
	st.stopped = true
	e.terminateRoundLocked(st, domain.ResolutionQuestionError)
}

// buildExclusionLists merges the session's own exclusion sets with
// recently persisted history. The topic itself is excluded as an answer
// so the Oracle cannot produce tautologies.
func (e *Engine) buildExclusionLists(st *GameState, channel string, topic string) ([]string, []string) {
	ctx, cancel := context.WithTimeout(context.Background(), COLLABORATOR_TIMEOUT)
	defer cancel()

	recentQuestions, err := e.repo.GetRecentQuestions(ctx, channel, topic, HISTORY_FETCH_LIMIT)
	if err != nil {
		logger.Warningf("[Engine %s] Fetching recent questions failed: %v", channel, err)
	}
	recentAnswers, err := e.repo.GetRecentAnswers(ctx, channel, topic, HISTORY_FETCH_LIMIT)
	if err != nil {
		logger.Warningf("[Engine %s] Fetching recent answers failed: %v", channel, err)
	}

	st.locker.Lock()
	for _, q := range recentQuestions {
		st.excludedQuestions[match.Normalize(q)] = struct{}{}
	}
	for _, a := range recentAnswers {
		st.excludedAnswers[match.Normalize(a)] = struct{}{}
	}
	questions := make([]string, 0, len(st.excludedQuestions))
	for q := range st.excludedQuestions {
		questions = append(questions, q)
	}
	answers := make([]string, 0, len(st.excludedAnswers)+1)
	for a := range st.excludedAnswers {
		answers = append(answers, a)
	}
	st.locker.Unlock()

	if topic != "" {
		answers = append(answers, match.Normalize(topic))
	}
	sort.Strings(questions)
	sort.Strings(answers)
	return questions, answers
}

// validateCandidate applies the structural and duplicate checks of the
// generation loop. The signature check against the live set happens in
// postQuestion, atomically with acceptance.
func (e *Engine) validateCandidate(st *GameState, q domain.Question, excludedAnswers []string) (string, bool) {
	if len(q.Text) < MIN_QUESTION_LENGTH {
		return "question too short", false
	}
	if strings.TrimSpace(q.Answer) == "" {
		return "empty answer", false
	}

	normalized := match.Normalize(q.Text)
	st.locker.Lock()
	_, repeat := st.excludedQuestions[normalized]
	st.locker.Unlock()
	if repeat {
		return "exact repeat of an excluded question", false
	}

	if match.IsAnswerTooSimilar(q.Answer, excludedAnswers) {
		return "answer too similar to an excluded answer", false
	}
	return "", true
}

// postQuestion accepts a candidate: reserves its signature, transitions
// Selecting to InProgress and announces it. Returns false if the
// candidate must be retried or abandoned.
func (e *Engine) postQuestion(st *GameState, gen uint64, q domain.Question, round int, total int) bool {
	signature := match.Signature(q.Text)

	st.locker.Lock()
	if st.phase != PHASE_SELECTING || st.generation != gen {
		st.locker.Unlock()
		return false
	}
	if _, dup := st.questionSignatures[signature]; dup {
		st.locker.Unlock()
		return false
	}
	// Reserved before use, so a paraphrase generated while this round is
	// open can never be accepted later in the session.
	st.questionSignatures[signature] = struct{}{}

	question := q
	st.currentQuestion = &question
	st.phase = PHASE_IN_PROGRESS
	st.roundStart = e.now()
	st.deadline = st.roundStart.Add(time.Duration(st.config.QuestionSeconds) * time.Second)
	st.guessCache = make(map[string]bool)
	seconds := st.config.QuestionSeconds
	channel := st.channel
	st.locker.Unlock()

	logger.Infof("[Engine %s] Round %d/%d question posted (answer: %s)", channel, round, total, q.Answer)
	e.transport.EnqueueMessage(channel, fmt.Sprintf("Round %d/%d [%s]: %s (%ds to answer)", round, total, q.Difficulty, q.Text, seconds))
	return true
}

// resolveRoundLocked runs the Ending steps for an InProgress round. Caller
// holds the lock. A second call for the same round is a no-op, which is
// what guards the race between the timeout tick and a late verdict.
func (e *Engine) resolveRoundLocked(st *GameState, reason string, winner *winnerInfo) {
	if st.phase != PHASE_IN_PROGRESS {
		logger.Debugf("[Engine %s] Ignoring %s resolution in phase %s", st.channel, reason, st.phase)
		return
	}

	if winner != nil {
		st.phase = PHASE_GUESSED
	} else {
		st.phase = PHASE_TIMEOUT
	}
	st.deadline = time.Time{}

	q := st.currentQuestion
	if q != nil {
		st.excludedQuestions[match.Normalize(q.Text)] = struct{}{}
		st.excludedAnswers[match.Normalize(q.Answer)] = struct{}{}
	}

	if winner != nil {
		score, ok := st.sessionScores[winner.username]
		if !ok {
			score = &sessionScore{}
			st.sessionScores[winner.username] = score
		}
		score.displayName = winner.displayName
		score.points += winner.points
		st.streaks[winner.username]++

		channel := st.channel
		user, display, points := winner.username, winner.displayName, winner.points
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), COLLABORATOR_TIMEOUT)
			defer cancel()
			if err := e.repo.AddLifetimePoints(ctx, channel, user, display, points); err != nil {
				logger.Warningf("[Engine %s] Persisting lifetime points for %s failed: %v", channel, user, err)
			}
		}()
	} else {
		// Any non-correct resolution breaks every streak.
		st.streaks = make(map[string]int)
	}

	e.emitResolutionLocked(st, reason, winner)

	if q != nil {
		result := domain.RoundResult{
			Channel:     st.channel,
			SessionID:   st.sessionID,
			RoundNumber: st.currentRound,
			TotalRounds: st.totalRounds,
			Topic:       st.topic,
			Question:    q.Text,
			Answer:      q.Answer,
			Difficulty:  q.Difficulty,
			Resolution:  reason,
		}
		if winner != nil {
			result.WinnerUser = winner.username
			result.WinnerDisplay = winner.displayName
			result.Points = winner.points
			result.ElapsedMs = winner.elapsed.Milliseconds()
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), COLLABORATOR_TIMEOUT)
			defer cancel()
			if err := e.repo.RecordRoundResult(ctx, result); err != nil {
				logger.Warningf("[Engine %s] Persisting round result failed: %v", result.Channel, err)
			}
		}()
	}

	e.enterEndingLocked(st, reason)
}

// terminateRoundLocked ends a round that never produced a question
// (generation exhausted, or stop during selection).
func (e *Engine) terminateRoundLocked(st *GameState, reason string) {
	st.streaks = make(map[string]int)
	st.currentQuestion = nil
	if reason == domain.ResolutionQuestionError {
		e.transport.EnqueueMessage(st.channel, "I couldn't come up with a fresh question, so the session is over. Try again in a bit!")
	} else {
		e.transport.EnqueueMessage(st.channel, "Trivia stopped.")
	}
	e.emitSessionEndLocked(st)
	e.enterEndingLocked(st, reason)
}

// enterEndingLocked transitions Guessed/Timeout (or a terminated
// selection) to Ending and schedules the next step after the fixed delay.
func (e *Engine) enterEndingLocked(st *GameState, reason string) {
	st.phase = PHASE_ENDING
	st.endReason = reason
	st.deadline = e.now().Add(ROUND_DELAY)
	st.generation++
	logger.Infof("[Engine %s] Round %d/%d resolved (%s)", st.channel, st.currentRound, st.totalRounds, reason)
}

func (e *Engine) emitResolutionLocked(st *GameState, reason string, winner *winnerInfo) {
	q := st.currentQuestion
	answer := ""
	explanation := ""
	if q != nil {
		answer = q.Answer
		explanation = q.Explanation
	}

	var msg string
	switch {
	case winner != nil:
		msg = fmt.Sprintf("%s got it in %.1fs! The answer was %s. +%d points", winner.displayName, winner.elapsed.Seconds(), answer, winner.points)
		if streak := st.streaks[winner.username]; streak > 1 {
			msg += fmt.Sprintf(" (streak x%d)", streak)
		}
		msg += "."
	case reason == domain.ResolutionStopped:
		msg = fmt.Sprintf("Game stopped. The answer was %s.", answer)
	default:
		msg = fmt.Sprintf("Time's up! The answer was %s.", answer)
	}
	if explanation != "" {
		msg += " " + explanation
	}
	e.transport.EnqueueMessage(st.channel, msg)

	lastRound := st.currentRound >= st.totalRounds
	if st.stopped || lastRound {
		e.emitSessionEndLocked(st)
		if lastRound && !st.stopped {
			e.emitLeaderboard(st.channel)
		}
	}
}

// emitSessionEndLocked posts the session summary for multi-round sessions.
func (e *Engine) emitSessionEndLocked(st *GameState) {
	if st.totalRounds <= 1 || len(st.sessionScores) == 0 {
		return
	}

	type entry struct {
		display string
		points  int
	}
	entries := make([]entry, 0, len(st.sessionScores))
	for _, score := range st.sessionScores {
		entries = append(entries, entry{display: score.displayName, points: score.points})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].points != entries[j].points {
			return entries[i].points > entries[j].points
		}
		return entries[i].display < entries[j].display
	})

	parts := make([]string, 0, len(entries))
	for _, en := range entries {
		parts = append(parts, fmt.Sprintf("%s %d", en.display, en.points))
	}
	e.transport.EnqueueMessage(st.channel, "Final scores: "+strings.Join(parts, ", "))
}

func (e *Engine) emitLeaderboard(channel string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), COLLABORATOR_TIMEOUT)
		defer cancel()
		entries, err := e.repo.GetLeaderboard(ctx, channel, LEADERBOARD_SIZE)
		if err != nil {
			logger.Warningf("[Engine %s] Fetching leaderboard failed: %v", channel, err)
			return
		}
		if len(entries) == 0 {
			return
		}
		parts := make([]string, 0, len(entries))
		for i, en := range entries {
			name := en.DisplayName
			if name == "" {
				name = en.Username
			}
			parts = append(parts, fmt.Sprintf("%d. %s %d", i+1, name, en.Points))
		}
		e.transport.EnqueueMessage(channel, "All-time leaderboard: "+strings.Join(parts, ", "))
	}()
}

// Tick drives every channel's deadlines. Called by the background ticker
// once per second; tests call it directly with synthetic times.
func (e *Engine) Tick(now time.Time) {
	for _, st := range e.store.All() {
		e.tickState(st, now)
	}
	e.reports.EvictExpired(now)
}

func (e *Engine) tickState(st *GameState, now time.Time) {
	st.locker.Lock()

	switch st.phase {
	case PHASE_IN_PROGRESS:
		if !st.deadline.IsZero() && !now.Before(st.deadline) {
			e.resolveRoundLocked(st, domain.ResolutionTimeout, nil)
		}
		st.locker.Unlock()

	case PHASE_ENDING:
		if now.Before(st.deadline) {
			st.locker.Unlock()
			return
		}
		if st.stopped || st.currentRound >= st.totalRounds {
			e.resetToIdleLocked(st)
			st.locker.Unlock()
			return
		}
		st.currentRound++
		st.phase = PHASE_SELECTING
		st.currentQuestion = nil
		st.roundStart = time.Time{}
		st.deadline = time.Time{}
		st.guessCache = make(map[string]bool)
		st.generation++
		gen := st.generation
		st.locker.Unlock()
		go e.runSelection(st, gen)

	default:
		st.locker.Unlock()
	}
}

// resetToIdleLocked replaces the session with a fresh record, preserving
// only the channel configuration.
func (e *Engine) resetToIdleLocked(st *GameState) {
	logger.Infof("[Engine %s] Session %s finished, returning to idle", st.channel, st.sessionID)
	st.phase = PHASE_IDLE
	st.sessionID = ""
	st.topic = ""
	st.initiator = ""
	st.totalRounds = 0
	st.currentRound = 0
	st.stopped = false
	st.endReason = ""
	st.currentQuestion = nil
	st.roundStart = time.Time{}
	st.deadline = time.Time{}
	st.guessCache = make(map[string]bool)
	st.sessionScores = make(map[string]*sessionScore)
	st.streaks = make(map[string]int)
	st.excludedQuestions = make(map[string]struct{})
	st.excludedAnswers = make(map[string]struct{})
	st.questionSignatures = make(map[string]struct{})
	st.generation++
}

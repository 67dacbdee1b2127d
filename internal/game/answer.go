package game

import (
	"context"
	"strings"
	"time"

	"github.com/detekoi/chatsage-sub000/internal/domain"
	"github.com/detekoi/chatsage-sub000/internal/match"
	"github.com/detekoi/chatsage-sub000/internal/shared/logger"
)

// ProcessPotentialAnswer feeds one chat line through the verification
// pipeline: spam window, guess cache, optional translation, exact match,
// Oracle verification with a similarity fallback. A correct verdict is
// honored only if the round is still the one it was issued for.
func (e *Engine) ProcessPotentialAnswer(ctx context.Context, channel string, user string, displayName string, rawText string) CommandResult {
	st, ok := e.store.Get(channel)
	if !ok {
		return succeed("")
	}

	guess := strings.TrimSpace(rawText)
	if guess == "" {
		return succeed("")
	}
	cacheKey := match.Normalize(guess)

	st.locker.Lock()
	if st.phase != PHASE_IN_PROGRESS || st.currentQuestion == nil {
		st.locker.Unlock()
		return succeed("")
	}

	now := e.now()
	if !st.lastProcessedAt.IsZero() && now.Sub(st.lastProcessedAt) < SPAM_WINDOW {
		st.locker.Unlock()
		return succeed("")
	}

	if _, judged := st.guessCache[cacheKey]; judged {
		st.locker.Unlock()
		return succeed("")
	}
	st.lastProcessedAt = now

	question := *st.currentQuestion
	language := st.config.ResponseLanguage
	gen := st.generation
	roundStart := st.roundStart
	questionTime := time.Duration(st.config.QuestionSeconds) * time.Second
	cfg := st.config
	preRoundStreak := st.streaks[user]
	st.locker.Unlock()

	verifyGuess := guess
	if language != "" {
		translated, err := e.translator.Translate(ctx, guess, "English")
		if err != nil || strings.TrimSpace(translated) == "" {
			logger.Warningf("[Engine %s] Guess translation failed, using original: %v", channel, err)
		} else {
			verifyGuess = translated
		}
	}

	correct := e.verify(ctx, channel, question, verifyGuess)

	st.locker.Lock()
	defer st.locker.Unlock()

	if st.phase != PHASE_IN_PROGRESS || st.generation != gen {
		// The round resolved while the verdict was in flight.
		logger.Debugf("[Engine %s] Discarding stale verdict for %q", channel, guess)
		return succeed("")
	}

	if !correct {
		st.guessCache[cacheKey] = false
		return succeed("")
	}

	elapsed := e.now().Sub(roundStart)
	points := ComputePoints(cfg, question.Difficulty, elapsed, questionTime, preRoundStreak)
	e.resolveRoundLocked(st, domain.ResolutionGuessed, &winnerInfo{
		username:    user,
		displayName: displayName,
		points:      points,
		elapsed:     elapsed,
	})
	return succeed("")
}

// verify short-circuits on exact/alternate matches, then asks the Oracle,
// then degrades to a pure similarity threshold when the Oracle fails.
func (e *Engine) verify(ctx context.Context, channel string, question domain.Question, guess string) bool {
	normalized := match.Normalize(guess)
	if normalized == match.Normalize(question.Answer) {
		return true
	}
	for _, alt := range question.AlternateAnswers {
		if normalized == match.Normalize(alt) {
			return true
		}
	}

	vctx, cancel := context.WithTimeout(ctx, COLLABORATOR_TIMEOUT)
	defer cancel()
	verdict, err := e.oracle.VerifyAnswer(vctx, question.Answer, guess, question.AlternateAnswers, question.Text, question.Topic)
	if err == nil {
		logger.Debugf("[Engine %s] Oracle verdict for %q: correct=%t confidence=%.2f", channel, guess, verdict.IsCorrect, verdict.Confidence)
		return verdict.IsCorrect
	}

	logger.Warningf("[Engine %s] Oracle verification failed, using similarity fallback: %v", channel, err)
	if match.SimilarityRatio(normalized, match.Normalize(question.Answer)) > VERIFY_FALLBACK_THRESHOLD {
		return true
	}
	for _, alt := range question.AlternateAnswers {
		if match.SimilarityRatio(normalized, match.Normalize(alt)) > VERIFY_FALLBACK_THRESHOLD {
			return true
		}
	}
	return false
}

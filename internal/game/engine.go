// Package game implements the round-orchestration engine: the per-channel
// trivia state machine, question generation with deduplication, answer
// verification, scoring and the post-game report workflow.
package game

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/detekoi/chatsage-sub000/internal/domain"
	"github.com/detekoi/chatsage-sub000/internal/shared/logger"
)

type Engine struct {
	store      *GameStateStore
	reports    *PendingReportStore
	oracle     Oracle
	repo       Repository
	transport  Transport
	translator Translator

	// Injected for tests; defaults to time.Now.
	now func() time.Time
}

func NewEngine(oracle Oracle, repo Repository, transport Transport, translator Translator) *Engine {
	return &Engine{
		store:      NewGameStateStore(),
		reports:    NewPendingReportStore(),
		oracle:     oracle,
		repo:       repo,
		transport:  transport,
		translator: translator,
		now:        time.Now,
	}
}

func (e *Engine) stateFor(channel string) *GameState {
	return e.store.GetOrCreate(channel, func() domain.ChannelConfig {
		return e.loadConfigOrDefault(channel)
	})
}

// StartGame begins a new session of `rounds` rounds on channel. Fails with
// an already-active message unless the channel is Idle.
func (e *Engine) StartGame(channel string, topic string, initiator string, rounds int) CommandResult {
	if rounds < 1 {
		rounds = 1
	}
	if rounds > MAX_SESSION_ROUNDS {
		return fail(fmt.Sprintf("Sessions are capped at %d rounds.", MAX_SESSION_ROUNDS))
	}
	topic = strings.TrimSpace(topic)

	st := e.stateFor(channel)
	st.locker.Lock()

	if st.phase != PHASE_IDLE {
		phase := st.phase
		sameOwner := st.initiator == initiator && st.totalRounds > 1
		round, total := st.currentRound, st.totalRounds
		st.locker.Unlock()
		if sameOwner {
			return failBecause(domain.ErrAlreadyActive, fmt.Sprintf("Your trivia session is still running (round %d of %d). Stop it first if you want a fresh one.", round, total))
		}
		return failBecause(domain.ErrAlreadyActive, fmt.Sprintf("A trivia game is already active (%s).", phase))
	}

	st.sessionID = uuid.NewString()
	st.topic = topic
	st.initiator = initiator
	st.totalRounds = rounds
	st.currentRound = 1
	st.stopped = false
	st.endReason = ""
	st.phase = PHASE_SELECTING
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
	gen := st.generation
	sessionID := st.sessionID
	st.locker.Unlock()

	logger.Infof("[Engine %s] Session %s started by %s: %d round(s), topic %q", channel, sessionID, initiator, rounds, topic)

	if topic != "" {
		e.transport.EnqueueMessage(channel, fmt.Sprintf("Starting trivia on %q! Question coming up...", topic))
	} else {
		e.transport.EnqueueMessage(channel, "Starting trivia! Question coming up...")
	}

	go e.runSelection(st, gen)

	return succeed("")
}

// StopGame forces the current round to resolve with reason stopped. The
// command layer has already checked the caller may do this.
func (e *Engine) StopGame(channel string) CommandResult {
	st, ok := e.store.Get(channel)
	if !ok {
		return failBecause(domain.ErrNotActive, "No trivia game is running.")
	}

	st.locker.Lock()
	defer st.locker.Unlock()

	switch st.phase {
	case PHASE_IDLE, PHASE_ENDING:
		return failBecause(domain.ErrNotActive, "No trivia game is running.")
	case PHASE_SELECTING:
		// No question posted yet; skip straight to termination.
		st.stopped = true
		e.terminateRoundLocked(st, domain.ResolutionStopped)
		return succeed("")
	default:
		st.stopped = true
		e.resolveRoundLocked(st, domain.ResolutionStopped, nil)
		return succeed("")
	}
}

// ConfigureGame applies a map of option name to raw value, validates every
// field, persists the result and returns a change summary.
func (e *Engine) ConfigureGame(channel string, options map[string]string) CommandResult {
	st := e.stateFor(channel)

	st.locker.Lock()
	updated := st.config
	changes := make([]string, 0, len(options))

	for key, raw := range options {
		value := strings.TrimSpace(strings.ToLower(raw))
		switch strings.ToLower(key) {
		case "difficulty":
			if !domain.ValidDifficulty(value) {
				st.locker.Unlock()
				return failBecause(domain.ErrInvalidConfigOption, "Difficulty must be easy, normal or hard.")
			}
			if updated.Difficulty != value {
				changes = append(changes, fmt.Sprintf("difficulty: %s -> %s", updated.Difficulty, value))
				updated.Difficulty = value
			}
		case "time", "questiontime":
			seconds, err := strconv.Atoi(value)
			if err != nil || seconds < domain.MinQuestionSeconds || seconds > domain.MaxQuestionSeconds {
				st.locker.Unlock()
				return failBecause(domain.ErrInvalidConfigOption, fmt.Sprintf("Question time must be %d-%d seconds.", domain.MinQuestionSeconds, domain.MaxQuestionSeconds))
			}
			if updated.QuestionSeconds != seconds {
				changes = append(changes, fmt.Sprintf("question time: %ds -> %ds", updated.QuestionSeconds, seconds))
				updated.QuestionSeconds = seconds
			}
		case "difficultymultiplier":
			enabled, err := strconv.ParseBool(value)
			if err != nil {
				st.locker.Unlock()
				return failBecause(domain.ErrInvalidConfigOption, "Difficulty multiplier must be true or false.")
			}
			if updated.DifficultyMultiplier != enabled {
				changes = append(changes, fmt.Sprintf("difficulty multiplier: %t -> %t", updated.DifficultyMultiplier, enabled))
				updated.DifficultyMultiplier = enabled
			}
		case "timebonus":
			enabled, err := strconv.ParseBool(value)
			if err != nil {
				st.locker.Unlock()
				return failBecause(domain.ErrInvalidConfigOption, "Time bonus must be true or false.")
			}
			if updated.TimeBonus != enabled {
				changes = append(changes, fmt.Sprintf("time bonus: %t -> %t", updated.TimeBonus, enabled))
				updated.TimeBonus = enabled
			}
		case "basepoints":
			points, err := strconv.Atoi(value)
			if err != nil || points < 1 || points > 1000 {
				st.locker.Unlock()
				return failBecause(domain.ErrInvalidConfigOption, "Base points must be 1-1000.")
			}
			if updated.BasePoints != points {
				changes = append(changes, fmt.Sprintf("base points: %d -> %d", updated.BasePoints, points))
				updated.BasePoints = points
			}
		case "language":
			if value == "none" || value == "english" || value == "en" {
				value = ""
			}
			if updated.ResponseLanguage != value {
				changes = append(changes, fmt.Sprintf("language: %s -> %s", orDefault(updated.ResponseLanguage, "english"), orDefault(value, "english")))
				updated.ResponseLanguage = value
			}
		default:
			st.locker.Unlock()
			return failBecause(domain.ErrInvalidConfigOption, fmt.Sprintf("Unknown option %q.", key))
		}
	}

	if len(changes) == 0 {
		st.locker.Unlock()
		return succeed("No changes.")
	}

	st.config = updated
	st.locker.Unlock()

	sort.Strings(changes)
	e.persistConfig(channel, updated)
	return succeed("Settings updated: " + strings.Join(changes, ", "))
}

// ResetChannelConfig restores and persists the documented defaults.
func (e *Engine) ResetChannelConfig(channel string) CommandResult {
	st := e.stateFor(channel)

	st.locker.Lock()
	st.config = domain.DefaultChannelConfig()
	cfg := st.config
	st.locker.Unlock()

	e.persistConfig(channel, cfg)
	return succeed("Trivia settings reset to defaults.")
}

func (e *Engine) persistConfig(channel string, cfg domain.ChannelConfig) {
	ctx, cancel := context.WithTimeout(context.Background(), COLLABORATOR_TIMEOUT)
	defer cancel()
	if err := e.repo.SaveChannelConfig(ctx, channel, cfg); err != nil {
		logger.Warningf("[Engine %s] Persisting config failed: %v", channel, err)
	}
}

// ClearLeaderboard wipes the channel's lifetime leaderboard.
func (e *Engine) ClearLeaderboard(channel string) CommandResult {
	ctx, cancel := context.WithTimeout(context.Background(), COLLABORATOR_TIMEOUT)
	defer cancel()
	if err := e.repo.ClearLeaderboard(ctx, channel); err != nil {
		logger.Warningf("[Engine %s] Clearing leaderboard failed: %v", channel, err)
		return fail("Couldn't clear the leaderboard, try again later.")
	}
	return succeed("Leaderboard cleared.")
}

func orDefault(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

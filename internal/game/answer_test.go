package game

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/detekoi/chatsage-sub000/internal/domain"
)

// startSingleRound spins up a one-round session on "chan" and waits for
// the question to be live.
func startSingleRound(t *testing.T, e *Engine, oracleMock *MockOracle, repo *MockRepository, q domain.Question) *GameState {
	t.Helper()
	expectDefaultConfig(repo, "chan")
	expectEmptyHistory(repo, "chan")
	expectRoundPersistence(repo)
	oracleMock.On("GenerateQuestion", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(q, nil)

	require.True(t, e.StartGame("chan", "", "ada", 1).Success)
	return waitForPhase(t, e, "chan", PHASE_IN_PROGRESS)
}

func TestProcessPotentialAnswer_ExactMatch(t *testing.T) {
	e, oracleMock, repo, chat, _, clock := newTestEngine()

	persisted := make(chan struct{})
	repo.On("AddLifetimePoints", mock.Anything, "chan", "grace", "Grace", 22).
		Run(func(mock.Arguments) { close(persisted) }).
		Return(nil).Once()
	st := startSingleRound(t, e, oracleMock, repo, marsQuestion())

	clock.Advance(200 * time.Millisecond)
	require.True(t, e.ProcessPotentialAnswer(t.Context(), "chan", "grace", "Grace", "  MARS ").Success)

	assert.Equal(t, PHASE_ENDING, phaseOf(st))
	waitForMessage(t, chat, "Grace got it in 0.2s! The answer was Mars. +22 points.")
	// Exact matches never consult the Oracle.
	oracleMock.AssertNotCalled(t, "VerifyAnswer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	select {
	case <-persisted:
	case <-time.After(10 * time.Second):
		t.Fatal("lifetime points were never persisted")
	}
}

func TestProcessPotentialAnswer_AlternateMatch(t *testing.T) {
	e, oracleMock, repo, chat, _, _ := newTestEngine()
	startSingleRound(t, e, oracleMock, repo, marsQuestion())

	require.True(t, e.ProcessPotentialAnswer(t.Context(), "chan", "grace", "Grace", "planet mars").Success)
	waitForMessage(t, chat, "Grace got it")
	oracleMock.AssertNotCalled(t, "VerifyAnswer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessPotentialAnswer_GuessCache(t *testing.T) {
	e, oracleMock, repo, _, _, clock := newTestEngine()
	st := startSingleRound(t, e, oracleMock, repo, marsQuestion())
	oracleMock.On("VerifyAnswer", mock.Anything, "Mars", "venus", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.Verdict{IsCorrect: false, Confidence: 0.9}, nil).Once()

	e.ProcessPotentialAnswer(t.Context(), "chan", "grace", "Grace", "venus")
	assert.Equal(t, PHASE_IN_PROGRESS, phaseOf(st))

	// The same wrong guess again is answered from the round cache.
	clock.Advance(time.Second)
	e.ProcessPotentialAnswer(t.Context(), "chan", "ada", "Ada", "Venus")
	oracleMock.AssertNumberOfCalls(t, "VerifyAnswer", 1)
}

func TestGuessCache_ClearedBetweenRounds(t *testing.T) {
	e, oracleMock, repo, _, _, clock := newTestEngine()
	expectDefaultConfig(repo, "chan")
	expectEmptyHistory(repo, "chan")
	expectRoundPersistence(repo)

	second := domain.Question{
		Text:       "Which ocean is the largest on Earth?",
		Answer:     "Pacific Ocean",
		Difficulty: domain.DifficultyNormal,
	}
	oracleMock.On("GenerateQuestion", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(marsQuestion(), nil).Once()
	oracleMock.On("GenerateQuestion", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(second, nil).Once()
	oracleMock.On("VerifyAnswer", mock.Anything, mock.Anything, "atlantis", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.Verdict{IsCorrect: false}, nil)

	require.True(t, e.StartGame("chan", "", "ada", 2).Success)
	waitForPhase(t, e, "chan", PHASE_IN_PROGRESS)

	e.ProcessPotentialAnswer(t.Context(), "chan", "grace", "Grace", "atlantis")
	oracleMock.AssertNumberOfCalls(t, "VerifyAnswer", 1)

	// Within round 1 the repeat is served from the cache.
	clock.Advance(time.Second)
	e.ProcessPotentialAnswer(t.Context(), "chan", "ada", "Ada", "atlantis")
	oracleMock.AssertNumberOfCalls(t, "VerifyAnswer", 1)

	// Round 1 times out; round 2 must judge the same guess afresh.
	e.Tick(clock.Advance(31 * time.Second))
	e.Tick(clock.Advance(ROUND_DELAY + time.Second))
	waitForPhase(t, e, "chan", PHASE_IN_PROGRESS)

	e.ProcessPotentialAnswer(t.Context(), "chan", "grace", "Grace", "atlantis")
	oracleMock.AssertNumberOfCalls(t, "VerifyAnswer", 2)
}

func TestProcessPotentialAnswer_SpamWindow(t *testing.T) {
	e, oracleMock, repo, _, _, _ := newTestEngine()
	startSingleRound(t, e, oracleMock, repo, marsQuestion())
	oracleMock.On("VerifyAnswer", mock.Anything, "Mars", "venus", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.Verdict{IsCorrect: false}, nil).Once()

	e.ProcessPotentialAnswer(t.Context(), "chan", "grace", "Grace", "venus")
	// The clock has not advanced, so the next line lands inside the window.
	e.ProcessPotentialAnswer(t.Context(), "chan", "ada", "Ada", "jupiter")
	oracleMock.AssertNumberOfCalls(t, "VerifyAnswer", 1)
}

func TestProcessPotentialAnswer_OracleFallbackSimilarity(t *testing.T) {
	question := domain.Question{
		Text:       "What is the largest planet in our solar system?",
		Answer:     "Jupiter",
		Difficulty: domain.DifficultyNormal,
	}

	e, oracleMock, repo, chat, _, clock := newTestEngine()
	st := startSingleRound(t, e, oracleMock, repo, question)
	oracleMock.On("VerifyAnswer", mock.Anything, "Jupiter", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(domain.Verdict{}, errors.New("oracle down"))

	// Too far from the answer even for the fallback.
	e.ProcessPotentialAnswer(t.Context(), "chan", "grace", "Grace", "Saturn")
	assert.Equal(t, PHASE_IN_PROGRESS, phaseOf(st))

	// One edit away from "Jupiter": above the fallback ratio.
	clock.Advance(time.Second)
	require.True(t, e.ProcessPotentialAnswer(t.Context(), "chan", "ada", "Ada", "Jupitr").Success)
	assert.Equal(t, PHASE_ENDING, phaseOf(st))
	waitForMessage(t, chat, "Ada got it")
}

func TestProcessPotentialAnswer_TranslatesGuess(t *testing.T) {
	e, oracleMock, repo, chat, translator, _ := newTestEngine()
	expectDefaultConfig(repo, "chan")
	require.True(t, e.ConfigureGame("chan", map[string]string{"language": "spanish"}).Success)
	startSingleRound(t, e, oracleMock, repo, marsQuestion())

	translator.On("Translate", mock.Anything, "Marte", "English").Return("Mars", nil).Once()
	require.True(t, e.ProcessPotentialAnswer(t.Context(), "chan", "grace", "Grace", "Marte").Success)
	waitForMessage(t, chat, "Grace got it")
}

func TestProcessPotentialAnswer_TranslationFailureUsesOriginal(t *testing.T) {
	e, oracleMock, repo, _, translator, _ := newTestEngine()
	expectDefaultConfig(repo, "chan")
	require.True(t, e.ConfigureGame("chan", map[string]string{"language": "spanish"}).Success)
	st := startSingleRound(t, e, oracleMock, repo, marsQuestion())

	translator.On("Translate", mock.Anything, "Venus", "English").Return("", errors.New("translator down")).Once()
	oracleMock.On("VerifyAnswer", mock.Anything, "Mars", "Venus", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.Verdict{IsCorrect: false}, nil).Once()

	e.ProcessPotentialAnswer(t.Context(), "chan", "grace", "Grace", "Venus")
	assert.Equal(t, PHASE_IN_PROGRESS, phaseOf(st))
	oracleMock.AssertNumberOfCalls(t, "VerifyAnswer", 1)
}

func TestProcessPotentialAnswer_StaleVerdictDiscarded(t *testing.T) {
	e, oracleMock, repo, chat, _, clock := newTestEngine()
	st := startSingleRound(t, e, oracleMock, repo, marsQuestion())

	inFlight := make(chan struct{})
	release := make(chan struct{})
	oracleMock.On("VerifyAnswer", mock.Anything, "Mars", "the red one", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(inFlight)
			<-release
		}).
		Return(domain.Verdict{IsCorrect: true, Confidence: 0.95}, nil).Once()

	done := make(chan struct{})
	go func() {
		defer close(done)
		e.ProcessPotentialAnswer(t.Context(), "chan", "grace", "Grace", "the red one")
	}()

	// The round times out while the verdict is still in flight.
	<-inFlight
	e.Tick(clock.Advance(31 * time.Second))
	waitForMessage(t, chat, "Time's up!")
	close(release)
	<-done

	// The correct-but-late verdict must not produce a second resolution.
	assert.Equal(t, PHASE_ENDING, phaseOf(st))
	assert.Equal(t, 0, countMessages(chat, "got it"))
	assert.Equal(t, 1, countMessages(chat, "Time's up"))
}

func TestProcessPotentialAnswer_IgnoredWhenNoRound(t *testing.T) {
	e, _, repo, chat, _, _ := newTestEngine()
	expectDefaultConfig(repo, "chan")

	// Unknown channel, then a known-but-idle one.
	assert.True(t, e.ProcessPotentialAnswer(t.Context(), "chan", "grace", "Grace", "Mars").Success)
	e.stateFor("chan")
	assert.True(t, e.ProcessPotentialAnswer(t.Context(), "chan", "grace", "Grace", "Mars").Success)
	assert.Equal(t, 0, chat.count())
}

func TestProcessPotentialAnswer_StreakBonus(t *testing.T) {
	e, oracleMock, repo, chat, _, clock := newTestEngine()
	expectDefaultConfig(repo, "chan")
	expectEmptyHistory(repo, "chan")
	expectRoundPersistence(repo)

	questions := []domain.Question{
		{Text: "What planet is known as the Red Planet?", Answer: "Mars", Difficulty: domain.DifficultyNormal},
		{Text: "Which ocean is the largest on Earth?", Answer: "Pacific Ocean", Difficulty: domain.DifficultyNormal},
		{Text: "What is the tallest mountain above sea level?", Answer: "Mount Everest", Difficulty: domain.DifficultyNormal},
	}
	for _, q := range questions {
		oracleMock.On("GenerateQuestion", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(q, nil).Once()
	}

	require.True(t, e.StartGame("chan", "", "ada", 3).Success)
	for _, q := range questions {
		waitForPhase(t, e, "chan", PHASE_IN_PROGRESS)
		waitForMessage(t, chat, q.Text)
		require.True(t, e.ProcessPotentialAnswer(t.Context(), "chan", "grace", "Grace", q.Answer).Success)
		e.Tick(clock.Advance(ROUND_DELAY + time.Second))
	}

	// Rounds 1 and 2 pay 22; round 3 carries a streak of 2 going in,
	// so 22.5 x 1.1 floors to 24.
	waitForMessage(t, chat, "+22 points.")
	waitForMessage(t, chat, "+24 points (streak x3).")
}

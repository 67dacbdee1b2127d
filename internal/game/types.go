package game

import (
	"sync"
	"time"

	"github.com/detekoi/chatsage-sub000/internal/domain"
)

type GamePhase int

const (
	PHASE_IDLE GamePhase = iota
	PHASE_SELECTING
	PHASE_IN_PROGRESS
	PHASE_GUESSED
	PHASE_TIMEOUT
	PHASE_ENDING
)

func (p GamePhase) String() string {
	switch p {
	case PHASE_IDLE:
		return "idle"
	case PHASE_SELECTING:
		return "selecting"
	case PHASE_IN_PROGRESS:
		return "in progress"
	case PHASE_GUESSED:
		return "guessed"
	case PHASE_TIMEOUT:
		return "timeout"
	case PHASE_ENDING:
		return "ending"
	}
	return "unknown"
}

// --- Engine Constants ---
const ROUND_DELAY = time.Second * 8           // Pause between round resolution and the next question (or Idle).
const GENERATION_ATTEMPTS = 3                 // Oracle retry budget per round.
const GENERATION_BACKOFF = time.Second * 2    // Wait between generation attempts.
const HISTORY_FETCH_LIMIT = 50                // Recently persisted questions/answers pulled into the exclusion lists.
const SPAM_WINDOW = time.Millisecond * 500    // Minimum gap between processed chat lines per channel.
const VERIFY_FALLBACK_THRESHOLD = 0.8         // Levenshtein ratio accepted when the Oracle is unavailable.
const MIN_QUESTION_LENGTH = 10                // Shorter generated questions are discarded.
const MAX_SESSION_ROUNDS = 20                 // Upper bound on rounds per session.
const LEADERBOARD_SIZE = 10                   // Rows shown at natural session end.
const PENDING_REPORT_TTL = time.Second * 60   // How long a multi-round report waits for a round number.
const COLLABORATOR_TIMEOUT = time.Second * 30 // Budget for a single Oracle/persistence call.

type sessionScore struct {
	displayName string
	points      int
}

type winnerInfo struct {
	username    string
	displayName string
	points      int
	elapsed     time.Duration
}

// GameState is the per-channel record driven by the round lifecycle state
// machine. All fields are guarded by locker; the engine never holds it
// across a collaborator call.
type GameState struct {
	locker sync.Mutex

	channel string
	config  domain.ChannelConfig

	// Session shape
	phase        GamePhase
	sessionID    string
	topic        string
	initiator    string
	totalRounds  int
	currentRound int
	stopped      bool
	endReason    string

	// Round-scoped state
	currentQuestion *domain.Question
	roundStart      time.Time
	deadline        time.Time
	guessCache      map[string]bool
	lastProcessedAt time.Time

	// Session-scoped accumulators
	sessionScores      map[string]*sessionScore
	streaks            map[string]int
	excludedQuestions  map[string]struct{}
	excludedAnswers    map[string]struct{}
	questionSignatures map[string]struct{}

	// Bumped on every round resolution and session start so that verdicts
	// resolving late are recognized as stale.
	generation uint64
}

func newGameState(channel string, config domain.ChannelConfig) *GameState {
	return &GameState{
		channel:            channel,
		config:             config,
		phase:              PHASE_IDLE,
		guessCache:         make(map[string]bool),
		sessionScores:      make(map[string]*sessionScore),
		streaks:            make(map[string]int),
		excludedQuestions:  make(map[string]struct{}),
		excludedAnswers:    make(map[string]struct{}),
		questionSignatures: make(map[string]struct{}),
	}
}

// CommandResult is what every inbound operation returns for the command
// layer to relay. Reason classifies a failure with a domain sentinel where
// one applies; Message is always what the user sees.
type CommandResult struct {
	Success bool
	Message string
	Reason  error
}

func succeed(message string) CommandResult {
	return CommandResult{Success: true, Message: message}
}

func fail(message string) CommandResult {
	return CommandResult{Success: false, Message: message}
}

func failBecause(reason error, message string) CommandResult {
	return CommandResult{Success: false, Message: message, Reason: reason}
}

package domain

import "time"

// Difficulty levels accepted by the engine and the Oracle.
const (
	DifficultyEasy   = "easy"
	DifficultyNormal = "normal"
	DifficultyHard   = "hard"
)

func ValidDifficulty(d string) bool {
	return d == DifficultyEasy || d == DifficultyNormal || d == DifficultyHard
}

// Question is one generated trivia question.
type Question struct {
	Text             string
	Answer           string
	AlternateAnswers []string
	Explanation      string
	Difficulty       string
	Topic            string
}

// Verdict is the Oracle's judgement of a guess.
type Verdict struct {
	IsCorrect  bool
	Confidence float64
	Reasoning  string
}

// ChannelConfig holds the persisted per-channel settings.
type ChannelConfig struct {
	Difficulty           string
	QuestionSeconds      int
	DifficultyMultiplier bool
	TimeBonus            bool
	BasePoints           int
	ResponseLanguage     string
}

// Question time bounds and defaults for channel configuration.
const (
	MinQuestionSeconds     = 10
	MaxQuestionSeconds     = 120
	DefaultQuestionSeconds = 30
	DefaultBasePoints      = 10
)

// DefaultChannelConfig is persisted on first access for a channel.
func DefaultChannelConfig() ChannelConfig {
	return ChannelConfig{
		Difficulty:           DifficultyNormal,
		QuestionSeconds:      DefaultQuestionSeconds,
		DifficultyMultiplier: true,
		TimeBonus:            true,
		BasePoints:           DefaultBasePoints,
		ResponseLanguage:     "",
	}
}

// Round resolution reasons, recorded with every round result.
const (
	ResolutionGuessed       = "guessed"
	ResolutionTimeout       = "timeout"
	ResolutionStopped       = "stopped"
	ResolutionQuestionError = "question_error"
)

// RoundResult is the persisted record of one resolved round.
type RoundResult struct {
	ID            string
	Channel       string
	SessionID     string
	RoundNumber   int
	TotalRounds   int
	Topic         string
	Question      string
	Answer        string
	Difficulty    string
	WinnerUser    string
	WinnerDisplay string
	Points        int
	ElapsedMs     int64
	Resolution    string
	CreatedAt     time.Time
}

// LeaderboardEntry is one row of a channel's lifetime leaderboard.
type LeaderboardEntry struct {
	Username     string
	DisplayName  string
	Points       int
	CorrectCount int
}

// SessionItem identifies one round of a completed session for reporting.
type SessionItem struct {
	RoundNumber int
	RecordID    string
	Question    string
	Answer      string
}

// CompletedSession is the most recent fully resolved session of a channel.
type CompletedSession struct {
	SessionID   string
	TotalRounds int
	Items       []SessionItem
}

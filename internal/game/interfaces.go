package game

import (
	"context"

	"github.com/detekoi/chatsage-sub000/internal/domain"
)

// Oracle generates questions and judges guesses.
type Oracle interface {
	GenerateQuestion(ctx context.Context, topic string, difficulty string, excludedQuestions []string, excludedAnswers []string) (domain.Question, error)
	VerifyAnswer(ctx context.Context, correctAnswer string, guess string, alternates []string, questionText string, topic string) (domain.Verdict, error)
}

// Translator renders non-English guesses into English before verification.
type Translator interface {
	Translate(ctx context.Context, text string, targetLanguage string) (string, error)
}

// Transport delivers outbound chat text. Fire-and-forget.
type Transport interface {
	EnqueueMessage(channel string, text string)
}

// Repository is the persistence collaborator.
type Repository interface {
	LoadChannelConfig(ctx context.Context, channel string) (domain.ChannelConfig, error)
	SaveChannelConfig(ctx context.Context, channel string, cfg domain.ChannelConfig) error
	RecordRoundResult(ctx context.Context, result domain.RoundResult) error
	GetRecentQuestions(ctx context.Context, channel string, topic string, limit int) ([]string, error)
	GetRecentAnswers(ctx context.Context, channel string, topic string, limit int) ([]string, error)
	AddLifetimePoints(ctx context.Context, channel string, username string, displayName string, points int) error
	GetLeaderboard(ctx context.Context, channel string, limit int) ([]domain.LeaderboardEntry, error)
	ClearLeaderboard(ctx context.Context, channel string) error
	GetLatestCompletedSession(ctx context.Context, channel string) (domain.CompletedSession, error)
	FlagRecordByID(ctx context.Context, recordID string, reason string, reporter string) error
}

package game

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/detekoi/chatsage-sub000/internal/domain"
)

// --- Oracle ---

type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) GenerateQuestion(ctx context.Context, topic string, difficulty string, excludedQuestions []string, excludedAnswers []string) (domain.Question, error) {
	args := m.Called(ctx, topic, difficulty, excludedQuestions, excludedAnswers)
	return args.Get(0).(domain.Question), args.Error(1)
}

func (m *MockOracle) VerifyAnswer(ctx context.Context, correctAnswer string, guess string, alternates []string, questionText string, topic string) (domain.Verdict, error) {
	args := m.Called(ctx, correctAnswer, guess, alternates, questionText, topic)
	return args.Get(0).(domain.Verdict), args.Error(1)
}

// --- Translator ---

type MockTranslator struct {
	mock.Mock
}

func (m *MockTranslator) Translate(ctx context.Context, text string, targetLanguage string) (string, error) {
	args := m.Called(ctx, text, targetLanguage)
	return args.String(0), args.Error(1)
}

// --- Repository ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) LoadChannelConfig(ctx context.Context, channel string) (domain.ChannelConfig, error) {
	args := m.Called(ctx, channel)
	return args.Get(0).(domain.ChannelConfig), args.Error(1)
}

func (m *MockRepository) SaveChannelConfig(ctx context.Context, channel string, cfg domain.ChannelConfig) error {
	args := m.Called(ctx, channel, cfg)
	return args.Error(0)
}

func (m *MockRepository) RecordRoundResult(ctx context.Context, result domain.RoundResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockRepository) GetRecentQuestions(ctx context.Context, channel string, topic string, limit int) ([]string, error) {
	args := m.Called(ctx, channel, topic, limit)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRepository) GetRecentAnswers(ctx context.Context, channel string, topic string, limit int) ([]string, error) {
	args := m.Called(ctx, channel, topic, limit)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRepository) AddLifetimePoints(ctx context.Context, channel string, username string, displayName string, points int) error {
	args := m.Called(ctx, channel, username, displayName, points)
	return args.Error(0)
}

func (m *MockRepository) GetLeaderboard(ctx context.Context, channel string, limit int) ([]domain.LeaderboardEntry, error) {
	args := m.Called(ctx, channel, limit)
	return args.Get(0).([]domain.LeaderboardEntry), args.Error(1)
}

func (m *MockRepository) ClearLeaderboard(ctx context.Context, channel string) error {
	args := m.Called(ctx, channel)
	return args.Error(0)
}

func (m *MockRepository) GetLatestCompletedSession(ctx context.Context, channel string) (domain.CompletedSession, error) {
	args := m.Called(ctx, channel)
	return args.Get(0).(domain.CompletedSession), args.Error(1)
}

func (m *MockRepository) FlagRecordByID(ctx context.Context, recordID string, reason string, reporter string) error {
	args := m.Called(ctx, recordID, reason, reporter)
	return args.Error(0)
}

// --- Transport recorder ---

type recordingTransport struct {
	locker   sync.Mutex
	messages []string
}

func (r *recordingTransport) EnqueueMessage(channel string, text string) {
	r.locker.Lock()
	defer r.locker.Unlock()
	r.messages = append(r.messages, text)
}

func (r *recordingTransport) snapshot() []string {
	r.locker.Lock()
	defer r.locker.Unlock()
	return append([]string{}, r.messages...)
}

func (r *recordingTransport) count() int {
	r.locker.Lock()
	defer r.locker.Unlock()
	return len(r.messages)
}

// --- Clock ---

type fakeClock struct {
	locker sync.Mutex
	t      time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.locker.Lock()
	defer c.locker.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.locker.Lock()
	defer c.locker.Unlock()
	c.t = c.t.Add(d)
	return c.t
}

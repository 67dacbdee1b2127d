// Package storage persists channel configuration, round history and the
// lifetime leaderboard in Postgres.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/detekoi/chatsage-sub000/internal/domain"
)

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRepo(ctx context.Context, connString string) (*PostgresRepo, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	return &PostgresRepo{pool: pool}, nil
}

func (repo *PostgresRepo) Close() {
	repo.pool.Close()
}

func wrapDBError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
}

func (repo *PostgresRepo) LoadChannelConfig(ctx context.Context, channel string) (domain.ChannelConfig, error) {
	cfg := domain.ChannelConfig{}

	row := repo.pool.QueryRow(ctx,
		`SELECT difficulty, question_seconds, difficulty_multiplier, time_bonus, base_points, response_language
		 FROM channel_configs WHERE channel = $1`, channel)

	err := row.Scan(&cfg.Difficulty, &cfg.QuestionSeconds, &cfg.DifficultyMultiplier, &cfg.TimeBonus, &cfg.BasePoints, &cfg.ResponseLanguage)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ChannelConfig{}, domain.ErrConfigNotFound
		}
		return domain.ChannelConfig{}, wrapDBError(err)
	}

	return cfg, nil
}

func (repo *PostgresRepo) SaveChannelConfig(ctx context.Context, channel string, cfg domain.ChannelConfig) error {
	_, err := repo.pool.Exec(ctx,
		`INSERT INTO channel_configs (channel, difficulty, question_seconds, difficulty_multiplier, time_bonus, base_points, response_language, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		 ON CONFLICT (channel) DO UPDATE SET
		   difficulty = EXCLUDED.difficulty,
		   question_seconds = EXCLUDED.question_seconds,
		   difficulty_multiplier = EXCLUDED.difficulty_multiplier,
		   time_bonus = EXCLUDED.time_bonus,
		   base_points = EXCLUDED.base_points,
		   response_language = EXCLUDED.response_language,
		   updated_at = now()`,
		channel, cfg.Difficulty, cfg.QuestionSeconds, cfg.DifficultyMultiplier, cfg.TimeBonus, cfg.BasePoints, cfg.ResponseLanguage)

	if err != nil {
		return wrapDBError(err)
	}
	return nil
}

func (repo *PostgresRepo) DeleteChannelConfig(ctx context.Context, channel string) error {
	_, err := repo.pool.Exec(ctx, `DELETE FROM channel_configs WHERE channel = $1`, channel)
	if err != nil {
		return wrapDBError(err)
	}
	return nil
}

func (repo *PostgresRepo) RecordRoundResult(ctx context.Context, result domain.RoundResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}

	_, err := repo.pool.Exec(ctx,
		`INSERT INTO round_results (id, channel, session_id, round_number, total_rounds, topic, question, answer, difficulty, winner_username, winner_display, points, elapsed_ms, resolution)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		result.ID, result.Channel, result.SessionID, result.RoundNumber, result.TotalRounds,
		result.Topic, result.Question, result.Answer, result.Difficulty,
		result.WinnerUser, result.WinnerDisplay, result.Points, result.ElapsedMs, result.Resolution)

	if err != nil {
		return wrapDBError(err)
	}
	return nil
}

func (repo *PostgresRepo) GetRecentQuestions(ctx context.Context, channel string, topic string, limit int) ([]string, error) {
	return repo.recentColumn(ctx, "question", channel, topic, limit)
}

func (repo *PostgresRepo) GetRecentAnswers(ctx context.Context, channel string, topic string, limit int) ([]string, error) {
	return repo.recentColumn(ctx, "answer", channel, topic, limit)
}

func (repo *PostgresRepo) recentColumn(ctx context.Context, column string, channel string, topic string, limit int) ([]string, error) {
	// column is one of two hard-coded call sites, never user input
	query := fmt.Sprintf(
		`SELECT %s FROM round_results
		 WHERE channel = $1 AND ($2 = '' OR topic = $2)
		 ORDER BY created_at DESC LIMIT $3`, column)

	rows, err := repo.pool.Query(ctx, query, channel, topic, limit)
	if err != nil {
		return nil, wrapDBError(err)
	}
	defer rows.Close()

	values := make([]string, 0, limit)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, wrapDBError(err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err)
	}
	return values, nil
}

func (repo *PostgresRepo) AddLifetimePoints(ctx context.Context, channel string, username string, displayName string, points int) error {
	_, err := repo.pool.Exec(ctx,
		`INSERT INTO leaderboard (channel, username, display_name, points, correct_count)
		 VALUES ($1, $2, $3, $4, 1)
		 ON CONFLICT (channel, username) DO UPDATE SET
		   display_name = EXCLUDED.display_name,
		   points = leaderboard.points + EXCLUDED.points,
		   correct_count = leaderboard.correct_count + 1`,
		channel, username, displayName, points)

	if err != nil {
		return wrapDBError(err)
	}
	return nil
}

func (repo *PostgresRepo) GetLeaderboard(ctx context.Context, channel string, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := repo.pool.Query(ctx,
		`SELECT username, display_name, points, correct_count FROM leaderboard
		 WHERE channel = $1 ORDER BY points DESC, username ASC LIMIT $2`, channel, limit)
	if err != nil {
		return nil, wrapDBError(err)
	}
	defer rows.Close()

	entries := make([]domain.LeaderboardEntry, 0, limit)
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.DisplayName, &e.Points, &e.CorrectCount); err != nil {
			return nil, wrapDBError(err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err)
	}
	return entries, nil
}

func (repo *PostgresRepo) ClearLeaderboard(ctx context.Context, channel string) error {
	_, err := repo.pool.Exec(ctx, `DELETE FROM leaderboard WHERE channel = $1`, channel)
	if err != nil {
		return wrapDBError(err)
	}
	return nil
}

func (repo *PostgresRepo) GetLatestCompletedSession(ctx context.Context, channel string) (domain.CompletedSession, error) {
	row := repo.pool.QueryRow(ctx,
		`SELECT session_id FROM round_results
		 WHERE channel = $1 ORDER BY created_at DESC LIMIT 1`, channel)

	var sessionID string
	if err := row.Scan(&sessionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CompletedSession{}, domain.ErrSessionNotFound
		}
		return domain.CompletedSession{}, wrapDBError(err)
	}

	rows, err := repo.pool.Query(ctx,
		`SELECT id, round_number, total_rounds, question, answer FROM round_results
		 WHERE session_id = $1 ORDER BY round_number ASC`, sessionID)
	if err != nil {
		return domain.CompletedSession{}, wrapDBError(err)
	}
	defer rows.Close()

	session := domain.CompletedSession{SessionID: sessionID}
	for rows.Next() {
		var item domain.SessionItem
		if err := rows.Scan(&item.RecordID, &item.RoundNumber, &session.TotalRounds, &item.Question, &item.Answer); err != nil {
			return domain.CompletedSession{}, wrapDBError(err)
		}
		session.Items = append(session.Items, item)
	}
	if err := rows.Err(); err != nil {
		return domain.CompletedSession{}, wrapDBError(err)
	}
	return session, nil
}

func (repo *PostgresRepo) FlagRecordByID(ctx context.Context, recordID string, reason string, reporter string) error {
	tag, err := repo.pool.Exec(ctx,
		`UPDATE round_results SET flagged = TRUE, flag_reason = $2, flag_reporter = $3 WHERE id = $1`,
		recordID, reason, reporter)
	if err != nil {
		return wrapDBError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

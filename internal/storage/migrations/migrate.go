package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/detekoi/chatsage-sub000/internal/shared/logger"
)

//go:embed *.sql
var triviaSchema embed.FS

// Migrate brings the trivia schema (channel configs, round history,
// leaderboard) up to date on the database behind pgurl.
func Migrate(pgurl string) error {
	db, err := sql.Open("pgx", pgurl)
	if err != nil {
		return fmt.Errorf("opening migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(triviaSchema)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("applying trivia schema migrations: %w", err)
	}

	logger.Info("Trivia schema is up to date")
	return nil
}

// Package modlog is a SQLite-backed audit trail for moderation actions
// (ban, unban, and count queries a moderator performs). It supplements the
// file-backed banned/moderator sets in internal/moderation — it does not
// replace them, and it never stores chat message content.
package modlog

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "modernc.org/sqlite"
)

//go:embed all:migrations/sqlite
var migrations embed.FS

// Action identifies the kind of privileged operation being recorded.
type Action string

const (
	ActionBan         Action = "ban"
	ActionUnban       Action = "unban"
	ActionUserCount   Action = "user_count"
)

// Entry is one row of the moderation audit log.
type Entry struct {
	bun.BaseModel `bun:"table:moderation_audit_log"`

	ID            int64     `bun:"id,pk,autoincrement"`
	TargetUUID    string    `bun:"target_uuid,notnull"`
	ModeratorUUID string    `bun:"moderator_uuid,notnull"`
	Action        Action    `bun:"action,notnull"`
	OccurredAt    time.Time `bun:"occurred_at,notnull"`
}

// Log appends moderation actions to a SQLite database and lets operators
// query recent activity for a given target.
type Log struct {
	db *bun.DB
}

// Open applies pending migrations and returns a Log backed by dsn (a
// modernc.org/sqlite data source name, e.g. a file path or ":memory:").
func Open(dsn string) (*Log, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}

	if err := runMigrations(sqldb); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("migrate audit database: %w", err)
	}

	return &Log{db: bun.NewDB(sqldb, sqlitedialect.New())}, nil
}

func runMigrations(sqldb *sql.DB) error {
	sub, err := iofs.New(migrations, "migrations/sqlite")
	if err != nil {
		return fmt.Errorf("read embedded migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(sqldb, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sub, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// Close releases the underlying database connection.
func (l *Log) Close() error {
	return l.db.Close()
}

// Append records one moderation action.
func (l *Log) Append(ctx context.Context, target, moderator uuid.UUID, action Action) error {
	entry := &Entry{
		TargetUUID:    target.String(),
		ModeratorUUID: moderator.String(),
		Action:        action,
		OccurredAt:    time.Now(),
	}
	_, err := l.db.NewInsert().Model(entry).Exec(ctx)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// RecentForTarget returns the most recent audit entries naming target,
// newest first, capped at limit.
func (l *Log) RecentForTarget(ctx context.Context, target uuid.UUID, limit int) ([]Entry, error) {
	var entries []Entry
	err := l.db.NewSelect().
		Model(&entries).
		Where("target_uuid = ?", target.String()).
		OrderExpr("occurred_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	return entries, nil
}

// Package repo implements the storage engine for the archive, backed by GORM
// over a pure-Go SQLite database. This file contains bootstrapping helpers:
// opening the database under a deadline and the versioned, additive schema
// migrations.
package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-chat-archive/internal/domain"
)

// SchemaVersion is the schema version this build writes.
const SchemaVersion = 2

// ErrOpenTimeout is returned when the database cannot be opened and migrated
// before the open deadline.
var ErrOpenTimeout = errors.New("store open timed out")

// OpenOptions tunes OpenSQLite.
type OpenOptions struct {
	// Tracing installs the GORM OpenTelemetry plugin.
	Tracing bool
	// Logger overrides the GORM logger (silent when nil).
	Logger logger.Interface
}

// OpenSQLite opens (or creates) a SQLite database, applies PRAGMAs and brings
// the schema up to SchemaVersion. The whole sequence is bounded by ctx; on
// expiry it returns ErrOpenTimeout and closes whatever was opened late.
func OpenSQLite(ctx context.Context, path string, opts OpenOptions) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)").
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	type result struct {
		db  *gorm.DB
		err error
	}
	done := make(chan result, 1)
	go func() {
		db, err := openAndMigrate(ctx, path, opts)
		done <- result{db, err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrOpenTimeout
		}
		return r.db, r.err
	case <-ctx.Done():
		// Close a handle that shows up after we gave up on it.
		go func() {
			if r := <-done; r.db != nil {
				closeDB(r.db)
			}
		}()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrOpenTimeout
		}
		return nil, ctx.Err()
	}
}

func openAndMigrate(ctx context.Context, path string, opts OpenOptions) (*gorm.DB, error) {
	lg := opts.Logger
	if lg == nil {
		lg = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: lg})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if opts.Tracing {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			closeDB(db)
			return nil, fmt.Errorf("install tracing plugin: %w", err)
		}
	}

	if err := Migrate(ctx, db); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// migration is one additive schema step. Steps must only create what is
// missing so that re-running them is harmless.
type migration struct {
	version int
	name    string
	apply   func(m gorm.Migrator) error
}

var migrations = []migration{
	{version: 1, name: "collections", apply: migrateV1},
	{version: 2, name: "bookmarks by message id", apply: migrateV2},
}

// migrateV1 creates the three collections, their base indexes and the
// idempotency table.
func migrateV1(m gorm.Migrator) error {
	for _, model := range []any{&domain.Chat{}, &domain.Message{}, &domain.Bookmark{}, &domain.Idempotency{}} {
		if !m.HasTable(model) {
			if err := m.CreateTable(model); err != nil {
				return err
			}
		}
	}
	return ensureIndexes(m, map[any][]string{
		&domain.Chat{}:     {"idx_chats_name", "idx_chats_last_message", "idx_chats_created_at"},
		&domain.Message{}:  {"idx_messages_chat", "idx_messages_timestamp", "idx_messages_sender", "idx_messages_chat_index"},
		&domain.Bookmark{}: {"idx_bookmarks_chat", "idx_bookmarks_created_at"},
	})
}

// migrateV2 adds the by-message-id lookup index on bookmarks.
func migrateV2(m gorm.Migrator) error {
	return ensureIndexes(m, map[any][]string{
		&domain.Bookmark{}: {"idx_bookmarks_message_id"},
	})
}

func ensureIndexes(m gorm.Migrator, want map[any][]string) error {
	for model, names := range want {
		for _, name := range names {
			if m.HasIndex(model, name) {
				continue
			}
			if err := m.CreateIndex(model, name); err != nil {
				return fmt.Errorf("create index %s: %w", name, err)
			}
		}
	}
	return nil
}

// CurrentSchemaVersion returns the persisted schema version, or 0 for a
// database that has never been migrated.
func CurrentSchemaVersion(ctx context.Context, db *gorm.DB) (int, error) {
	m := db.WithContext(ctx).Migrator()
	if !m.HasTable(&domain.SchemaMeta{}) {
		return 0, nil
	}
	var meta domain.SchemaMeta
	err := db.WithContext(ctx).Where("id = ?", 1).Limit(1).Find(&meta).Error
	if err != nil {
		return 0, err
	}
	return meta.Version, nil
}

// Migrate applies every step newer than the persisted version, in order, and
// records the new version. Each step runs in its own transaction together with
// its version bump.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).Migrator().AutoMigrate(&domain.SchemaMeta{}); err != nil {
		return err
	}
	current, err := CurrentSchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	for _, step := range migrations {
		if step.version <= current {
			continue
		}
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := step.apply(tx.Migrator()); err != nil {
				return fmt.Errorf("schema v%d (%s): %w", step.version, step.name, err)
			}
			return tx.Save(&domain.SchemaMeta{ID: 1, Version: step.version, UpdatedAt: time.Now().UTC()}).Error
		})
		if err != nil {
			return err
		}
		current = step.version
	}
	return nil
}

// Package cli implements the chatarchive commands.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-chat-archive/internal/config"
	"github.com/tbourn/go-chat-archive/internal/events"
	"github.com/tbourn/go-chat-archive/internal/parser"
	"github.com/tbourn/go-chat-archive/internal/repo"
	"github.com/tbourn/go-chat-archive/internal/services"
	"github.com/tbourn/go-chat-archive/internal/sysutil"
)

// Version is stamped at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

var (
	dbPath  string
	envFile string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:           "chatarchive",
	Short:         "Archive of exported chat transcripts",
	Long:          "Import, browse, search and bookmark exported chat transcripts. SQLite-backed, single binary.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $DB_PATH or archive.db)")
	RootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before reading config")
}

// loadConfig reads the env file, if present, then the environment. Values
// already set in the environment win over the file.
func loadConfig() (config.Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return config.Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	cfg.DBPath = sysutil.FirstNonEmpty(dbPath, cfg.DBPath)
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg config.Config) zerolog.Logger {
	sysutil.SetLogLevel(cfg.LogLevel)
	return sysutil.NewLogger(cmd.ErrOrStderr(), cfg.LogPretty, cfg.OTEL.ServiceName)
}

// archive bundles what every command needs.
type archive struct {
	cfg   config.Config
	log   zerolog.Logger
	store *repo.Store
	bus   events.Bus
	svc   *services.ArchiveService
	// origin is the process id on a shared bus, empty for a LocalBus.
	origin string
}

func openArchive(ctx context.Context, cmd *cobra.Command) (*archive, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := newLogger(cmd, cfg)

	store := repo.NewStore(cfg.DBPath,
		repo.WithOpenTimeout(cfg.StoreOpenTimeout),
		repo.WithMaxCursorSteps(cfg.MaxCursorSteps),
		repo.WithTracing(cfg.OTEL.Enabled),
		repo.WithLogger(log),
	)
	if err := store.Open(ctx); err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.DBPath, err)
	}

	a := &archive{cfg: cfg, log: log, store: store}
	if cfg.Redis.Addr != "" {
		rb, err := events.NewRedisBus(ctx, events.RedisOptions{Addr: cfg.Redis.Addr, Channel: cfg.Redis.Channel}, log)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		a.bus, a.origin = rb, rb.Origin()
	} else {
		a.bus = events.NewLocalBus(services.CountDroppedEvent)
	}

	a.svc = services.NewArchiveService(store, parser.New(parser.WithLocation(cfg.Location())), a.bus, log)
	a.svc.LoadTimeout = cfg.LoadTimeout
	a.svc.MessageLoadLimit = cfg.MessageLoadLimit
	return a, nil
}

func (a *archive) Close() error {
	return errors.Join(a.bus.Close(), a.store.Close())
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readInput reads a file argument; "-" reads stdin.
func readInput(cmd *cobra.Command, path string) (string, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}

package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/m3rciful/ledgerbot/core/buildinfo"
	coreconfig "github.com/m3rciful/ledgerbot/core/config"
)

var (
	initOnce   sync.Once
	shutdownMu sync.Mutex

	logFile  *os.File
	levelVar slog.LevelVar

	// L is the base logger shared by all components.
	L *slog.Logger

	// TG logs Telegram transport events.
	TG *slog.Logger
	// TWire logs Telegram wiring steps.
	TWire *slog.Logger
	// DB logs database events.
	DB *slog.Logger
	// MIG logs database migration events.
	MIG *slog.Logger
	// FF logs external ledger API activity.
	FF *slog.Logger
	// SVCSettings logs user settings service activity.
	SVCSettings *slog.Logger
)

func init() {
	// Usable before InitLogger for early wiring logs and tests.
	wire(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &levelVar})))
}

func wire(base *slog.Logger) {
	L = base
	TG = base.With("component", "tg")
	TWire = base.With("component", "tg.wire")
	DB = base.With("component", "db")
	MIG = base.With("component", "db.migrate")
	FF = base.With("component", "ledger")
	SVCSettings = base.With("component", "service.settings")
	slog.SetDefault(base)
}

// InitLogger configures the global structured logger from config.
// It may be called only once; later calls are no-ops.
func InitLogger(cfg *coreconfig.Config) error {
	var initErr error
	initOnce.Do(func() {
		levelVar.Set(selectLevel(cfg))

		var out io.Writer = os.Stderr
		if cfg != nil && cfg.Logging.Dir != "" && cfg.Logging.File != "" {
			path := filepath.Join(cfg.Logging.Dir, cfg.Logging.File)
			if err := os.MkdirAll(cfg.Logging.Dir, 0o755); err != nil {
				initErr = err
				return
			}
			f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				initErr = err
				return
			}
			logFile = f
			out = io.MultiWriter(os.Stderr, f)
		}

		opts := &slog.HandlerOptions{Level: &levelVar}
		var handler slog.Handler
		if cfg != nil && strings.EqualFold(cfg.Logging.Format, "json") {
			handler = slog.NewJSONHandler(out, opts)
		} else {
			handler = slog.NewTextHandler(out, opts)
		}

		wire(slog.New(handler))
		L.Info("logger ready",
			slog.String("event", "logger.init"),
			slog.String("level", levelVar.Level().String()),
			slog.String("version", buildinfo.Version),
			slog.String("commit", buildinfo.Commit),
		)
	})
	return initErr
}

func selectLevel(cfg *coreconfig.Config) slog.Level {
	if cfg == nil {
		return slog.LevelInfo
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Component returns a logger bound to the given component name.
func Component(name string) *slog.Logger {
	return L.With("component", name)
}

// Shutdown flushes and closes file outputs. Safe to call multiple times.
func Shutdown() error {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

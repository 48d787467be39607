package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rulecore/rulecore/internal/adapter/outbound/filestore"
	"github.com/rulecore/rulecore/internal/adapter/outbound/rulemem"
	"github.com/rulecore/rulecore/internal/config"
	"github.com/rulecore/rulecore/internal/observability"
	"github.com/rulecore/rulecore/internal/rules"
	"github.com/rulecore/rulecore/internal/service"
)

// newLogger builds the stderr slog handler for cfg.LogLevel. stderr is used
// (not stdout) so a stdio MCP transport can reserve stdout for the wire
// protocol.
func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

func newStore(cfg *config.Config, logger *slog.Logger) (rules.Store, error) {
	switch cfg.StorageBackend {
	case "memory":
		return rulemem.New(), nil
	case "file":
		return filestore.New(cfg.RulesDir, logger), nil
	default:
		return nil, fmt.Errorf("unsupported storage_backend %q", cfg.StorageBackend)
	}
}

func tieBreakingFromConfig(value string) rules.TieBreaking {
	switch value {
	case "lexi":
		return rules.TieBreakLexi
	case "first":
		return rules.TieBreakFirst
	default:
		return rules.TieBreakFIFO
	}
}

// buildToolSurface wires a *service.ToolSurface from cfg, the teacher's
// pattern of constructing every collaborator in one function and returning
// the fully-assembled top-level object (see start.go's run()).
func buildToolSurface(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*service.ToolSurface, error) {
	store, err := newStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	engine := service.NewEngine(store,
		service.WithTieBreaking(tieBreakingFromConfig(cfg.PriorityTieBreaking)),
		service.WithMaxEvaluationTime(cfg.MaxEvaluationTime()),
		service.WithEngineVersion(cfg.EngineVersion),
		service.WithLogger(logger),
		service.WithMetrics(metrics),
	)
	admin := service.NewAdminService(store, logger)

	return service.NewToolSurface(engine, admin, cfg.StorageBackend), nil
}

// defaultRegisterer returns the global Prometheus registry; serve is the
// only command long-lived enough to make metrics worth registering.
func defaultRegisterer() prometheus.Registerer {
	return prometheus.DefaultRegisterer
}

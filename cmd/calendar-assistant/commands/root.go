// Package commands implements the calendar-assistant CLI
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/benvon/smart-calendar/internal/client"
	"github.com/benvon/smart-calendar/internal/config"
	"github.com/benvon/smart-calendar/internal/lifecycle"
	"github.com/benvon/smart-calendar/internal/logger"
	"github.com/benvon/smart-calendar/internal/services/ai"
	"github.com/benvon/smart-calendar/internal/session"
	"github.com/benvon/smart-calendar/internal/telemetry"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

const serviceName = "calendar-assistant"

// app carries what every command shares. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	out    io.Writer
	errOut io.Writer

	debug     bool
	token     string
	logFormat string

	tp      *sdktrace.TracerProvider
	closers []io.Closer
}

// NewRootCmd creates the calendar-assistant command tree
func NewRootCmd() *cobra.Command {
	a := &app{out: os.Stdout, errOut: os.Stderr}

	rootCmd := &cobra.Command{
		Use:           "calendar-assistant",
		Short:         "Chat with your calendar",
		Long:          "Ask the assistant to add events and plans, manage events with undoable deletes, and export your calendar.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.out = cmd.OutOrStdout()
			a.errOut = cmd.ErrOrStderr()
			return a.init(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			a.close()
		},
	}
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&a.token, "token", "", "Bearer token to use instead of the stored session")
	rootCmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: console or json")

	rootCmd.AddCommand(newAskCmd(a))
	rootCmd.AddCommand(newExtractCmd(a))
	rootCmd.AddCommand(newEventsCmd(a))
	rootCmd.AddCommand(newHealthCmd(a))
	rootCmd.AddCommand(newLoginCmd(a))
	rootCmd.AddCommand(newLogoutCmd(a))
	rootCmd.AddCommand(newServeFakeCmd(a))

	return rootCmd
}

func (a *app) init(ctx context.Context) error {
	cfg, err := config.Read()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.debug {
		cfg.DebugMode = true
	}
	if a.logFormat != "" {
		cfg.LogFormat = a.logFormat
	}
	if a.token != "" {
		cfg.Token = a.token
	}
	a.cfg = cfg

	l, err := logger.New(logger.Format(cfg.LogFormat), cfg.DebugMode)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = l

	if cfg.OTELEnabled {
		tp, err := telemetry.InitTracer(ctx, serviceName, cfg.OTELEndpoint)
		if err != nil {
			a.logger.Warn("failed_to_initialize_otel_tracer", zap.String("error", logger.SanitizeError(err)))
		} else {
			a.tp = tp
		}
	}
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Debug("close_failed", zap.String("error", logger.SanitizeError(err)))
		}
	}
	a.closers = nil
	if a.tp != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(ctx, a.tp); err != nil {
			a.logger.Warn("otel_shutdown_failed", zap.String("error", logger.SanitizeError(err)))
		}
	}
	if a.logger != nil {
		_ = logger.Sync(a.logger)
	}
}

// sessionStore opens the configured token store. A --token flag or
// CALENDAR_TOKEN overrides whatever is stored, in memory only.
func (a *app) sessionStore(ctx context.Context) (session.Store, error) {
	if a.cfg.Token != "" {
		tok, err := session.NewToken(a.cfg.Token)
		if err != nil {
			return nil, err
		}
		store := session.NewMemoryStore()
		if err := store.Save(ctx, tok); err != nil {
			return nil, err
		}
		return store, nil
	}
	return a.persistentStore(ctx)
}

func (a *app) persistentStore(ctx context.Context) (session.Store, error) {
	switch a.cfg.SessionBackend {
	case config.SessionBackendFile:
		return session.NewFileStore(a.cfg.SessionFile), nil
	case config.SessionBackendRedis:
		store, err := session.NewRedisStore(ctx, a.cfg.RedisURL, "")
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store)
		return store, nil
	default:
		return session.NewMemoryStore(), nil
	}
}

// client validates the backend settings and builds the HTTP client
func (a *app) client(ctx context.Context) (*client.Client, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	store, err := a.sessionStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	return client.New(a.cfg.APIURL,
		client.WithSessionStore(store),
		client.WithTimeout(a.cfg.RequestTimeout),
		client.WithLogger(a.logger),
		client.WithAuthExpiredHook(func() {
			fmt.Fprintln(a.errOut, "Your session has expired. Run `calendar-assistant login <token>` to sign in again.")
		}),
	)
}

// manager builds an event manager whose notices go to stderr
func (a *app) manager(c *client.Client) *lifecycle.Manager {
	return lifecycle.NewManager(c,
		lifecycle.WithGraceWindow(a.cfg.GraceWindow),
		lifecycle.WithRefreshInterval(a.cfg.RefreshInterval),
		lifecycle.WithLogger(a.logger),
		lifecycle.WithNotifier(func(n lifecycle.Notice) {
			fmt.Fprintf(a.errOut, "[%s] %s\n", n.Level, n.Message)
		}),
	)
}

// generator picks the configured AI provider. The backend provider goes
// through c; c may be nil when only OpenAI is usable.
func (a *app) generator(c *client.Client) (ai.Generator, error) {
	registry := ai.NewProviderRegistry()
	ai.RegisterOpenAI(registry, a.logger)
	if c != nil {
		ai.RegisterBackend(registry, c)
	}
	return registry.GetProvider(a.cfg.AIProvider, map[string]string{
		"api_key":  a.cfg.OpenAIKey,
		"model":    a.cfg.AIModel,
		"base_url": a.cfg.AIBaseURL,
		"debug":    fmt.Sprint(a.cfg.DebugMode),
	})
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/smart-calendar/internal/config"
	"github.com/benvon/smart-calendar/internal/fakebackend"
	"github.com/benvon/smart-calendar/internal/logger"
	"github.com/benvon/smart-calendar/internal/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeFakeCmd(a *app) *cobra.Command {
	var (
		addr      string
		jwtSecret string
		jwksURL   string
		issuer    string
		rateLimit string
		origins   string
		stream    bool
	)

	cmd := &cobra.Command{
		Use:   "serve-fake",
		Short: "Run an in-memory calendar backend for demos and tests",
		Long: "Serves the calendar API from memory. Replies come from OpenAI when AI_PROVIDER=openai, " +
			"otherwise a canned answer is returned. Any bearer token is accepted unless --jwt-secret or --jwks-url is set.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := []fakebackend.Option{
				fakebackend.WithLogger(a.logger),
				fakebackend.WithStreaming(stream),
				fakebackend.WithTracing(serviceName + "-fake"),
			}
			switch {
			case jwtSecret != "" && jwksURL != "":
				return errors.New("--jwt-secret and --jwks-url are mutually exclusive")
			case jwksURL != "":
				cache := fakebackend.NewJWKSCache(jwksURL, fakebackend.DefaultJWKSTTL, nil)
				opts = append(opts, fakebackend.WithTokenVerifier(fakebackend.JWKSVerifier(cache, issuer)))
			case jwtSecret != "":
				opts = append(opts, fakebackend.WithTokenVerifier(fakebackend.HS256Verifier([]byte(jwtSecret))))
			default:
				opts = append(opts, fakebackend.WithTokenVerifier(fakebackend.AnyTokenVerifier()))
			}
			if rateLimit != "" {
				opts = append(opts, fakebackend.WithRateLimit(rateLimit))
			}
			if list := middleware.ParseOrigins(origins); len(list) > 0 {
				opts = append(opts, fakebackend.WithCORS(list...))
			}
			if a.cfg.AIProvider == config.AIProviderOpenAI {
				gen, err := a.generator(nil)
				if err != nil {
					return fmt.Errorf("failed to create AI provider: %w", err)
				}
				opts = append(opts, fakebackend.WithResponder(gen))
			}

			backend, err := fakebackend.New(opts...)
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           backend.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       15 * time.Second,
				WriteTimeout:      2 * time.Minute,
				IdleTimeout:       60 * time.Second,
				MaxHeaderBytes:    1 << 20,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() {
				a.logger.Info("fake_backend_starting",
					zap.String("addr", addr),
					zap.String("ai_provider", a.cfg.AIProvider),
					zap.Bool("streaming", stream),
					zap.Bool("jwt_required", jwtSecret != "" || jwksURL != ""))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()
			fmt.Fprintf(a.out, "Fake calendar backend listening on %s\n", addr)

			select {
			case err := <-errc:
				if err != nil {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			a.logger.Info("fake_backend_shutting_down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("fake_backend_forced_to_shutdown", zap.String("error", logger.SanitizeError(err)))
				return err
			}
			a.logger.Info("fake_backend_exited")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().StringVar(&jwtSecret, "jwt-secret", "", "Require HS256 JWTs signed with this secret")
	cmd.Flags().StringVar(&jwksURL, "jwks-url", "", "Require JWTs signed by a key from this JWKS endpoint")
	cmd.Flags().StringVar(&issuer, "issuer", "", "Expected iss claim for --jwks-url tokens")
	cmd.Flags().StringVar(&rateLimit, "rate-limit", "", "Calendar rate limit such as 5-S; excess requests get 429")
	cmd.Flags().StringVar(&origins, "cors-origins", "", "Comma-separated origins allowed to call the API from a browser")
	cmd.Flags().BoolVar(&stream, "stream", false, "Stream generate replies as NDJSON")

	return cmd
}

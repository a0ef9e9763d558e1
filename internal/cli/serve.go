package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/casestrength/internal/api"
	"github.com/ppiankov/casestrength/internal/cache"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON HTTP API",
	Long: `Serve exposes the questionnaire over HTTP. Clients start a session, answer
one question per request and finalize to get the score and the next step.

Sessions live in memory, plus a disk layer when sessions.dir is set, and
expire after sessions.ttl of inactivity.

Example:
  casestrength serve
  casestrength serve --addr :9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	sink, err := newAnalytics(cfg, log)
	if err != nil {
		return err
	}
	narrator, err := newNarrator(cfg, log)
	if err != nil {
		return err
	}

	router := api.NewRouter(&api.Container{
		Schemas:        reg,
		Sessions:       cache.NewSessionStore(cache.New(cfg.Sessions), cfg.Sessions.TTL),
		Analytics:      sink,
		Narrator:       narrator,
		Limiter:        newLimiter(cfg),
		Logger:         log,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s (%d notice types)", cfg.Server.Addr, len(reg.NoticeTypes()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

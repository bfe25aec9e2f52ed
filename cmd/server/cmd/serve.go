package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jrsteele09/planter-dashboard/auth"
	"github.com/jrsteele09/planter-dashboard/awsintegration"
	"github.com/jrsteele09/planter-dashboard/backend"
	"github.com/jrsteele09/planter-dashboard/internal/config"
	"github.com/jrsteele09/planter-dashboard/internal/version"
	"github.com/jrsteele09/planter-dashboard/server"
	"github.com/jrsteele09/planter-dashboard/sessions"
)

const (
	shutdownTimeout = 5 * time.Second
	sweepInterval   = 5 * time.Minute
	clientIdleAfter = 15 * time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx, config.New())
	},
}

func run(ctx context.Context, c config.Config) error {
	displayAppname(c.GetAppName())
	log.Info().Str("version", version.Full()).Str("env", c.GetEnv()).Msg("Starting")

	storage, err := newSessionStorage(ctx, c)
	if err != nil {
		return err
	}
	defer storage.close()

	api := backend.New(c.GetAPIURL(), c.GetBackendTimeout())
	store := sessions.NewStore(storage.kv)

	handler, err := server.New(c, server.Services{
		Auth:     auth.NewClient(api, store, c.GetGitHubClientID()),
		Projects: api,
		AWS:      awsintegration.NewService(api),
	})
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}
	if c.GetGitHubClientID() == "" {
		log.Warn().Msg("GITHUB_CLIENT_ID is not set; sign-in is disabled")
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go sweepIdleClients(ctx, handler, storage)

	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(httpServer) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return shutdown(httpServer)
}

type sessionStorage struct {
	kv     sessions.KV
	memory *sessions.InMemoryKV // set for the memory backend, swept periodically
	close  func()
}

// newSessionStorage builds the session storage selected by configuration, sealing values
// when a session secret is configured.
func newSessionStorage(ctx context.Context, c config.Config) (*sessionStorage, error) {
	storage := &sessionStorage{close: func() {}}

	switch backendName := c.GetSessionBackend(); backendName {
	case config.SessionBackendMemory:
		storage.memory = sessions.NewExpiringInMemoryKV(c.GetMaxSessionAge())
		storage.kv = storage.memory
	case config.SessionBackendRedis:
		client, err := sessions.DialRedis(ctx, c.GetRedisAddr(), c.GetRedisPassword())
		if err != nil {
			return nil, err
		}
		storage.kv = sessions.NewRedisKV(client, c.GetMaxSessionAge())
		storage.close = func() { _ = client.Close() }
		log.Info().Str("addr", c.GetRedisAddr()).Msg("Using Redis session storage")
	default:
		return nil, fmt.Errorf("unknown session backend %q", backendName)
	}

	if secret := c.GetSessionSecret(); secret != "" {
		sealed, err := sessions.NewSealedKV(storage.kv, secret)
		if err != nil {
			storage.close()
			return nil, err
		}
		storage.kv = sealed
	} else if c.GetEnv() != "DEV" {
		log.Warn().Msg("SESSION_SECRET is not set; session values are stored unencrypted")
	}
	return storage, nil
}

func sweepIdleClients(ctx context.Context, s *server.Server, storage *sessionStorage) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepIdleClients(clientIdleAfter)
			if storage.memory != nil {
				if n := storage.memory.Sweep(); n > 0 {
					log.Debug().Int("namespaces", n).Msg("Swept expired sessions")
				}
			}
		}
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	log.Info().Msg("Server stopped")
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

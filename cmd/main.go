/*
Package main is the entry point of blogctl, the blog API client.

It loads the configuration, initializes the global logging system, restores the
persisted session and then either runs one command against the API or, with
"serve", starts the view server while the session is restored in the
background and shuts it down gracefully on SIGINT/SIGTERM.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"blogclient/internal/apiclient"
	"blogclient/internal/app/drafts"
	"blogclient/internal/app/session"
	"blogclient/internal/app/storage"
	"blogclient/internal/configs"
	"blogclient/internal/handler"
	"blogclient/internal/pkg/logx"
)

// redisTokenTTL matches the lifetime of the API's tokens.
const redisTokenTTL = 30 * 24 * time.Hour

type app struct {
	cfg      *configs.AppConfig
	api      *apiclient.Client
	sessions *session.Store
	closers  []func() error
}

type rootFlags struct {
	envFile string
	profile string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "blogctl",
		Short:         "Command line client and view server for the blog API",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "file to seed environment variables from")
	root.PersistentFlags().StringVar(&flags.profile, "profile", "default", "session profile (redis token store only)")

	root.AddCommand(
		newServeCmd(flags),
		newLoginCmd(flags),
		newLogoutCmd(flags),
		newWhoamiCmd(flags),
		newPostsCmd(flags),
		newLikeCmd(flags),
		newFollowCmd(flags),
		newDraftsCmd(flags),
		newExportCmd(flags),
	)

	return root
}

// newApp loads the configuration and builds the API client and the session
// store. The persisted session is restored by boot.
func newApp(flags *rootFlags) (*app, error) {
	if err := configs.LoadEnvFile(flags.envFile); err != nil {
		return nil, err
	}

	cfg, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Debug().
		Str("environment", cfg.Environment).
		Str("api_base_url", cfg.APIBaseURL).
		Str("token_store", cfg.TokenStore).
		Msg("Configuration loaded successfully")

	api, err := apiclient.New(cfg.APIBaseURL, apiclient.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, api: api}

	var tokens session.TokenStore
	switch cfg.TokenStore {
	case configs.TokenStoreRedis:
		client, err := session.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		tokens = session.NewRedisTokenStore(client, flags.profile, redisTokenTTL)

	case configs.TokenStoreMemory:
		tokens = &session.MemoryTokenStore{}

	default:
		tokens = &session.FileTokenStore{Path: cfg.TokenFile}
	}

	a.sessions = session.NewStore(api, tokens)

	return a, nil
}

// boot restores the persisted session. A failed restore leaves an anonymous
// session; commands still run.
func (a *app) boot(ctx context.Context) {
	if res := a.sessions.Boot(ctx); !res.Success {
		logx.Warn("Session could not be restored", "error", res.Err.Message)
	}
}

func (a *app) openDrafts() (*drafts.Store, error) {
	store, err := drafts.Open(a.cfg.DraftsDSN)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)
	return store, nil
}

func (a *app) exporter() (*storage.Exporter, error) {
	cfg := storage.ServiceConfig{
		S3BucketName:      a.cfg.S3BucketName,
		S3Endpoint:        a.cfg.S3Endpoint,
		S3AccessKeyID:     a.cfg.S3AccessKeyID,
		S3SecretAccessKey: a.cfg.S3SecretAccessKey,
		S3Region:          a.cfg.S3Region,
	}

	if !cfg.Enabled() {
		return storage.NewExporter(nil, a.api, 0), nil
	}

	svc, err := storage.NewStorageService(cfg)
	if err != nil {
		return nil, err
	}
	return storage.NewExporter(svc, a.api, storage.DefaultLinkTTL), nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logx.Warn("Failed to release resource", "error", err.Error())
		}
	}
}

// withApp runs fn with a bootstrapped app and releases it afterwards.
func withApp(flags *rootFlags, fn func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(flags)
		if err != nil {
			return err
		}
		defer a.Close()

		a.boot(ctx)

		return fn(ctx, a, cmd, args)
	}
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the view server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Create a context that listens for the interrupt signal from the OS.
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			deps := handler.NewAppDeps(a.cfg, a.api, a.sessions)

			if deps.Drafts, err = a.openDrafts(); err != nil {
				logx.Error(err, "Drafts database unavailable, drafts are disabled")
				deps.Drafts = nil
			}

			if deps.Exporter, err = a.exporter(); err != nil {
				return err
			}

			router, stopRouter := handler.Router(deps)
			defer stopRouter()

			// Guarded views answer loading until the profile resolves; a
			// failed restore is retried by the guard or POST /session/refresh.
			go a.boot(ctx)

			serverAddr := fmt.Sprintf(":%d", a.cfg.Port)
			server := &http.Server{
				Addr:         serverAddr,
				Handler:      router,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: a.cfg.RequestTimeout + 15*time.Second,
				IdleTimeout:  120 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logx.Info(fmt.Sprintf("View server starting on http://localhost%s", serverAddr), "api", a.cfg.APIBaseURL)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("server failed to start: %w", err)
			case <-ctx.Done():
			}

			logx.Info("Received shutdown signal. Starting graceful shutdown...")

			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelShutdown()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}

			logx.Info("Server gracefully stopped.")
			return nil
		},
	}
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"inkpost/app/auth"
	"inkpost/app/blobstore"
	"inkpost/app/config"
	"inkpost/app/controllers"
	"inkpost/app/metrics"
	"inkpost/app/rate"
	"inkpost/app/routes"
	"inkpost/app/services"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
)

const (
	addrFlag   = "addr"
	driverFlag = "driver"
)

func newServeCommand() *cobra.Command {
	flags := withConfigFlag(map[string]cobraflags.Flag{
		addrFlag: &cobraflags.StringFlag{
			Name:  addrFlag,
			Value: "",
			Usage: "Listen address, overrides server.addr",
		},
		driverFlag: &cobraflags.StringFlag{
			Name:  driverFlag,
			Value: "",
			Usage: "Content store driver (badger or sqlite), overrides store.driver",
		},
	})

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(flags, map[string]string{
				"server.addr":  flags[addrFlag].GetString(),
				"store.driver": flags[driverFlag].GetString(),
			}, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", cfg.Server.Addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", cfg.Server.Addr, err)
			}
			return runServer(ctx, cfg, logger, ln)
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	return cmd
}

// runServer serves the API on ln until ctx is cancelled, then drains
// in-flight requests for at most server.shutdown_timeout.
func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, ln net.Listener) error {
	st, err := openStore(cfg.Store, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("closing store", "error", err)
		}
	}()

	handler, err := buildHandler(cfg, st, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("inkpost listening", "addr", ln.Addr().String(), "driver", cfg.Store.Driver)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// buildHandler wires services, controllers and routes over st.
func buildHandler(cfg *config.Config, st *store, logger *slog.Logger) (http.Handler, error) {
	blobs, err := blobstore.NewDisk(cfg.Uploads.Dir)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret)

	assets := services.NewAssetService(blobs).
		WithLogger(logger.With("component", "assets")).
		WithMetrics(m)
	userService := services.NewUserService(st.users, assets, tokens).WithLogger(logger.With("component", "users"))
	postService := services.NewPostService(st.posts, st.users, assets).WithLogger(logger.With("component", "posts"))

	return routes.SetupRoutes(routes.Deps{
		Users:         controllers.NewUserController(userService).WithLogger(logger),
		Posts:         controllers.NewPostController(postService).WithLogger(logger),
		Tokens:        tokens,
		Metrics:       m,
		Logger:        logger,
		Limiter:       rate.NewMemory(),
		AuthPerMinute: cfg.Rate.AuthPerMinute,
		UploadsDir:    blobs.Dir(),
		CORSOrigin:    cfg.Server.CORSOrigin,
	}), nil
}

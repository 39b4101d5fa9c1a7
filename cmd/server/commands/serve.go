package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Brownie44l1/quickdraw-api/internal/handlers"
	"github.com/Brownie44l1/quickdraw-api/internal/sketch"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP prediction API",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, c, loadErr := openClassifier()
			if eng == nil {
				return loadErr
			}
			defer eng.Close()
			if loadErr != nil {
				// keep serving so /health can report why
				log.Error().Err(loadErr).Msg("classifier not ready")
			} else {
				defer c.Close()
				log.Info().Strs("classes", c.Labels()).Msg("model loaded")
			}

			filter, _ := sketch.ParseFilter(cfg.Filter)
			gin.SetMode(gin.ReleaseMode)
			router := handlers.NewRouter(handlers.NewHandler(c, loadErr, filter))

			srv := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("port", cfg.Port).Msg("server starting")
				log.Info().Msg("endpoints: GET /health, GET /labels, POST /predict, POST /predict/image, POST /predict/strokes")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	return cmd
}

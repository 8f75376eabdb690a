package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/busybox42/relaycheck/internal/api"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the management API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		comp, err := buildComponents(cfg)
		if err != nil {
			return err
		}
		defer comp.Close()

		server := api.NewServer(api.Config{
			Listen:       cfg.Server.Listen,
			AuthEnabled:  cfg.Server.AuthEnabled,
			AuthUser:     cfg.Server.AuthUser,
			AuthPassword: cfg.Server.AuthPassword,
		}, comp.checker, comp.registry, logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

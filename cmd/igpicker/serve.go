package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"igpicker/pkg/auth"
	"igpicker/pkg/logger"
	"igpicker/pkg/picker"
	"igpicker/pkg/ui"
	"igpicker/pkg/web"
)

var (
	serveHost  string
	servePort  int
	serveToken string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the browser front end",
	Long: `Serve the photo picker as a web page, plus a small JSON API.

When the page is submitted without a token, the configured token (flag,
environment, config file) or the stored default credential is used.`,
	Example: `  igpicker serve
  igpicker serve --host 0.0.0.0 --port 8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (default from config: 127.0.0.1)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default from config: 8501)")
	serveCmd.Flags().StringVarP(&serveToken, "token", "t", "", "fallback Apify API token")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(map[string]interface{}{
		"host":  serveHost,
		"port":  servePort,
		"token": serveToken,
	})
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	var stored tokenSource
	if manager, err := auth.NewManager(); err == nil {
		stored = manager
	}
	tokens := func() string {
		token, _ := resolveToken(cfg.Provider.Token, stored, nil)
		return token
	}

	srv := web.NewServer(cfg, picker.NewFromConfig(cfg, log),
		web.WithTokenSource(tokens),
		web.WithLogger(log),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	ui.PrintInfo("Listening on", fmt.Sprintf("http://%s", cfg.Server.Addr()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		srv.Close()
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Shutdown signal received")
	}

	// in-flight fetches get a short grace period
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("HTTP server forced shutdown")
		return err
	}
	log.Info("HTTP server drained gracefully")
	return nil
}

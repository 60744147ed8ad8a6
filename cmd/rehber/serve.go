package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rehber/rehber/internal/repository"
	"github.com/rehber/rehber/internal/server"
	"github.com/rehber/rehber/internal/util/logger"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long:  "Serves the contacts API and the static UI. --port 0 picks a free port and logs it.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", -1, "Listen port (overrides config and PORT)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if servePort >= 0 {
		cfg.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	comps, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		comps.close(shutdownCtx)
	}()

	if cfg.WatchDataFile {
		watcher, err := repository.NewFileWatcher(comps.repo.Path(), comps.repo)
		if err != nil {
			logger.Warnf("file watcher unavailable: %v", err)
		} else if err := watcher.Start(ctx); err != nil {
			logger.Warnf("file watcher start: %v", err)
		} else {
			defer watcher.Stop()
		}
	}

	if list, err := comps.repo.Load(ctx); err != nil {
		logger.Warnf("initial load: %v", err)
	} else {
		comps.metrics.ObserveContacts(len(list))
		logger.Infof("loaded %d contacts from %s", len(list), comps.repo.Path())
	}

	srv := server.New(cfg, server.Deps{
		Contacts: comps.contacts,
		Repo:     comps.repo,
		Images:   comps.images,
		Metrics:  comps.metrics,
		Audit:    comps.publisher(),
		Redis:    comps.redis,
		Version:  version,
	})
	return srv.Run(ctx)
}

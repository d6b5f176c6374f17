package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/user/syncengine/internal/config"
	"github.com/user/syncengine/internal/dispatch"
	"github.com/user/syncengine/internal/enginemetrics"
	"github.com/user/syncengine/internal/syncengine"
	"github.com/user/syncengine/pkg/kvstore"
	"github.com/user/syncengine/pkg/obslog"
	"github.com/user/syncengine/pkg/runlog"
	"github.com/user/syncengine/pkg/sink"
	"github.com/user/syncengine/pkg/syncmodel"
	"github.com/user/syncengine/pkg/warehouse"
)

var servePort int

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "admin HTTP server port")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the sync engine's admin HTTP server and cron scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	log := obslog.New()

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	saBytes, err := os.ReadFile(cfg.Warehouse.ServiceAccountPath)
	if err != nil {
		return fmt.Errorf("read service account: %w", err)
	}
	sa, err := warehouse.ParseServiceAccount(saBytes)
	if err != nil {
		return err
	}
	wh, err := warehouse.New(ctx, sa, log)
	if err != nil {
		return fmt.Errorf("build warehouse client: %w", err)
	}

	sk, err := sink.New(ctx, cfg.Sink.ConnString, log)
	if err != nil {
		return fmt.Errorf("build sink client: %w", err)
	}

	store, err := kvstore.New(kvstore.Config{
		Type:     cfg.StateStore.Type,
		Path:     cfg.StateStore.Path,
		Addr:     cfg.StateStore.Address,
		Password: cfg.StateStore.Password,
		DB:       cfg.StateStore.DB,
		Prefix:   cfg.StateStore.Prefix,
	})
	if err != nil {
		return fmt.Errorf("build state store: %w", err)
	}
	defer store.Close()

	jobs := syncmodel.NewKVJobStore(store)
	runState := syncmodel.NewKVRunStateStore(store)
	logger := runlog.New(store)

	engine := syncengine.New(wh, sk, runState, jobs, logger, enginemetrics.PrometheusRecorder{}, log)
	server := dispatch.New(jobs, logger, engine, cfg.Admin.BearerSecret)

	scheduler := cron.New()
	if err := scheduleSweeps(ctx, scheduler, server, jobs, log); err != nil {
		return fmt.Errorf("schedule cron sweeps: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	mux := http.NewServeMux()
	server.Routes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", servePort),
		Handler: mux,
	}

	go func() {
		log.Info("admin server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("admin server failed", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// scheduleSweeps registers one cron entry per distinct Job.CronSchedule
// string; each entry fires dispatch.CronSweep with that exact schedule
// string so the sweep's own string-equality match (spec §5) selects the
// jobs due at that slot.
func scheduleSweeps(ctx context.Context, scheduler *cron.Cron, server *dispatch.Server, jobs syncmodel.JobStore, log obslog.Logger) error {
	all, err := jobs.ListJobs(ctx)
	if err != nil {
		return err
	}

	seen := map[string]bool{}
	for _, job := range all {
		if job.CronSchedule == "" || seen[job.CronSchedule] {
			continue
		}
		seen[job.CronSchedule] = true

		schedule := job.CronSchedule
		if _, err := scheduler.AddFunc(schedule, func() {
			if err := server.CronSweep(context.Background(), schedule); err != nil {
				log.Error("cron sweep failed", "schedule", schedule, "error", err)
			}
		}); err != nil {
			log.Error("failed to register cron schedule", "schedule", schedule, "error", err)
		}
	}
	return nil
}

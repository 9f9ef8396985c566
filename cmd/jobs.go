package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-checkout/app/service"
	"github.com/vibast-solutions/ms-go-checkout/config"
)

var (
	workerMode bool
)

// checkoutJob is one batch command. interval is read only in worker mode.
type checkoutJob struct {
	name     string
	interval func(cfg *config.Config) time.Duration
	run      func(ctx context.Context, s *service.CheckoutService) error
}

var (
	reconcileJob = checkoutJob{
		name:     "reconcile",
		interval: func(cfg *config.Config) time.Duration { return cfg.Jobs.ReconcileInterval },
		run: func(ctx context.Context, s *service.CheckoutService) error {
			return s.RunReconcileBatch(ctx)
		},
	}
	callbacksDispatchJob = checkoutJob{
		name:     "callbacks_dispatch",
		interval: func(cfg *config.Config) time.Duration { return cfg.Jobs.CallbackDispatchInterval },
		run: func(ctx context.Context, s *service.CheckoutService) error {
			return s.RunDispatchCallbacksBatch(ctx)
		},
	}
	expirePendingJob = checkoutJob{
		name:     "expire_pending",
		interval: func(cfg *config.Config) time.Duration { return cfg.Jobs.ExpirePendingInterval },
		run: func(ctx context.Context, s *service.CheckoutService) error {
			return s.RunExpirePendingBatch(ctx)
		},
	}
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Settle polling checkouts whose session is no longer running",
	Run:   func(_ *cobra.Command, _ []string) { runCheckoutJob(reconcileJob) },
}

var callbacksCmd = &cobra.Command{
	Use:   "callbacks",
	Short: "Run status callback related commands",
}

var callbacksDispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Deliver terminal checkout statuses to caller callback URLs",
	Run:   func(_ *cobra.Command, _ []string) { runCheckoutJob(callbacksDispatchJob) },
}

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Run expiration-related commands",
}

var expirePendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Cancel checkouts left unresolved past the pending timeout",
	Run:   func(_ *cobra.Command, _ []string) { runCheckoutJob(expirePendingJob) },
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(callbacksCmd)
	rootCmd.AddCommand(expireCmd)
	callbacksCmd.AddCommand(callbacksDispatchCmd)
	expireCmd.AddCommand(expirePendingCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runCheckoutJob(job checkoutJob) {
	app := mustCreateCheckoutApp()
	defer app.cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := logrus.WithField("job", job.name)
	runOnce := func() {
		start := time.Now()
		err := job.run(ctx, app.service)
		entry := logger.WithField("latency", time.Since(start).String())
		if err != nil {
			entry.WithError(err).Error("job_failed")
			return
		}
		entry.Info("job_completed")
	}

	runOnce()
	if !workerMode {
		return
	}

	interval := job.interval(app.cfg)
	if interval <= 0 {
		logger.Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

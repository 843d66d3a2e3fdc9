package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/labstack/gommon/log"
	"github.com/priyankishorems/rampgate/api"
	"github.com/priyankishorems/rampgate/api/handlers"
	"github.com/priyankishorems/rampgate/internal/data"
	"github.com/priyankishorems/rampgate/internal/events"
	"github.com/priyankishorems/rampgate/internal/moonpay"
	"github.com/priyankishorems/rampgate/internal/ramp"
	"github.com/priyankishorems/rampgate/jobs"
	"github.com/priyankishorems/rampgate/utils"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	f := cmd.Flags()
	f.IntVar(&cfg.Port, "port", 3000, "Server port")
	f.IntVar(&cfg.RateLimiter.Rps, "limiter-rps", 50, "Rate limiter max requests per second")
	f.IntVar(&cfg.RateLimiter.Burst, "limiter-burst", 50, "Rate limiter max burst")
	f.BoolVar(&cfg.RateLimiter.Enabled, "limiter-enabled", false, "Rate limiter enabled")
	f.StringVar(&cfg.Moonpay.BaseURL, "moonpay-base-url", utils.MoonpayBaseURL, "MoonPay API base URL")
	f.StringVar(&cfg.Moonpay.APIKey, "moonpay-api-key", utils.MoonpayAPIKey, "MoonPay secret API key")
	f.StringVar(&cfg.Moonpay.WebhookSecret, "moonpay-webhook-secret", utils.MoonpayWebhookSecret, "MoonPay webhook signing key; empty disables verification")
	f.DurationVar(&cfg.Moonpay.Timeout, "moonpay-timeout", 30*time.Second, "Timeout for MoonPay API calls")
	f.StringVar(&cfg.Events.Driver, "events-driver", utils.EventsDriver, "Status event publisher (none, nats, amqp)")
	f.StringVar(&cfg.Events.NATSURL, "nats-url", utils.NATSURL, "NATS server URL")
	f.StringVar(&cfg.Events.Subject, "nats-subject-prefix", "rampgate", "NATS subject prefix")
	f.StringVar(&cfg.Events.AMQPURL, "amqp-url", utils.AMQPURL, "RabbitMQ URL")
	f.DurationVar(&cfg.Reconcile.Interval, "reconcile-interval", 5*time.Minute, "Open transaction reconcile interval; 0 disables")
	f.IntVar(&cfg.Reconcile.Batch, "reconcile-batch", 100, "Max transactions per reconcile run")

	return cmd
}

func serve() error {
	models, closeDB, err := openDB()
	if err != nil {
		return err
	}
	defer closeDB()

	if err := data.Migrate(models.Transactions.DB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	processor, err := moonpay.NewClient(moonpay.Config{
		BaseURL:    cfg.Moonpay.BaseURL,
		APIKey:     cfg.Moonpay.APIKey,
		HTTPClient: utils.NewHTTPClient(cfg.Moonpay.Timeout),
	})
	if err != nil {
		return err
	}

	publisher, err := events.New(events.Config{
		Driver:  cfg.Events.Driver,
		NATSURL: cfg.Events.NATSURL,
		Subject: cfg.Events.Subject,
		AMQPURL: cfg.Events.AMQPURL,
	})
	if err != nil {
		return err
	}
	defer publisher.Close()

	svc := ramp.NewService(models.Users, models.Transactions, processor, publisher)

	if cfg.Reconcile.Interval > 0 {
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("error creating scheduler: %w", err)
		}

		job, err := jobs.ReconcileJob(svc, scheduler, cfg.Reconcile.Interval, cfg.Reconcile.Batch)
		if err != nil {
			return fmt.Errorf("error creating job: %w", err)
		}
		log.Infof("reconcileJob scheduled every %s: %s", cfg.Reconcile.Interval, job.ID())

		scheduler.Start()
		defer scheduler.Shutdown()
	}

	h := &handlers.Handlers{
		Config:   *cfg,
		Validate: utils.NewValidator(),
		Utils:    utils.NewUtils(),
		Data:     *models,
		Ramp:     svc,
	}

	e := api.SetupRoutes(h)
	e.Server.ReadTimeout = time.Second * 10
	e.Server.WriteTimeout = time.Second * 20
	e.Server.IdleTimeout = time.Minute
	e.Logger.SetLevel(parseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

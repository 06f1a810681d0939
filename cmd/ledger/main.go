package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/cli"
	"ledger/internal/config"
	apphttp "ledger/internal/http"
	"ledger/internal/log"
	"ledger/internal/services"

	"golang.org/x/sync/errgroup"
)

const amqpConnectAttempts = 5

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(config.Load().LogLevel).WithComponent(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := cli.OpenStore(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to open SQLite store", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}

	var publisher services.EventPublisher
	if cfg.EventsEnabled() {
		p, err := amqp.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Warn("Transaction events disabled", log.FieldError, err)
		} else {
			publisher = p
			go func() {
				if err := p.Connect(ctx, amqpConnectAttempts); err != nil {
					logger.Warn("AMQP broker unreachable, events will be retried per publish",
						log.FieldError, err,
						"exchange", cfg.AMQPExchange)
				}
			}()
		}
	}

	svc := services.NewTransactionService(store, publisher)
	srv := apphttp.NewServer(cfg.Addr(), svc, logger, apphttp.Options{
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		TrustedProxies: cfg.TrustedProxies,
	})
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting ledger server",
			"port", cfg.Port,
			"db_path", cfg.SQLiteDBPath,
			"events", cfg.EventsEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	exitCode := 0
	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		exitCode = 1
	}

	if err := svc.Close(); err != nil {
		logger.Error("Failed to release resources", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
	stop()
	os.Exit(exitCode)
}

package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bookflow/config"
	"bookflow/internal/channel"
	"bookflow/journal"
	"bookflow/logger"
	"bookflow/models"
	"bookflow/replicator"
	"bookflow/transport"
	"bookflow/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Bookflow.Name,
		"version": cfg.Bookflow.Version,
	}).Info("starting bookflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	events := channel.NewEvents(cfg.Channels.EventBuffer)
	defer events.Close()

	flushes := make(chan journal.Record, len(cfg.Books)*2)

	journalWriter, err := writer.NewWriter(cfg, flushes)
	if err != nil {
		log.WithError(err).Error("failed to create journal writer")
		os.Exit(1)
	}

	var client *transport.Client
	replicators := make(map[string]*replicator.Replicator, len(cfg.Books))
	for _, bk := range cfg.Books {
		replicators[bk.Symbol] = replicator.New(cfg, bk, clientTransport{&client}, events, flushes)
	}

	fatal := make(chan error, len(replicators))

	client = transport.NewClient(cfg, func(sub *models.Subscription, fields models.Frame) {
		rep, ok := replicators[sub.Symbol]
		if !ok {
			log.WithComponent("main").WithFields(logger.Fields{
				"symbol":  sub.Symbol,
				"channel": sub.Channel,
			}).Debug("frame for unmanaged symbol dropped")
			return
		}
		if err := rep.OnFrame(ctx, sub, fields); err != nil {
			select {
			case fatal <- err:
			default:
			}
		}
	})

	if err := journalWriter.Start(ctx); err != nil {
		log.WithError(err).Error("failed to start journal writer")
		os.Exit(1)
	}

	if err := client.Start(ctx); err != nil {
		log.WithError(err).Error("failed to connect to venue")
		os.Exit(1)
	}

	for _, rep := range replicators {
		if err := client.Subscribe(ctx, rep.Request()); err != nil {
			log.WithError(err).WithFields(logger.Fields{"symbol": rep.Symbol()}).Error("initial subscribe failed")
			os.Exit(1)
		}
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		drainEvents(ctx, log, events)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		watchLiveness(ctx, replicators, fatal)
	}()

	log.Info("all components started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
	case err := <-fatal:
		log.WithError(err).Error("replication pipeline failed")
	}

	log.Info("starting graceful shutdown")

	now := time.Now().UnixMilli()
	for _, rep := range replicators {
		rep.Shutdown(ctx, now)
	}

	cancel()

	log.Info("stopping venue client")
	client.Stop()

	close(flushes)
	log.Info("stopping journal writer")
	journalWriter.Stop()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("graceful shutdown completed")
	case <-time.After(30 * time.Second):
		log.Warn("graceful shutdown timeout exceeded")
	}

	log.Info("bookflow stopped")
}

// clientTransport defers the transport methods to a client that is
// constructed after the replicators, breaking the handler cycle between
// the two.
type clientTransport struct {
	client **transport.Client
}

func (t clientTransport) Subscribe(ctx context.Context, req transport.SubscribeRequest) error {
	if *t.client == nil {
		return errors.New("transport not started")
	}
	return (*t.client).Subscribe(ctx, req)
}

func (t clientTransport) Unsubscribe(ctx context.Context, subID int64) error {
	if *t.client == nil {
		return errors.New("transport not started")
	}
	return (*t.client).Unsubscribe(ctx, subID)
}

// drainEvents consumes the fan-out channel so downstream slots never fill
// up. Events are surfaced at debug level; embedding applications replace
// this loop with their own consumer.
func drainEvents(ctx context.Context, log *logger.Log, events *channel.Events) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events.Out:
			if !ok {
				return
			}
			log.WithComponent("events").WithFields(logger.Fields{
				"event":  string(ev.EventName()),
				"symbol": ev.Subscription().Symbol,
			}).Debug("event")
		}
	}
}

// watchLiveness periodically asks every replicator whether a pending
// resync has exceeded its deadline and escalates the first fault.
func watchLiveness(ctx context.Context, replicators map[string]*replicator.Replicator, fatal chan<- error) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, rep := range replicators {
				if err := rep.Healthy(now); err != nil {
					select {
					case fatal <- err:
					default:
					}
					return
				}
			}
		}
	}
}

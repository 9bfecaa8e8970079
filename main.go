package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shortsmith/api"
	"shortsmith/cancel"
	"shortsmith/config"
	"shortsmith/deduplication"
	"shortsmith/events"
	"shortsmith/keypool"
	"shortsmith/logger"
	"shortsmith/orchestrator"
	"shortsmith/provider"
	"shortsmith/publish"
	"shortsmith/session"
	"shortsmith/status"
	"shortsmith/video"
)

type options struct {
	sourceURL string
	serve     bool
	worker    bool
	fresh     bool
	model     string
}

func main() {
	var opts options
	flag.StringVar(&opts.sourceURL, "url", "", "video to process once (omit to resume the saved session)")
	flag.BoolVar(&opts.serve, "serve", false, "run the HTTP control API")
	flag.BoolVar(&opts.worker, "kafka", false, "consume jobs from Kafka")
	flag.BoolVar(&opts.fresh, "fresh", false, "discard any saved session before starting")
	flag.StringVar(&opts.model, "model", "", "Gemini model id or preset (fast, pro)")
	flag.Parse()

	log := logger.New()
	if err := run(opts, log); err != nil {
		log.WithError(err).Fatal("shortsmith stopped")
	}
}

func run(opts options, log *logger.Logger) error {
	mode, err := selectMode(opts.sourceURL, opts.serve, opts.worker)
	if err != nil {
		return err
	}
	if opts.sourceURL != "" && !video.ValidYouTubeURL(opts.sourceURL) {
		return fmt.Errorf("not a YouTube URL: %s", opts.sourceURL)
	}

	settings, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.model != "" {
		settings.GeminiModel = ResolveModel(opts.model)
	}
	if err := video.CheckDependencies(nil); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := keypool.New(settings.Provider, settings.Credentials())
	log.Infof("provider %s with %d key(s): %v", settings.Provider, pool.Size(), pool.Names())

	store, err := session.Open(settings, log)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	if c, ok := store.(io.Closer); ok {
		defer c.Close()
	}

	publisher, err := publish.FromSettings(ctx, settings, log)
	if err != nil {
		return fmt.Errorf("setting up publishing: %w", err)
	}

	pipeline := &orchestrator.Pipeline{
		OutputDir:     settings.OutputDir,
		ExtractShorts: settings.ExtractShorts,
		Media:         video.NewToolkit(ctx, settings, log),
		NewClient:     clientFactory(settings, log),
		Pool:          pool,
		Store:         store,
		Publisher:     publisher,
		Log:           log.Named("pipeline"),
	}
	if publisher != nil && settings.DedupePublished {
		pipeline.Ledger = publishLedger(settings, log)
		if c, ok := pipeline.Ledger.(io.Closer); ok {
			defer c.Close()
		}
	}
	if settings.KafkaEnabled() {
		producer, err := events.NewProducer(events.ProducerConfig{
			Brokers:      settings.KafkaBrokers,
			StatusTopic:  settings.KafkaStatusTopic,
			MomentsTopic: settings.KafkaMomentsTopic,
		}, log)
		if err != nil {
			log.WithError(err).Warn("kafka producer unavailable, events disabled")
		} else {
			defer producer.Close()
			pipeline.Events = producer
		}
	}

	runner := orchestrator.NewRunner(ctx, pipeline, status.NewManager(), log)

	if mode == modeHeadless {
		return runHeadless(ctx, runner, opts, log)
	}

	if settings.ResumeSchedule != "" {
		scheduler := orchestrator.NewResumeScheduler(runner, store, log)
		if err := scheduler.Start(settings.ResumeSchedule); err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	switch mode {
	case modeServe:
		return serve(ctx, runner, settings, log)
	case modeWorker:
		return work(ctx, runner, settings, log)
	}

	// serve+worker
	if err := startWorker(ctx, runner, settings, log); err != nil {
		return err
	}
	return serve(ctx, runner, settings, log)
}

func clientFactory(s *config.Settings, log *logger.Logger) func(*cancel.Flag) provider.Client {
	return func(flag *cancel.Flag) provider.Client {
		if s.Provider == config.ProviderOpenRouter {
			return provider.NewOpenRouter(s.OpenRouterModel, log)
		}
		return provider.NewGemini(s.GeminiModel, flag, log)
	}
}

// publishLedger prefers the shared RedisBloom filter and falls back to a
// process-local one.
func publishLedger(s *config.Settings, log *logger.Logger) deduplication.Ledger {
	bloom, err := deduplication.NewRedisBloom(deduplication.BloomConfig{
		Addr:      s.RedisAddr,
		Password:  s.RedisPass,
		DB:        s.RedisDB,
		Key:       config.PublishedBloomKey,
		TTL:       config.PublishedTTL,
		Capacity:  config.PublishedBloomCapacity,
		ErrorRate: config.PublishedBloomErrorRate,
	})
	if err != nil {
		log.WithError(err).Warn("publish ledger falls back to memory")
		return deduplication.NewMemoryLedger()
	}
	return bloom
}

func runHeadless(ctx context.Context, runner *orchestrator.Runner, opts options, log *logger.Logger) error {
	go func() {
		<-ctx.Done()
		runner.Cancel()
	}()

	out, err := runner.Run(context.WithoutCancel(ctx), opts.sourceURL, opts.fresh)
	if err != nil {
		if errors.Is(err, orchestrator.ErrPoolExhausted) && out != nil && out.FallbackPath != "" {
			log.Infof("full video saved to %s; rerun later to resume analysis", out.FallbackPath)
		}
		return err
	}

	switch {
	case out.Cancelled:
		log.Info("cancelled; rerun without -url to resume")
	case len(out.Moments) == 0:
		log.Info("no moments found")
	default:
		log.Infof("%d moment(s) written to %s", len(out.Moments), out.ReportPath)
		if out.ShortsDir != "" {
			log.Infof("%d short(s) in %s", len(out.Clips), out.ShortsDir)
		}
	}
	if len(out.Skipped) > 0 {
		log.Warnf("chunks skipped after repeated failures: %v", out.Skipped)
	}
	return nil
}

func serve(ctx context.Context, runner *orchestrator.Runner, s *config.Settings, log *logger.Logger) error {
	router := api.NewRouter(api.Deps{
		Runner:   runner,
		Status:   runner.State(),
		ValidURL: video.ValidYouTubeURL,
		Log:      log,
	})
	srv := &http.Server{Addr: ":" + s.Port, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Infof("API listening on %s", srv.Addr)
	log.Info("  GET  /api/health")
	log.Info("  GET  /api/status")
	log.Info("  GET  /api/moments")
	log.Info("  POST /api/jobs")
	log.Info("  POST /api/cancel")

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	runner.Cancel()
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	runner.Wait()
	return nil
}

func work(ctx context.Context, runner *orchestrator.Runner, s *config.Settings, log *logger.Logger) error {
	if err := startWorker(ctx, runner, s, log); err != nil {
		return err
	}
	<-ctx.Done()
	runner.Cancel()
	runner.Wait()
	return nil
}

// startWorker consumes job requests until ctx is done.
func startWorker(ctx context.Context, runner *orchestrator.Runner, s *config.Settings, log *logger.Logger) error {
	if !s.KafkaEnabled() {
		return errors.New("-kafka needs KAFKA_BOOTSTRAP_SERVERS")
	}

	handler := events.NewJobHandler(func(ctx context.Context, url string) error {
		_, err := runner.Run(ctx, url, false)
		return err
	}, video.ValidYouTubeURL, log)

	consumer, err := events.NewConsumer(events.ConsumerConfig{
		Brokers: s.KafkaBrokers,
		Topic:   s.KafkaJobsTopic,
		GroupID: s.KafkaGroupID,
		Handler: handler,
	}, log)
	if err != nil {
		return fmt.Errorf("creating kafka consumer: %w", err)
	}
	if err := consumer.Start(ctx); err != nil {
		consumer.Close()
		return fmt.Errorf("starting kafka consumer: %w", err)
	}

	go func() {
		<-ctx.Done()
		if err := consumer.Close(); err != nil {
			log.WithError(err).Warn("closing kafka consumer")
		}
	}()
	return nil
}

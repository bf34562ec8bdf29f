package app

import (
	"context"
	"strconv"
	"time"

	"github.com/appetiteclub/apt"
	aptevents "github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/apt/middleware"
	"github.com/expoline/expo/internal/events"
	"github.com/expoline/expo/internal/expo"
	"github.com/expoline/expo/internal/mongo"
	"github.com/expoline/expo/pkg"
	"github.com/expoline/expo/pkg/event"
)

const (
	AppName    = "expo"
	AppVersion = "0.1.0"
)

// App encapsulates the expo board service.
type App struct {
	config     *apt.Config
	logger     apt.Logger
	micro      *apt.Micro
	ticketRepo *mongo.TicketRepo
}

func New(config *apt.Config, logger apt.Logger) (*App, error) {
	return &App{
		config: config,
		logger: logger,
	}, nil
}

// Initialize sets up all dependencies and components.
func (a *App) Initialize(ctx context.Context) error {
	engine := expo.New(a.engineOptions(), nil, nil)

	a.ticketRepo = mongo.NewTicketRepo(a.config, a.logger)

	natsURL, _ := a.config.GetString("nats.url")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	var expoStream *pkg.NATSStream
	var orderSubscriber *pkg.NATSSubscriber
	var eventPublisher aptevents.Publisher

	streamEnabled, _ := a.config.GetString("nats.stream.enabled")
	if streamEnabled == "true" {
		// Persistent stream for expo.tickets; startup replay rebuilds the
		// board from it.
		streamCfg := pkg.NATSStreamConfig{
			URL:          natsURL,
			StreamName:   "EXPO_EVENTS",
			Topic:        event.ExpoTicketsTopic,
			ConsumerName: "expo-publisher",
			MaxAge:       24 * time.Hour,
			Logger:       a.logger,
		}
		var err error
		expoStream, err = pkg.NewNATSStream(streamCfg)
		if err != nil {
			return err
		}
		a.logger.Info("NATS stream initialized for persistent events")
		eventPublisher = expoStream

		orderSubscriber, err = pkg.NewNATSSubscriber(natsURL, a.logger)
		if err != nil {
			return err
		}
	} else {
		publisher, err := pkg.NewNATSPublisher(natsURL)
		if err != nil {
			return err
		}
		eventPublisher = publisher

		orderSubscriber, err = pkg.NewNATSSubscriber(natsURL, a.logger)
		if err != nil {
			return err
		}
	}

	var streamForWarm aptevents.StreamConsumer
	if expoStream != nil {
		streamForWarm = expoStream
	}
	warmer := expo.NewWarmer(engine, streamForWarm, a.ticketRepo, a.logger)

	eventSubscriber := events.NewOrderSubscriber(orderSubscriber, engine, a.ticketRepo, eventPublisher, a.logger)

	handler := expo.NewHandler(engine, a.ticketRepo, eventPublisher, a.config, a.logger)

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger:      a.logger,
		DisableCORS: true,
	})
	stack = append(stack, middleware.InternalOnly())

	lifecycles := []interface{}{a.ticketRepo, eventSubscriber}

	// Warm the board after the repo is up, then seed demo data if enabled.
	warmLifecycle := apt.LifecycleHooks{
		OnStart: func(ctx context.Context) error {
			if err := warmer.Warm(ctx); err != nil {
				a.logger.Info("failed to warm ticket board", "error", err)
			}
			demoEnabled, _ := a.config.GetString("demo.seed.enabled")
			if demoEnabled == "true" {
				if err := expo.ApplyDemoSeeds(ctx, engine, a.ticketRepo, a.ticketRepo.GetDatabase(), a.logger); err != nil {
					a.logger.Errorf("Demo seeding failed (non-fatal): %v", err)
				}
			}
			return nil
		},
	}
	lifecycles = append(lifecycles, warmLifecycle)

	if expoStream != nil {
		streamLifecycle := apt.LifecycleHooks{
			OnStop: func(context.Context) error { return expoStream.Close() },
		}
		lifecycles = append(lifecycles, streamLifecycle)
	}
	if orderSubscriber != nil {
		subscriberLifecycle := apt.LifecycleHooks{
			OnStop: func(context.Context) error { return orderSubscriber.Close() },
		}
		lifecycles = append(lifecycles, subscriberLifecycle)
	}

	options := []apt.Option{
		apt.WithConfig(a.config),
		apt.WithLogger(a.logger),
		apt.WithHTTPMiddleware(stack...),
		apt.WithHTTPServerModules("web.port", handler),
		apt.WithLifecycle(lifecycles...),
		apt.WithHealthChecks(AppName),
	}

	a.micro = apt.NewMicro(options...)
	return nil
}

// engineOptions reads the board tunables from configuration, falling back
// to the engine defaults on anything unset or unparsable.
func (a *App) engineOptions() expo.Options {
	opts := expo.Options{}

	if s, _ := a.config.GetString("alerts.delayed_after_minutes"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			opts.DelayedAfterMinutes = v
		}
	}
	if s, _ := a.config.GetString("alerts.late_after_minutes"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			opts.LateAfterMinutes = v
		}
	}
	if s, _ := a.config.GetString("undo.window_ms"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			opts.UndoWindow = time.Duration(v) * time.Millisecond
		}
	}
	if s, _ := a.config.GetString("coursing.mode"); s != "" {
		opts.CoursingMode = expo.CoursingMode(s)
	}
	return opts
}

// Run starts the application.
func (a *App) Run(ctx context.Context) error {
	a.logger.Infof("Starting %s(%s)", AppName, AppVersion)
	if err := a.micro.Run(ctx); err != nil {
		return err
	}
	a.logger.Infof("%s(%s) stopped", AppName, AppVersion)
	return nil
}

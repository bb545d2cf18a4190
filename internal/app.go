package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
	"wqd/internal/controllers"
	"wqd/internal/notifier"
	"wqd/internal/providers"
	"wqd/internal/storage"
	"wqd/internal/storage/interfaces"
	"wqd/internal/structures"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type App struct {
	WebServer *http.Server
	conf      *structures.Config
	logger    providers.Logger
	scheduler interfaces.SchedulerInterface
	backend   *storage.Backend
	notifier  *notifier.FanOut
}

func NewApp(
	healthController *controllers.HealthController,
	wsController *controllers.WsController,
	scheduler interfaces.SchedulerInterface,
	backend *storage.Backend,
	fanOut *notifier.FanOut,
	conf *structures.Config,
	logger providers.Logger,
	router providers.RouterProviderInterface,
	metrics providers.MetricsProviderInterface,
) *App {
	// Inner mux: API routes
	apiMux := http.NewServeMux()
	for _, route := range router.GetRoutes() {
		apiMux.Handle(route.Url, route.Handler)
		logger.Debugf(providers.TypeApp, "Route %s %s", route.Method, route.Url)
	}

	// Wrap API routes with metrics and access logging
	instrumentedAPI := providers.MetricsMiddleware(metrics, logger, apiMux)

	// Outer mux: infrastructure + instrumented API
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthController.Health)
	if conf.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	if conf.Notifier.HasChannel("hub") {
		mux.HandleFunc("/ws", wsController.Serve)
	}
	mux.Handle("/", instrumentedAPI)

	return &App{
		WebServer: &http.Server{
			Addr:         conf.WebServer.Host + ":" + strconv.Itoa(conf.WebServer.Port),
			Handler:      middleware.RequestID(middleware.Recoverer(mux)),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		conf:      conf,
		logger:    logger,
		scheduler: scheduler,
		backend:   backend,
		notifier:  fanOut,
	}
}

// Run serves until SIGINT or SIGTERM, then drains requests and persists state.
func (a *App) Run() error {
	a.logger.Infof(providers.TypeApp, "Starting %s", a.conf.AppName)
	if err := a.scheduler.Restore(); err != nil {
		a.logger.Errorf(providers.TypeApp, "Restore error: %s", err)
	}
	a.scheduler.Init()

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Infof(providers.TypeApp, "Listening HTTP clients on %s", a.WebServer.Addr)
		if err := a.WebServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	var runErr error
	select {
	case <-stop:
		a.logger.Infof(providers.TypeApp, "Shutdown signal received")
	case err := <-serverErr:
		runErr = fmt.Errorf("server error: %w", err)
	}

	return errors.Join(runErr, a.shutdown())
}

func (a *App) shutdown() error {
	a.scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if err := a.WebServer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.scheduler.Persist(); err != nil {
		errs = append(errs, fmt.Errorf("persist: %w", err))
	}
	a.notifier.Close()
	if err := a.backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	if len(errs) == 0 {
		a.logger.Infof(providers.TypeApp, "gracefully stopped")
	}
	return errors.Join(errs...)
}

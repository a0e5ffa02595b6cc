package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/overunder/overunder/internal/server"
	"github.com/overunder/overunder/modules"
	gradebookservices "github.com/overunder/overunder/modules/gradebook/services"
	"github.com/overunder/overunder/pkg/application"
	"github.com/overunder/overunder/pkg/configuration"
	"github.com/overunder/overunder/pkg/eventbus"
	"github.com/overunder/overunder/pkg/metrics"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	app := application.New(&application.ApplicationOptions{
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	if err := modules.Load(app, modules.BuiltInModules(conf)...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}

	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	serverInstance, err := server.Default(&server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	httpServer := &http.Server{
		Addr:    conf.SocketAddress,
		Handler: serverInstance.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on: %s\n", conf.SocketAddress)
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start server: %v", err)
		}
	case sig := <-stop:
		logger.WithField("signal", sig.String()).Info("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("server shutdown")
	}

	// Unsaved edits are flushed to the grades file on the way out.
	svc := app.Service(gradebookservices.GradebookService{}).(*gradebookservices.GradebookService)
	if err := svc.WriteOnExit(ctx); err != nil {
		logger.WithError(err).Error("writing gradebook on exit")
	}

	configuration.Use().Unload()
}

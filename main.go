package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/appetiteclub/apt"
	"github.com/expoline/expo/internal/app"
)

const appNamespace = "EXPO"

func main() {
	config, err := apt.LoadConfig(appNamespace, os.Args[1:])
	if err != nil {
		log.Fatalf("Cannot setup %s(%s): %v", app.AppName, app.AppVersion, err)
	}

	logLevel, _ := config.GetString("log.level")
	logger := apt.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	application, err := app.New(config, logger)
	if err != nil {
		log.Fatalf("Cannot create %s(%s): %v", app.AppName, app.AppVersion, err)
	}

	if err := application.Initialize(ctx); err != nil {
		log.Fatalf("Cannot initialize %s(%s): %v", app.AppName, app.AppVersion, err)
	}

	if err := application.Run(ctx); err != nil {
		log.Fatalf("%s(%s) stopped with error: %v", app.AppName, app.AppVersion, err)
	}
}

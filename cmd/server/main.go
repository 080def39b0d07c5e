// Package main implements the entry point for the tubetone API server,
// which converts YouTube videos into downloadable MP3 artifacts through an
// asynchronous task lifecycle.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	app, err := newApplication()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}

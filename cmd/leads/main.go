// Package main starts the lead workflow service and handles termination.
//
// The process hosts the lead lifecycle gRPC surface and the websocket
// notification endpoint; persistent state lives in the sqlite store.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	leadscmd "github.com/craftlane/craftlane/internal/cmd/leads"
)

func main() {
	log.SetPrefix("[LEADS] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := leadscmd.Run(ctx); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}

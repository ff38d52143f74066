// Package main implements the entry point for the content operations server,
// which manages the generation-and-publish lifecycle of content items.
package main

import (
	"context"
	"log"
)

func main() {
	app, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

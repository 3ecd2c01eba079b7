package main

import (
	"context"
	"fmt"
	"os"

	"gitlab.com/timkado/api/storefront-access-service/internal/bootstrap"
	"gitlab.com/timkado/api/storefront-access-service/pkg/contextkeys"
)

func main() {
	ctx := context.Background()
	ctx = context.WithValue(ctx, contextkeys.RequestIDKey, "app-main")

	app, cleanup, err := bootstrap.InitializeApp(ctx)
	if err != nil {
		// The main logger is not available yet.
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := app.Run(ctx); err != nil {
		fmt.Printf("Application run failed: %v\n", err)
		cleanup()
		os.Exit(1)
	}

	fmt.Println("Application exited gracefully.")
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/manike-backend/internal/app"
	"github.com/yungbote/manike-backend/internal/platform/shutdown"
)

func main() {
	w, err := app.NewWorker()
	if err != nil {
		fmt.Printf("failed to initialize compile worker: %v\n", err)
		os.Exit(1)
	}
	defer w.Close()

	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	if err := w.Run(ctx); err != nil {
		w.Log.Error("Compile worker exited", "error", err)
		w.Close()
		os.Exit(1)
	}
}

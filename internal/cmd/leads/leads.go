// Package leads boots the lead workflow service with telemetry configured.
package leads

import (
	"context"
	"log"
	"time"

	"github.com/craftlane/craftlane/internal/platform/otel"
	"github.com/craftlane/craftlane/internal/services/leads/app"
)

const otelShutdownTimeout = 5 * time.Second

// Run configures observability and serves the leads service until the
// context ends.
func Run(ctx context.Context) error {
	shutdown, err := otel.Setup(ctx, "leads")
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), otelShutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown telemetry: %v", err)
		}
	}()

	return app.Run(ctx)
}

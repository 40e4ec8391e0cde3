package serviceinterfaces

import (
	"context"
)

// Lifecycle is implemented by services that hold external resources and need
// orderly startup and shutdown through the service container.
type Lifecycle interface {
	// Startup is called when the service should initialize
	Startup(ctx context.Context) error

	// Shutdown is called when the service should cleanup
	Shutdown(ctx context.Context) error

	// IsReady returns whether the service is ready to handle requests
	IsReady() bool
}

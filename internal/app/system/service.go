package system

import "context"

// Service is a background component the runtime starts after the HTTP
// server is wired and stops, in reverse order, on shutdown.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

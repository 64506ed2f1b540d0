package server

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/vehicle-api/pkg/log"
)

// Server is anything that runs until its context is cancelled.
type Server interface {
	Start(ctx context.Context) error
}

// Func adapts a blocking function to Server.
type Func func(ctx context.Context) error

func (f Func) Start(ctx context.Context) error { return f(ctx) }

// Task adapts a background loop that cannot fail to Server.
func Task(fn func(ctx context.Context)) Server {
	return Func(func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}

// Manager manages the lifecycle of the HTTP server and the background tasks.
type Manager struct {
	servers []Server
}

func NewManager(servers ...Server) *Manager {
	return &Manager{servers: servers}
}

// Add registers s. It must be called before Start.
func (m *Manager) Add(s Server) {
	m.servers = append(m.servers, s)
}

// Start launches all servers in parallel and waits for termination.
// The first error cancels the others.
func (m *Manager) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, s := range m.servers {
		g.Go(func() error {
			return s.Start(ctx)
		})
	}

	log.Info("All servers starting...", "count", len(m.servers))
	return g.Wait()
}

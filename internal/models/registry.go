package models

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/seslichat/sesli/pkg/Logger"
)

// Registry holds the set of model names the backing Ollama server
// currently serves. It is refreshed on a ticker and injected into
// request handling; handlers only ever read it.
type Registry struct {
	mu     sync.RWMutex
	names  map[string]struct{}
	client *api.Client
	logger *Logger.Logger
}

func NewRegistry(host string, logger *Logger.Logger) (*Registry, error) {
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host: %w", err)
	}
	return &Registry{
		names:  make(map[string]struct{}),
		client: api.NewClient(u, http.DefaultClient),
		logger: logger,
	}, nil
}

// Refresh re-reads the model list from the server.
func (r *Registry) Refresh(ctx context.Context) error {
	resp, err := r.client.List(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}

	names := make(map[string]struct{}, len(resp.Models))
	for _, m := range resp.Models {
		names[m.Name] = struct{}{}
	}

	r.mu.Lock()
	r.names = names
	r.mu.Unlock()

	r.logger.Infof("model registry refreshed: %d models", len(names))
	return nil
}

// Start performs a best-effort initial refresh and keeps refreshing on
// the given interval until ctx is cancelled. The server boots with an
// empty registry if the initial call fails.
func (r *Registry) Start(ctx context.Context, interval time.Duration) {
	if err := r.Refresh(ctx); err != nil {
		r.logger.Errorf("initial model refresh failed: %v", err)
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.Refresh(ctx); err != nil {
					r.logger.Errorf("model refresh failed: %v", err)
				}
			}
		}
	}()
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.names[name]
	return ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.names))
	for n := range r.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

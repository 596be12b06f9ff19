package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory builds a Sink from Config.
type Factory func(ctx context.Context, cfg Config) (Sink, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for kind. It is typically
// called from backend packages' init functions.
func Register(kind string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[strings.ToLower(kind)] = f
}

// New constructs the sink registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Sink, error) {
	regMu.RLock()
	f, ok := factories[strings.ToLower(cfg.Kind)]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported sink.kind=%q (available: %s)", cfg.Kind, strings.Join(ListKinds(), ", "))
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

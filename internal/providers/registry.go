// Package providers keeps the registry of coverage providers the HTTP API
// and CLI can address by name.
package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/mohammed-shakir/soilgrids-stats/internal/catalog"
	"github.com/mohammed-shakir/soilgrids-stats/internal/core/config"
	"github.com/mohammed-shakir/soilgrids-stats/internal/pipeline"
)

var ErrUnknownProvider = errors.New("unknown provider")

// Provider computes polygon statistics against one coverage service.
type Provider interface {
	Name() string
	Catalog() *catalog.Catalog
	Stats(ctx context.Context, in pipeline.Input) (pipeline.Result, error)
	Layers(ctx context.Context, product string) ([]string, error)
}

// Deps are the shared resources handed to every factory. WrapFetcher, when
// set, decorates the provider's coverage fetcher.
type Deps struct {
	Logger      *slog.Logger
	HTTP        *http.Client
	WrapFetcher func(pipeline.Fetcher) pipeline.Fetcher
}

type Factory func(cfg config.Config, deps Deps) (Provider, error)

var (
	mu  sync.RWMutex
	reg = map[string]Factory{}
)

func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	reg[name] = f
}

func Build(name string, cfg config.Config, deps Deps) (Provider, error) {
	mu.RLock()
	f, ok := reg[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	return f(cfg, deps)
}

// Names lists registered providers in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(reg))
	for n := range reg {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// BuildAll constructs every registered provider.
func BuildAll(cfg config.Config, deps Deps) (map[string]Provider, error) {
	out := map[string]Provider{}
	for _, n := range Names() {
		p, err := Build(n, cfg, deps)
		if err != nil {
			return nil, fmt.Errorf("build provider %s: %w", n, err)
		}
		out[n] = p
	}
	return out, nil
}

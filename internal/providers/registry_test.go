package providers_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/mohammed-shakir/soilgrids-stats/internal/catalog"
	"github.com/mohammed-shakir/soilgrids-stats/internal/core/config"
	"github.com/mohammed-shakir/soilgrids-stats/internal/pipeline"
	"github.com/mohammed-shakir/soilgrids-stats/internal/providers"
	_ "github.com/mohammed-shakir/soilgrids-stats/internal/providers/soilgrids"
)

type stub struct{}

func (stub) Name() string              { return "stub" }
func (stub) Catalog() *catalog.Catalog { return catalog.New() }
func (stub) Stats(context.Context, pipeline.Input) (pipeline.Result, error) {
	return pipeline.Result{}, nil
}
func (stub) Layers(context.Context, string) ([]string, error) { return nil, nil }

func TestRegistry(t *testing.T) {
	providers.Register("stub", func(config.Config, providers.Deps) (providers.Provider, error) {
		return stub{}, nil
	})

	names := providers.Names()
	if !slices.Contains(names, "soilgrids") || !slices.Contains(names, "stub") {
		t.Fatalf("names=%v", names)
	}

	p, err := providers.Build("stub", config.FromEnv(), providers.Deps{})
	if err != nil || p.Name() != "stub" {
		t.Fatalf("Build stub: %v %v", p, err)
	}

	if _, err := providers.Build("nope", config.FromEnv(), providers.Deps{}); !errors.Is(err, providers.ErrUnknownProvider) {
		t.Fatalf("err=%v", err)
	}

	all, err := providers.BuildAll(config.FromEnv(), providers.Deps{})
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if all["soilgrids"] == nil || all["stub"] == nil {
		t.Fatalf("BuildAll=%v", all)
	}
}

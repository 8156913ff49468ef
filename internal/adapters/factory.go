package adapters

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/alexisbeaulieu97/autotest/internal/config"
	"github.com/alexisbeaulieu97/autotest/internal/logger"
	"github.com/alexisbeaulieu97/autotest/internal/model"
	"github.com/alexisbeaulieu97/autotest/internal/ports"
)

// Engine kinds accepted in settings.
const (
	KindCommand = "command"
	KindHTTP    = "http"
	KindProbe   = "probe"
)

// BuildRegistry registers an engine for every category configured in
// settings, then the built-in probes for probe categories left unconfigured.
// lookup resolves API keys named by keyEnv.
func BuildRegistry(engines map[string]config.EngineSpec, lookup config.LookupFunc, client *http.Client, log *logger.Logger) (*Registry, error) {
	registry := NewRegistry(log)

	categories := make([]string, 0, len(engines))
	for category := range engines {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		spec := engines[category]
		engine, err := fromSpec(category, spec, lookup, client)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(category, spec.Kind, engine); err != nil {
			return nil, err
		}
	}

	for _, category := range ProbeCategories {
		if _, configured := engines[category]; configured {
			continue
		}
		if err := registry.Register(category, KindProbe, Probe{}); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func fromSpec(category string, spec config.EngineSpec, lookup config.LookupFunc, client *http.Client) (ports.TestEngine, error) {
	shape := model.Shape(spec.Shape)
	switch spec.Kind {
	case KindCommand:
		return &CommandEngine{
			Command: spec.Command,
			Args:    append([]string(nil), spec.Args...),
			Env:     spec.Env,
			Shape:   shape,
		}, nil
	case KindHTTP:
		key := ""
		if spec.KeyEnv != "" {
			if lookup == nil {
				return nil, fmt.Errorf("engine %s: cannot resolve %s", category, spec.KeyEnv)
			}
			value, ok := lookup(spec.KeyEnv)
			if !ok || value == "" {
				return nil, fmt.Errorf("engine %s: environment variable %s is not set", category, spec.KeyEnv)
			}
			key = value
		}
		return &HTTPEngine{Endpoint: spec.URL, Key: key, Shape: shape, Client: client}, nil
	default:
		return nil, fmt.Errorf("engine %s: unknown kind %q", category, spec.Kind)
	}
}

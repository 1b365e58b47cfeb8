package llmprovider

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/models.yaml
var embeddedModelsYAML []byte

// Catalog Philosophy:
//
// The catalog is MODEL METADATA used to route a model name to a provider and
// for informational purposes. It does NOT enforce validation - vendor APIs are
// the source of truth, and models missing from the catalog still route through
// each adapter's SupportsModel check.
//
// Library users can extend the embedded catalog by:
//  1. Calling LoadFile() with custom YAML
//  2. Calling RegisterModel() programmatically

// CatalogFile is the on-disk catalog layout.
type CatalogFile struct {
	Version     string                                    `yaml:"version"`      // Semantic version (e.g., "1.0.0")
	LastUpdated string                                    `yaml:"last_updated"` // ISO 8601 date (e.g., "2025-01-15")
	Providers   map[ProviderID]map[string]ModelCapability `yaml:"providers"`
}

// ModelCapability describes a known model.
type ModelCapability struct {
	ContextWindow   int           `yaml:"context_window"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	Features        ModelFeatures `yaml:"features"`
}

// ModelFeatures indicates which features a model supports
type ModelFeatures struct {
	Streaming bool `yaml:"streaming"`
	Tools     bool `yaml:"tools"`
	Vision    bool `yaml:"vision"`
	Thinking  bool `yaml:"thinking"`
}

// Model is a catalog entry. It has no implicit string form; use Name().
type Model struct {
	name       string
	provider   ProviderID
	capability ModelCapability
}

// NewModel creates a catalog entry.
func NewModel(provider ProviderID, name string, capability ModelCapability) Model {
	return Model{name: name, provider: provider, capability: capability}
}

// Name returns the vendor model name
func (m Model) Name() string { return m.name }

// Provider returns the provider serving the model
func (m Model) Provider() ProviderID { return m.provider }

// Capability returns the model metadata
func (m Model) Capability() ModelCapability { return m.capability }

// Catalog indexes known models by name.
type Catalog struct {
	models map[string]Model
	mu     sync.RWMutex
}

var (
	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
)

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{models: make(map[string]Model)}
}

// DefaultCatalog returns the shared catalog loaded from the embedded model list.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		defaultCatalog = NewCatalog()
		if err := defaultCatalog.Load(embeddedModelsYAML); err != nil {
			// Routing falls back to SupportsModel scans
			slog.Warn("failed to load embedded model catalog", "error", err)
		}
	})
	return defaultCatalog
}

// Load merges catalog YAML into c. Later entries replace earlier ones with the same name.
func (c *Catalog) Load(data []byte) error {
	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal model catalog: %w", err)
	}

	for provider := range file.Providers {
		if !provider.IsValid() {
			return &ValidationError{
				Field:  "providers",
				Value:  provider,
				Reason: "unknown provider in model catalog",
				Err:    ErrUnknownProvider,
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for provider, models := range file.Providers {
		for name, capability := range models {
			c.models[name] = NewModel(provider, name, capability)
		}
	}
	return nil
}

// LoadFile merges a catalog YAML file into c.
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read model catalog: %w", err)
	}
	return c.Load(data)
}

// RegisterModel adds or replaces a model programmatically.
func (c *Catalog) RegisterModel(model Model) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models[model.Name()] = model
}

// Lookup returns the catalog entry for name.
func (c *Catalog) Lookup(name string) (Model, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	model, ok := c.models[name]
	if !ok {
		return Model{}, &ModelError{
			Model:  name,
			Reason: "model not found in catalog",
			Err:    ErrInvalidModel,
		}
	}
	return model, nil
}

// ForProvider returns the provider's models sorted by name.
func (c *Catalog) ForProvider(provider ProviderID) []Model {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Model
	for _, m := range c.models {
		if m.Provider() == provider {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// SupportsStreaming reports whether a known model streams. Unknown models return false.
func (c *Catalog) SupportsStreaming(name string) bool {
	model, err := c.Lookup(name)
	if err != nil {
		return false
	}
	return model.Capability().Features.Streaming
}

// LoadCatalogFromFile merges a YAML file into the default catalog.
func LoadCatalogFromFile(path string) error {
	return DefaultCatalog().LoadFile(path)
}

// RegisterModel adds a model to the default catalog.
func RegisterModel(model Model) {
	DefaultCatalog().RegisterModel(model)
}

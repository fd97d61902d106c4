package pipeline

import (
	"fmt"
	"sort"
	"sync"

	"github.com/JonMunkholm/prism/internal/ops"
)

// ParamDoc documents one parameter of a stage for the catalog endpoint.
type ParamDoc struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
}

// StageDef describes one stage of the catalog.
type StageDef struct {
	Key         string     `json:"key"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
	Order       int        `json:"order"`
	Params      []ParamDoc `json:"params"`

	// New returns a zero parameter record for decoding a plan step.
	New func() ops.Operation `json:"-"`
}

var (
	registry   = make(map[string]StageDef)
	registryMu sync.RWMutex
)

// Register adds a stage to the catalog.
// Panics if the key is taken or New is nil.
func Register(def StageDef) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Key]; exists {
		panic(fmt.Sprintf("stage already registered: %s", def.Key))
	}
	if def.New == nil {
		panic(fmt.Sprintf("stage %s has no constructor", def.Key))
	}
	if name := def.New().Name(); name != def.Key {
		panic(fmt.Sprintf("stage %s builds operation %s", def.Key, name))
	}
	registry[def.Key] = def
}

// Lookup returns a stage by key.
func Lookup(key string) (StageDef, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// Catalog returns every registered stage in pipeline order.
func Catalog() []StageDef {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]StageDef, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Order != result[j].Order {
			return result[i].Order < result[j].Order
		}
		return result[i].Key < result[j].Key
	})
	return result
}

// Keys returns the stage keys in pipeline order.
func Keys() []string {
	defs := Catalog()
	keys := make([]string, len(defs))
	for i, def := range defs {
		keys[i] = def.Key
	}
	return keys
}

// Package fonts resolves font references to loaded font programs and
// measures text through real shaping. One Registry is shared by property
// detection, preview and flattening so that all three agree on metrics.
package fonts

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Registry maps font family names to TrueType/OpenType font programs.
// Lookup is case-insensitive and ignores spaces and hyphens, so that
// "Nanum Gothic", "NanumGothic" and "nanum-gothic" resolve identically.
type Registry struct {
	mu       sync.RWMutex
	families map[string][]byte
	fallback string
}

func NewRegistry() *Registry {
	return &Registry{families: make(map[string][]byte)}
}

func normalizeFamily(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "")
	name = strings.ReplaceAll(name, "-", "")
	// Subset prefixes like "ABCDEF+Helvetica" are ignored.
	if idx := strings.Index(name, "+"); idx >= 0 && idx == 6 {
		name = name[idx+1:]
	}
	return name
}

// Register adds a font program under the given family name. The first
// registered family becomes the fallback.
func (r *Registry) Register(family string, data []byte) error {
	if len(data) == 0 {
		return errors.New("empty font data")
	}
	key := normalizeFamily(family)
	if key == "" {
		return errors.New("empty family name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fallback == "" {
		r.fallback = key
	}
	r.families[key] = data
	return nil
}

// RegisterFile loads a font file from disk.
func (r *Registry) RegisterFile(family, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load font %s: %w", family, err)
	}
	return r.Register(family, data)
}

// Resolve returns the font program for family, falling back to the first
// registered font when the family is unknown.
func (r *Registry) Resolve(family string) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if data, ok := r.families[normalizeFamily(family)]; ok {
		return data, true
	}
	if r.fallback != "" {
		return r.families[r.fallback], false
	}
	return nil, false
}

// ResolveNamed is Resolve with the resolved family key, which names the
// font actually chosen after fallback. An error means no fonts are
// registered at all.
func (r *Registry) ResolveNamed(family string) (string, []byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := normalizeFamily(family)
	if data, ok := r.families[key]; ok {
		return key, data, nil
	}
	if r.fallback != "" {
		return r.fallback, r.families[r.fallback], nil
	}
	return "", nil, fmt.Errorf("no font registered for %q and no fallback", family)
}

// Families returns the registered family keys.
func (r *Registry) Families() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.families))
	for k := range r.families {
		out = append(out, k)
	}
	return out
}

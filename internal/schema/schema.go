// Package schema migrates versioned blobs forward through an explicit table
// of per-step converters.
package schema

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/nidhogg/skillbook/internal/dict"
)

// Family names an independently versioned blob type.
type Family string

var (
	// ErrNoConverter means a step in a family's chain was never registered.
	ErrNoConverter = errors.New("no converter registered")
	// ErrUnsupportedVersion means a blob is outside 1..current.
	ErrUnsupportedVersion = errors.New("unsupported schema version")
	// ErrAlreadyRegistered means a step was registered twice. Published
	// converters must never change.
	ErrAlreadyRegistered = errors.New("converter already registered")
)

// VersionedBlob pairs a payload with the schema version it conforms to.
type VersionedBlob struct {
	SchemaVersion int         `json:"schema_version"`
	Payload       interface{} `json:"payload"`
}

// Converter rewrites a payload from version v to v+1.
type Converter func(payload interface{}) (interface{}, error)

// ItemConverter rewrites one element of a list payload from version v to v+1.
type ItemConverter func(item dict.Dict) (dict.Dict, error)

// Step records one applied conversion.
type Step struct {
	Family Family `json:"family"`
	From   int    `json:"from_version"`
	To     int    `json:"to_version"`
}

type stepKey struct {
	family Family
	from   int
}

// Registry holds the current version of each family and its converters.
type Registry struct {
	mu         sync.RWMutex
	current    map[Family]int
	converters map[stepKey]Converter
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		current:    make(map[Family]int),
		converters: make(map[stepKey]Converter),
	}
}

// SetCurrent declares the version a family must reach.
func (r *Registry) SetCurrent(f Family, version int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current[f] = version
}

// Current returns the version a family must reach.
func (r *Registry) Current(f Family) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.current[f]
	return v, ok
}

// Register adds the converter for family f from version `from` to from+1.
func (r *Registry) Register(f Family, from int, c Converter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := stepKey{family: f, from: from}
	if _, ok := r.converters[key]; ok {
		return fmt.Errorf("%s v%d->v%d: %w", f, from, from+1, ErrAlreadyRegistered)
	}
	r.converters[key] = c
	return nil
}

// RegisterEach adds a converter for a list family that applies ic to every
// element, preserving order.
func (r *Registry) RegisterEach(f Family, from int, ic ItemConverter) error {
	return r.Register(f, from, func(payload interface{}) (interface{}, error) {
		items, ok := payload.([]interface{})
		if !ok {
			return nil, fmt.Errorf("expected a list payload, received %T", payload)
		}
		out := make([]interface{}, 0, len(items))
		for i, raw := range items {
			item, ok := raw.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("item %d: expected an object, received %T", i, raw)
			}
			converted, err := ic(item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out = append(out, converted)
		}
		return out, nil
	})
}

// Upgrade converts blob from its version to the next one, in place.
func (r *Registry) Upgrade(f Family, blob *VersionedBlob) error {
	r.mu.RLock()
	c, ok := r.converters[stepKey{family: f, from: blob.SchemaVersion}]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%s v%d->v%d: %w", f, blob.SchemaVersion, blob.SchemaVersion+1, ErrNoConverter)
	}
	payload, err := c(blob.Payload)
	if err != nil {
		return fmt.Errorf("convert %s v%d->v%d: %w", f, blob.SchemaVersion, blob.SchemaVersion+1, err)
	}
	blob.Payload = payload
	blob.SchemaVersion++
	return nil
}

// Migrate upgrades a copy of blob one step at a time until it reaches the
// family's current version. blob itself is never modified, so a failure part
// way through exposes nothing. A blob already at current is returned as is.
func (r *Registry) Migrate(f Family, blob VersionedBlob) (VersionedBlob, []Step, error) {
	current, ok := r.Current(f)
	if !ok {
		return blob, nil, fmt.Errorf("%s: %w", f, ErrNoConverter)
	}
	if blob.SchemaVersion < 1 || blob.SchemaVersion > current {
		return blob, nil, fmt.Errorf("%s v%d (current v%d): %w", f, blob.SchemaVersion, current, ErrUnsupportedVersion)
	}
	if blob.SchemaVersion == current {
		return blob, nil, nil
	}

	work := VersionedBlob{SchemaVersion: blob.SchemaVersion, Payload: dict.Clone(blob.Payload)}
	var steps []Step
	for work.SchemaVersion < current {
		from := work.SchemaVersion
		if err := r.Upgrade(f, &work); err != nil {
			return blob, nil, err
		}
		steps = append(steps, Step{Family: f, From: from, To: work.SchemaVersion})
	}
	return work, steps, nil
}

// Verify checks every family has a converter for each step 1..current-1.
func (r *Registry) Verify() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	families := make([]string, 0, len(r.current))
	for f := range r.current {
		families = append(families, string(f))
	}
	sort.Strings(families)
	for _, name := range families {
		f := Family(name)
		for v := 1; v < r.current[f]; v++ {
			if _, ok := r.converters[stepKey{family: f, from: v}]; !ok {
				return fmt.Errorf("%s v%d->v%d: %w", f, v, v+1, ErrNoConverter)
			}
		}
	}
	return nil
}

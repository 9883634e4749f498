package build

import "fmt"

// ArtifactSet maps unit IDs to object paths, preserving insertion order.
// The order is the linker argument order.
type ArtifactSet struct {
	ids   []string
	paths map[string]string
}

// NewArtifactSet creates an empty set
func NewArtifactSet() *ArtifactSet {
	return &ArtifactSet{paths: make(map[string]string)}
}

// Add appends an entry. Adding an ID twice is an error.
func (a *ArtifactSet) Add(id, path string) error {
	if _, exists := a.paths[id]; exists {
		return fmt.Errorf("artifact %q already recorded", id)
	}
	a.ids = append(a.ids, id)
	a.paths[id] = path
	return nil
}

// Get returns the object path for id
func (a *ArtifactSet) Get(id string) (string, bool) {
	p, ok := a.paths[id]
	return p, ok
}

// IDs returns unit IDs in insertion order
func (a *ArtifactSet) IDs() []string {
	return append([]string(nil), a.ids...)
}

// Paths returns object paths in insertion order
func (a *ArtifactSet) Paths() []string {
	out := make([]string, len(a.ids))
	for i, id := range a.ids {
		out[i] = a.paths[id]
	}
	return out
}

// Len returns the number of entries
func (a *ArtifactSet) Len() int {
	return len(a.ids)
}

package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownModel is returned when a model id is not registered.
var ErrUnknownModel = errors.New("unknown model")

// Entry is a registered model with its routing metadata.
type Entry struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Provider    string `json:"provider"`
	Name        string `json:"model"`
	// Stream selects streaming generation for this model.
	Stream bool `json:"stream"`

	Model Model `json:"-"`
}

// Router resolves model ids to models. It is injected wherever a model is
// needed, so concurrent runs in one process never share hidden state.
type Router struct {
	mu        sync.RWMutex
	entries   map[string]Entry
	defaultID string
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{entries: make(map[string]Entry)}
}

// Register adds or replaces a model. The first registered model becomes
// the default.
func (r *Router) Register(e Entry) error {
	if strings.TrimSpace(e.ID) == "" {
		return errors.New("model id is empty")
	}
	if e.Model == nil {
		return fmt.Errorf("model %q: implementation is nil", e.ID)
	}
	if e.Description == "" {
		e.Description = e.ID
	}
	if e.Provider == "" || e.Name == "" {
		info := e.Model.Info()
		if e.Provider == "" {
			e.Provider = info.Provider
		}
		if e.Name == "" {
			e.Name = info.Name
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.ID] = e
	if r.defaultID == "" {
		r.defaultID = e.ID
	}
	return nil
}

// SetDefault selects the model used when callers pass an empty id.
func (r *Router) SetDefault(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModel, id)
	}
	r.defaultID = id
	return nil
}

// Default returns the default model id.
func (r *Router) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultID
}

// Get resolves id; an empty id resolves to the default model.
func (r *Router) Get(id string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id == "" {
		id = r.defaultID
	}
	e, ok := r.entries[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s (available: %s)", ErrUnknownModel, id, strings.Join(r.idsLocked(), ", "))
	}
	return e, nil
}

// List returns all entries sorted by id.
func (r *Router) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.entries))
	for _, id := range r.idsLocked() {
		out = append(out, r.entries[id])
	}
	return out
}

func (r *Router) idsLocked() []string {
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

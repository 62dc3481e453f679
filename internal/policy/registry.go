package policy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/eliteGoblin/netmon/internal/domain"
)

// Registry holds all gateway page policies.
// This is the in-memory portal store; only built-in layouts are known.
type Registry struct {
	policies map[string]PortalPolicy
}

// NewRegistry creates a registry with all default policies.
func NewRegistry() *Registry {
	r := &Registry{
		policies: make(map[string]PortalPolicy),
	}

	r.Register(NewSudaPolicy())

	return r
}

// NewRegistryWithPolicies creates a registry with custom policies (for testing).
func NewRegistryWithPolicies(policies ...PortalPolicy) *Registry {
	r := &Registry{
		policies: make(map[string]PortalPolicy),
	}
	for _, p := range policies {
		r.Register(p)
	}
	return r
}

// Register adds a policy to the registry. A policy with the same ID is replaced.
func (r *Registry) Register(p PortalPolicy) {
	r.policies[p.ID()] = p
}

// Get returns a policy by ID.
func (r *Registry) Get(id string) (PortalPolicy, bool) {
	p, ok := r.policies[id]
	return p, ok
}

// List returns all policy IDs, sorted.
func (r *Registry) List() []string {
	ids := make([]string, 0, len(r.policies))
	for id := range r.policies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RegistryPortalStore adapts Registry to implement domain.PortalStore interface.
type RegistryPortalStore struct {
	registry *Registry
}

// NewPortalStore creates a PortalStore backed by the default Registry.
func NewPortalStore() domain.PortalStore {
	return &RegistryPortalStore{registry: NewRegistry()}
}

func (s *RegistryPortalStore) GetByID(id string) (*domain.Portal, error) {
	p, ok := s.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("portal not found: %s (known: %s)", id, strings.Join(s.registry.List(), ", "))
	}
	portal := ToPortal(p)
	return &portal, nil
}

// Ensure RegistryPortalStore implements domain.PortalStore.
var _ domain.PortalStore = (*RegistryPortalStore)(nil)

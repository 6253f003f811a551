package protocol

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/lcalzada-xor/netrack/internal/core/domain"
)

// Protocol names registered by the tracker.
const (
	ProtoNetwork = "NETWORK"
	ProtoClient  = "CLIENT"
	ProtoRemove  = "REMOVE"
	ProtoStatus  = "STATUS"
)

// Protocol binds a channel name to its field table.
type Protocol struct {
	Name   string
	Fields []string
	// Required marks protocols every consumer receives without enabling them.
	Required bool
}

// ParseFields resolves a comma separated field list against the table. "*"
// selects every field in table order.
func (p Protocol) ParseFields(list string) ([]int, error) {
	list = strings.TrimSpace(list)
	if list == "*" {
		all := make([]int, len(p.Fields))
		for i := range all {
			all[i] = i
		}
		return all, nil
	}

	var out []int
	for _, name := range strings.Split(list, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		idx := slices.Index(p.Fields, name)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownField, name)
		}
		out = append(out, idx)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty field list", domain.ErrUnknownField)
	}
	return out, nil
}

// Registry holds the protocols exposed to consumers.
type Registry struct {
	mu     sync.RWMutex
	protos map[string]Protocol
}

// NewRegistry returns a registry with the tracker protocols registered.
func NewRegistry() *Registry {
	r := &Registry{protos: make(map[string]Protocol)}
	r.Register(Protocol{Name: ProtoNetwork, Fields: NetworkFields})
	r.Register(Protocol{Name: ProtoClient, Fields: ClientFields})
	r.Register(Protocol{Name: ProtoRemove, Fields: RemoveFields, Required: true})
	r.Register(Protocol{Name: ProtoStatus, Fields: StatusFields, Required: true})
	return r
}

// Register adds or replaces a protocol.
func (r *Registry) Register(p Protocol) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.protos[strings.ToUpper(p.Name)] = p
}

// Lookup finds a protocol by case-insensitive name.
func (r *Registry) Lookup(name string) (Protocol, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.protos[strings.ToUpper(name)]
	if !ok {
		return Protocol{}, fmt.Errorf("%w: %s", domain.ErrUnknownProtocol, name)
	}
	return p, nil
}

// Names returns registered protocol names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.protos))
	for name := range r.protos {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Required returns the protocols every consumer receives.
func (r *Registry) Required() []Protocol {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Protocol
	for _, p := range r.protos {
		if p.Required {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b Protocol) int { return strings.Compare(a.Name, b.Name) })
	return out
}

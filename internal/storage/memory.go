package storage

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jaywantadh/PixelVault/internal/fault"
)

// ListOrder controls the order MemoryStore returns listings in.
type ListOrder int

// listing orders
const (
	ListAscending ListOrder = iota
	ListReverse
	ListShuffled
)

// MemoryStore is an in-process Store. It is safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	groups map[string]*memGroup
	order  ListOrder
	rng    *rand.Rand
}

type memGroup struct {
	key     string
	objects map[string][]byte
}

// NewMemoryStore returns an empty store listing in the given order.
func NewMemoryStore(order ListOrder) *MemoryStore {
	return &MemoryStore{
		groups: make(map[string]*memGroup),
		order:  order,
		rng:    rand.New(rand.NewSource(1)),
	}
}

func (m *MemoryStore) CreateGroup(ctx context.Context, key string) (GroupHandle, error) {
	if err := ctx.Err(); err != nil {
		return GroupHandle{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.groups[id] = &memGroup{key: key, objects: make(map[string][]byte)}
	return GroupHandle{ID: id, Key: key}, nil
}

func (m *MemoryStore) UploadContainer(ctx context.Context, g GroupHandle, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	grp, ok := m.groups[g.ID]
	if !ok {
		return fault.Transport("upload", fmt.Errorf("group not found: %s", g.ID))
	}
	grp.objects[name] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStore) ListContainers(ctx context.Context, g GroupHandle) ([]ContainerRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	grp, ok := m.groups[g.ID]
	if !ok {
		return nil, fault.Transport("list", fmt.Errorf("group not found: %s", g.ID))
	}

	refs := make([]ContainerRef, 0, len(grp.objects))
	for name := range grp.objects {
		refs = append(refs, ContainerRef{Name: name, Handle: g.ID + "/" + name})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })

	switch m.order {
	case ListReverse:
		for i, j := 0, len(refs)-1; i < j; i, j = i+1, j-1 {
			refs[i], refs[j] = refs[j], refs[i]
		}
	case ListShuffled:
		m.rng.Shuffle(len(refs), func(i, j int) { refs[i], refs[j] = refs[j], refs[i] })
	}
	return refs, nil
}

func (m *MemoryStore) FetchContainer(ctx context.Context, ref ContainerRef) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, name, ok := strings.Cut(ref.Handle, "/")
	if !ok {
		return nil, fault.Transport("fetch", fmt.Errorf("invalid handle: %s", ref.Handle))
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if grp, ok := m.groups[id]; ok {
		if data, ok := grp.objects[name]; ok {
			return append([]byte(nil), data...), nil
		}
	}
	return nil, fault.Transport("fetch", fmt.Errorf("container not found: %s", ref.Handle))
}

func (m *MemoryStore) ListGroups(ctx context.Context) ([]GroupHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	groups := make([]GroupHandle, 0, len(m.groups))
	for id, grp := range m.groups {
		groups = append(groups, GroupHandle{ID: id, Key: grp.key})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups, nil
}

// Replace overwrites an existing object. Tests use it to simulate
// corruption at rest.
func (m *MemoryStore) Replace(g GroupHandle, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	grp, ok := m.groups[g.ID]
	if !ok {
		return fmt.Errorf("group not found: %s", g.ID)
	}
	if _, ok := grp.objects[name]; !ok {
		return fmt.Errorf("object not found: %s", name)
	}
	grp.objects[name] = append([]byte(nil), data...)
	return nil
}

// Delete removes an object from a group.
func (m *MemoryStore) Delete(g GroupHandle, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if grp, ok := m.groups[g.ID]; ok {
		delete(grp.objects, name)
	}
}

package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/jaywantadh/PixelVault/internal/fault"
)

// keyFile holds the grouping key inside a group directory.
const keyFile = ".group"

// LocalStore implements Store on the local filesystem: one directory per
// group under basePath, one file per container.
type LocalStore struct {
	basePath string
}

// NewLocalStore creates a new LocalStore instance.
func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStore{basePath: basePath}, nil
}

// CreateGroup makes a fresh directory named by a random UUID and records
// key alongside the containers.
func (s *LocalStore) CreateGroup(ctx context.Context, key string) (GroupHandle, error) {
	if err := ctx.Err(); err != nil {
		return GroupHandle{}, err
	}
	id := uuid.NewString()
	dir := filepath.Join(s.basePath, id)
	if err := os.Mkdir(dir, 0755); err != nil {
		return GroupHandle{}, fault.Transport("create group", err)
	}
	if err := os.WriteFile(filepath.Join(dir, keyFile), []byte(key), 0644); err != nil {
		return GroupHandle{}, fault.Transport("create group", err)
	}
	return GroupHandle{ID: id, Key: key}, nil
}

// UploadContainer writes data through a temporary file so a listing never
// sees a half-written container.
func (s *LocalStore) UploadContainer(ctx context.Context, g GroupHandle, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, err := s.groupDir(g.ID)
	if err != nil {
		return err
	}
	if err := validName(name); err != nil {
		return fault.Transport("upload", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fault.Transport("upload", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fault.Transport("upload", err)
	}
	if err := tmp.Close(); err != nil {
		return fault.Transport("upload", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return fault.Transport("upload", err)
	}
	return nil
}

// ListContainers returns every regular file in the group except the key
// file and in-flight uploads.
func (s *LocalStore) ListContainers(ctx context.Context, g GroupHandle) ([]ContainerRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := s.groupDir(g.ID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fault.Transport("list", err)
	}

	refs := make([]ContainerRef, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		refs = append(refs, ContainerRef{Name: e.Name(), Handle: filepath.Join(g.ID, e.Name())})
	}
	return refs, nil
}

// FetchContainer reads a container back from disk.
func (s *LocalStore) FetchContainer(ctx context.Context, ref ContainerRef) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	groupID, name := filepath.Split(ref.Handle)
	if _, err := s.groupDir(filepath.Clean(groupID)); err != nil {
		return nil, err
	}
	if err := validName(name); err != nil {
		return nil, fault.Transport("fetch", err)
	}
	data, err := os.ReadFile(filepath.Join(s.basePath, ref.Handle))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fault.Transport("fetch", fmt.Errorf("container not found: %s", ref.Handle))
		}
		return nil, fault.Transport("fetch", err)
	}
	return data, nil
}

// ListGroups returns every group directory, ordered by key then ID.
func (s *LocalStore) ListGroups(ctx context.Context) ([]GroupHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fault.Transport("list groups", err)
	}
	var groups []GroupHandle
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		key, err := os.ReadFile(filepath.Join(s.basePath, e.Name(), keyFile))
		if err != nil {
			continue
		}
		groups = append(groups, GroupHandle{ID: e.Name(), Key: string(key)})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Key != groups[j].Key {
			return groups[i].Key < groups[j].Key
		}
		return groups[i].ID < groups[j].ID
	})
	return groups, nil
}

func (s *LocalStore) groupDir(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fault.Transport("open group", fmt.Errorf("invalid group id %q", id))
	}
	dir := filepath.Join(s.basePath, id)
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fault.Transport("open group", fmt.Errorf("group not found: %s", id))
		}
		return "", fault.Transport("open group", err)
	}
	if !info.IsDir() {
		return "", fault.Transport("open group", fmt.Errorf("group %s is not a directory", id))
	}
	return dir, nil
}

func validName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid object name %q", name)
	}
	return nil
}

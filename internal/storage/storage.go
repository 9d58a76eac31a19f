package storage

import (
	"context"
)

// GroupHandle identifies one group of containers in a backend. ID is the
// backend's own identifier (a folder ID, a directory name); Key is the
// caller-supplied grouping key the group was created from.
type GroupHandle struct {
	ID  string
	Key string
}

// ContainerRef is one listed object of a group. Handle is opaque to
// callers and only meaningful to the store that produced it.
type ContainerRef struct {
	Name   string
	Handle string
}

// Store defines the operations the pipeline needs from a remote object
// store. Implementations wrap their own failures as *fault.TransportError.
type Store interface {
	// CreateGroup creates an empty group named after key.
	CreateGroup(ctx context.Context, key string) (GroupHandle, error)
	// UploadContainer stores data under name inside the group.
	UploadContainer(ctx context.Context, g GroupHandle, name string, data []byte) error
	// ListContainers returns every object in the group, in no particular order.
	ListContainers(ctx context.Context, g GroupHandle) ([]ContainerRef, error)
	// FetchContainer downloads one listed object.
	FetchContainer(ctx context.Context, ref ContainerRef) ([]byte, error)
}

// GroupLister is implemented by stores that can enumerate their groups.
type GroupLister interface {
	ListGroups(ctx context.Context) ([]GroupHandle, error)
}

// Rewriter is implemented by stores that may hand back different bytes
// than were uploaded, e.g. after a server-side format conversion. Encode
// records the answer in the manifest and decode refuses a store that
// disagrees with it.
type Rewriter interface {
	RewritesContainers() bool
}

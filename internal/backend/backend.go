// Package backend defines the interface to the object store that holds the
// soft-deleted paths.
package backend

import "context"

// DeletedPath identifies one soft-deleted path in a container. DeletionID
// disambiguates which deleted version of the path to restore; the service
// keeps one entry per delete operation.
type DeletedPath struct {
	Path       string
	DeletionID string
}

// Backend restores soft-deleted paths in a single container.
type Backend interface {
	// ListDeleted calls fn for each soft-deleted path in the container.
	// When fn returns an error, ListDeleted stops and returns it.
	ListDeleted(ctx context.Context, fn func(DeletedPath) error) error

	// Undelete restores the deleted version of path identified by deletionID.
	Undelete(ctx context.Context, path, deletionID string) error

	// IsAlreadyExists returns true if the error reports that the target path
	// already exists, i.e. a previous restore attempt went through.
	IsAlreadyExists(err error) bool

	// IsThrottled returns true if the error is a capacity signal from the
	// service (rate limiting or server busy).
	IsThrottled(err error) bool

	// IsTransient returns true if the error is worth retrying without
	// backing off the whole run (server hiccup, connection reset).
	IsTransient(err error) bool
}

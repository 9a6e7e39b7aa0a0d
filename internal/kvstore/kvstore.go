// Package kvstore provides the key/value substrate the database layer sits on.
//
// The unit of storage is a whole serialized blob under a fixed key — there is
// no per-record addressing and no atomicity across keys. Everything above
// this package is a pure transformation over JSON-serializable records; this
// is the sole I/O boundary.
package kvstore

import "context"

// Store is the minimal contract the database manager needs.
//
// Get reports presence explicitly: an absent key returns ("", false, nil),
// which callers must distinguish from a stored empty string. Remove of a
// missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

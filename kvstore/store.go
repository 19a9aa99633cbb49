// Package kvstore is the key-value persistence adapter: get/set/remove over
// string keys plus ordered list values.
package kvstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when a key holds no value
var ErrNotFound = errors.New("kvstore: key not found")

// Store is a string-keyed key-value store with list values.
// Lists keep insertion order; Prepend keeps the newest value first.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error

	Append(ctx context.Context, key string, value []byte) error
	// Prepend pushes value to the head of the list, keeping at most max entries
	Prepend(ctx context.Context, key string, value []byte, max int) error
	List(ctx context.Context, key string) ([][]byte, error)

	// Apply runs a batch of writes as one unit: either every op lands or none does
	Apply(ctx context.Context, ops []Op) error

	Close() error
}

// OpKind names the write an Op performs
type OpKind int

const (
	OpSet OpKind = iota
	OpRemove
	OpAppend
	OpPrepend
)

// Op is a single write in a batch passed to Store.Apply.
// Max only applies to OpPrepend.
type Op struct {
	Kind  OpKind
	Key   string
	Value []byte
	Max   int
}

func (k OpKind) String() string {
	switch k {
	case OpSet:
		return "set"
	case OpRemove:
		return "remove"
	case OpAppend:
		return "append"
	case OpPrepend:
		return "prepend"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

package kvrepo

import (
	"context"
	"errors"

	"noblechain/kvstore"
)

// stagedStore buffers writes on top of a base store until commit.
// Reads see the buffered writes.
type stagedStore struct {
	base     kvstore.Store
	values   map[string][]byte
	removed  map[string]bool
	appends  map[string][][]byte
	prepends map[string][]prependOp
	ops      []kvstore.Op
}

type prependOp struct {
	value []byte
	max   int
}

func newStagedStore(base kvstore.Store) *stagedStore {
	return &stagedStore{
		base:     base,
		values:   make(map[string][]byte),
		removed:  make(map[string]bool),
		appends:  make(map[string][][]byte),
		prepends: make(map[string][]prependOp),
	}
}

func (s *stagedStore) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := s.values[key]; ok {
		return v, nil
	}
	if s.removed[key] {
		return nil, kvstore.ErrNotFound
	}
	return s.base.Get(ctx, key)
}

// getOK reports absence as false instead of ErrNotFound
func (s *stagedStore) getOK(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s *stagedStore) Set(key string, value []byte) {
	s.values[key] = value
	delete(s.removed, key)
	s.ops = append(s.ops, kvstore.Op{Kind: kvstore.OpSet, Key: key, Value: value})
}

func (s *stagedStore) Remove(key string) {
	delete(s.values, key)
	s.removed[key] = true
	delete(s.appends, key)
	delete(s.prepends, key)
	s.ops = append(s.ops, kvstore.Op{Kind: kvstore.OpRemove, Key: key})
}

func (s *stagedStore) Append(key string, value []byte) {
	s.appends[key] = append(s.appends[key], value)
	s.ops = append(s.ops, kvstore.Op{Kind: kvstore.OpAppend, Key: key, Value: value})
}

func (s *stagedStore) Prepend(key string, value []byte, max int) {
	s.prepends[key] = append(s.prepends[key], prependOp{value: value, max: max})
	s.ops = append(s.ops, kvstore.Op{Kind: kvstore.OpPrepend, Key: key, Value: value, Max: max})
}

func (s *stagedStore) List(ctx context.Context, key string) ([][]byte, error) {
	var list [][]byte
	if !s.removed[key] {
		base, err := s.base.List(ctx, key)
		if err != nil {
			return nil, err
		}
		list = base
	}
	for _, p := range s.prepends[key] {
		list = append([][]byte{p.value}, list...)
		if p.max > 0 && len(list) > p.max {
			list = list[:p.max]
		}
	}
	list = append(list, s.appends[key]...)
	return list, nil
}

// apply hands every buffered operation to the base store as one batch
func (s *stagedStore) apply(ctx context.Context) error {
	if err := s.base.Apply(ctx, s.ops); err != nil {
		return err
	}
	s.ops = nil
	return nil
}

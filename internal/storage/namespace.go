package storage

import (
	"context"
	"strings"
)

// namespaced prefixes every key of an underlying store.
type namespaced struct {
	prefix string
	inner  Store
}

// Namespace returns a view of s where every key is prefixed with prefix.
// Closing the view does not close s.
func Namespace(s Store, prefix string) Store {
	return &namespaced{prefix: prefix, inner: s}
}

// SessionPrefix is the namespace of one session's keys.
func SessionPrefix(sessionID string) string {
	return "session:" + sessionID + ":"
}

func (n *namespaced) Get(ctx context.Context, key string) ([]byte, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

func (n *namespaced) Put(ctx context.Context, key string, value []byte) error {
	return n.inner.Put(ctx, n.prefix+key, value)
}

func (n *namespaced) Delete(ctx context.Context, key string) error {
	return n.inner.Delete(ctx, n.prefix+key)
}

func (n *namespaced) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := n.inner.Keys(ctx, n.prefix+prefix)
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, n.prefix)
	}
	return keys, nil
}

func (n *namespaced) Close() error {
	return nil
}

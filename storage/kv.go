// Package storage provides the persisted-word substrate backing the
// authorization core. Every value stored through it is a fixed 32-byte
// word; key layout is owned by the callers.
package storage

// KV is a flat key-value store. Get returns (nil, nil) when the key has
// never been written, so callers can treat absent state as all-zero.
type KV interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Close() error
}

package store

import "sync"

// keyPool provides reusable byte slices for building read keys.
var keyPool = sync.Pool{
	New: func() any {
		// Prefix plus a barcode or synthesized "nobarcode-<mbid>" key fits easily.
		return make([]byte, 0, 128)
	},
}

// buildKey constructs a database key from prefix and id using a pooled buffer.
// The returned slice is valid until releaseKey is called, so it must only be
// used for reads: badger retains keys passed to Set and Delete until commit.
//
// Usage:
//
//	key := buildKey("album:", barcode)
//	defer releaseKey(key)
//	item, err := txn.Get(key)
func buildKey(prefix, id string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = buf[:0]
	buf = append(buf, prefix...)
	buf = append(buf, id...)
	return buf
}

// releaseKey returns a key buffer to the pool for reuse.
func releaseKey(key []byte) {
	if cap(key) <= 256 {
		keyPool.Put(key[:0]) //nolint:staticcheck
	}
}

// ownedKey builds a key that badger may retain.
func ownedKey(prefix, id string) []byte {
	key := make([]byte, 0, len(prefix)+len(id))
	key = append(key, prefix...)
	return append(key, id...)
}

package domain

// KVStore is the device-local keyed storage the cart store and snapshot
// manager write through. ListKeys exists so the aggregator can enumerate
// every user's cart slot without being coupled to a storage backend.
//
// Get returns nil with no error when the key is absent. Writes are
// last-writer-wins; the agent is the single writer on a device.
type KVStore interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	ListKeys(prefix string) ([]string, error)
}

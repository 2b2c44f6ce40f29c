package cache

// Cacher is the operation surface of one instance over opaque byte payloads,
// as seen by code that does not care whether the instance lives in-process
// or behind the daemon socket. *Instance[[]byte] and *Handle both satisfy it.
// Implementations must be safe for concurrent use by multiple goroutines.
type Cacher interface {
	// Fetch returns the cached value and true on a hit; nil and false on a
	// miss. A miss is not an error.
	Fetch(key string) ([]byte, bool, error)
	// Cache stores value under key without waiting for the write to apply.
	Cache(key string, value []byte)
	// CacheSync stores value under key and returns once the write is
	// visible to Fetch.
	CacheSync(key string, value []byte) error
}

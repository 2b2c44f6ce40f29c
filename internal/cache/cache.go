package cache

import (
	"errors"
	"sync"
	"time"
)

// ErrUnavailable is returned by request/response operations against an
// instance whose owner goroutine has terminated (or, at the client, against
// an instance the daemon does not know).
var ErrUnavailable = errors.New("cache: instance unavailable")

// mailboxDepth is how many operations an instance queues before enqueueing
// callers block. Queued order is the order operations are applied in.
const mailboxDepth = 128

// entry is one cached value plus the moment it was written.
type entry[V any] struct {
	value      V
	insertedAt time.Time
}

func (e entry[V]) expired(now time.Time, ttl time.Duration) bool {
	return !now.Before(e.insertedAt.Add(ttl))
}

type opKind uint8

const (
	opFetch opKind = iota
	opCache
	opCacheSync
	opLen
)

// message is one queued operation. reply is nil for fire-and-forget writes;
// otherwise it has buffer 1, so a caller that stopped waiting never blocks
// the owner goroutine: the reply lands in the buffer and is discarded.
type message[V any] struct {
	op    opKind
	key   string
	value V
	reply chan result[V]
}

type result[V any] struct {
	value V
	hit   bool
	size  int
}

// Instance is one independently-addressable cache: a TTL-expiring, size-bound
// mapping from keys to opaque values. It is safe for concurrent use by any
// number of goroutines.
//
// All operations on an instance are applied one at a time, in the order they
// are queued, by a single owner goroutine. No caller ever observes a
// partially applied write, and a write queued before another is applied
// before it. Distinct instances share nothing and run fully in parallel.
type Instance[V any] struct {
	name string
	cfg  Config

	clock  Clock
	sink   Sink
	report Reporter

	mailbox chan message[V]
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once

	// entries is owned by run; nothing else reads or writes it.
	entries map[string]entry[V]
}

// New creates an empty instance under the given name and starts its owner
// goroutine. Zero or negative Config fields take the package defaults.
func New[V any](name string, cfg Config, opts ...Option) *Instance[V] {
	st := defaultSettings()
	for _, opt := range opts {
		opt(&st)
	}
	inst := &Instance[V]{
		name:    name,
		cfg:     cfg.withDefaults(),
		clock:   st.clock,
		sink:    st.sink,
		report:  st.report,
		mailbox: make(chan message[V], mailboxDepth),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
		entries: make(map[string]entry[V]),
	}
	go inst.run()
	return inst
}

// Name returns the handle the instance was created under.
func (inst *Instance[V]) Name() string { return inst.name }

// Fetch looks up key. It returns the stored value and true if the entry
// exists and is younger than the TTL; otherwise the zero value and false.
// A fetch that finds an expired entry removes it; expiry is enforced only
// at lookup, never by a background sweep. Absence is not an error; the only
// error is ErrUnavailable after Close.
func (inst *Instance[V]) Fetch(key string) (V, bool, error) {
	var zero V
	m := message[V]{op: opFetch, key: key, reply: make(chan result[V], 1)}
	select {
	case inst.mailbox <- m:
	case <-inst.stopped:
		return zero, false, ErrUnavailable
	}
	select {
	case r := <-m.reply:
		return r.value, r.hit, nil
	case <-inst.stopped:
		// The instance shut down after accepting the request. It may
		// still have been applied; prefer the reply if one was sent.
		select {
		case r := <-m.reply:
			return r.value, r.hit, nil
		default:
			return zero, false, ErrUnavailable
		}
	}
}

// Cache inserts or overwrites key with value, fire-and-forget: it returns as
// soon as the write is queued and gives no acknowledgment. Writes from one
// goroutine are applied in the order they were issued, so a Cache followed by
// a CacheSync is visible once the CacheSync returns. A closed instance drops
// the write silently.
func (inst *Instance[V]) Cache(key string, value V) {
	select {
	case inst.mailbox <- message[V]{op: opCache, key: key, value: value}:
	case <-inst.stopped:
	}
}

// CacheSync inserts or overwrites key with value and returns once the write,
// including any eviction, has been applied and is visible to Fetch.
func (inst *Instance[V]) CacheSync(key string, value V) error {
	m := message[V]{op: opCacheSync, key: key, value: value, reply: make(chan result[V], 1)}
	select {
	case inst.mailbox <- m:
	case <-inst.stopped:
		return ErrUnavailable
	}
	select {
	case <-m.reply:
		return nil
	case <-inst.stopped:
		select {
		case <-m.reply:
			return nil
		default:
			return ErrUnavailable
		}
	}
}

// Len reports the number of entries currently held, counting entries that
// are expired but not yet purged by a fetch. It returns 0 after Close.
func (inst *Instance[V]) Len() int {
	m := message[V]{op: opLen, reply: make(chan result[V], 1)}
	select {
	case inst.mailbox <- m:
	case <-inst.stopped:
		return 0
	}
	select {
	case r := <-m.reply:
		return r.size
	case <-inst.stopped:
		select {
		case r := <-m.reply:
			return r.size
		default:
			return 0
		}
	}
}

// Close terminates the owner goroutine and waits for it to exit. Operations
// already queued may or may not be applied; once Close returns, Fetch and
// CacheSync fail with ErrUnavailable and Cache becomes a no-op. Close is
// safe to call multiple times.
func (inst *Instance[V]) Close() {
	inst.once.Do(func() { close(inst.quit) })
	<-inst.stopped
}

// run owns the entries map for the life of the instance.
func (inst *Instance[V]) run() {
	defer close(inst.stopped)

	ticker := time.NewTicker(inst.cfg.LogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-inst.quit:
			return
		case m := <-inst.mailbox:
			inst.handle(m)
		case <-ticker.C:
			inst.report(inst.name, len(inst.entries))
		}
	}
}

func (inst *Instance[V]) handle(m message[V]) {
	switch m.op {
	case opFetch:
		v, hit := inst.lookup(m.key)
		inst.sink.FetchEvent(inst.name, m.key, hit)
		m.reply <- result[V]{value: v, hit: hit}
	case opCache, opCacheSync:
		inst.store(m.key, m.value)
		inst.sink.CacheEvent(inst.name, m.key, len(inst.entries))
		if m.reply != nil {
			m.reply <- result[V]{}
		}
	case opLen:
		m.reply <- result[V]{size: len(inst.entries)}
	}
}

func (inst *Instance[V]) lookup(key string) (V, bool) {
	var zero V
	ent, ok := inst.entries[key]
	if !ok {
		return zero, false
	}
	if ent.expired(inst.clock.Now(), inst.cfg.TTL) {
		delete(inst.entries, key)
		return zero, false
	}
	return ent.value, true
}

func (inst *Instance[V]) store(key string, value V) {
	if _, exists := inst.entries[key]; !exists && len(inst.entries) >= inst.cfg.MaxSize {
		inst.evict()
	}
	inst.entries[key] = entry[V]{value: value, insertedAt: inst.clock.Now()}
}

// evict removes exactly one entry: the one whose key sorts lexicographically
// smallest among the current keys. That is key order, not write order ("q2"
// goes before "q10" even when "q10" is the older entry), so it only matches
// FIFO when key naming happens to follow insertion order.
func (inst *Instance[V]) evict() {
	var victim string
	found := false
	for k := range inst.entries {
		if !found || k < victim {
			victim, found = k, true
		}
	}
	if found {
		delete(inst.entries, victim)
	}
}

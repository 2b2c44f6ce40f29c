package cache

import "github.com/leonardcser/querycache/internal/logger"

// Sink receives one event per operation: a fetch event for every Fetch and a
// cache event for every Cache/CacheSync, emitted after the operation has been
// applied. Calls happen on the instance's owner goroutine, so implementations
// should return quickly and must not call back into the instance.
type Sink interface {
	// FetchEvent reports a lookup and whether it hit.
	FetchEvent(instance, query string, hit bool)
	// CacheEvent reports a write and the entry count right after it.
	CacheEvent(instance, query string, size int)
}

// NopSink discards all events. It is the default, so instances work without
// a monitoring pipeline attached.
type NopSink struct{}

func (NopSink) FetchEvent(string, string, bool) {}
func (NopSink) CacheEvent(string, string, int)  {}

// Reporter consumes the periodic maintenance report: the live entry count,
// which may include entries that are expired but not yet purged by a fetch.
type Reporter func(instance string, entries int)

// logReporter is the default Reporter.
func logReporter(instance string, entries int) {
	logger.Infof("cache %q: %d entries", instance, entries)
}

package cache

import "time"

// Defaults applied by New when the corresponding Config field is zero or
// negative.
const (
	// DefaultTTL is how long an entry stays fetchable after it is written.
	DefaultTTL = 5 * time.Minute
	// DefaultMaxSize is the hard cap on live entries per instance.
	DefaultMaxSize = 100
	// DefaultLogInterval is the cadence of the maintenance report.
	DefaultLogInterval = time.Minute
)

// Config fixes the behavior of one instance for its whole lifetime.
type Config struct {
	// TTL is the expiry horizon: a fetch finding an entry older than or
	// exactly as old as TTL treats it as absent and removes it.
	TTL time.Duration
	// MaxSize caps the number of entries held after any write. Writing a
	// new key at capacity evicts exactly one entry first.
	MaxSize int
	// LogInterval is how often the instance reports its entry count.
	// Purely observational; it never touches entries.
	LogInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.MaxSize <= 0 {
		c.MaxSize = DefaultMaxSize
	}
	if c.LogInterval <= 0 {
		c.LogInterval = DefaultLogInterval
	}
	return c
}

// Clock provides the instance's notion of now. The default implementation
// uses time.Now; tests inject a fake to age entries without sleeping.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// settings are the runtime collaborators of an instance, as opposed to the
// Config values that define its contract.
type settings struct {
	clock  Clock
	sink   Sink
	report Reporter
}

func defaultSettings() settings {
	return settings{
		clock:  realClock{},
		sink:   NopSink{},
		report: logReporter,
	}
}

// Option adjusts an instance's runtime collaborators.
type Option func(*settings)

// WithClock substitutes the time source.
func WithClock(clk Clock) Option {
	return func(s *settings) {
		if clk != nil {
			s.clock = clk
		}
	}
}

// WithSink routes access and write events to sink.
func WithSink(sink Sink) Option {
	return func(s *settings) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithReporter substitutes the maintenance report consumer.
func WithReporter(fn Reporter) Option {
	return func(s *settings) {
		if fn != nil {
			s.report = fn
		}
	}
}

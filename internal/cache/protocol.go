package cache

// JSON protocol for the cache daemon over a Unix domain socket. Requests and
// responses are streamed with json.Encoder/Decoder, one request per message.
// Every op gets exactly one response, except "cache": that op is
// fire-and-forget and the daemon never writes a reply for it.

type Request struct {
	Op       string `json:"op"` // "create" | "fetch" | "cache" | "cache_sync"
	Instance string `json:"instance"`
	Key      string `json:"key,omitempty"`
	Value    []byte `json:"value,omitempty"`

	// Instance settings, read only by "create". Zero values mean defaults.
	TTLSeconds         int64 `json:"ttl_seconds,omitempty"`
	MaxSize            int   `json:"max_size,omitempty"`
	LogIntervalSeconds int64 `json:"log_interval_seconds,omitempty"`
}

type Response struct {
	OK    bool   `json:"ok"`
	Hit   bool   `json:"hit,omitempty"`
	Value []byte `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

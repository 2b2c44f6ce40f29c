package cache

import (
	"encoding/json"
	"errors"
	"net"
	"time"
)

const dialTimeout = 500 * time.Millisecond

// Client talks to a cache daemon over its Unix socket. Every call dials a
// fresh connection, so a Client is safe for concurrent use and keeps working
// across daemon restarts.
type Client struct {
	socketPath string
}

func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Create registers an instance under name with the given settings. Creating
// a name that already exists leaves the existing instance untouched.
func (c *Client) Create(name string, cfg Config) error {
	resp, err := c.roundTrip(Request{
		Op:                 "create",
		Instance:           name,
		TTLSeconds:         int64(cfg.TTL / time.Second),
		MaxSize:            cfg.MaxSize,
		LogIntervalSeconds: int64(cfg.LogInterval / time.Second),
	})
	if err != nil {
		return err
	}
	if !resp.OK {
		return errors.New(resp.Error)
	}
	return nil
}

// Handle binds the client to one instance name. The name is not checked
// here; a handle to an unknown instance reports ErrUnavailable on use.
func (c *Client) Handle(name string) *Handle {
	return &Handle{client: c, name: name}
}

// Handle addresses a single instance on the daemon.
type Handle struct {
	client *Client
	name   string
}

func (h *Handle) Name() string { return h.name }

// Fetch looks up key. A miss is not an error: it reports hit == false.
func (h *Handle) Fetch(key string) ([]byte, bool, error) {
	resp, err := h.client.roundTrip(Request{Op: "fetch", Instance: h.name, Key: key})
	if err != nil {
		return nil, false, err
	}
	if !resp.OK {
		return nil, false, remoteError(resp.Error)
	}
	if !resp.Hit {
		return nil, false, nil
	}
	return append([]byte(nil), resp.Value...), true, nil
}

// Cache stores value under key without waiting for the daemon. Delivery is
// best-effort: dial and write failures are dropped, and no reply is read.
func (h *Handle) Cache(key string, value []byte) {
	_ = h.client.send(Request{Op: "cache", Instance: h.name, Key: key, Value: value})
}

// CacheSync stores value under key and returns once the daemon applied it.
func (h *Handle) CacheSync(key string, value []byte) error {
	resp, err := h.client.roundTrip(Request{Op: "cache_sync", Instance: h.name, Key: key, Value: value})
	if err != nil {
		return err
	}
	if !resp.OK {
		return remoteError(resp.Error)
	}
	return nil
}

func (c *Client) withConn(fn func(conn net.Conn) error) error {
	conn, err := net.DialTimeout("unix", c.socketPath, dialTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}

func (c *Client) roundTrip(req Request) (Response, error) {
	var resp Response
	err := c.withConn(func(conn net.Conn) error {
		if err := json.NewEncoder(conn).Encode(&req); err != nil {
			return err
		}
		return json.NewDecoder(conn).Decode(&resp)
	})
	return resp, err
}

func (c *Client) send(req Request) error {
	return c.withConn(func(conn net.Conn) error {
		return json.NewEncoder(conn).Encode(&req)
	})
}

// remoteError maps the daemon's error strings back to sentinel errors where
// one exists.
func remoteError(msg string) error {
	if msg == ErrUnavailable.Error() {
		return ErrUnavailable
	}
	return errors.New(msg)
}

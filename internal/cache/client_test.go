package cache

import (
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// ClientSuite runs every test against a real daemon on a Unix socket.
type ClientSuite struct {
	suite.Suite
	sock   string
	ln     net.Listener
	reg    *Registry[[]byte]
	client *Client
}

func (s *ClientSuite) SetupTest() {
	s.sock = filepath.Join(s.T().TempDir(), "cache.sock")
	ln, err := net.Listen("unix", s.sock)
	s.Require().NoError(err)
	s.ln = ln
	s.reg = NewRegistry[[]byte]()
	go Serve(ln, s.reg)
	s.client = NewClient(s.sock)
}

func (s *ClientSuite) TearDownTest() {
	s.ln.Close()
	s.reg.Close()
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) TestCreateAndRoundTrip() {
	s.Require().NoError(s.client.Create("pages", Config{}))

	h := s.client.Handle("pages")
	s.Equal("pages", h.Name())

	s.Require().NoError(h.CacheSync("https://example.com", []byte("body")))

	v, hit, err := h.Fetch("https://example.com")
	s.Require().NoError(err)
	s.True(hit)
	s.Equal([]byte("body"), v)

	_, hit, err = h.Fetch("missing")
	s.Require().NoError(err)
	s.False(hit, "a miss comes back as hit=false, not as an error")
}

func (s *ClientSuite) TestUnknownInstance() {
	h := s.client.Handle("ghost")

	_, _, err := h.Fetch("k")
	s.Require().ErrorIs(err, ErrUnavailable)

	s.Require().ErrorIs(h.CacheSync("k", []byte("v")), ErrUnavailable)
}

func (s *ClientSuite) TestCacheFireAndForget() {
	s.Require().NoError(s.client.Create("pages", Config{}))
	h := s.client.Handle("pages")

	h.Cache("k", []byte("v"))

	// Delivery runs on its own connection, so poll for the write to land.
	s.Eventually(func() bool {
		_, hit, err := h.Fetch("k")
		return err == nil && hit
	}, time.Second, 10*time.Millisecond)
}

func (s *ClientSuite) TestCacheUnknownInstanceDropped() {
	h := s.client.Handle("ghost")
	h.Cache("k", []byte("v"))

	// The daemon dropped the cast and keeps serving.
	s.Require().NoError(s.client.Create("pages", Config{}))
}

func (s *ClientSuite) TestCreateKeepsExistingConfig() {
	s.Require().NoError(s.client.Create("tiny", Config{MaxSize: 2}))
	h := s.client.Handle("tiny")

	s.Require().NoError(h.CacheSync("a", []byte("a")))
	s.Require().NoError(h.CacheSync("b", []byte("b")))

	// A second create with a bigger cap changes nothing.
	s.Require().NoError(s.client.Create("tiny", Config{MaxSize: 100}))

	s.Require().NoError(h.CacheSync("c", []byte("c")))

	_, hit, err := h.Fetch("a")
	s.Require().NoError(err)
	s.False(hit, "capacity stays at the original 2, so \"a\" was evicted")

	_, hit, err = h.Fetch("b")
	s.Require().NoError(err)
	s.True(hit)
}

func (s *ClientSuite) TestUnknownOpOverWire() {
	conn, err := net.Dial("unix", s.sock)
	s.Require().NoError(err)
	defer conn.Close()

	enc := json.NewEncoder(conn)
	dec := json.NewDecoder(conn)

	s.Require().NoError(enc.Encode(Request{Op: "bogus"}))

	var resp Response
	s.Require().NoError(dec.Decode(&resp))
	s.False(resp.OK)
	s.Equal("unknown op", resp.Error)
}

func (s *ClientSuite) TestMultipleRequestsOneConnection() {
	conn, err := net.Dial("unix", s.sock)
	s.Require().NoError(err)
	defer conn.Close()

	enc := json.NewEncoder(conn)
	dec := json.NewDecoder(conn)

	var resp Response
	s.Require().NoError(enc.Encode(Request{Op: "create", Instance: "multi"}))
	s.Require().NoError(dec.Decode(&resp))
	s.True(resp.OK)

	s.Require().NoError(enc.Encode(Request{Op: "cache_sync", Instance: "multi", Key: "k", Value: []byte("v")}))
	s.Require().NoError(dec.Decode(&resp))
	s.True(resp.OK)

	s.Require().NoError(enc.Encode(Request{Op: "fetch", Instance: "multi", Key: "k"}))
	s.Require().NoError(dec.Decode(&resp))
	s.True(resp.OK)
	s.True(resp.Hit)
	s.Equal([]byte("v"), resp.Value)
}

func (s *ClientSuite) TestDialError() {
	c := NewClient(filepath.Join(s.T().TempDir(), "absent.sock"))

	_, _, err := c.Handle("x").Fetch("k")
	s.Error(err)

	s.Error(c.Create("x", Config{}))
}

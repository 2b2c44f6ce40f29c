package cache

import (
	"encoding/json"
	"errors"
	"net"
	"time"
)

// Serve accepts connections on l and answers cache protocol requests against
// reg until the listener is closed. Each connection gets its own goroutine
// and may carry any number of requests.
func Serve(l net.Listener, reg *Registry[[]byte]) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go serveConn(conn, reg)
	}
}

func serveConn(conn net.Conn, reg *Registry[[]byte]) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			return
		}
		resp, reply := dispatch(reg, req)
		if !reply {
			continue
		}
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

// dispatch applies one request and reports whether a response must be
// written. Only the fire-and-forget "cache" op goes unanswered; a "cache"
// aimed at an unknown instance is dropped the same way.
func dispatch(reg *Registry[[]byte], req Request) (Response, bool) {
	switch req.Op {
	case "create":
		reg.GetOrCreate(req.Instance, Config{
			TTL:         time.Duration(req.TTLSeconds) * time.Second,
			MaxSize:     req.MaxSize,
			LogInterval: time.Duration(req.LogIntervalSeconds) * time.Second,
		})
		return Response{OK: true}, true
	case "fetch":
		inst, ok := reg.Get(req.Instance)
		if !ok {
			return Response{Error: ErrUnavailable.Error()}, true
		}
		v, hit, err := inst.Fetch(req.Key)
		if err != nil {
			return Response{Error: err.Error()}, true
		}
		return Response{OK: true, Hit: hit, Value: v}, true
	case "cache":
		if inst, ok := reg.Get(req.Instance); ok {
			inst.Cache(req.Key, req.Value)
		}
		return Response{}, false
	case "cache_sync":
		inst, ok := reg.Get(req.Instance)
		if !ok {
			return Response{Error: ErrUnavailable.Error()}, true
		}
		if err := inst.CacheSync(req.Key, req.Value); err != nil {
			return Response{Error: err.Error()}, true
		}
		return Response{OK: true}, true
	default:
		return Response{Error: "unknown op"}, true
	}
}

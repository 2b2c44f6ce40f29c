package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/leonardcser/querycache/internal/cache"
	"github.com/leonardcser/querycache/internal/logger"
)

func main() {
	if err := logger.InitFromEnv(); err != nil {
		panic(err)
	}
	defer logger.Close()

	sock := socketPath()

	// Ensure socket dir exists and remove stale socket.
	_ = os.MkdirAll(filepath.Dir(sock), 0o755)
	_ = os.Remove(sock)

	l, err := net.Listen("unix", sock)
	if err != nil {
		panic(err)
	}
	_ = os.Chmod(sock, 0o600)

	reg := cache.NewRegistry[[]byte](cache.WithSink(logSink{}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		l.Close()
	}()

	logger.Infof("cache daemon listening on %s", sock)
	if err := cache.Serve(l, reg); err != nil {
		logger.Errorf("serve: %v", err)
	}

	reg.Close()
	_ = os.Remove(sock)
	logger.Infof("cache daemon stopped")
}

func socketPath() string {
	if s := os.Getenv("QUERYCACHE_SOCK"); s != "" {
		return s
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "."
	}
	return filepath.Join(home, ".cache", "querycache", "cache.sock")
}

// logSink writes every cache access to the log file.
type logSink struct{}

func (logSink) FetchEvent(instance, query string, hit bool) {
	logger.Debugf("fetch %s %q hit=%v", instance, query, hit)
}

func (logSink) CacheEvent(instance, query string, size int) {
	logger.Debugf("cache %s %q size=%d", instance, query, size)
}

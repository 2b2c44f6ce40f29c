package main

import (
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/leonardcser/querycache/internal/cache"
	"github.com/leonardcser/querycache/internal/logger"
	tools "github.com/leonardcser/querycache/internal/tools"
	web "github.com/leonardcser/querycache/internal/web"
)

// Each tool gets its own cache instance on the daemon, so search results and
// fetched pages age out independently.
const (
	searchInstance = "web_search"
	fetchInstance  = "web_fetch"

	daemonBinary = "querycache-daemon"
)

func main() {
	if err := logger.InitFromEnv(); err != nil {
		panic(err)
	}
	defer logger.Close()

	logger.Infof("Starting querycache MCP server")

	// Connect to cache daemon; start it if needed, then connect.
	sock := socketPath()
	logger.Infof("Attempting to connect to cache daemon at %s", sock)
	client, err := connectCache(sock)
	if err != nil {
		logger.Warnf("Failed to connect to cache daemon: %v, attempting to start daemon", err)
		if startErr := startCacheDaemon(); startErr != nil {
			logger.Errorf("Failed to start cache daemon: %v", startErr)
		} else {
			logger.Infof("Cache daemon started")
		}
		// wait for socket to appear
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if c2, err2 := connectCache(sock); err2 == nil {
				client = c2
				err = nil
				break
			}
			time.Sleep(200 * time.Millisecond)
		}
		if client == nil {
			logger.Errorf("Failed to connect to cache daemon after startup attempt: %v", err)
			panic(err)
		}
	}
	logger.Infof("Connected to cache daemon")

	// Search results go stale fast; pages keep for longer.
	if err := client.Create(searchInstance, cache.Config{}); err != nil {
		logger.Errorf("Failed to create %s instance: %v", searchInstance, err)
		panic(err)
	}
	if err := client.Create(fetchInstance, cache.Config{TTL: 15 * time.Minute}); err != nil {
		logger.Errorf("Failed to create %s instance: %v", fetchInstance, err)
		panic(err)
	}
	logger.Infof("Cache instances ready: %s, %s", searchInstance, fetchInstance)

	searcher := web.NewSearcher(client.Handle(searchInstance))
	fetcher := web.NewFetcher(client.Handle(fetchInstance))

	s := server.NewMCPServer(
		"querycache",
		"0.1.0",
		server.WithRecovery(),
		server.WithToolCapabilities(false),
	)

	toolFetch := mcp.NewTool("web-fetch",
		mcp.WithDescription(multiline(
			"Fetches content from a specified URL and returns the parsed content",
			"\nFunctionality:",
			"- Takes a URL as input",
			"- Fetches the URL content and parses it",
			"- Returns the page title, description, text as Markdown, and outgoing links",
			"\nUsage notes:",
			"- The URL must be a fully-formed valid URL starting with http:// or https://",
			"- This tool is read-only and does not modify any files",
			"- Pages are served from a 15-minute cache when fetched repeatedly",
			"- Binary documents such as images or PDFs are not supported",
		)),
		mcp.WithString("url", mcp.Required(), mcp.Description("The URL to fetch content from")),
	)
	s.AddTool(toolFetch, tools.WebFetchHandler(fetcher))
	logger.Infof("Registered web-fetch tool")

	toolSearch := mcp.NewTool("web-search",
		mcp.WithDescription(multiline(
			"Allows you to search the web and use the results to inform responses",
			"\nFunctionality:",
			"- Provides up-to-date information for current events and recent data",
			"- Returns search result information formatted as search result blocks",
			"- Use this tool for accessing information beyond your knowledge cutoff",
			"\nUsage notes:",
			"- Results for a repeated query are served from a five-minute cache",
			"- Web search is only available in the US",
			"- Account for Today's date in environment (e.g., use 2026 when appropriate)",
		)),
		mcp.WithString("query", mcp.Required(), mcp.Description("The search query to use")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results to return (default 10, max 20)")),
	)
	s.AddTool(toolSearch, tools.WebSearchHandler(searcher))
	logger.Infof("Registered web-search tool")

	logger.Infof("Starting MCP server on stdio")
	if err := server.ServeStdio(s); err != nil {
		logger.Errorf("server error: %v", err)
	}
}

// multiline joins lines with newlines for tool descriptions.
func multiline(lines ...string) string { return strings.Join(lines, "\n") }

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

func connectCache(sock string) (*cache.Client, error) {
	// quick probe
	conn, err := net.DialTimeout("unix", sock, 200*time.Millisecond)
	if err != nil {
		return nil, err
	}
	_ = conn.Close()
	return cache.NewClient(sock), nil
}

func startCacheDaemon() error {
	// 1) Try daemon binary next to this server executable (works with absolute invocation)
	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		sibling := filepath.Join(exeDir, daemonBinary)
		if _, statErr := os.Stat(sibling); statErr == nil {
			return startDetached(sibling)
		}
	}

	// 2) Try PATH binary
	if path, err := exec.LookPath(daemonBinary); err == nil {
		return startDetached(path)
	}

	// 3) Try local binary in current working directory (best-effort)
	local := "./" + daemonBinary
	if _, err := os.Stat(local); err == nil {
		return startDetached(local)
	}

	return exec.ErrNotFound
}

func startDetached(path string) error {
	cmd := exec.Command(path)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Env = os.Environ()
	return cmd.Start()
}

// Package toolbox implements the fixed set of side-effect helpers exposed
// to generated automation code: HTTP, file, database, and notification
// primitives. Generated code never touches the network, filesystem, or a
// database directly — only through this surface, which is the only
// ambient state the Executor injects into the instrumented scope.
package toolbox

import (
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"sync"

	"github.com/autoweb/agent/core"
)

// Toolbox is constructed once at startup and shared by every Executor
// run; generated code reaches it through Server.
type Toolbox struct {
	outputDir  string
	httpClient *http.Client
	logger     core.Logger

	mu          sync.Mutex
	currentHost string
	sqlite      *sqliteDB
}

// New builds a Toolbox rooted at outputDir (generated code's save_data
// calls land under outputDir/<host>/...).
func New(outputDir string, httpClient *http.Client, logger core.Logger) *Toolbox {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Toolbox{outputDir: outputDir, httpClient: httpClient, logger: logger}
}

// SetCurrentURL routes subsequent save_data calls under a directory named
// for the URL's host, so each site's scraped artifacts land in their own
// output/<host>/ folder without the generated code needing to know it.
func (t *Toolbox) SetCurrentURL(rawURL string) {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Hostname()
	}
	t.mu.Lock()
	t.currentHost = host
	t.mu.Unlock()
}

// outputPath resolves path relative to the current host's output
// directory, creating no directories itself — callers that write files
// are responsible for MkdirAll.
func (t *Toolbox) outputPath(path string) string {
	t.mu.Lock()
	host := t.currentHost
	t.mu.Unlock()
	if host == "" {
		return filepath.Join(t.outputDir, path)
	}
	return filepath.Join(t.outputDir, host, path)
}

// Notify surfaces a message to the operator — logged at info level, the
// CLI-facing rendering is the Supervisor's concern.
func (t *Toolbox) Notify(msg string) {
	t.logger.Info(fmt.Sprintf("notify: %s", msg), nil)
}

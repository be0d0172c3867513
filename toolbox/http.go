package toolbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// HTTPResponse is what HTTPRequest returns to generated code.
type HTTPResponse struct {
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

// HTTPRequest issues an HTTP call with optional query params and a
// JSON-encoded body (form encoding is not supported), mirroring the requests-library surface
// generated automation code expects.
func (t *Toolbox) HTTPRequest(ctx context.Context, rawURL, method string, headers map[string]string, params map[string]string, data interface{}) (*HTTPResponse, error) {
	if method == "" {
		method = http.MethodGet
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("toolbox: parse url: %w", err)
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	var body io.Reader
	contentType := ""
	if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("toolbox: marshal request body: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("toolbox: build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("toolbox: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("toolbox: read response: %w", err)
	}

	respHeaders := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		respHeaders[k] = resp.Header.Get(k)
	}

	return &HTTPResponse{StatusCode: resp.StatusCode, Headers: respHeaders, Body: string(respBody)}, nil
}

// DownloadFile streams a URL's body to a path under the current host's
// output directory and returns the resolved path.
func (t *Toolbox) DownloadFile(ctx context.Context, rawURL, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("toolbox: build download request: %w", err)
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("toolbox: download failed: %w", err)
	}
	defer resp.Body.Close()

	dest := t.outputPath(path)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("toolbox: create download dir: %w", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("toolbox: create download file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("toolbox: write download file: %w", err)
	}
	return dest, nil
}

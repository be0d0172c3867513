package toolbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetCurrentURL_RoutesOutputPath(t *testing.T) {
	tb := New(t.TempDir(), nil, nil)
	tb.SetCurrentURL("https://example.com/listing")
	got := tb.outputPath("data.json")
	if filepath.Base(filepath.Dir(got)) != "example.com" {
		t.Errorf("expected output routed under example.com, got %q", got)
	}
}

func TestOutputPath_NoHostFallsBackToRoot(t *testing.T) {
	dir := t.TempDir()
	tb := New(dir, nil, nil)
	got := tb.outputPath("data.json")
	if got != filepath.Join(dir, "data.json") {
		t.Errorf("expected root-level path, got %q", got)
	}
}

func TestCleanHTML_StripsMarkup(t *testing.T) {
	tb := New(t.TempDir(), nil, nil)
	got := tb.CleanHTML(`<script>evil()</script><p>hello <b>world</b></p>`)
	if strings.Contains(got, "<") || strings.Contains(got, "evil") {
		t.Errorf("expected markup and script stripped, got %q", got)
	}
	if !strings.Contains(got, "hello") || !strings.Contains(got, "world") {
		t.Errorf("expected text content preserved, got %q", got)
	}
}

func TestSaveData_WritesJSONByDefault(t *testing.T) {
	dir := t.TempDir()
	tb := New(dir, nil, nil)
	path, err := tb.SaveData([]map[string]interface{}{{"a": 1}}, "out.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil {
		t.Fatalf("failed to parse json output: %v", err)
	}
	if len(rows) != 1 || rows[0]["a"].(float64) != 1 {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestSaveData_WritesCSVWithUnionHeader(t *testing.T) {
	dir := t.TempDir()
	tb := New(dir, nil, nil)
	path, err := tb.SaveData([]map[string]interface{}{
		{"a": 1, "b": 2},
		{"a": 3},
	}, "out.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if !strings.Contains(string(data), "a,b") {
		t.Errorf("expected union header, got %q", string(data))
	}
}

func TestSaveData_EmptyRowsErrors(t *testing.T) {
	tb := New(t.TempDir(), nil, nil)
	if _, err := tb.SaveData(nil, "out.json"); err == nil {
		t.Errorf("expected error for empty rows")
	}
}

func TestHTTPRequest_SendsParamsAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "widgets" {
			t.Errorf("expected query param forwarded, got %q", r.URL.RawQuery)
		}
		if r.Header.Get("X-Test") != "1" {
			t.Errorf("expected header forwarded")
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	tb := New(t.TempDir(), srv.Client(), nil)
	resp, err := tb.HTTPRequest(context.Background(), srv.URL, "GET", map[string]string{"X-Test": "1"}, map[string]string{"q": "widgets"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 || resp.Body != "ok" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

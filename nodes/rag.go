package nodes

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/autoweb/agent/state"
)

// artifactExtensions are the file types the store_kb path knows how to
// parse into rows, in the order spec §4.10 lists them.
var artifactExtensions = map[string]bool{
	".json":   true,
	".jsonl":  true,
	".csv":    true,
	".sqlite": true,
	".db":     true,
}

// findLatestArtifact walks outputDir and returns the most recently
// modified file whose extension is one store_kb can parse.
func findLatestArtifact(outputDir string) (string, error) {
	var best string
	var bestMod time.Time

	err := filepath.WalkDir(outputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !artifactExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if best == "" || info.ModTime().After(bestMod) {
			best = path
			bestMod = info.ModTime()
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("rag: walk output dir: %w", err)
	}
	if best == "" {
		return "", fmt.Errorf("rag: no artifact found under %s", outputDir)
	}
	return best, nil
}

// parseArtifactRows dispatches on file extension and returns one
// map[string]interface{} per row, ready for kb.Writer.Add.
func parseArtifactRows(path string) ([]map[string]interface{}, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return parseJSONArtifact(path)
	case ".jsonl":
		return parseJSONLArtifact(path)
	case ".csv":
		return parseCSVArtifact(path)
	case ".sqlite", ".db":
		return parseSQLiteArtifact(path)
	default:
		return nil, fmt.Errorf("rag: unsupported artifact extension for %s", path)
	}
}

func parseJSONArtifact(path string) ([]map[string]interface{}, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rag: read %s: %w", path, err)
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal(raw, &rows); err == nil {
		return rows, nil
	}
	var single map[string]interface{}
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("rag: parse json %s: %w", path, err)
	}
	return []map[string]interface{}{single}, nil
}

func parseJSONLArtifact(path string) ([]map[string]interface{}, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rag: read %s: %w", path, err)
	}
	var rows []map[string]interface{}
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var row map[string]interface{}
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return nil, fmt.Errorf("rag: parse jsonl line in %s: %w", path, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseCSVArtifact(path string) ([]map[string]interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rag: open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("rag: parse csv %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	rows := make([]map[string]interface{}, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]interface{}, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseSQLiteArtifact iterates every user table (anything not prefixed
// sqlite_) and returns every row from every table as a flat row set.
func parseSQLiteArtifact(path string) ([]map[string]interface{}, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("rag: open sqlite %s: %w", path, err)
	}
	defer db.Close()

	tableRows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return nil, fmt.Errorf("rag: list sqlite tables: %w", err)
	}
	var tables []string
	for tableRows.Next() {
		var name string
		if err := tableRows.Scan(&name); err != nil {
			tableRows.Close()
			return nil, fmt.Errorf("rag: scan sqlite table name: %w", err)
		}
		tables = append(tables, name)
	}
	tableRows.Close()

	var allRows []map[string]interface{}
	for _, table := range tables {
		rows, err := queryAllRows(db, table)
		if err != nil {
			return nil, err
		}
		allRows = append(allRows, rows...)
	}
	return allRows, nil
}

func queryAllRows(db *sql.DB, table string) ([]map[string]interface{}, error) {
	rows, err := db.Query(fmt.Sprintf(`SELECT * FROM "%s"`, table))
	if err != nil {
		return nil, fmt.Errorf("rag: query table %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("rag: columns for table %s: %w", table, err)
	}

	var result []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("rag: scan row in table %s: %w", table, err)
		}
		row := make(map[string]interface{}, len(columns)+1)
		row["table"] = table
		for i, col := range columns {
			row[col] = normalizeSQLiteValue(values[i])
		}
		result = append(result, row)
	}
	return result, nil
}

func normalizeSQLiteValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// stripLeadingMarker removes whichever RAG-ask keyword prefixes text
// (case-insensitively), plus any immediately following colon and
// whitespace, leaving the bare question for the KB query API.
func stripLeadingMarker(text string, markers []string) string {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)
	for _, m := range markers {
		if m == "" {
			continue
		}
		lm := strings.ToLower(m)
		if strings.HasPrefix(lower, lm) {
			rest := trimmed[len(m):]
			rest = strings.TrimPrefix(strings.TrimSpace(rest), ":")
			return strings.TrimSpace(rest)
		}
	}
	return trimmed
}

// RAG dispatches on the pending task kind set by Planner/Verifier, always
// clearing rag_task_type and appending exactly one finished step
// describing the outcome (spec §4.10).
func RAG(ctx context.Context, s state.AgentState, cfg *Config) (state.Update, Next, error) {
	none := state.RAGTaskNone

	switch s.RAGTaskType {
	case state.RAGTaskStoreKB:
		return ragStoreKB(ctx, s, cfg, none)
	case state.RAGTaskStoreCode:
		return ragStoreCode(ctx, s, cfg, none)
	case state.RAGTaskQA:
		return ragQA(ctx, s, cfg, none)
	default:
		finished := state.AppendList("no knowledge-base task was pending")
		return state.Update{RAGTaskType: &none, FinishedSteps: &finished}, NodePlanner, nil
	}
}

func ragStoreKB(ctx context.Context, s state.AgentState, cfg *Config, none state.RAGTaskType) (state.Update, Next, error) {
	path, err := findLatestArtifact(cfg.OutputDir)
	if err != nil {
		cfg.Logger.Warn("rag: store_kb artifact discovery failed", map[string]interface{}{"error": err.Error()})
		finished := state.AppendList("knowledge base write skipped: no output artifact found")
		return state.Update{RAGTaskType: &none, FinishedSteps: &finished}, NodePlanner, nil
	}

	rows, err := parseArtifactRows(path)
	if err != nil {
		cfg.Logger.Warn("rag: store_kb artifact parse failed", map[string]interface{}{"error": err.Error(), "path": path})
		finished := state.AppendList("knowledge base write skipped: could not parse artifact " + filepath.Base(path))
		return state.Update{RAGTaskType: &none, FinishedSteps: &finished}, NodePlanner, nil
	}

	for _, row := range rows {
		row["source"] = s.CurrentURL
		if err := cfg.KBWriter.Add(ctx, row); err != nil {
			cfg.Logger.Warn("rag: kb writer add failed", map[string]interface{}{"error": err.Error()})
		}
	}
	if err := cfg.KBWriter.Flush(ctx); err != nil {
		finished := state.AppendList("knowledge base write failed: " + err.Error())
		return state.Update{RAGTaskType: &none, FinishedSteps: &finished}, NodePlanner, nil
	}

	finished := state.AppendList(fmt.Sprintf("stored %d rows from %s in the knowledge base", len(rows), filepath.Base(path)))
	return state.Update{RAGTaskType: &none, FinishedSteps: &finished}, NodePlanner, nil
}

func ragStoreCode(ctx context.Context, s state.AgentState, cfg *Config, none state.RAGTaskType) (state.Update, Next, error) {
	goal := s.Plan
	locatorInfo := summarizeStrategies(s.LocatorSuggestions)
	userTask := s.UserTask
	rawURL := s.CurrentURL
	code := s.GeneratedCode
	domHash := s.DOMHash

	resultCh := make(chan error, 1)
	cfg.CodeCacheWriter.Submit(func() error {
		_, err := cfg.CodeCache.Save(context.Background(), goal, locatorInfo, userTask, rawURL, code, domHash)
		resultCh <- err
		return err
	})

	message := "queued this solution for reuse in the code cache"
	select {
	case err := <-resultCh:
		if err != nil {
			message = "code cache save failed: " + err.Error()
		}
	case <-ctx.Done():
	}

	finished := state.AppendList(message)
	return state.Update{RAGTaskType: &none, FinishedSteps: &finished}, NodePlanner, nil
}

func ragQA(ctx context.Context, s state.AgentState, cfg *Config, none state.RAGTaskType) (state.Update, Next, error) {
	question := stripLeadingMarker(s.Plan, cfg.RAGAskKeywords)

	analysis := cfg.QueryAnalyzer.Analyze(ctx, question)
	docs, err := cfg.KBStore.Query(ctx, analysis.SearchQuery, analysis.FilterExpr, 5)
	if err != nil {
		finished := state.AppendList("knowledge base query failed: " + err.Error())
		return state.Update{RAGTaskType: &none, FinishedSteps: &finished}, NodePlanner, nil
	}
	if len(docs) == 0 {
		finished := state.AppendList("knowledge base had no matching records for: " + question)
		return state.Update{RAGTaskType: &none, FinishedSteps: &finished}, NodePlanner, nil
	}

	var b strings.Builder
	for i, d := range docs {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(describeDocument(d.Metadata, d.Dynamic))
	}

	finished := state.AppendList(fmt.Sprintf("answered %q from %d knowledge base record(s): %s", question, len(docs), b.String()))
	return state.Update{RAGTaskType: &none, FinishedSteps: &finished}, NodePlanner, nil
}

func describeDocument(metadata map[string]string, dynamic map[string]interface{}) string {
	parts := make([]string, 0, len(dynamic))
	for k, v := range dynamic {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	if title := metadata["title"]; title != "" {
		return title + " (" + strings.Join(parts, ", ") + ")"
	}
	return strings.Join(parts, ", ")
}

package toolbox

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// SaveData persists rows (maps, as produced by generated scraping code)
// to path under the current host's output directory. The extension of
// path decides the format: ".csv" writes a flat CSV with the union of
// every row's keys as the header; anything else writes indented JSON.
func (t *Toolbox) SaveData(rows []map[string]interface{}, path string) (string, error) {
	if len(rows) == 0 {
		return "", fmt.Errorf("toolbox: save_data called with no rows")
	}

	dest := t.outputPath(path)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("toolbox: create output dir: %w", err)
	}

	if strings.EqualFold(filepath.Ext(dest), ".csv") {
		if err := writeCSV(dest, rows); err != nil {
			return "", err
		}
		return dest, nil
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", fmt.Errorf("toolbox: marshal rows: %w", err)
	}
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return "", fmt.Errorf("toolbox: write json file: %w", err)
	}
	return dest, nil
}

func writeCSV(dest string, rows []map[string]interface{}) error {
	headerSet := map[string]struct{}{}
	for _, row := range rows {
		for k := range row {
			headerSet[k] = struct{}{}
		}
	}
	header := make([]string, 0, len(headerSet))
	for k := range headerSet {
		header = append(header, k)
	}
	sort.Strings(header)

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("toolbox: create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(header); err != nil {
		return fmt.Errorf("toolbox: write csv header: %w", err)
	}
	for _, row := range rows {
		record := make([]string, len(header))
		for i, col := range header {
			if v, ok := row[col]; ok {
				record[i] = fmt.Sprintf("%v", v)
			}
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("toolbox: write csv row: %w", err)
		}
	}
	return w.Error()
}

// htmlSanitizer strips every tag (bluemonday's strict policy) — generated
// code uses CleanHTML to turn scraped markup into plain
// text worth embedding or displaying, not to render it.
var htmlSanitizer = bluemonday.StrictPolicy()

// CleanHTML strips all markup, leaving plain text.
func (t *Toolbox) CleanHTML(html string) string {
	return htmlSanitizer.Sanitize(html)
}

package reporting

import (
	"fmt"
	"os"
	"path/filepath"
)

// Output file names written by WriteFiles.
const (
	MarkdownFile    = "REPORT.md"
	HistoryCSVFile  = "history.csv"
	OraclesCSVFile  = "oracles.csv"
	StepsCSVFile    = "steps.csv"
	outputFilePerms = 0o644
)

// WriteFiles renders r into dir and returns the written paths.
// steps.csv is only written when a scenario run is attached.
func WriteFiles(dir string, r *Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	history, err := RenderHistoryCSV(r.History)
	if err != nil {
		return nil, err
	}
	oracles, err := RenderOraclesCSV(r.Oracles)
	if err != nil {
		return nil, err
	}

	files := []struct {
		name, content string
	}{
		{MarkdownFile, RenderMarkdown(r)},
		{HistoryCSVFile, history},
		{OraclesCSVFile, oracles},
	}
	if r.Scenario != nil {
		steps, err := RenderStepsCSV(r.Scenario.Steps)
		if err != nil {
			return nil, err
		}
		files = append(files, struct{ name, content string }{StepsCSVFile, steps})
	}

	written := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, []byte(f.content), outputFilePerms); err != nil {
			return written, fmt.Errorf("write %s: %w", f.name, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// Package source loads candidate records from line-delimited JSON files.
//
// The core consumes candidates as a flat, already-tagged list; this package
// is the adapter that produces it. The origin tag is derived from the first
// subdirectory under the scan root (the batch/bias name) or, for files at
// the root, from the file stem.
package source

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/noteweave/noteweave/internal/ledger"
)

// record is the accepted JSONL line shape. Content comes from "text" when
// present, otherwise from "context" + "question".
type record struct {
	Text      string `json:"text"`
	Context   string `json:"context"`
	Question  string `json:"question"`
	ExampleID string `json:"example_id"`
}

// Load walks dir recursively and returns one candidate per parseable JSONL
// line. Malformed lines are logged and skipped; a malformed line never
// fails the load. File names like "case4_notes.jsonl" contribute a
// suggested group key of "4".
func Load(dir string) ([]ledger.Candidate, error) {
	var out []ledger.Candidate

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".jsonl") {
			return nil
		}
		cands, err := loadFile(dir, path)
		if err != nil {
			return err
		}
		out = append(out, cands...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan candidate dir %s: %w", dir, err)
	}

	slog.Info("candidates loaded", "dir", dir, "count", len(out))
	return out, nil
}

func loadFile(root, path string) ([]ledger.Candidate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	tag := originTag(root, path)
	suggested := caseFromFilename(filepath.Base(path))

	var out []ledger.Candidate
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(stripBOM(scanner.Text()))
		if raw == "" {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			slog.Warn("skipping malformed candidate line",
				"file", path, "line", line, "error", err)
			continue
		}
		content := rec.Text
		if content == "" {
			content = strings.TrimSpace(rec.Context + " " + rec.Question)
		}
		id := rec.ExampleID
		if id == "" {
			id = ledger.NewCandidateID()
		}
		out = append(out, ledger.Candidate{
			ID:           id,
			OriginTag:    tag,
			Content:      content,
			SuggestedKey: suggested,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}

// originTag returns the first path element under root, or the file stem for
// files sitting directly in root.
func originTag(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) > 1 {
		return parts[0]
	}
	return strings.TrimSuffix(parts[0], ".jsonl")
}

// caseFromFilename extracts a numeric group key from names like
// "case4_batch.jsonl". Returns "" when no case part is present.
func caseFromFilename(name string) string {
	name = strings.TrimSuffix(name, ".jsonl")
	for _, part := range strings.Split(name, "_") {
		lower := strings.ToLower(part)
		if rest, ok := strings.CutPrefix(lower, "case"); ok && rest != "" {
			if isDigits(rest) {
				return rest
			}
		}
	}
	return ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func stripBOM(s string) string {
	return strings.TrimPrefix(s, "\uFEFF")
}

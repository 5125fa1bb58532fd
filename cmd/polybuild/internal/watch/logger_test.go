package watch

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLogger_Ready(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Writer: &buf})

	logger.Ready(12, 3, "/path/to/project")

	output := buf.String()
	for _, want := range []string{"12 inputs", "3 directories", "/path/to/project", "ready"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output: %s", want, output)
		}
	}
}

func TestLogger_FileChanged(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(LoggerConfig{Writer: &buf, Verbose: true, NoColor: true}).FileChanged("src/main.c", ChangeModified)
	if output := buf.String(); !strings.Contains(output, "~ src/main.c") {
		t.Errorf("expected change in output: %s", output)
	}

	buf.Reset()
	NewLogger(LoggerConfig{Writer: &buf}).FileChanged("src/main.c", ChangeModified)
	if buf.Len() != 0 {
		t.Errorf("expected no output when not verbose: %s", buf.String())
	}
}

func TestLogger_Regenerating(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Writer: &buf})

	logger.Regenerating([]string{"src/a.c"})
	logger.Regenerating([]string{"src/a.c", "src/b.c"})

	output := buf.String()
	if !strings.Contains(output, "src/a.c changed") {
		t.Errorf("expected single path in output: %s", output)
	}
	if !strings.Contains(output, "2 files changed") {
		t.Errorf("expected file count in output: %s", output)
	}
}

func TestLogger_Regenerated(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Writer: &buf, NoColor: true})

	logger.Regenerated([]string{".polybuild.mk"})
	logger.Regenerated(nil)

	output := buf.String()
	if !strings.Contains(output, ".polybuild.mk updated") {
		t.Errorf("expected written file in output: %s", output)
	}
	if !strings.Contains(output, "up to date") {
		t.Errorf("expected up to date in output: %s", output)
	}
	if got := logger.Stats().Regenerations; got != 2 {
		t.Errorf("Regenerations = %d, want 2", got)
	}
}

func TestLogger_ErrorAndShutdown(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Writer: &buf, NoColor: true})

	logger.Error(errors.New("missing required key"))
	logger.Skipped([]string{"src/a.c"})
	logger.Shutdown()

	output := buf.String()
	if !strings.Contains(output, "error: missing required key") {
		t.Errorf("expected error in output: %s", output)
	}
	if !strings.Contains(output, "0 regenerations, 1 errors") {
		t.Errorf("expected stats in output: %s", output)
	}

	stats := logger.Stats()
	if stats.Errors != 1 || stats.Skipped != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Writer: &buf, JSON: true})

	logger.Ready(1, 1, "/p")
	logger.FileChanged("a.c", ChangeAdded)
	logger.Regenerated([]string{"Makefile"})
	logger.Error(errors.New("boom"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	wantEvents := []string{"ready", "file_changed", "regenerated", "error"}
	if len(lines) != len(wantEvents) {
		t.Fatalf("expected %d lines, got %d: %s", len(wantEvents), len(lines), buf.String())
	}
	for i, line := range lines {
		var event map[string]any
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			t.Fatalf("line %d is not JSON: %v", i, err)
		}
		if event["event"] != wantEvents[i] {
			t.Errorf("line %d event = %v, want %s", i, event["event"], wantEvents[i])
		}
	}
}

func TestLogger_NoColorWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Writer: &buf})
	if got := logger.paint("+", ChangeAdded); got != "+" {
		t.Errorf("paint() = %q, want plain text for a non-terminal writer", got)
	}
}

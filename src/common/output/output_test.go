package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

// =============================================================================
// PrintJSON Tests
// =============================================================================

func TestPrintJSON_Map(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintJSON(&buf, map[string]string{"key": "value"}); err != nil {
		t.Fatalf("PrintJSON error: %v", err)
	}

	var result map[string]string
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if result["key"] != "value" {
		t.Errorf("expected value, got %s", result["key"])
	}
	if !strings.Contains(buf.String(), "  \"key\"") {
		t.Error("expected indented output")
	}
}

// =============================================================================
// PrintTable Tests
// =============================================================================

func TestPrintTable_Aligned(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, []string{"ID", "STATUS"}, [][]string{
		{"a1", "succeeded"},
		{"long-id", "failed"},
	})

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	col := strings.Index(lines[0], "STATUS")
	if strings.Index(lines[1], "succeeded") != col || strings.Index(lines[2], "failed") != col {
		t.Errorf("columns not aligned:\n%s", buf.String())
	}
}

func TestPrintTable_NoRows(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, []string{"ID"}, nil)
	if buf.String() != "ID\n" {
		t.Errorf("expected header only, got %q", buf.String())
	}
}

// =============================================================================
// Misc
// =============================================================================

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	PrintError(&buf, fmt.Errorf("toolchain.not_found: Required tool not found"))
	if buf.String() != "error: toolchain.not_found: Required tool not found\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestValidateFormat(t *testing.T) {
	for _, f := range []string{"table", "json"} {
		if err := ValidateFormat(f); err != nil {
			t.Errorf("%s should be valid: %v", f, err)
		}
	}
	if err := ValidateFormat("yaml"); err == nil {
		t.Error("expected error for yaml")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:               "0 B",
		1023:            "1023 B",
		1024:            "1.0 KiB",
		3 * 1024 * 1024: "3.0 MiB",
	}
	for n, want := range tests {
		if got := FormatBytes(n); got != want {
			t.Errorf("FormatBytes(%d) = %s, expected %s", n, got, want)
		}
	}
}

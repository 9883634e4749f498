package version

import (
	"strings"
	"testing"
)

func TestSet(t *testing.T) {
	info := New("pcbuild")
	info.Set("0.3.0", "4f9f297", "2026-03-14T09:26:53Z")

	if got := info.String(); got != "pcbuild 0.3.0 (4f9f297)" {
		t.Errorf("unexpected String() %q", got)
	}
	if !strings.HasPrefix(info.Full(), "pcbuild\n  Version:    0.3.0") {
		t.Errorf("unexpected Full() %q", info.Full())
	}

	m := info.Map()
	if m["tool"] != "pcbuild" || m["build_date"] != "2026-03-14T09:26:53Z" || m["go_version"] == "" {
		t.Errorf("unexpected Map() %v", m)
	}
}

func TestSet_KeepsDefaultsWhenEmpty(t *testing.T) {
	info := New("pcrelease")
	info.Set("", "", "")

	if info.Version != "dev" {
		t.Errorf("expected dev version, got %q", info.Version)
	}
	// test binaries carry no VCS stamp
	if info.GitCommit == "" || info.BuildDate == "" {
		t.Errorf("fields must never be empty: %+v", info)
	}
}

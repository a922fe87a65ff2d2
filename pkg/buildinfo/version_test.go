package buildinfo

import (
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	old := Version
	t.Cleanup(func() { Version = old })

	Version = "v1.2.3"
	info := Get()
	if info.Version != "v1.2.3" {
		t.Errorf("Version = %q, want v1.2.3", info.Version)
	}
	if info.GoVersion == "" {
		t.Error("GoVersion is empty")
	}
	if !strings.Contains(info.String(), "version: v1.2.3") {
		t.Errorf("String() = %q", info.String())
	}
	if !strings.Contains(Template(), "version v1.2.3") {
		t.Errorf("Template() = %q", Template())
	}
}

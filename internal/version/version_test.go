package version

import (
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	i := Get()
	if i.Version != Version {
		t.Errorf("Version = %q, want %q", i.Version, Version)
	}
	if i.Commit == "" {
		t.Error("Commit should never be empty")
	}
	if !strings.HasPrefix(String(), i.Version+" (") {
		t.Errorf("String() = %q", String())
	}
}

package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	s := String()
	if !strings.HasPrefix(s, "stash "+Version+" ") {
		t.Errorf("String() = %q", s)
	}
	if !strings.Contains(s, "go="+GoVersion) {
		t.Errorf("String() = %q, missing go version", s)
	}
}

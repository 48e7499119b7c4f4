package version

import (
	"strings"
	"testing"
)

func TestVersion(t *testing.T) {
	if !strings.HasPrefix(Version, "v") {
		t.Errorf("Version = %q, want a v-prefixed release tag", Version)
	}
	if strings.Count(Version, ".") < 2 {
		t.Errorf("Version = %q, want major.minor.patch", Version)
	}
}

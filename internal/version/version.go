// Package version gates the simulator on the version of the host it runs in.
package version

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// MinHost is the oldest host release the platform runs against.
const MinHost = "3.3.0"

// ErrIncompatible is returned when the host is older than required or reports
// a version that cannot be parsed.
var ErrIncompatible = errors.New("incompatible host version")

// Canonical converts "3.3.0", "v3.3" or "3.3.0-dev.1" into the "vMAJOR.MINOR.PATCH[-pre]"
// form understood by semver. It returns "" when s is not a semantic version.
func Canonical(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "v") {
		s = "v" + s
	}
	if !semver.IsValid(s) {
		return ""
	}
	return semver.Canonical(s)
}

// Compare returns -1, 0 or +1 depending on whether a < b, a == b or a > b.
// Invalid versions sort before all valid ones.
func Compare(a, b string) int {
	return semver.Compare(Canonical(a), Canonical(b))
}

// Check verifies that host is at least required.
func Check(host, required string) error {
	want := Canonical(required)
	if want == "" {
		return fmt.Errorf("invalid required version %q", required)
	}

	have := Canonical(host)
	if have == "" || semver.Compare(have, want) < 0 {
		if host == "" {
			host = "unknown"
		}
		return fmt.Errorf("%w: this plugin requires host version >= %q, please update the host from %s to the latest version",
			ErrIncompatible, required, host)
	}

	return nil
}

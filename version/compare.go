// Package version compares semantic version strings reported by external tools.
package version

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/samber/lo"
)

var semverPattern = regexp.MustCompile(`v?(\d+)\.(\d+)(?:\.(\d+))?`)

// Extract returns the first "major.minor[.patch]" found in s, e.g. in the banner of "mpv --version".
func Extract(s string) (string, error) {
	m := semverPattern.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("no version found in %q", strings.TrimSpace(s))
	}
	patch := m[3]
	if patch == "" {
		patch = "0"
	}
	return fmt.Sprintf("%s.%s.%s", m[1], m[2], patch), nil
}

// Compare performs a semantic comparison between two version strings.
// Returns 1 if a > b, -1 if a < b, and 0 if equal.
func Compare(a, b string) (int, error) {
	type version struct {
		major, minor, patch int
	}

	parse := func(s string) (version, error) {
		var v version
		_, err := fmt.Sscanf(strings.TrimPrefix(s, "v"), "%d.%d.%d", &v.major, &v.minor, &v.patch)
		return v, err
	}

	av, err := parse(a)
	if err != nil {
		return 0, err
	}

	bv, err := parse(b)
	if err != nil {
		return 0, err
	}

	for _, pair := range []lo.Tuple2[int, int]{
		{A: av.major, B: bv.major},
		{A: av.minor, B: bv.minor},
		{A: av.patch, B: bv.patch},
	} {
		if pair.A > pair.B {
			return 1, nil
		}

		if pair.A < pair.B {
			return -1, nil
		}
	}

	return 0, nil
}

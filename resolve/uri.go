// Package resolve turns user input into a URI the playback engine accepts.
package resolve

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// ErrUnresolvable is returned when a local path cannot be canonicalized.
var ErrUnresolvable = errors.New("cannot resolve path")

// ToURI passes anything containing "://" through unchanged and converts everything else into a
// file:// URI of its canonical absolute path. The path must exist.
func ToURI(pathOrURI string) (string, error) {
	if strings.Contains(pathOrURI, "://") {
		return pathOrURI, nil
	}

	canonical, err := Canonicalize(pathOrURI)
	if err != nil {
		return "", err
	}

	return FileURI(canonical), nil
}

// Canonicalize returns the absolute path of p with every symlink resolved.
func Canonicalize(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("%w: empty path", ErrUnresolvable)
	}

	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrUnresolvable, p, err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrUnresolvable, p, err)
	}

	return resolved, nil
}

// FileURI builds a file:// URI for an absolute path, percent-encoding reserved characters.
func FileURI(abs string) string {
	slashed := filepath.ToSlash(abs)
	// Windows drive paths need a leading slash: file:///C:/...
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	u := url.URL{Scheme: "file", Path: slashed}
	return u.String()
}

package hdf5

import (
	"fmt"
	"path"
	"strings"
)

// splitPath splits a slash-separated path into its components, dropping
// empty and "." components. ".." is rejected.
func splitPath(p string) ([]string, error) {
	var parts []string
	for _, part := range strings.Split(p, "/") {
		switch part {
		case "", ".":
			continue
		case "..":
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
		parts = append(parts, part)
	}
	return parts, nil
}

// checkName validates a single link name.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
		return fmt.Errorf("%w: bad name %q", ErrInvalidPath, name)
	}
	return nil
}

// checkPath validates a relative path used to create groups. Every
// component must be a valid name.
func checkPath(p string) ([]string, error) {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	parts := strings.Split(trimmed, "/")
	for _, part := range parts {
		if err := checkName(part); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}
	return parts, nil
}

func joinPath(dir, name string) string {
	return path.Join("/", dir, name)
}

package tree

import "strings"

// Root is the path of the root container.
const Root = "/"

// Normalize returns the canonical form of a path: lowercase, one leading
// slash, no empty segments, no trailing slash. The root is "/".
func Normalize(path string) string {
	segs := Split(path)
	if len(segs) == 0 {
		return Root
	}
	return "/" + strings.Join(segs, "/")
}

// Split returns the normalized segments of a path. The root has none.
func Split(path string) []string {
	parts := strings.Split(path, "/")
	segs := parts[:0]
	for _, p := range parts {
		if p == "" {
			continue
		}
		segs = append(segs, strings.ToLower(p))
	}
	return segs
}

// Join builds a normalized path from a parent path and a segment.
func Join(parent, seg string) string {
	if parent == Root || parent == "" {
		return Normalize(seg)
	}
	return Normalize(parent + "/" + seg)
}

// Base returns the last segment of a path, or "" for the root.
func Base(path string) string {
	segs := Split(path)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

package domain

import "strings"

// Wildcard is the marker that expands to any run of zero or more characters
const Wildcard = "*"

// Predicate reports whether a candidate name satisfies a compiled pattern
type Predicate func(name string) bool

// Compile turns a convention pattern into a Predicate.
// Without a wildcard the predicate is a case-sensitive exact comparison.
// Otherwise the pattern is split on the wildcard and matched as an anchored
// glob: the first segment must prefix the name, the last must suffix it, and
// the segments in between must appear in order in what remains.
func Compile(pattern string) Predicate {
	if !strings.Contains(pattern, Wildcard) {
		return func(name string) bool {
			return name == pattern
		}
	}

	segments := strings.Split(pattern, Wildcard)
	prefix := segments[0]
	suffix := segments[len(segments)-1]
	middle := segments[1 : len(segments)-1]

	return func(name string) bool {
		if name == "" {
			return false
		}
		if len(name) < len(prefix)+len(suffix) {
			return false
		}
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
			return false
		}

		// Leftmost match of each middle segment leaves the most room for the next
		rest := name[len(prefix) : len(name)-len(suffix)]
		for _, seg := range middle {
			if seg == "" {
				continue
			}
			idx := strings.Index(rest, seg)
			if idx < 0 {
				return false
			}
			rest = rest[idx+len(seg):]
		}
		return true
	}
}

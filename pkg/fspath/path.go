// Package fspath models the platform-native absolute path value used by the
// backup engine: canonical separators, trailing-separator-for-directories,
// and the long-path ("\\?\") escape on Windows.
package fspath

import (
	"path/filepath"
	"runtime"
	"strings"
)

// Separator is the canonical path separator for the current platform.
const Separator = string(filepath.Separator)

// extendedPrefix is prepended to Windows paths to opt out of MAX_PATH.
const extendedPrefix = `\\?\`

// Path is a platform-native absolute path stored in its canonical (possibly
// extended) form. The zero value is not a valid Path.
type Path struct {
	raw string
}

// New wraps an already-canonical absolute path string. Callers that have a
// raw OS path should use FromNative instead.
func New(raw string) Path {
	return Path{raw: raw}
}

// FromNative builds a Path from an absolute OS path, normalizing separators
// and adding the Windows extended-path prefix where applicable.
func FromNative(native string) Path {
	p := native
	if runtime.GOOS == "windows" {
		p = strings.ReplaceAll(p, "/", `\`)
		if !strings.HasPrefix(p, extendedPrefix) {
			p = extendedPrefix + p
		}
	}
	return Path{raw: p}
}

// String returns the extended/canonical form.
func (p Path) String() string {
	return p.raw
}

// Normal returns the path without the Windows extended-path prefix.
func (p Path) Normal() string {
	if runtime.GOOS == "windows" && strings.HasPrefix(p.raw, extendedPrefix) {
		return p.raw[len(extendedPrefix):]
	}
	return p.raw
}

// IsDir reports whether the stored form carries a trailing separator.
func (p Path) IsDir() bool {
	return strings.HasSuffix(p.raw, Separator)
}

// EnsureTrailingSeparator returns a copy with a trailing separator added if
// missing. Used whenever a path is known to denote a directory.
func (p Path) EnsureTrailingSeparator() Path {
	if p.IsDir() || p.raw == "" {
		return p
	}
	return Path{raw: p.raw + Separator}
}

// WithoutTrailingSeparator returns a copy with any trailing separator
// stripped, unless doing so would leave an empty or root-only path.
func (p Path) WithoutTrailingSeparator() Path {
	trimmed := strings.TrimSuffix(p.raw, Separator)
	if trimmed == "" || trimmed == extendedPrefix {
		return p
	}
	return Path{raw: trimmed}
}

// Equal compares canonical forms byte-exactly; case is significant.
func (p Path) Equal(other Path) bool {
	return p.raw == other.raw
}

// Less gives a stable total ordering over canonical forms.
func (p Path) Less(other Path) bool {
	return p.raw < other.raw
}

// Segment returns the final path component, without any trailing separator.
func (p Path) Segment() string {
	trimmed := strings.TrimSuffix(p.raw, Separator)
	idx := strings.LastIndex(trimmed, Separator)
	if idx < 0 {
		return trimmed
	}
	return trimmed[idx+len(Separator):]
}

// Parent returns the directory containing p, preserving canonical form. If p
// has no parent (it is a root), Parent returns p unchanged.
func (p Path) Parent() Path {
	trimmed := strings.TrimSuffix(p.raw, Separator)
	idx := strings.LastIndex(trimmed, Separator)
	if idx < 0 {
		return p
	}
	parent := trimmed[:idx+len(Separator)]
	if parent == "" || parent == extendedPrefix {
		return Path{raw: trimmed[:idx] + Separator}
	}
	return Path{raw: parent}
}

// IsRoot reports whether p has no parent distinct from itself.
func (p Path) IsRoot() bool {
	return p.Parent().raw == p.raw
}

// AppendSegment appends a single path component to p (with or without a
// trailing separator on p) and returns the result without a trailing
// separator; call EnsureTrailingSeparator on it when it denotes a directory.
func (p Path) AppendSegment(segment string) Path {
	base := strings.TrimSuffix(p.raw, Separator)
	return Path{raw: base + Separator + segment}
}

// AppendFullPath re-roots other under p, stripping any drive/volume
// separators from other so that e.g. C:\foo\bar rooted under target becomes
// target\C\foo\bar -- a pure re-rooting with no cross-drive collisions.
func (p Path) AppendFullPath(other Path) Path {
	rel := other.Normal()
	rel = strings.TrimPrefix(rel, Separator)
	rel = strings.ReplaceAll(rel, ":", "")
	base := strings.TrimSuffix(p.raw, Separator)
	if rel == "" {
		return Path{raw: base}
	}
	return Path{raw: base + Separator + rel}
}

// IntermediatePaths yields the root, then each ancestor directory (each with
// a trailing separator), then the original path itself.
func (p Path) IntermediatePaths() []Path {
	var chain []Path
	cur := p
	for {
		chain = append(chain, cur)
		if cur.IsRoot() {
			break
		}
		cur = cur.Parent()
	}
	// chain is currently [p, parent(p), ..., root]; reverse it and make
	// every element but the last a directory (trailing separator).
	result := make([]Path, len(chain))
	for i, c := range chain {
		result[len(chain)-1-i] = c
	}
	for i := 0; i < len(result)-1; i++ {
		result[i] = result[i].EnsureTrailingSeparator()
	}
	return result
}

// IsChildPath reports whether candidate is equal to, or nested under, base.
// maxDepth, when >= 0, additionally requires the nesting depth (number of
// path components beyond base) to not exceed maxDepth.
func IsChildPath(base, candidate Path, maxDepth int) bool {
	baseStr := base.EnsureTrailingSeparator().raw
	candStr := candidate.raw
	if candStr == base.WithoutTrailingSeparator().raw {
		return true
	}
	if !strings.HasPrefix(candStr, baseStr) {
		return false
	}
	if maxDepth < 0 {
		return true
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(candStr, baseStr), Separator)
	if rest == "" {
		return true
	}
	depth := strings.Count(rest, Separator) + 1
	return depth <= maxDepth
}

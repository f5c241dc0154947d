// Package anchor reverses the upstream parser's rewriting of user-authored
// section anchors. The parser turns "#foo-bar" into "_foo_bar"; Normalize
// undoes that on a best-effort basis. An anchor that never went through the
// rewrite but happens to have the same shape cannot be told apart.
package anchor

import "regexp"

// Marker is the leading character of a user-authored anchor.
const Marker = "#"

const mangledPrefix = "_"

var mangledShape = regexp.MustCompile(`^_[^\s-]+$`)

// IsMangled reports whether raw has the shape the parser produces: a leading
// underscore, at least one more character, no hyphens and no whitespace.
func IsMangled(raw string) bool {
	return mangledShape.MatchString(raw)
}

// Normalize returns the user-facing anchor for raw. Input that is not in
// the mangled shape is returned unchanged.
func Normalize(raw string) string {
	if !IsMangled(raw) {
		return raw
	}
	body := raw[len(mangledPrefix):]
	return Marker + replaceByte(body, '_', '-')
}

// Mangle applies the parser's rewrite to a user-facing anchor.
func Mangle(a string) string {
	if len(a) >= len(Marker) && a[:len(Marker)] == Marker {
		a = mangledPrefix + a[len(Marker):]
	} else {
		a = mangledPrefix + a
	}
	return replaceByte(a, '-', '_')
}

func replaceByte(s string, from, to byte) string {
	b := []byte(s)
	for i := range b {
		if b[i] == from {
			b[i] = to
		}
	}
	return string(b)
}

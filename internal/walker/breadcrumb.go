package walker

import "strings"

// PathSeparator joins breadcrumb titles for display.
const PathSeparator = " >> "

// Breadcrumb is the stack of ancestor titles from the document root to the
// node being visited. The walker pushes before descending and pops on return.
type Breadcrumb struct {
	titles []string
}

// Push appends title to the top of the stack.
func (b *Breadcrumb) Push(title string) {
	b.titles = append(b.titles, title)
}

// Pop removes and returns the top title. Popping an empty breadcrumb returns "".
func (b *Breadcrumb) Pop() string {
	if len(b.titles) == 0 {
		return ""
	}
	last := b.titles[len(b.titles)-1]
	b.titles = b.titles[:len(b.titles)-1]
	return last
}

// Len returns the stack depth.
func (b *Breadcrumb) Len() int {
	return len(b.titles)
}

// Snapshot returns a copy of the current titles, root first.
func (b *Breadcrumb) Snapshot() []string {
	out := make([]string, len(b.titles))
	copy(out, b.titles)
	return out
}

func (b *Breadcrumb) String() string {
	return strings.Join(b.titles, PathSeparator)
}

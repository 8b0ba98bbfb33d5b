package builder

import "strings"

// Convention maps one half of a paired file name onto the other by
// substring substitution.
type Convention struct {
	From string `mapstructure:"from" yaml:"from"`
	To   string `mapstructure:"to" yaml:"to"`
}

// DefaultHalfMapConventions is tried in order; the first convention whose
// From occurs in the path wins.
var DefaultHalfMapConventions = []Convention{
	{From: "half1", To: "half2"},
	{From: "_1_unfil", To: "_2_unfil"},
	{From: "_half_1", To: "_half_2"},
}

// deriveCompanion substitutes the last occurrence of the first matching
// convention so directory names containing the token are left alone.
func deriveCompanion(path string, conventions []Convention) (string, bool) {
	for _, c := range conventions {
		if c.From == "" {
			continue
		}
		i := strings.LastIndex(path, c.From)
		if i < 0 {
			continue
		}
		return path[:i] + c.To + path[i+len(c.From):], true
	}
	return "", false
}

// completeHalfMaps validates the first half map and fills in the second
// one from the naming conventions when the caller left it out. The bag is
// mutated so BuildCommand can rely on both values.
func (b *base) completeHalfMaps(half1, half2 []string) Result {
	if r := b.requireFile(half1, extMap...); !r.OK {
		return r
	}
	if b.has(half2) {
		return b.checkFile(half2[0], b.str(half2, ""), extMap)
	}
	conventions := b.opts.HalfMapConventions
	if len(conventions) == 0 {
		conventions = DefaultHalfMapConventions
	}
	derived, ok := deriveCompanion(b.str(half1, ""), conventions)
	if !ok {
		return invalid(CodeMissingField, half2[0], "%s is required: cannot derive it from %q", half2[0], b.str(half1, ""))
	}
	if r := b.checkFile(half2[0], derived, extMap); !r.OK {
		return r
	}
	b.bag[half2[0]] = derived
	return Valid()
}

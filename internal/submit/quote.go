package submit

import "github.com/kballard/go-shellquote"

// shellQuote renders s as a single shell word.
func shellQuote(s string) string {
	return shellquote.Join(s)
}

// shellJoin quotes every argument and joins them with spaces.
func shellJoin(argv []string) string {
	return shellquote.Join(argv...)
}

package submit

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	directivePattern = regexp.MustCompile(`^--?[A-Za-z][A-Za-z0-9_-]*(=[A-Za-z0-9_.:,/@%+-]+)?$`)
	partitionPattern = regexp.MustCompile(`^[A-Za-z0-9_.,-]+$`)
	directiveDeny    = []string{"$(", "`", ";", "&&", "||", "|", ">", "<", "..", "\n", "\\"}
)

// sanitizeDirectives keeps the scheduler options in raw that match the
// allow-list and contain no deny-listed sequence. Everything else is
// dropped and reported.
func sanitizeDirectives(raw string) (kept, dropped []string) {
	for _, tok := range strings.Fields(raw) {
		if directiveOK(tok) {
			kept = append(kept, tok)
		} else {
			dropped = append(dropped, tok)
		}
	}
	return kept, dropped
}

func directiveOK(tok string) bool {
	for _, d := range directiveDeny {
		if strings.Contains(tok, d) {
			return false
		}
	}
	return directivePattern.MatchString(tok)
}

func sanitizePartition(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if !partitionPattern.MatchString(p) {
		return "", fmt.Errorf("partition %q rejected", p)
	}
	return p, nil
}

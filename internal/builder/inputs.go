package builder

import "sort"

var inputParameterNames []string

// inputNames declares a synonym list whose values are upstream file paths.
// Every such list feeds the dependency graph's scan.
func inputNames(names ...string) []string {
	inputParameterNames = append(inputParameterNames, names...)
	return names
}

// InputParameterNames returns every parameter name that carries an input
// file path, sorted and deduplicated.
func InputParameterNames() []string {
	seen := make(map[string]struct{}, len(inputParameterNames))
	out := make([]string, 0, len(inputParameterNames))
	for _, n := range inputParameterNames {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

package submit

import (
	"slices"
)

// wrap runs argv inside the configured image. A leading launcher
// prefix of width keep (e.g. "mpirun -n 4") stays outside the container
// so ranks are spawned by the host.
func (c ContainerConfig) wrap(argv []string, keep int, gpus int, projectRoot string) []string {
	if c.Image == "" {
		return argv
	}
	out := append([]string{}, argv[:keep]...)
	out = append(out, c.Runtime, "exec")
	if gpus > 0 {
		out = append(out, "--nv")
	}
	binds := append([]string{projectRoot}, c.Binds...)
	seen := map[string]bool{}
	for _, b := range binds {
		if b == "" || seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, "--bind", b)
	}
	out = append(out, c.Image)
	return append(out, argv[keep:]...)
}

// launcherWidth reports how many leading tokens of argv form a local MPI
// launcher prefix.
func launcherWidth(argv []string, launcher string) int {
	if len(argv) >= 4 && argv[0] == launcher && slices.Contains([]string{"-n", "-np"}, argv[1]) {
		return 3
	}
	return 0
}

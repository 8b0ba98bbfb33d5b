package builder

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/params"
)

// base carries the state and helpers shared by every job kind.
type base struct {
	bag     params.Bag
	project model.ProjectContext
	opts    Options
	diags   []string
}

func newBase(bag params.Bag, project model.ProjectContext, opts Options) base {
	if bag == nil {
		bag = params.Bag{}
	}
	if opts.Flags == nil {
		opts.Flags = DefaultFlags()
	}
	if opts.LocalLauncher == "" {
		opts.LocalLauncher = "mpirun"
	}
	if opts.DefaultDestination == "" {
		opts.DefaultDestination = model.DestinationLocal
	}
	return base{bag: bag, project: project, opts: opts}
}

func (b *base) Diagnostics() []string { return b.diags }

func (b *base) str(names []string, def string) string { return params.String(b.bag, names, def) }
func (b *base) num(names []string, def int) int       { return params.Int(b.bag, names, def) }
func (b *base) flt(names []string, def float64) float64 {
	return params.Float(b.bag, names, def)
}
func (b *base) yes(names []string, def bool) bool { return params.Bool(b.bag, names, def) }
func (b *base) has(names []string) bool           { return params.Has(b.bag, names) }

func (b *base) destination() model.Destination {
	return destinationOf(b.bag, b.opts.DefaultDestination)
}

func destinationOf(bag params.Bag, def model.Destination) model.Destination {
	switch model.Destination(strings.ToLower(params.String(bag, params.NamesDestination, ""))) {
	case model.DestinationQueue:
		return model.DestinationQueue
	case model.DestinationLocal:
		return model.DestinationLocal
	}
	if params.Has(bag, params.NamesSubmitToQueue) {
		if params.Bool(bag, params.NamesSubmitToQueue, false) {
			return model.DestinationQueue
		}
		return model.DestinationLocal
	}
	return def
}

func (b *base) mpiProcs() int {
	return max(1, b.num(params.NamesMPIProcs, 1))
}

func (b *base) threads() int {
	return max(1, b.num(params.NamesThreads, 1))
}

// executable selects the plain or MPI variant of name. With more than one
// process a queue destination gets the _mpi binary and leaves rank
// spawning to the scheduler; a local destination gets an explicit launcher.
func (b *base) executable(name string, mpiCapable bool) []string {
	procs := b.mpiProcs()
	if procs <= 1 || !mpiCapable {
		return []string{name}
	}
	if b.destination() == model.DestinationQueue {
		return []string{name + "_mpi"}
	}
	return []string{b.opts.LocalLauncher, "-n", strconv.Itoa(procs), name + "_mpi"}
}

// gpuArgs emits --gpu only when the kind supports it and it was requested.
func (b *base) gpuArgs(supported bool) []string {
	if !supported || !b.yes(params.NamesUseGPU, false) {
		return nil
	}
	return []string{"--gpu", b.str(params.NamesGPUIDs, "")}
}

func (b *base) gpuRequested(supported bool) bool {
	return supported && b.yes(params.NamesUseGPU, false)
}

// path relativizes a filesystem argument against the project root.
func (b *base) path(p string) string {
	return Relativize(b.project.RootPath, p)
}

// out normalizes an output directory to project-relative with a trailing
// separator.
func (b *base) out(dir string) string {
	return withTrailingSlash(b.path(dir))
}

// extraArgs sanitizes the free-text additional arguments for exe.
func (b *base) extraArgs(exe string) []string {
	raw := b.str(params.NamesAdditionalArgs, "")
	check := CheckAdditionalArgs(raw, exe, b.opts.Flags)
	b.diags = append(b.diags, check.Diagnostics...)
	return check.Tokens
}

func (b *base) continuing() bool {
	return b.has(params.NamesContinueFrom)
}

func (b *base) continueFile() string {
	return b.path(b.str(params.NamesContinueFrom, ""))
}

// checkFile verifies that value names an existing file of an accepted
// type. Glob patterns must match at least one file.
func (b *base) checkFile(field, value string, exts []string) Result {
	abs := ResolvePath(b.project.RootPath, value)
	if hasGlob(value) {
		matches, err := filepath.Glob(abs)
		if err != nil {
			return invalid(CodeInvalidValue, field, "invalid pattern %q: %v", value, err)
		}
		if len(matches) == 0 {
			return invalid(CodeFileNotFound, field, "no files match %q", value)
		}
		if !hasExt(value, exts) {
			return invalid(CodeWrongFileType, field, "%q must be one of %s", value, strings.Join(exts, ", "))
		}
		return Valid()
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return invalid(CodeFileNotFound, field, "file %q not found", value)
	}
	if fi.IsDir() {
		return invalid(CodeWrongFileType, field, "%q is a directory", value)
	}
	if !hasExt(value, exts) {
		return invalid(CodeWrongFileType, field, "%q must be one of %s", value, strings.Join(exts, ", "))
	}
	return Valid()
}

// requireFile checks a mandatory input file.
func (b *base) requireFile(names []string, exts ...string) Result {
	v := b.str(names, "")
	if v == "" {
		return invalid(CodeMissingField, names[0], "%s is required", names[0])
	}
	return b.checkFile(names[0], v, exts)
}

// optionalFile checks an input file only when one was supplied.
func (b *base) optionalFile(names []string, exts ...string) Result {
	v := b.str(names, "")
	if v == "" {
		return Valid()
	}
	return b.checkFile(names[0], v, exts)
}

// checkContinue validates the checkpoint used by continue mode.
func (b *base) checkContinue() Result {
	return b.checkFile(params.NamesContinueFrom[0], b.str(params.NamesContinueFrom, ""), extStar)
}

// firstInvalid returns the first failed Result, or Valid.
func firstInvalid(results ...Result) Result {
	for _, r := range results {
		if !r.OK {
			return r
		}
	}
	return Valid()
}

func (b *base) positive(names []string, def int) Result {
	if v := b.num(names, def); v <= 0 {
		return invalid(CodeInvalidValue, names[0], "%s must be positive, got %d", names[0], v)
	}
	return Valid()
}

var (
	extStar  = []string{".star"}
	extMap   = []string{".mrc", ".map"}
	extRefs  = []string{".star", ".mrcs", ".mrc"}
	extFasta = []string{".fasta", ".fa", ".txt"}
)

// healpixOrder converts an angular sampling in degrees into RELION's
// HEALPix order: 30° is order 0 and each order halves the step.
func healpixOrder(degrees float64) int {
	if degrees <= 0 {
		return 2
	}
	order := int(math.Round(math.Log2(30 / degrees)))
	return min(max(order, 0), 8)
}

func itoa(n int) string { return strconv.Itoa(n) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

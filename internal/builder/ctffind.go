package builder

import (
	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/params"
)

var (
	namesCtfInput    = inputNames("inputMicrographs", "input_star_mics", "micrographStar")
	namesUseGctf     = []string{"useGctf", "use_gctf"}
	namesGctfExe     = []string{"gctfExecutable", "fn_gctf_exe"}
	namesCtffindExe  = []string{"ctffindExecutable", "fn_ctffind_exe"}
	namesFFTBox      = []string{"fftBoxSize", "box"}
	namesCtfResMin   = []string{"minResolution", "resmin"}
	namesCtfResMax   = []string{"maxResolution", "resmax"}
	namesDefocusMin  = []string{"minDefocus", "dfmin"}
	namesDefocusMax  = []string{"maxDefocus", "dfmax"}
	namesDefocusStep = []string{"defocusStep", "dfstep"}
	namesAstigmatism = []string{"astigmatism", "dast"}
	namesUseGivenPS  = []string{"usePowerSpectraFromMotionCorr", "use_given_ps"}
	namesExhaustive  = []string{"exhaustiveSearch", "slow_search"}
	namesPhasePlate  = []string{"phasePlate", "do_phaseshift"}
	namesPhaseMin    = []string{"phaseMin", "phase_min"}
	namesPhaseMax    = []string{"phaseMax", "phase_max"}
	namesPhaseStep   = []string{"phaseStep", "phase_step"}
)

type ctfFindBuilder struct{ base }

// NewCtfFind builds relion_run_ctffind invocations wrapping CTFFIND4 or,
// on GPUs, Gctf.
func NewCtfFind(bag params.Bag, project model.ProjectContext, opts Options) Builder {
	return &ctfFindBuilder{newBase(bag, project, opts)}
}

func (b *ctfFindBuilder) gctf() bool { return b.yes(namesUseGctf, false) }

func (b *ctfFindBuilder) SupportsGPU() bool { return b.gctf() }
func (b *ctfFindBuilder) SupportsMPI() bool { return true }

func (b *ctfFindBuilder) Validate() Result {
	r := b.requireFile(namesCtfInput, extStar...)
	if !r.OK {
		return r
	}
	if b.num(namesDefocusMin, 5000) >= b.num(namesDefocusMax, 50000) {
		return invalid(CodeInvalidValue, namesDefocusMin[0], "minimum defocus must be below maximum defocus")
	}
	return Valid()
}

func (b *ctfFindBuilder) BuildCommand(outputDir, _ string) []string {
	out := b.out(outputDir)
	cmd := b.executable("relion_run_ctffind", b.SupportsMPI())
	cmd = append(cmd,
		"--i", b.path(b.str(namesCtfInput, "")),
		"--o", out,
		"--Box", itoa(b.num(namesFFTBox, 512)),
		"--ResMin", ftoa(b.flt(namesCtfResMin, 30)),
		"--ResMax", ftoa(b.flt(namesCtfResMax, 5)),
		"--dFMin", itoa(b.num(namesDefocusMin, 5000)),
		"--dFMax", itoa(b.num(namesDefocusMax, 50000)),
		"--FStep", itoa(b.num(namesDefocusStep, 500)),
		"--dAst", itoa(b.num(namesAstigmatism, 100)),
	)
	if b.gctf() {
		cmd = append(cmd, "--use_gctf", "--gctf_exe", b.str(namesGctfExe, "Gctf"), "--ignore_ctffind_params")
		cmd = append(cmd, b.gpuArgs(b.SupportsGPU())...)
	} else {
		cmd = append(cmd, "--ctffind_exe", b.str(namesCtffindExe, "ctffind"), "--ctfWin", "-1", "--is_ctffind4")
		if !b.yes(namesExhaustive, false) {
			cmd = append(cmd, "--fast_search")
		}
		if b.yes(namesUseGivenPS, true) {
			cmd = append(cmd, "--use_given_ps")
		}
	}
	if b.yes(namesPhasePlate, false) {
		cmd = append(cmd,
			"--do_phaseshift",
			"--phase_min", itoa(b.num(namesPhaseMin, 0)),
			"--phase_max", itoa(b.num(namesPhaseMax, 180)),
			"--phase_step", itoa(b.num(namesPhaseStep, 10)),
		)
	}
	cmd = append(cmd, b.extraArgs("relion_run_ctffind")...)
	return append(cmd, "--pipeline_control", out)
}

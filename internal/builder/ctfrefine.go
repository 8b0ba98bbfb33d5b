package builder

import (
	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/params"
)

var (
	namesRefinedParticles = inputNames("inputParticles", "fn_data", "particles")
	namesPostStar         = inputNames("postprocessStar", "fn_post")
	namesFitAniso         = []string{"estimateAnisoMag", "do_aniso_mag"}
	namesFitDefocus       = []string{"fitDefocus", "do_defocus"}
	namesDefocusMode      = []string{"defocusFitMode", "fit_mode"}
	namesFitBeamTilt      = []string{"estimateBeamtilt", "do_tilt"}
	namesFitTrefoil       = []string{"estimateTrefoil", "do_trefoil"}
	namesFit4thOrder      = []string{"estimate4thOrder", "do_4thorder"}
	namesCtfMinRes        = []string{"minResolutionFits", "minres"}
)

type ctfRefineBuilder struct{ base }

// NewCtfRefine builds relion_ctf_refine per-particle CTF and optics
// refinement invocations.
func NewCtfRefine(bag params.Bag, project model.ProjectContext, opts Options) Builder {
	return &ctfRefineBuilder{newBase(bag, project, opts)}
}

func (b *ctfRefineBuilder) SupportsGPU() bool { return false }
func (b *ctfRefineBuilder) SupportsMPI() bool { return true }

func (b *ctfRefineBuilder) Validate() Result {
	r := firstInvalid(
		b.requireFile(namesRefinedParticles, extStar...),
		b.requireFile(namesPostStar, extStar...),
	)
	if !r.OK {
		return r
	}
	if mode := b.str(namesDefocusMode, "fpmfm"); len(mode) != 5 {
		return invalid(CodeInvalidValue, namesDefocusMode[0], "fit mode must have five characters, got %q", mode)
	}
	return Valid()
}

func (b *ctfRefineBuilder) BuildCommand(outputDir, _ string) []string {
	out := b.out(outputDir)
	kmin := ftoa(b.flt(namesCtfMinRes, 30))
	cmd := b.executable("relion_ctf_refine", b.SupportsMPI())
	cmd = append(cmd,
		"--i", b.path(b.str(namesRefinedParticles, "")),
		"--f", b.path(b.str(namesPostStar, "")),
		"--o", out,
	)
	if b.yes(namesFitAniso, false) {
		cmd = append(cmd, "--fit_aniso", "--kmin_mag", kmin)
	}
	if b.yes(namesFitDefocus, false) {
		cmd = append(cmd,
			"--fit_defocus", "--kmin_defocus", kmin,
			"--fit_mode", b.str(namesDefocusMode, "fpmfm"),
		)
	}
	if b.yes(namesFitBeamTilt, false) {
		cmd = append(cmd, "--fit_beamtilt", "--kmin_tilt", kmin)
		if b.yes(namesFitTrefoil, false) {
			cmd = append(cmd, "--odd_aberr_max_n", "3")
		}
	}
	if b.yes(namesFit4thOrder, false) {
		cmd = append(cmd, "--fit_aberr")
	}
	cmd = append(cmd, "--j", itoa(b.threads()))
	cmd = append(cmd, b.extraArgs("relion_ctf_refine")...)
	return append(cmd, "--pipeline_control", out)
}

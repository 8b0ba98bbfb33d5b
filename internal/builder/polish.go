package builder

import (
	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/params"
)

var (
	namesPolishMics     = inputNames("correctedMicrographs", "fn_mic", "micrographs")
	namesPolishTrain    = []string{"trainOptimalParams", "do_param_optim"}
	namesPolishParams   = inputNames("optimisedParamsFile", "opt_params")
	namesPolishSigmaVel = []string{"sigmaVelocity", "opt_sig_vel"}
	namesPolishSigmaDiv = []string{"sigmaDivergence", "opt_sig_div"}
	namesPolishSigmaAcc = []string{"sigmaAcceleration", "opt_sig_acc"}
	namesFirstFrame     = []string{"firstMovieFrame", "first_frame"}
	namesLastFrame      = []string{"lastMovieFrame", "last_frame"}
	namesMinResBfac     = []string{"minResolutionBfac", "minres"}
	namesMaxResBfac     = []string{"maxResolutionBfac", "maxres"}
	namesTrainParticles = []string{"trainingParticles", "nr_particles"}
	namesTrainFraction  = []string{"fractionFourierPixels", "eval_frac"}
)

type polishBuilder struct{ base }

// NewPolish builds Bayesian polishing with relion_motion_refine. The
// parameter-training mode runs single-process.
func NewPolish(bag params.Bag, project model.ProjectContext, opts Options) Builder {
	return &polishBuilder{newBase(bag, project, opts)}
}

func (b *polishBuilder) training() bool { return b.yes(namesPolishTrain, false) }

func (b *polishBuilder) SupportsGPU() bool { return false }
func (b *polishBuilder) SupportsMPI() bool { return !b.training() }

func (b *polishBuilder) Validate() Result {
	r := firstInvalid(
		b.requireFile(namesRefinedParticles, extStar...),
		b.requireFile(namesPostStar, extStar...),
		b.requireFile(namesPolishMics, extStar...),
		b.optionalFile(namesPolishParams, ".txt"),
	)
	if !r.OK {
		return r
	}
	first, last := b.num(namesFirstFrame, 1), b.num(namesLastFrame, -1)
	if first < 1 {
		return invalid(CodeInvalidValue, namesFirstFrame[0], "first frame must be at least 1, got %d", first)
	}
	if last > 0 && last < first {
		return invalid(CodeInvalidValue, namesLastFrame[0], "last frame %d precedes first frame %d", last, first)
	}
	return Valid()
}

func (b *polishBuilder) BuildCommand(outputDir, _ string) []string {
	out := b.out(outputDir)
	cmd := b.executable("relion_motion_refine", b.SupportsMPI())
	cmd = append(cmd,
		"--i", b.path(b.str(namesRefinedParticles, "")),
		"--f", b.path(b.str(namesPostStar, "")),
		"--corr_mic", b.path(b.str(namesPolishMics, "")),
		"--first_frame", itoa(b.num(namesFirstFrame, 1)),
		"--last_frame", itoa(b.num(namesLastFrame, -1)),
		"--o", out,
	)
	if b.training() {
		cmd = append(cmd,
			"--min_p", itoa(b.num(namesTrainParticles, 10000)),
			"--eval_frac", ftoa(b.flt(namesTrainFraction, 0.5)),
			"--align_frac", ftoa(b.flt(namesTrainFraction, 0.5)),
			"--params3",
		)
	} else {
		if p := b.str(namesPolishParams, ""); p != "" {
			cmd = append(cmd, "--params_file", b.path(p))
		} else {
			cmd = append(cmd,
				"--s_vel", ftoa(b.flt(namesPolishSigmaVel, 0.2)),
				"--s_div", ftoa(b.flt(namesPolishSigmaDiv, 5000)),
				"--s_acc", ftoa(b.flt(namesPolishSigmaAcc, 2)),
			)
		}
		cmd = append(cmd,
			"--combine_frames",
			"--bfac_minfreq", ftoa(b.flt(namesMinResBfac, 20)),
			"--bfac_maxfreq", ftoa(b.flt(namesMaxResBfac, -1)),
		)
		if b.yes(namesFloat16, true) {
			cmd = append(cmd, "--float16")
		}
	}
	cmd = append(cmd, "--j", itoa(b.threads()))
	cmd = append(cmd, b.extraArgs("relion_motion_refine")...)
	return append(cmd, "--pipeline_control", out)
}

package builder

import (
	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/params"
)

var (
	namesMotionInput      = inputNames("inputMovies", "inputStarMovies", "input_star_mics")
	namesMotionUseOwn     = []string{"useRelionImplementation", "useOwnImplementation", "do_own_motioncor"}
	namesMotionCor2Exe    = []string{"motioncor2Executable", "fn_motioncor2_exe"}
	namesFirstFrameSum    = []string{"firstFrame", "first_frame_sum"}
	namesLastFrameSum     = []string{"lastFrame", "last_frame_sum"}
	namesDosePerFrame     = []string{"dosePerFrame", "dose_per_frame"}
	namesPreExposure      = []string{"preExposure", "pre_exposure"}
	namesPatchesX         = []string{"patchesX", "patch_x"}
	namesPatchesY         = []string{"patchesY", "patch_y"}
	namesMotionBfactor    = []string{"bfactor", "bfac"}
	namesBinningFactor    = []string{"binningFactor", "bin_factor"}
	namesGainRef          = inputNames("gainReference", "fn_gain_ref")
	namesGainRot          = []string{"gainRotation", "gain_rot"}
	namesGainFlip         = []string{"gainFlip", "gain_flip"}
	namesDefectFile       = inputNames("defectFile", "fn_defect")
	namesDoseWeighting    = []string{"doseWeighting", "do_dose_weighting"}
	namesEERGrouping      = []string{"eerFractionation", "eer_grouping"}
	namesSavePowerSpectra = []string{"savePowerSpectra", "do_save_ps"}
	namesGroupForPS       = []string{"sumPowerSpectra", "group_for_ps"}
	namesFloat16          = []string{"float16", "do_float16", "writeFloat16"}
)

type motionCorrBuilder struct{ base }

// NewMotionCorr builds relion_run_motioncorr invocations using either
// RELION's own implementation (CPU) or MotionCor2 (GPU).
func NewMotionCorr(bag params.Bag, project model.ProjectContext, opts Options) Builder {
	return &motionCorrBuilder{newBase(bag, project, opts)}
}

func (b *motionCorrBuilder) useOwn() bool { return b.yes(namesMotionUseOwn, true) }

func (b *motionCorrBuilder) SupportsGPU() bool { return !b.useOwn() }
func (b *motionCorrBuilder) SupportsMPI() bool { return true }

func (b *motionCorrBuilder) Validate() Result {
	return firstInvalid(
		b.requireFile(namesMotionInput, extStar...),
		b.optionalFile(namesGainRef, ".mrc", ".tif", ".tiff", ".gain"),
		b.optionalFile(namesDefectFile),
		b.positive(namesBinningFactor, 1),
	)
}

func (b *motionCorrBuilder) BuildCommand(outputDir, _ string) []string {
	out := b.out(outputDir)
	cmd := b.executable("relion_run_motioncorr", b.SupportsMPI())
	cmd = append(cmd,
		"--i", b.path(b.str(namesMotionInput, "")),
		"--o", out,
		"--first_frame_sum", itoa(b.num(namesFirstFrameSum, 1)),
		"--last_frame_sum", itoa(b.num(namesLastFrameSum, -1)),
	)
	if b.useOwn() {
		cmd = append(cmd, "--use_own", "--j", itoa(b.threads()))
	} else {
		cmd = append(cmd, "--use_motioncor2", "--motioncor2_exe", b.str(namesMotionCor2Exe, "MotionCor2"))
		if b.gpuRequested(b.SupportsGPU()) {
			cmd = append(cmd, "--gpu", b.str(params.NamesGPUIDs, "0"))
		}
	}
	cmd = append(cmd,
		"--bin_factor", itoa(b.num(namesBinningFactor, 1)),
		"--bfactor", itoa(b.num(namesMotionBfactor, 150)),
		"--dose_per_frame", ftoa(b.flt(namesDosePerFrame, 1)),
		"--preexposure", ftoa(b.flt(namesPreExposure, 0)),
		"--patch_x", itoa(b.num(namesPatchesX, 1)),
		"--patch_y", itoa(b.num(namesPatchesY, 1)),
		"--eer_grouping", itoa(b.num(namesEERGrouping, 32)),
	)
	if gain := b.str(namesGainRef, ""); gain != "" {
		cmd = append(cmd,
			"--gainref", b.path(gain),
			"--gain_rot", itoa(b.num(namesGainRot, 0)),
			"--gain_flip", itoa(b.num(namesGainFlip, 0)),
		)
	}
	if defect := b.str(namesDefectFile, ""); defect != "" {
		cmd = append(cmd, "--defect_file", b.path(defect))
	}
	if b.yes(namesDoseWeighting, true) {
		cmd = append(cmd, "--dose_weighting")
	}
	if b.yes(namesSavePowerSpectra, true) {
		cmd = append(cmd, "--grouping_for_ps", itoa(b.num(namesGroupForPS, 3)))
	}
	if b.yes(namesFloat16, false) {
		cmd = append(cmd, "--float16")
	}
	cmd = append(cmd, b.extraArgs("relion_run_motioncorr")...)
	return append(cmd, "--pipeline_control", out)
}

package builder

import (
	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/params"
)

var (
	namesSubtractOptimiser = inputNames("optimiserStar", "fn_opt", "refinement")
	namesSubtractMask      = inputNames("maskOfSignalToKeep", "fn_mask", "mask")
	namesSubtractData      = inputNames("inputParticles", "fn_data")
	namesRevert            = []string{"revertToOriginal", "do_fliplabel"}
	namesRevertStar        = inputNames("revertParticles", "fn_fliplabel")
	namesNewBox            = []string{"newBoxSize", "new_box"}
	namesCenterOnMask      = []string{"centerOnMask", "do_center_mask"}
)

type subtractBuilder struct{ base }

// NewSubtract builds relion_particle_subtract invocations, including the
// revert-to-original mode.
func NewSubtract(bag params.Bag, project model.ProjectContext, opts Options) Builder {
	return &subtractBuilder{newBase(bag, project, opts)}
}

func (b *subtractBuilder) SupportsGPU() bool { return false }
func (b *subtractBuilder) SupportsMPI() bool { return true }

func (b *subtractBuilder) revert() bool { return b.yes(namesRevert, false) }

func (b *subtractBuilder) Validate() Result {
	if b.revert() {
		return b.requireFile(namesRevertStar, extStar...)
	}
	r := firstInvalid(
		b.requireFile(namesSubtractOptimiser, extStar...),
		b.requireFile(namesSubtractMask, extMap...),
		b.optionalFile(namesSubtractData, extStar...),
	)
	if !r.OK {
		return r
	}
	if b.has(namesNewBox) {
		if box := b.num(namesNewBox, 0); box <= 0 || box%2 != 0 {
			return invalid(CodeInvalidValue, namesNewBox[0], "new box size must be a positive even number, got %d", box)
		}
	}
	return Valid()
}

func (b *subtractBuilder) BuildCommand(outputDir, _ string) []string {
	out := b.out(outputDir)
	cmd := b.executable("relion_particle_subtract", b.SupportsMPI())
	if b.revert() {
		cmd = append(cmd, "--revert", b.path(b.str(namesRevertStar, "")), "--o", out)
	} else {
		cmd = append(cmd,
			"--i", b.path(b.str(namesSubtractOptimiser, "")),
			"--mask", b.path(b.str(namesSubtractMask, "")),
			"--o", out,
		)
		if data := b.str(namesSubtractData, ""); data != "" {
			cmd = append(cmd, "--data", b.path(data))
		}
		if b.yes(namesCenterOnMask, false) {
			cmd = append(cmd, "--recenter_on_mask")
		}
		if b.has(namesNewBox) {
			cmd = append(cmd, "--new_box", itoa(b.num(namesNewBox, 0)))
		}
		if b.yes(namesFloat16, true) {
			cmd = append(cmd, "--float16")
		}
	}
	cmd = append(cmd, b.extraArgs("relion_particle_subtract")...)
	return append(cmd, "--pipeline_control", out)
}

package builder

import (
	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/params"
)

var (
	namesMaskInput     = inputNames("inputMap", "fn_in", "map")
	namesMaskLowpass   = []string{"lowpassFilter", "lowpass_filter"}
	namesMaskAngpix    = []string{"pixelSize", "angpix"}
	namesMaskThreshold = []string{"initialThreshold", "inimask_threshold"}
	namesMaskExtend    = []string{"extendBinaryMask", "extend_inimask"}
	namesMaskSoftEdge  = []string{"softEdgeWidth", "width_mask_edge"}
	namesMaskInvert    = []string{"invert", "do_invert"}
)

type maskCreateBuilder struct{ base }

// NewMaskCreate builds relion_mask_create invocations.
func NewMaskCreate(bag params.Bag, project model.ProjectContext, opts Options) Builder {
	return &maskCreateBuilder{newBase(bag, project, opts)}
}

func (b *maskCreateBuilder) SupportsGPU() bool { return false }
func (b *maskCreateBuilder) SupportsMPI() bool { return false }

func (b *maskCreateBuilder) Validate() Result {
	if r := b.requireFile(namesMaskInput, extMap...); !r.OK {
		return r
	}
	if w := b.num(namesMaskSoftEdge, 6); w < 0 {
		return invalid(CodeInvalidValue, namesMaskSoftEdge[0], "soft edge width must not be negative, got %d", w)
	}
	return Valid()
}

func (b *maskCreateBuilder) BuildCommand(outputDir, _ string) []string {
	out := b.out(outputDir)
	cmd := []string{
		"relion_mask_create",
		"--i", b.path(b.str(namesMaskInput, "")),
		"--o", out + "mask.mrc",
		"--lowpass", ftoa(b.flt(namesMaskLowpass, 15)),
		"--angpix", ftoa(b.flt(namesMaskAngpix, -1)),
		"--ini_threshold", ftoa(b.flt(namesMaskThreshold, 0.004)),
		"--extend_inimask", itoa(b.num(namesMaskExtend, 3)),
		"--width_soft_edge", itoa(b.num(namesMaskSoftEdge, 6)),
	}
	if b.yes(namesMaskInvert, false) {
		cmd = append(cmd, "--invert")
	}
	cmd = append(cmd, "--j", itoa(b.threads()))
	cmd = append(cmd, b.extraArgs("relion_mask_create")...)
	return append(cmd, "--pipeline_control", out)
}

package builder

import (
	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/params"
)

var (
	namesCenterClasses = []string{"centerClassAverages", "do_center"}
	namesPsiStep       = []string{"inPlaneAngularSampling", "psi_sampling"}
	namesUseVDAM       = []string{"useVdam", "do_grad"}
	namesVDAMBatches   = []string{"vdamMiniBatches", "nr_iter_grad"}
)

type class2DBuilder struct{ base }

// NewClass2D builds relion_refine 2D classification invocations, either
// expectation-maximisation or VDAM.
func NewClass2D(bag params.Bag, project model.ProjectContext, opts Options) Builder {
	return &class2DBuilder{newBase(bag, project, opts)}
}

func (b *class2DBuilder) vdam() bool { return b.yes(namesUseVDAM, false) }

func (b *class2DBuilder) SupportsGPU() bool { return true }

// SupportsMPI is false for VDAM, which RELION runs single-process.
func (b *class2DBuilder) SupportsMPI() bool { return !b.vdam() }

func (b *class2DBuilder) Validate() Result {
	if r := b.validateRefineInputs(false); !r.OK || b.continuing() {
		return r
	}
	return b.positive(namesNumClasses, 50)
}

func (b *class2DBuilder) BuildCommand(outputDir, _ string) []string {
	out := b.out(outputDir)
	cmd := b.executable("relion_refine", b.SupportsMPI())
	cmd = append(cmd, "--o", out+"run")
	if b.continuing() {
		cmd = append(cmd, "--continue", b.continueFile())
		cmd = b.refineCommon(cmd, 2)
		return b.refineTail(cmd, "relion_refine", out, b.SupportsGPU())
	}
	cmd = append(cmd, "--i", b.path(b.str(namesRefineParticles, "")))
	if b.vdam() {
		cmd = append(cmd,
			"--grad",
			"--class_inactivity_threshold", "0.1",
			"--grad_write_iter", "10",
			"--iter", itoa(b.num(namesVDAMBatches, 200)),
		)
	} else {
		cmd = append(cmd, "--iter", itoa(b.num(namesIterations, 25)))
	}
	cmd = b.refineCommon(cmd, 2)
	cmd = b.refineModel(cmd, 2)
	cmd = append(cmd, "--K", itoa(b.num(namesNumClasses, 50)))
	cmd = b.refineMasking(cmd)
	if b.yes(namesCenterClasses, true) {
		cmd = append(cmd, "--center_classes")
	}
	cmd = append(cmd,
		"--oversampling", "1",
		"--psi_step", ftoa(2*b.flt(namesPsiStep, 6)),
		"--offset_range", ftoa(b.flt(namesOffsetRange, 5)),
		"--offset_step", ftoa(2*b.flt(namesOffsetStep, 1)),
		"--norm", "--scale",
	)
	return b.refineTail(cmd, "relion_refine", out, b.SupportsGPU())
}

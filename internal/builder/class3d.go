package builder

import (
	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/params"
)

type class3DBuilder struct{ base }

// NewClass3D builds relion_refine 3D classification invocations.
func NewClass3D(bag params.Bag, project model.ProjectContext, opts Options) Builder {
	return &class3DBuilder{newBase(bag, project, opts)}
}

func (b *class3DBuilder) SupportsGPU() bool { return true }
func (b *class3DBuilder) SupportsMPI() bool { return true }

func (b *class3DBuilder) Validate() Result {
	if r := b.validateRefineInputs(true); !r.OK || b.continuing() {
		return r
	}
	return b.positive(namesNumClasses, 4)
}

func (b *class3DBuilder) BuildCommand(outputDir, _ string) []string {
	out := b.out(outputDir)
	cmd := b.executable("relion_refine", b.SupportsMPI())
	cmd = append(cmd, "--o", out+"run")
	if b.continuing() {
		cmd = append(cmd, "--continue", b.continueFile(), "--iter", itoa(b.num(namesIterations, 25)))
		cmd = b.refineCommon(cmd, 2)
		return b.refineTail(cmd, "relion_refine", out, b.SupportsGPU())
	}
	cmd = append(cmd,
		"--i", b.path(b.str(namesRefineParticles, "")),
		"--ref", b.path(b.str(namesReference, "")),
	)
	if !b.yes(namesRefGreyscale, false) {
		cmd = append(cmd, "--firstiter_cc")
	}
	cmd = append(cmd,
		"--ini_high", ftoa(b.flt(namesIniHigh, 60)),
		"--iter", itoa(b.num(namesIterations, 25)),
	)
	if b.yes(namesFastSubsets, false) {
		cmd = append(cmd, "--fast_subsets")
	}
	cmd = b.refineCommon(cmd, 2)
	cmd = b.refineModel(cmd, 4)
	cmd = append(cmd, "--K", itoa(b.num(namesNumClasses, 4)))
	cmd = b.refineMasking(cmd)
	cmd = append(cmd,
		"--oversampling", "1",
		"--healpix_order", itoa(healpixOrder(b.flt(namesAngularSampling, 7.5))),
		"--offset_range", ftoa(b.flt(namesOffsetRange, 5)),
		"--offset_step", ftoa(2*b.flt(namesOffsetStep, 1)),
	)
	if b.yes(namesLocalSearches, false) {
		cmd = append(cmd, "--sigma_ang", ftoa(b.flt(namesLocalRange, 5)/3))
	}
	cmd = append(cmd, "--sym", b.str(namesSymmetry, "C1"), "--norm", "--scale")
	if b.yes(namesBlush, false) {
		cmd = append(cmd, "--blush")
	}
	return b.refineTail(cmd, "relion_refine", out, b.SupportsGPU())
}

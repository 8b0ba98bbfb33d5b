package builder

import (
	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/params"
)

var namesSolventFSC = []string{"useSolventFlattenedFscs", "do_solvent_fsc"}

type refine3DBuilder struct{ base }

// NewRefine3D builds gold-standard auto-refinement invocations.
func NewRefine3D(bag params.Bag, project model.ProjectContext, opts Options) Builder {
	return &refine3DBuilder{newBase(bag, project, opts)}
}

func (b *refine3DBuilder) SupportsGPU() bool { return true }
func (b *refine3DBuilder) SupportsMPI() bool { return true }

func (b *refine3DBuilder) Validate() Result {
	return b.validateRefineInputs(true)
}

func (b *refine3DBuilder) BuildCommand(outputDir, _ string) []string {
	out := b.out(outputDir)
	cmd := b.executable("relion_refine", b.SupportsMPI())
	cmd = append(cmd, "--o", out+"run")
	if b.continuing() {
		cmd = append(cmd, "--continue", b.continueFile())
		cmd = b.refineCommon(cmd, 2)
		return b.refineTail(cmd, "relion_refine", out, b.SupportsGPU())
	}
	cmd = append(cmd,
		"--auto_refine", "--split_random_halves",
		"--i", b.path(b.str(namesRefineParticles, "")),
		"--ref", b.path(b.str(namesReference, "")),
	)
	if !b.yes(namesRefGreyscale, false) {
		cmd = append(cmd, "--firstiter_cc")
	}
	cmd = append(cmd, "--ini_high", ftoa(b.flt(namesIniHigh, 60)))
	cmd = b.refineCommon(cmd, 2)
	cmd = b.refineModel(cmd, 1)
	cmd = b.refineMasking(cmd)
	if b.yes(namesSolventFSC, false) {
		cmd = append(cmd, "--solvent_correct_fsc")
	}
	cmd = append(cmd,
		"--oversampling", "1",
		"--healpix_order", itoa(healpixOrder(b.flt(namesAngularSampling, 7.5))),
		"--auto_local_healpix_order", itoa(healpixOrder(b.flt(namesLocalSampling, 1.8))),
		"--offset_range", ftoa(b.flt(namesOffsetRange, 5)),
		"--offset_step", ftoa(2*b.flt(namesOffsetStep, 1)),
		"--sym", b.str(namesSymmetry, "C1"),
		"--low_resol_join_halves", "40",
		"--norm", "--scale",
	)
	if b.yes(namesBlush, false) {
		cmd = append(cmd, "--blush")
	}
	return b.refineTail(cmd, "relion_refine", out, b.SupportsGPU())
}

package builder

import (
	"strings"

	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/params"
)

var namesInitialBatches = []string{"vdamMiniBatches", "nr_iter"}

type initialModelBuilder struct{ base }

// NewInitialModel builds de novo 3D initial model generation with VDAM.
// Symmetry is imposed afterwards by relion_align_symmetry.
func NewInitialModel(bag params.Bag, project model.ProjectContext, opts Options) Builder {
	return &initialModelBuilder{newBase(bag, project, opts)}
}

func (b *initialModelBuilder) SupportsGPU() bool { return true }
func (b *initialModelBuilder) SupportsMPI() bool { return false }

func (b *initialModelBuilder) Validate() Result {
	if r := b.validateRefineInputs(false); !r.OK || b.continuing() {
		return r
	}
	return b.positive(namesNumClasses, 1)
}

func (b *initialModelBuilder) symmetry() string {
	return strings.ToUpper(b.str(namesSymmetry, "C1"))
}

func (b *initialModelBuilder) BuildCommand(outputDir, _ string) []string {
	out := b.out(outputDir)
	cmd := []string{"relion_refine", "--o", out + "run"}
	if b.continuing() {
		cmd = append(cmd, "--continue", b.continueFile())
		cmd = b.refineCommon(cmd, 1)
		return b.refineTail(cmd, "relion_refine", out, b.SupportsGPU())
	}
	cmd = append(cmd,
		"--iter", itoa(b.num(namesInitialBatches, 200)),
		"--grad", "--denovo_3dref",
		"--i", b.path(b.str(namesRefineParticles, "")),
	)
	cmd = b.refineCommon(cmd, 1)
	cmd = b.refineModel(cmd, 4)
	cmd = append(cmd, "--K", itoa(b.num(namesNumClasses, 1)))
	cmd = b.refineMasking(cmd)
	cmd = append(cmd,
		"--oversampling", "1",
		"--healpix_order", "1",
		"--offset_range", ftoa(b.flt(namesOffsetRange, 6)),
		"--offset_step", ftoa(2*b.flt(namesOffsetStep, 2)),
		"--auto_sampling",
	)
	if sym := b.symmetry(); sym != "C1" {
		cmd = append(cmd, "--sym", "C1")
	}
	return b.refineTail(cmd, "relion_refine", out, b.SupportsGPU())
}

// PostCommand aligns the C1 model to the requested symmetry axes.
func (b *initialModelBuilder) PostCommand(outputDir string) []string {
	sym := b.symmetry()
	if sym == "C1" || b.continuing() {
		return nil
	}
	out := b.out(outputDir)
	return []string{
		"relion_align_symmetry",
		"--i", out + "run_it" + iterSuffix(b.num(namesInitialBatches, 200)) + "_model.star",
		"--o", out + "initial_model.mrc",
		"--sym", sym,
		"--apply_sym", "--select_largest_class",
		"--pipeline_control", out,
	}
}

// iterSuffix zero-pads an iteration number the way relion_refine names
// its per-iteration files.
func iterSuffix(n int) string {
	s := itoa(n)
	for len(s) < 3 {
		s = "0" + s
	}
	return s
}

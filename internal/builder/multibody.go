package builder

import (
	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/params"
)

var (
	namesBodyStar        = inputNames("bodyStarFile", "fn_bodies", "bodies")
	namesMultiOptimiser  = inputNames("refinementOptimiser", "fn_in", "consensusRefinement")
	namesReconstructSubs = []string{"reconstructSubtracted", "do_subtracted_bodies"}
	namesFlexAnalysis    = []string{"runFlexibilityAnalysis", "do_analyse"}
	namesNumEigen        = []string{"numberOfEigenvectors", "nr_movies"}
	namesSelectEigen     = []string{"selectEigenvalue", "do_select"}
	namesEigenSelect     = []string{"eigenvalueIndex", "select_eigenval"}
	namesEigenMin        = []string{"eigenvalueMin", "eigenval_min"}
	namesEigenMax        = []string{"eigenvalueMax", "eigenval_max"}
)

type multiBodyBuilder struct{ base }

// NewMultiBody builds multi-body refinement; the optional flexibility
// analysis runs as a post command.
func NewMultiBody(bag params.Bag, project model.ProjectContext, opts Options) Builder {
	return &multiBodyBuilder{newBase(bag, project, opts)}
}

func (b *multiBodyBuilder) SupportsGPU() bool { return true }
func (b *multiBodyBuilder) SupportsMPI() bool { return true }

func (b *multiBodyBuilder) Validate() Result {
	if b.continuing() {
		return b.checkContinue()
	}
	return firstInvalid(
		b.requireFile(namesMultiOptimiser, extStar...),
		b.requireFile(namesBodyStar, extStar...),
	)
}

func (b *multiBodyBuilder) BuildCommand(outputDir, _ string) []string {
	out := b.out(outputDir)
	cmd := b.executable("relion_refine", b.SupportsMPI())
	if b.continuing() {
		cmd = append(cmd, "--continue", b.continueFile(), "--o", out+"run")
	} else {
		cmd = append(cmd,
			"--continue", b.path(b.str(namesMultiOptimiser, "")),
			"--o", out+"run",
			"--solvent_correct_fsc",
			"--multibody_masks", b.path(b.str(namesBodyStar, "")),
			"--oversampling", "1",
			"--healpix_order", itoa(healpixOrder(b.flt(namesAngularSampling, 1.8))),
			"--auto_local_healpix_order", itoa(healpixOrder(b.flt(namesAngularSampling, 1.8))),
			"--offset_range", ftoa(b.flt(namesOffsetRange, 3)),
			"--offset_step", ftoa(2*b.flt(namesOffsetStep, 0.75)),
		)
		if b.yes(namesReconstructSubs, true) {
			cmd = append(cmd, "--reconstruct_subtracted_bodies")
		}
	}
	cmd = b.refineCommon(cmd, 2)
	return b.refineTail(cmd, "relion_refine", out, b.SupportsGPU())
}

// PostCommand runs relion_flex_analyse over the finished refinement.
func (b *multiBodyBuilder) PostCommand(outputDir string) []string {
	if !b.yes(namesFlexAnalysis, false) {
		return nil
	}
	out := b.out(outputDir)
	cmd := []string{
		"relion_flex_analyse",
		"--PCA_orient",
		"--model", out + "run_model.star",
		"--data", out + "run_data.star",
		"--bodies", b.path(b.str(namesBodyStar, "")),
		"--o", out + "analyse",
		"--do_maps",
		"--k", itoa(b.num(namesNumEigen, 3)),
	}
	if b.yes(namesSelectEigen, false) {
		cmd = append(cmd,
			"--select_eigenvalue", itoa(b.num(namesEigenSelect, 1)),
			"--select_eigenvalue_min", ftoa(b.flt(namesEigenMin, -999)),
			"--select_eigenvalue_max", ftoa(b.flt(namesEigenMax, 999)),
			"--write_pca_projections",
		)
	}
	return append(cmd, "--pipeline_control", out)
}

package builder

import (
	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/params"
)

var (
	namesDynaParticles  = inputNames("inputParticles", "fn_star", "particles")
	namesDynaMap        = inputNames("consensusMap", "fn_map", "initialModel")
	namesDynaGaussians  = []string{"numberOfGaussians", "nr_gaussians"}
	namesDynaPreload    = []string{"preloadImages", "do_preload"}
	namesDynaCheckpoint = inputNames("checkpointFile", "fn_checkpoint")
	namesDynaHalfSet    = []string{"halfSet", "halfset"}
)

type dynaMightBuilder struct{ base }

// NewDynaMight builds DynaMight flexibility estimation through RELION's
// python wrapper.
func NewDynaMight(bag params.Bag, project model.ProjectContext, opts Options) Builder {
	return &dynaMightBuilder{newBase(bag, project, opts)}
}

func (b *dynaMightBuilder) SupportsGPU() bool { return true }
func (b *dynaMightBuilder) SupportsMPI() bool { return false }

func (b *dynaMightBuilder) Validate() Result {
	r := firstInvalid(
		b.requireFile(namesDynaParticles, extStar...),
		b.requireFile(namesDynaMap, extMap...),
		b.optionalFile(namesDynaCheckpoint, ".pth"),
		b.positive(namesDynaGaussians, 10000),
	)
	if !r.OK {
		return r
	}
	if h := b.num(namesDynaHalfSet, 1); h != 1 && h != 2 {
		return invalid(CodeInvalidValue, namesDynaHalfSet[0], "half set must be 1 or 2, got %d", h)
	}
	return Valid()
}

func (b *dynaMightBuilder) BuildCommand(outputDir, _ string) []string {
	out := b.out(outputDir)
	cmd := []string{
		"relion_python_dynamight",
		"--refinement-star-file", b.path(b.str(namesDynaParticles, "")),
		"--output-directory", out,
		"--initial-model", b.path(b.str(namesDynaMap, "")),
		"--n-gaussians", itoa(b.num(namesDynaGaussians, 10000)),
		"--n-threads", itoa(b.threads()),
	}
	if b.yes(namesDynaPreload, false) {
		cmd = append(cmd, "--preload-images")
	}
	if b.gpuRequested(b.SupportsGPU()) {
		cmd = append(cmd, "--gpu-id", b.device())
	}
	if cp := b.str(namesDynaCheckpoint, ""); cp != "" {
		cmd = append(cmd, "--checkpoint-file", b.path(cp), "--half-set", itoa(b.num(namesDynaHalfSet, 1)))
	}
	cmd = append(cmd, b.extraArgs("relion_python_dynamight")...)
	return append(cmd, "--pipeline_control", out)
}

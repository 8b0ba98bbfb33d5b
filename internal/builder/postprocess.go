package builder

import (
	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/params"
)

var (
	namesHalfMap1     = inputNames("halfMap1", "fn_in", "half1")
	namesHalfMap2     = inputNames("halfMap2", "fn_in2", "half2")
	namesSolventMask  = inputNames("solventMask", "fn_mask", "mask")
	namesPostAngpix   = []string{"calibratedPixelSize", "angpix", "pixelSize"}
	namesMTF          = inputNames("mtfFile", "fn_mtf", "mtf")
	namesMTFAngpix    = []string{"mtfPixelSize", "mtf_angpix"}
	namesAutoBfactor  = []string{"autoBfactor", "do_auto_bfac"}
	namesAutoBLowres  = []string{"autoBfactorLowres", "autob_lowres"}
	namesAdhocBfactor = []string{"adhocBfactor", "adhoc_bfac"}
	namesSkipFSCW     = []string{"skipFscWeighting", "do_skip_fsc_weighting"}
	namesLowPass      = []string{"lowPass", "low_pass"}
)

type postProcessBuilder struct{ base }

// NewPostProcess builds relion_postprocess sharpening invocations. The
// second half map is derived from the first when omitted.
func NewPostProcess(bag params.Bag, project model.ProjectContext, opts Options) Builder {
	return &postProcessBuilder{newBase(bag, project, opts)}
}

func (b *postProcessBuilder) SupportsGPU() bool { return false }
func (b *postProcessBuilder) SupportsMPI() bool { return false }

func (b *postProcessBuilder) Validate() Result {
	return firstInvalid(
		b.completeHalfMaps(namesHalfMap1, namesHalfMap2),
		b.requireFile(namesSolventMask, extMap...),
		b.optionalFile(namesMTF, extStar...),
	)
}

func (b *postProcessBuilder) BuildCommand(outputDir, _ string) []string {
	out := b.out(outputDir)
	cmd := []string{
		"relion_postprocess",
		"--mask", b.path(b.str(namesSolventMask, "")),
		"--i", b.path(b.str(namesHalfMap1, "")),
		"--i2", b.path(b.str(namesHalfMap2, "")),
		"--o", out + "postprocess",
		"--angpix", ftoa(b.flt(namesPostAngpix, -1)),
	}
	if mtf := b.str(namesMTF, ""); mtf != "" {
		cmd = append(cmd, "--mtf", b.path(mtf), "--mtf_angpix", ftoa(b.flt(namesMTFAngpix, 1)))
	}
	if b.yes(namesAutoBfactor, true) {
		cmd = append(cmd, "--auto_bfac", "--autob_lowres", ftoa(b.flt(namesAutoBLowres, 10)))
	} else {
		cmd = append(cmd, "--adhoc_bfac", ftoa(b.flt(namesAdhocBfactor, -1000)))
	}
	if b.yes(namesSkipFSCW, false) {
		cmd = append(cmd, "--skip_fsc_weighting", "--low_pass", ftoa(b.flt(namesLowPass, 5)))
	}
	cmd = append(cmd, b.extraArgs("relion_postprocess")...)
	return append(cmd, "--pipeline_control", out)
}

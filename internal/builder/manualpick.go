package builder

import (
	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/params"
)

var (
	namesManualInput    = inputNames("inputMicrographs", "fn_in", "micrographStar")
	namesPickDiameter   = []string{"particleDiameter", "diameter"}
	namesMicScale       = []string{"scale", "micscale"}
	namesSigmaContrast  = []string{"sigmaContrast", "sigma_contrast"}
	namesManualLowpass  = []string{"lowpass", "lowpass_manualpick"}
	namesManualHighpass = []string{"highpass", "highpass_manualpick"}
	namesManualAngpix   = []string{"pixelSize", "angpix"}
)

type manualPickBuilder struct{ base }

// NewManualPick builds relion_manualpick invocations.
func NewManualPick(bag params.Bag, project model.ProjectContext, opts Options) Builder {
	return &manualPickBuilder{newBase(bag, project, opts)}
}

func (b *manualPickBuilder) SupportsGPU() bool { return false }
func (b *manualPickBuilder) SupportsMPI() bool { return false }

func (b *manualPickBuilder) Validate() Result {
	return firstInvalid(
		b.requireFile(namesManualInput, extStar...),
		b.positive(namesPickDiameter, 100),
	)
}

func (b *manualPickBuilder) BuildCommand(outputDir, _ string) []string {
	out := b.out(outputDir)
	cmd := b.executable("relion_manualpick", false)
	cmd = append(cmd,
		"--i", b.path(b.str(namesManualInput, "")),
		"--odir", out,
		"--pickname", "manualpick",
		"--allow_save",
		"--fast_save",
		"--selection", out+"micrographs_selected.star",
		"--scale", ftoa(b.flt(namesMicScale, 0.2)),
		"--sigma_contrast", ftoa(b.flt(namesSigmaContrast, 3)),
		"--black", "0",
		"--white", "0",
		"--lowpass", ftoa(b.flt(namesManualLowpass, 20)),
		"--highpass", ftoa(b.flt(namesManualHighpass, -1)),
		"--angpix", ftoa(b.flt(namesManualAngpix, -1)),
		"--ctf_scale", "1",
		"--particle_diameter", itoa(b.num(namesPickDiameter, 100)),
	)
	cmd = append(cmd, b.extraArgs("relion_manualpick")...)
	return append(cmd, "--pipeline_control", out)
}

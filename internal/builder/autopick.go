package builder

import (
	"strings"

	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/params"
)

var (
	namesPickInput      = inputNames("inputMicrographs", "fn_input_autopick", "micrographStar")
	namesPickMethod     = []string{"pickingMethod", "autopickMethod", "method"}
	namesLoGDiamMin     = []string{"minDiameter", "log_diam_min"}
	namesLoGDiamMax     = []string{"maxDiameter", "log_diam_max"}
	namesLoGAdjust      = []string{"logThreshold", "log_adjust_thr"}
	namesLoGUpper       = []string{"logUpperThreshold", "log_upper_thr"}
	namesPickRefs       = inputNames("templateReferences", "fn_refs_autopick", "references")
	namesPsiSampling    = []string{"psiSampling", "psi_sampling_autopick"}
	namesPickThreshold  = []string{"pickingThreshold", "threshold_autopick"}
	namesMinDistance    = []string{"minInterParticleDistance", "mindist_autopick"}
	namesMaxStddevNoise = []string{"maxStddevNoise", "maxstddevnoise_autopick"}
	namesPickLowpass    = []string{"lowpass", "lowpass_autopick"}
	namesTopazExe       = []string{"topazExecutable", "fn_topaz_exe"}
	namesTopazDiameter  = []string{"topazParticleDiameter", "topaz_particle_diameter"}
	namesTopazModel     = inputNames("topazModel", "topaz_model")
)

const (
	pickLoG      = "log"
	pickTemplate = "template"
	pickTopaz    = "topaz"
)

type autoPickBuilder struct{ base }

// NewAutoPick builds relion_autopick invocations. The Laplacian-of-Gaussian
// picker is CPU only; template matching and Topaz can use GPUs.
func NewAutoPick(bag params.Bag, project model.ProjectContext, opts Options) Builder {
	return &autoPickBuilder{newBase(bag, project, opts)}
}

func (b *autoPickBuilder) method() string {
	return strings.ToLower(b.str(namesPickMethod, pickLoG))
}

func (b *autoPickBuilder) SupportsGPU() bool { return b.method() != pickLoG }
func (b *autoPickBuilder) SupportsMPI() bool { return true }

func (b *autoPickBuilder) Validate() Result {
	if r := b.requireFile(namesPickInput, extStar...); !r.OK {
		return r
	}
	switch b.method() {
	case pickLoG:
		if b.num(namesLoGDiamMin, 200) > b.num(namesLoGDiamMax, 250) {
			return invalid(CodeInvalidValue, namesLoGDiamMin[0], "minimum diameter exceeds maximum diameter")
		}
		return Valid()
	case pickTemplate:
		return b.requireFile(namesPickRefs, extRefs...)
	case pickTopaz:
		return b.optionalFile(namesTopazModel, ".sav", ".pt")
	}
	return invalid(CodeInvalidValue, namesPickMethod[0], "unknown picking method %q", b.method())
}

func (b *autoPickBuilder) BuildCommand(outputDir, _ string) []string {
	out := b.out(outputDir)
	cmd := b.executable("relion_autopick", b.SupportsMPI())
	cmd = append(cmd,
		"--i", b.path(b.str(namesPickInput, "")),
		"--odir", out,
		"--pickname", "autopick",
	)
	switch b.method() {
	case pickTemplate:
		cmd = append(cmd,
			"--ref", b.path(b.str(namesPickRefs, "")),
			"--ang", ftoa(b.flt(namesPsiSampling, 5)),
			"--shrink", "0",
			"--lowpass", ftoa(b.flt(namesPickLowpass, 20)),
			"--threshold", ftoa(b.flt(namesPickThreshold, 0.05)),
			"--min_distance", ftoa(b.flt(namesMinDistance, 100)),
			"--max_stddev_noise", ftoa(b.flt(namesMaxStddevNoise, -1)),
		)
	case pickTopaz:
		cmd = append(cmd,
			"--topaz_extract",
			"--topaz_exe", b.str(namesTopazExe, "topaz"),
			"--particle_diameter", itoa(b.num(namesTopazDiameter, -1)),
		)
		if m := b.str(namesTopazModel, ""); m != "" {
			cmd = append(cmd, "--topaz_model", b.path(m))
		}
	default:
		cmd = append(cmd,
			"--LoG",
			"--LoG_diam_min", itoa(b.num(namesLoGDiamMin, 200)),
			"--LoG_diam_max", itoa(b.num(namesLoGDiamMax, 250)),
			"--shrink", "0",
			"--lowpass", ftoa(b.flt(namesPickLowpass, 20)),
			"--LoG_adjust_threshold", ftoa(b.flt(namesLoGAdjust, 0)),
			"--LoG_upper_threshold", ftoa(b.flt(namesLoGUpper, 999)),
		)
	}
	cmd = append(cmd, b.gpuArgs(b.SupportsGPU())...)
	cmd = append(cmd, b.extraArgs("relion_autopick")...)
	return append(cmd, "--pipeline_control", out)
}

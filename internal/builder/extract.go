package builder

import (
	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/params"
)

var (
	namesExtractMics    = inputNames("inputMicrographs", "star_mics", "micrographStar")
	namesExtractCoords  = inputNames("inputCoordinates", "coords_suffix", "coordinates")
	namesReExtract      = []string{"reExtract", "do_reextract"}
	namesReExtractData  = inputNames("reextractParticles", "fndata_reextract")
	namesRecenter       = []string{"recenter", "do_recenter"}
	namesBoxSize        = []string{"boxSize", "extract_size"}
	namesRescale        = []string{"rescale", "do_rescale"}
	namesRescaledSize   = []string{"rescaledSize", "rescale_size"}
	namesInvertContrast = []string{"invertContrast", "do_invert"}
	namesNormalize      = []string{"normalize", "do_norm"}
	namesBgDiameter     = []string{"backgroundDiameter", "bg_diameter"}
	namesWhiteDust      = []string{"whiteDust", "white_dust"}
	namesBlackDust      = []string{"blackDust", "black_dust"}
)

type extractBuilder struct{ base }

// NewExtract builds relion_preprocess particle extraction invocations.
func NewExtract(bag params.Bag, project model.ProjectContext, opts Options) Builder {
	return &extractBuilder{newBase(bag, project, opts)}
}

func (b *extractBuilder) SupportsGPU() bool { return false }
func (b *extractBuilder) SupportsMPI() bool { return true }

func (b *extractBuilder) reextract() bool { return b.yes(namesReExtract, false) }

func (b *extractBuilder) Validate() Result {
	r := b.requireFile(namesExtractMics, extStar...)
	if !r.OK {
		return r
	}
	if b.reextract() {
		r = b.requireFile(namesReExtractData, extStar...)
	} else {
		r = b.requireFile(namesExtractCoords, extStar...)
	}
	if !r.OK {
		return r
	}
	box := b.num(namesBoxSize, 128)
	if box <= 0 || box%2 != 0 {
		return invalid(CodeInvalidValue, namesBoxSize[0], "box size must be a positive even number, got %d", box)
	}
	if b.yes(namesRescale, false) {
		if size := b.num(namesRescaledSize, 64); size <= 0 || size%2 != 0 {
			return invalid(CodeInvalidValue, namesRescaledSize[0], "rescaled size must be a positive even number, got %d", size)
		}
	}
	return Valid()
}

func (b *extractBuilder) BuildCommand(outputDir, _ string) []string {
	out := b.out(outputDir)
	cmd := b.executable("relion_preprocess", b.SupportsMPI())
	cmd = append(cmd, "--i", b.path(b.str(namesExtractMics, "")))
	if b.reextract() {
		cmd = append(cmd, "--reextract_data_star", b.path(b.str(namesReExtractData, "")))
		if b.yes(namesRecenter, false) {
			cmd = append(cmd, "--recenter", "--recenter_x", "0", "--recenter_y", "0", "--recenter_z", "0")
		}
	} else {
		cmd = append(cmd, "--coord_list", b.path(b.str(namesExtractCoords, "")))
	}
	size := b.num(namesBoxSize, 128)
	cmd = append(cmd,
		"--part_star", out+"particles.star",
		"--part_dir", out,
		"--extract",
		"--extract_size", itoa(size),
	)
	if b.yes(namesRescale, false) {
		size = b.num(namesRescaledSize, 64)
		cmd = append(cmd, "--scale", itoa(size))
	}
	if b.yes(namesNormalize, true) {
		radius := b.num(namesBgDiameter, -1) / 2
		if radius <= 0 {
			radius = int(0.75 * float64(size) / 2)
		}
		cmd = append(cmd,
			"--norm",
			"--bg_radius", itoa(radius),
			"--white_dust", ftoa(b.flt(namesWhiteDust, -1)),
			"--black_dust", ftoa(b.flt(namesBlackDust, -1)),
		)
	}
	if b.yes(namesInvertContrast, true) {
		cmd = append(cmd, "--invert_contrast")
	}
	if b.yes(namesFloat16, true) {
		cmd = append(cmd, "--float16")
	}
	cmd = append(cmd, b.extraArgs("relion_preprocess")...)
	return append(cmd, "--pipeline_control", out)
}

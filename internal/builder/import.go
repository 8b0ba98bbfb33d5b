package builder

import (
	"path/filepath"
	"strings"

	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/params"
)

var (
	namesImportType      = []string{"importType", "nodeType", "node_type"}
	namesImportInput     = inputNames("inputFiles", "moviesPattern", "fn_in_raw", "fn_in")
	namesImportOtherType = []string{"otherNodeType", "node_type_other"}
	namesOpticsGroup     = []string{"opticsGroupName", "optics_group_name"}
	namesOpticsMTF       = inputNames("mtfFile", "fn_mtf")
	namesPixelSize       = []string{"pixelSize", "angpix"}
	namesVoltage         = []string{"voltage", "kV", "kv"}
	namesCs              = []string{"sphericalAberration", "Cs", "cs"}
	namesQ0              = []string{"amplitudeContrast", "Q0", "q0"}
	namesBeamtiltX       = []string{"beamtiltX", "beamtilt_x"}
	namesBeamtiltY       = []string{"beamtiltY", "beamtilt_y"}
)

var importOtherTypes = map[string]bool{
	"ref3d": true, "mask": true, "halfmap": true, "coords": true, "particles": true, "refs2d": true,
}

type importBuilder struct{ base }

// NewImport builds relion_import invocations for movies, micrographs or
// other node types.
func NewImport(bag params.Bag, project model.ProjectContext, opts Options) Builder {
	return &importBuilder{newBase(bag, project, opts)}
}

func (b *importBuilder) SupportsGPU() bool { return false }
func (b *importBuilder) SupportsMPI() bool { return false }

func (b *importBuilder) kind() string {
	return strings.ToLower(b.str(namesImportType, "movies"))
}

func (b *importBuilder) Validate() Result {
	switch b.kind() {
	case "movies":
		return firstInvalid(
			b.requireFile(namesImportInput, ".tif", ".tiff", ".mrc", ".mrcs", ".eer"),
			b.optionalFile(namesOpticsMTF, extStar...),
		)
	case "micrographs":
		return firstInvalid(
			b.requireFile(namesImportInput, ".mrc"),
			b.optionalFile(namesOpticsMTF, extStar...),
		)
	case "other":
		if t := b.str(namesImportOtherType, ""); !importOtherTypes[t] {
			return invalid(CodeInvalidValue, namesImportOtherType[0], "unsupported node type %q", t)
		}
		return b.requireFile(namesImportInput)
	}
	return invalid(CodeInvalidValue, namesImportType[0], "unknown import type %q", b.kind())
}

func (b *importBuilder) BuildCommand(outputDir, _ string) []string {
	out := b.out(outputDir)
	cmd := b.executable("relion_import", false)
	input := b.path(b.str(namesImportInput, ""))

	switch b.kind() {
	case "other":
		cmd = append(cmd,
			"--do_other",
			"--i", input,
			"--odir", out,
			"--ofile", filepath.Base(input),
			"--node_type", b.str(namesImportOtherType, ""),
		)
	default:
		ofile := "movies.star"
		mode := "--do_movies"
		if b.kind() == "micrographs" {
			ofile = "micrographs.star"
			mode = "--do_micrographs"
		}
		cmd = append(cmd, mode, "--optics_group_name", b.str(namesOpticsGroup, "opticsGroup1"))
		if mtf := b.str(namesOpticsMTF, ""); mtf != "" {
			cmd = append(cmd, "--optics_group_mtf", b.path(mtf))
		}
		cmd = append(cmd,
			"--angpix", ftoa(b.flt(namesPixelSize, 1.4)),
			"--kV", ftoa(b.flt(namesVoltage, 300)),
			"--Cs", ftoa(b.flt(namesCs, 2.7)),
			"--Q0", ftoa(b.flt(namesQ0, 0.1)),
			"--beamtilt_x", ftoa(b.flt(namesBeamtiltX, 0)),
			"--beamtilt_y", ftoa(b.flt(namesBeamtiltY, 0)),
			"--i", input,
			"--odir", out,
			"--ofile", ofile,
		)
	}
	cmd = append(cmd, b.extraArgs("relion_import")...)
	return append(cmd, "--pipeline_control", out)
}

package builder

import (
	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/params"
)

var (
	namesSelectInput      = inputNames("inputStar", "fn_data", "fn_mic", "particles")
	namesSelectOnValue    = []string{"selectOnMetadata", "do_select_values"}
	namesSelectLabel      = []string{"metadataLabel", "select_label"}
	namesSelectMin        = []string{"minimumValue", "select_minval"}
	namesSelectMax        = []string{"maximumValue", "select_maxval"}
	namesSplit            = []string{"split", "do_split"}
	namesSplitRandom      = []string{"randomiseOrder", "do_random"}
	namesSplitSize        = []string{"subsetSize", "split_size"}
	namesSplitCount       = []string{"numberOfSubsets", "nr_split"}
	namesRemoveDuplicates = []string{"removeDuplicates", "do_remove_duplicates"}
	namesDuplicateDist    = []string{"duplicateThreshold", "duplicate_threshold"}
	namesDuplicateAngpix  = []string{"imagePixelSize", "image_angpix"}
	namesDiscard          = []string{"discardOnStats", "do_discard"}
	namesDiscardLabel     = []string{"discardLabel", "discard_label"}
	namesDiscardSigma     = []string{"discardSigma", "discard_sigma"}
)

type selectBuilder struct{ base }

// NewSelect builds relion_star_handler subset selections: by metadata
// value, random splits, duplicate removal or image statistics.
func NewSelect(bag params.Bag, project model.ProjectContext, opts Options) Builder {
	return &selectBuilder{newBase(bag, project, opts)}
}

func (b *selectBuilder) SupportsGPU() bool { return false }
func (b *selectBuilder) SupportsMPI() bool { return false }

func (b *selectBuilder) Validate() Result {
	if r := b.requireFile(namesSelectInput, extStar...); !r.OK {
		return r
	}
	switch {
	case b.yes(namesSelectOnValue, false):
		if b.str(namesSelectLabel, "") == "" {
			return invalid(CodeMissingField, namesSelectLabel[0], "%s is required", namesSelectLabel[0])
		}
		if lo, hi := b.flt(namesSelectMin, -9999), b.flt(namesSelectMax, 9999); lo > hi {
			return invalid(CodeInvalidValue, namesSelectMin[0], "minimum %v exceeds maximum %v", lo, hi)
		}
	case b.yes(namesSplit, false):
		if b.num(namesSplitSize, -1) <= 0 && b.num(namesSplitCount, -1) <= 0 {
			return invalid(CodeMissingField, namesSplitSize[0], "either %s or %s must be positive", namesSplitSize[0], namesSplitCount[0])
		}
	}
	return Valid()
}

func (b *selectBuilder) BuildCommand(outputDir, _ string) []string {
	out := b.out(outputDir)
	cmd := []string{"relion_star_handler", "--i", b.path(b.str(namesSelectInput, ""))}
	switch {
	case b.yes(namesSelectOnValue, false):
		cmd = append(cmd,
			"--o", out+"particles.star",
			"--select", b.str(namesSelectLabel, ""),
			"--minval", ftoa(b.flt(namesSelectMin, -9999)),
			"--maxval", ftoa(b.flt(namesSelectMax, 9999)),
		)
	case b.yes(namesSplit, false):
		cmd = append(cmd, "--o", out+"particles.star", "--split")
		if b.yes(namesSplitRandom, false) {
			cmd = append(cmd, "--random_order")
		}
		if size := b.num(namesSplitSize, -1); size > 0 {
			cmd = append(cmd, "--size_split", itoa(size))
		} else {
			cmd = append(cmd, "--nr_split", itoa(b.num(namesSplitCount, -1)))
		}
	case b.yes(namesRemoveDuplicates, false):
		cmd = append(cmd,
			"--o", out+"particles.star",
			"--remove_duplicates", ftoa(b.flt(namesDuplicateDist, 30)),
		)
		if angpix := b.flt(namesDuplicateAngpix, -1); angpix > 0 {
			cmd = append(cmd, "--image_angpix", ftoa(angpix))
		}
	case b.yes(namesDiscard, false):
		cmd = append(cmd,
			"--o", out+"particles.star",
			"--discard_on_stats",
			"--discard_label", b.str(namesDiscardLabel, "rlnImageName"),
			"--discard_sigma", ftoa(b.flt(namesDiscardSigma, 4)),
		)
	default:
		cmd = append(cmd, "--o", out+"particles.star")
	}
	cmd = append(cmd, b.extraArgs("relion_star_handler")...)
	return append(cmd, "--pipeline_control", out)
}

package builder

import (
	"strings"

	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/params"
)

var (
	namesClassOptimiser = inputNames("optimiserStar", "fn_model", "fn_opt")
	namesClassData      = inputNames("dataStar", "fn_data")
	namesAutoSelect     = []string{"autoSelect", "do_class_ranker"}
	namesMinScore       = []string{"minimumScore", "rank_threshold"}
	namesMinParticles   = []string{"minimumParticles", "select_nr_parts"}
	namesMinClasses     = []string{"minimumClasses", "select_nr_classes"}
	namesPythonExe      = []string{"pythonExecutable", "python_exe"}
	namesSelectedClass  = []string{"selectedClasses", "classes"}
)

// dataFromOptimiser maps an optimiser checkpoint onto the data STAR file
// written next to it by the same iteration.
var dataFromOptimiser = []Convention{{From: "_optimiser.star", To: "_data.star"}}

type classSelectBuilder struct{ base }

// NewClassSelect builds class selection: automatic ranking with
// relion_class_ranker, or a manual class list applied with
// relion_star_handler.
func NewClassSelect(bag params.Bag, project model.ProjectContext, opts Options) Builder {
	return &classSelectBuilder{newBase(bag, project, opts)}
}

func (b *classSelectBuilder) SupportsGPU() bool { return false }
func (b *classSelectBuilder) SupportsMPI() bool { return false }

func (b *classSelectBuilder) auto() bool { return b.yes(namesAutoSelect, false) }

func (b *classSelectBuilder) Validate() Result {
	if r := b.requireFile(namesClassOptimiser, extStar...); !r.OK {
		return r
	}
	if b.auto() {
		return Valid()
	}
	if len(params.Strings(b.bag, namesSelectedClass)) == 0 {
		return invalid(CodeMissingField, namesSelectedClass[0], "%s is required for manual selection", namesSelectedClass[0])
	}
	if b.has(namesClassData) {
		return b.checkFile(namesClassData[0], b.str(namesClassData, ""), extStar)
	}
	data, ok := deriveCompanion(b.str(namesClassOptimiser, ""), dataFromOptimiser)
	if !ok {
		return invalid(CodeMissingField, namesClassData[0], "%s is required: cannot derive it from %q", namesClassData[0], b.str(namesClassOptimiser, ""))
	}
	if r := b.checkFile(namesClassData[0], data, extStar); !r.OK {
		return r
	}
	b.bag[namesClassData[0]] = data
	return Valid()
}

func (b *classSelectBuilder) BuildCommand(outputDir, _ string) []string {
	out := b.out(outputDir)
	if b.auto() {
		cmd := []string{
			"relion_class_ranker",
			"--opt", b.path(b.str(namesClassOptimiser, "")),
			"--o", out,
			"--fn_sel_parts", "particles.star",
			"--fn_sel_classavgs", "class_averages.star",
			"--python", b.str(namesPythonExe, "python"),
			"--fn_root", "rank",
			"--do_granularity_features",
			"--auto_select",
			"--min_score", ftoa(b.flt(namesMinScore, 0.5)),
		}
		if n := b.num(namesMinParticles, -1); n > 0 {
			cmd = append(cmd, "--select_min_nr_particles", itoa(n))
		}
		if n := b.num(namesMinClasses, -1); n > 0 {
			cmd = append(cmd, "--select_min_nr_classes", itoa(n))
		}
		cmd = append(cmd, b.extraArgs("relion_class_ranker")...)
		return append(cmd, "--pipeline_control", out)
	}
	classes := params.Strings(b.bag, namesSelectedClass)
	cmd := []string{
		"relion_star_handler",
		"--i", b.path(b.str(namesClassData, "")),
		"--o", out + "particles.star",
		"--select", "rlnClassNumber",
		"--select_include", strings.Join(classes, ","),
	}
	cmd = append(cmd, b.extraArgs("relion_star_handler")...)
	return append(cmd, "--pipeline_control", out)
}

package builder

import (
	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/params"
)

var (
	namesAngeloMap     = inputNames("inputMap", "fn_map", "map")
	namesAngeloProtein = inputNames("proteinFasta", "p_seq")
	namesAngeloDNA     = inputNames("dnaFasta", "d_seq")
	namesAngeloRNA     = inputNames("rnaFasta", "r_seq")
	namesAngeloConfig  = inputNames("configPath", "config_path")
)

type modelAngeloBuilder struct{ base }

// NewModelAngelo builds ModelAngelo automated model building through
// RELION's python wrapper.
func NewModelAngelo(bag params.Bag, project model.ProjectContext, opts Options) Builder {
	return &modelAngeloBuilder{newBase(bag, project, opts)}
}

func (b *modelAngeloBuilder) SupportsGPU() bool { return true }
func (b *modelAngeloBuilder) SupportsMPI() bool { return false }

func (b *modelAngeloBuilder) Validate() Result {
	r := firstInvalid(
		b.requireFile(namesAngeloMap, extMap...),
		b.optionalFile(namesAngeloProtein, extFasta...),
		b.optionalFile(namesAngeloDNA, extFasta...),
		b.optionalFile(namesAngeloRNA, extFasta...),
	)
	if !r.OK {
		return r
	}
	if !b.has(namesAngeloProtein) && !b.has(namesAngeloDNA) && !b.has(namesAngeloRNA) {
		return invalid(CodeMissingField, namesAngeloProtein[0], "at least one sequence file is required")
	}
	return Valid()
}

// BuildCommand passes the device through -d rather than --gpu; the
// wrapper selects a single CUDA device.
func (b *modelAngeloBuilder) BuildCommand(outputDir, _ string) []string {
	out := b.out(outputDir)
	cmd := []string{
		"relion_python_modelangelo",
		"-v", b.path(b.str(namesAngeloMap, "")),
	}
	for _, s := range []struct {
		flag  string
		names []string
	}{
		{"-pf", namesAngeloProtein},
		{"-df", namesAngeloDNA},
		{"-rf", namesAngeloRNA},
	} {
		if f := b.str(s.names, ""); f != "" {
			cmd = append(cmd, s.flag, b.path(f))
		}
	}
	cmd = append(cmd, "-o", out)
	if b.gpuRequested(b.SupportsGPU()) {
		cmd = append(cmd, "-d", b.device())
	} else {
		cmd = append(cmd, "-d", "cpu")
	}
	if cfg := b.str(namesAngeloConfig, ""); cfg != "" {
		cmd = append(cmd, "--config-path", b.path(cfg))
	}
	cmd = append(cmd, b.extraArgs("relion_python_modelangelo")...)
	return append(cmd, "--pipeline_control", out)
}

// device picks the first listed GPU id, defaulting to 0.
func (b *base) device() string {
	ids := params.Strings(b.bag, params.NamesGPUIDs)
	if len(ids) == 0 {
		return "0"
	}
	for i, r := range ids[0] {
		if r == ':' || r == ',' {
			return ids[0][:i]
		}
	}
	return ids[0]
}

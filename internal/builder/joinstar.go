package builder

import (
	"strings"

	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/params"
)

var (
	namesJoinParticles   = inputNames("particles", "fn_parts")
	namesJoinMicrographs = inputNames("micrographs", "fn_mics")
	namesJoinMovies      = inputNames("movies", "fn_movs")
	namesJoinInputs      = inputNames("inputStarFiles", "fn_in", "inputs")
)

// joinSets orders the join modes; the first one with inputs wins.
var joinSets = []struct {
	names  []string
	output string
}{
	{namesJoinParticles, "join_particles.star"},
	{namesJoinMicrographs, "join_mics.star"},
	{namesJoinMovies, "join_movies.star"},
	{namesJoinInputs, "join.star"},
}

type joinStarBuilder struct{ base }

// NewJoinStar builds relion_star_handler --combine invocations.
func NewJoinStar(bag params.Bag, project model.ProjectContext, opts Options) Builder {
	return &joinStarBuilder{newBase(bag, project, opts)}
}

func (b *joinStarBuilder) SupportsGPU() bool { return false }
func (b *joinStarBuilder) SupportsMPI() bool { return false }

// inputs returns the selected STAR files and the output file name.
func (b *joinStarBuilder) inputs() ([]string, string) {
	for _, s := range joinSets {
		if files := params.Strings(b.bag, s.names); len(files) > 0 {
			return files, s.output
		}
	}
	return nil, ""
}

func (b *joinStarBuilder) Validate() Result {
	files, _ := b.inputs()
	if len(files) < 2 {
		return invalid(CodeMissingField, namesJoinParticles[0], "at least two STAR files are required to join, got %d", len(files))
	}
	for _, f := range files {
		if r := b.checkFile(namesJoinParticles[0], f, extStar); !r.OK {
			return r
		}
	}
	return Valid()
}

func (b *joinStarBuilder) BuildCommand(outputDir, _ string) []string {
	out := b.out(outputDir)
	files, name := b.inputs()
	rel := make([]string, len(files))
	for i, f := range files {
		rel[i] = b.path(f)
	}
	cmd := []string{
		"relion_star_handler",
		"--combine",
		"--i", strings.Join(rel, " "),
		"--check_duplicates", "rlnImageName",
		"--o", out + name,
	}
	cmd = append(cmd, b.extraArgs("relion_star_handler")...)
	return append(cmd, "--pipeline_control", out)
}

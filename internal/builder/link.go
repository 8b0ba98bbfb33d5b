package builder

import (
	"path/filepath"

	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/params"
)

var namesLinkSource = inputNames("source", "fn_in", "target")

type linkBuilder struct{ base }

// NewLink symlinks an existing file into a new job directory so it can be
// used as a pipeline node. It has no validation of its own and ignores
// additional arguments.
func NewLink(bag params.Bag, project model.ProjectContext, opts Options) Builder {
	return &linkBuilder{newBase(bag, project, opts)}
}

func (b *linkBuilder) SupportsGPU() bool { return false }
func (b *linkBuilder) SupportsMPI() bool { return false }
func (b *linkBuilder) Validate() Result  { return Valid() }

func (b *linkBuilder) BuildCommand(outputDir, _ string) []string {
	out := b.out(outputDir)
	// The link lives inside the job directory, so its target must be
	// absolute to resolve.
	source := b.str(namesLinkSource, "")
	if source == "" {
		b.diags = append(b.diags, "missing field: source")
		return nil
	}
	src := ResolvePath(b.project.RootPath, source)
	return []string{"ln", "-s", "-f", src, out + filepath.Base(src)}
}

package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/relionflow/api/internal/model"
)

// ProjectResolver maps project ids onto directories. Active projects live
// under activeRoot; archived ones under archiveRoot are readable but never
// accept new jobs.
type ProjectResolver struct {
	activeRoot  string
	archiveRoot string
}

func NewProjectResolver(activeRoot, archiveRoot string) *ProjectResolver {
	return &ProjectResolver{activeRoot: activeRoot, archiveRoot: archiveRoot}
}

// Resolve returns the project's context. An id that is not a single path
// element is rejected before the filesystem is touched.
func (r *ProjectResolver) Resolve(id string) (model.ProjectContext, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) {
		return model.ProjectContext{}, &model.ValidationError{
			Code:    "invalid_value",
			Field:   "projectId",
			Message: fmt.Sprintf("invalid project id %q", id),
		}
	}
	if dir, ok := lookupDir(r.activeRoot, id); ok {
		return model.ProjectContext{ID: id, RootPath: dir}, nil
	}
	if dir, ok := lookupDir(r.archiveRoot, id); ok {
		return model.ProjectContext{ID: id, RootPath: dir, Archived: true}, nil
	}
	return model.ProjectContext{}, fmt.Errorf("%w: %s", model.ErrProjectNotFound, id)
}

func lookupDir(root, id string) (string, bool) {
	if root == "" {
		return "", false
	}
	abs, err := filepath.Abs(filepath.Join(root, id))
	if err != nil {
		return "", false
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", false
	}
	return abs, true
}

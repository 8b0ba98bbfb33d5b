package model

// ProjectContext supplies the filesystem root that job-relative paths are
// resolved against.
type ProjectContext struct {
	ID       string `json:"id"`
	RootPath string `json:"rootPath"`
	Archived bool   `json:"archived"`
}

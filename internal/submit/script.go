package submit

import (
	"bytes"
	"text/template"
)

var scriptTemplate = template.Must(template.New("sbatch").Funcs(template.FuncMap{
	"quote": shellQuote,
}).Parse(`#!/bin/bash
#SBATCH --job-name={{.JobName}}
#SBATCH --output={{.OutputDir}}run.out
#SBATCH --error={{.OutputDir}}run.err
#SBATCH --ntasks={{.Tasks}}
#SBATCH --cpus-per-task={{.Threads}}
{{- if .Partition}}
#SBATCH --partition={{.Partition}}
{{- end}}
{{- if gt .GPUs 0}}
#SBATCH --gres=gpu:{{.GPUs}}
{{- end}}
{{- range .Directives}}
#SBATCH {{.}}
{{- end}}
{{if .CacheEnv}}
export {{.CacheEnv}}={{quote .CacheDir}}
{{- end}}
cd {{quote .ProjectRoot}} || { touch {{quote .RootFailureMarker}}; exit 1; }

{{.Command}}
status=$?

if [ $status -eq 0 ]; then
{{- if .PostCommand}}
  {{.PostCommand}} || echo "post-command failed with status $?" >&2
{{- end}}
  touch {{quote .SuccessMarker}}
else
  touch {{quote .FailureMarker}}
fi
exit $status
`))

type scriptData struct {
	JobName       string
	OutputDir     string
	Tasks         int
	Threads       int
	Partition     string
	GPUs          int
	Directives    []string
	CacheEnv      string
	CacheDir      string
	ProjectRoot   string
	Command       string
	PostCommand   string
	SuccessMarker string
	FailureMarker string
	// RootFailureMarker is absolute; it is written when the project root
	// cannot be entered.
	RootFailureMarker string
}

func renderScript(d scriptData) ([]byte, error) {
	var buf bytes.Buffer
	if err := scriptTemplate.Execute(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

package submit

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/go-containerregistry/pkg/name"
)

// Config controls how commands are launched.
type Config struct {
	Container     ContainerConfig `mapstructure:"container"`
	Queue         QueueConfig     `mapstructure:"queue"`
	LocalLauncher string          `mapstructure:"local_launcher"`
}

// ContainerConfig wraps local and queued commands in a container runtime
// when Image is set.
type ContainerConfig struct {
	Runtime string   `mapstructure:"runtime"`
	Image   string   `mapstructure:"image"`
	Binds   []string `mapstructure:"binds"`
}

// QueueConfig describes the SLURM scheduler.
type QueueConfig struct {
	SubmitCommand string `mapstructure:"submit_command"`
	CancelCommand string `mapstructure:"cancel_command"`
	Partition     string `mapstructure:"partition"`
	ExtraArgs     string `mapstructure:"extra_args"`
	MPILauncher   string `mapstructure:"mpi_launcher"`
	IDPattern     string `mapstructure:"id_pattern"`
	CacheEnv      string `mapstructure:"cache_env"`
	CacheDir      string `mapstructure:"cache_dir"`
}

// DefaultConfig targets a plain SLURM installation without a container.
func DefaultConfig() Config {
	return Config{
		LocalLauncher: "mpirun",
		Container:     ContainerConfig{Runtime: "apptainer"},
		Queue: QueueConfig{
			SubmitCommand: "sbatch",
			CancelCommand: "scancel",
			MPILauncher:   "srun",
			IDPattern:     `Submitted batch job (\d+)`,
			CacheEnv:      "XDG_CACHE_HOME",
		},
	}
}

// allowedBinaries maps each scheduler role to the only accepted basename.
var allowedBinaries = map[string]string{
	"submit": "sbatch",
	"cancel": "scancel",
}

var allowedRuntimes = map[string]bool{"apptainer": true, "singularity": true}

// validate fills defaults and rejects unsafe scheduler settings.
func (c *Config) validate() (*regexp.Regexp, error) {
	def := DefaultConfig()
	if c.Queue.SubmitCommand == "" {
		c.Queue.SubmitCommand = def.Queue.SubmitCommand
	}
	if c.Queue.CancelCommand == "" {
		c.Queue.CancelCommand = def.Queue.CancelCommand
	}
	if c.Queue.MPILauncher == "" {
		c.Queue.MPILauncher = def.Queue.MPILauncher
	}
	if c.Queue.IDPattern == "" {
		c.Queue.IDPattern = def.Queue.IDPattern
	}
	if c.LocalLauncher == "" {
		c.LocalLauncher = def.LocalLauncher
	}
	if c.Container.Runtime == "" {
		c.Container.Runtime = def.Container.Runtime
	}
	if base := filepath.Base(c.Queue.SubmitCommand); base != allowedBinaries["submit"] {
		return nil, fmt.Errorf("submit command %q is not allowed", c.Queue.SubmitCommand)
	}
	if base := filepath.Base(c.Queue.CancelCommand); base != allowedBinaries["cancel"] {
		return nil, fmt.Errorf("cancel command %q is not allowed", c.Queue.CancelCommand)
	}
	if !allowedRuntimes[filepath.Base(c.Container.Runtime)] {
		return nil, fmt.Errorf("container runtime %q is not allowed", c.Container.Runtime)
	}
	if err := checkImage(c.Container.Image); err != nil {
		return nil, err
	}
	re, err := regexp.Compile(c.Queue.IDPattern)
	if err != nil {
		return nil, fmt.Errorf("queue id pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("queue id pattern %q needs a capture group", c.Queue.IDPattern)
	}
	return re, nil
}

// checkImage accepts local .sif files and registry references.
func checkImage(image string) error {
	if image == "" || strings.HasSuffix(image, ".sif") {
		return nil
	}
	ref := image
	for _, scheme := range []string{"docker://", "oras://", "library://"} {
		ref = strings.TrimPrefix(ref, scheme)
	}
	if _, err := name.ParseReference(ref); err != nil {
		return fmt.Errorf("container image %q: %w", image, err)
	}
	return nil
}

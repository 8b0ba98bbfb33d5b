package model

// Destination selects where a built command runs.
type Destination string

const (
	DestinationLocal Destination = "local"
	DestinationQueue Destination = "queue"
)

// ComputeTier is a job kind's resource category.
type ComputeTier string

const (
	TierMPI   ComputeTier = "mpi"
	TierGPU   ComputeTier = "gpu"
	TierLocal ComputeTier = "local"
)

// ResourceSpec is the gated resource request handed to the submission
// engine. MPIProcs and GPUs are already clamped to what the job kind
// supports.
type ResourceSpec struct {
	Destination Destination `json:"destination"`
	MPIProcs    int         `json:"mpiProcs"`
	Threads     int         `json:"threads"`
	GPUs        int         `json:"gpus"`
	GPUIDs      string      `json:"gpuIds,omitempty"`
	Partition   string      `json:"partition,omitempty"`
	ExtraArgs   string      `json:"extraArgs,omitempty"`
}

package builder

import (
	"strings"

	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/params"
)

// Resources derives the resource request for a built job. Kinds that
// cannot use MPI or GPUs never request them, whatever the bag says.
func Resources(b Builder, bag params.Bag, def model.Destination) model.ResourceSpec {
	spec := model.ResourceSpec{
		Destination: destinationOf(bag, def),
		MPIProcs:    1,
		Threads:     max(1, params.Int(bag, params.NamesThreads, 1)),
		Partition:   params.String(bag, params.NamesPartition, ""),
		ExtraArgs:   params.String(bag, params.NamesQueueExtraArgs, ""),
	}
	if b.SupportsMPI() {
		spec.MPIProcs = max(1, params.Int(bag, params.NamesMPIProcs, 1))
	}
	if b.SupportsGPU() && params.Bool(bag, params.NamesUseGPU, false) {
		spec.GPUIDs = params.String(bag, params.NamesGPUIDs, "")
		spec.GPUs = countGPUs(spec.GPUIDs)
	}
	return spec
}

// countGPUs counts distinct device ids in RELION's "0:1,2" notation. An
// empty list means one device chosen by the tool.
func countGPUs(ids string) int {
	seen := map[string]struct{}{}
	for _, id := range strings.FieldsFunc(ids, func(r rune) bool { return r == ':' || r == ',' || r == ' ' }) {
		seen[id] = struct{}{}
	}
	return max(1, len(seen))
}

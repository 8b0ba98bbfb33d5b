package params

// Synonym lists shared by every job kind. Builders declare their
// kind-specific lists next to their flag logic. Lists only ever grow:
// dropping a name breaks callers that still send it.
var (
	NamesMPIProcs       = []string{"mpiProcs", "numberOfMpiProcs", "nr_mpi", "mpi"}
	NamesThreads        = []string{"threads", "numberOfThreads", "nr_threads", "j"}
	NamesUseGPU         = []string{"useGpu", "gpuAcceleration", "use_gpu"}
	NamesGPUIDs         = []string{"gpuToUse", "gpuIds", "gpu_ids"}
	NamesDestination    = []string{"destination", "runOn"}
	NamesSubmitToQueue  = []string{"submitToQueue", "do_queue", "queue"}
	NamesPartition      = []string{"queueName", "partition", "qsub_queue"}
	NamesQueueExtraArgs = []string{"queueExtraArgs", "schedulerArgs", "qsub_extra"}
	NamesAdditionalArgs = []string{"additionalArguments", "otherArgs", "other_args", "additional_args"}
	NamesContinueFrom   = []string{"continueFrom", "fn_cont", "continue_from"}
	NamesParentJobs     = []string{"parentJobs", "parent_jobs", "dependsOn"}
)

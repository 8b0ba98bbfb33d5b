package builder

// Synonyms and helpers shared by the relion_refine based kinds.
var (
	namesRefineParticles = inputNames("inputParticles", "fn_img", "particles")
	namesReference       = inputNames("referenceMap", "fn_ref", "reference")
	namesReferenceMask   = inputNames("referenceMask", "solventMask", "fn_mask")
	namesNumClasses      = []string{"numberOfClasses", "nr_classes", "K"}
	namesIterations      = []string{"iterations", "nr_iter"}
	namesMaskDiameter    = []string{"maskDiameter", "particleDiameter", "particle_diameter"}
	namesTau             = []string{"regularisation", "tau_fudge", "T"}
	namesCtfCorrection   = []string{"ctfCorrection", "do_ctf_correction"}
	namesCtfFirstPeak    = []string{"ignoreCtfsUntilFirstPeak", "ctf_intact_first_peak"}
	namesZeroMask        = []string{"maskWithZeros", "do_zero_mask"}
	namesOffsetRange     = []string{"offsetRange", "offset_range"}
	namesOffsetStep      = []string{"offsetStep", "offset_step"}
	namesPool            = []string{"pool", "nr_pool"}
	namesPreRead         = []string{"preReadImages", "do_preread_images"}
	namesScratchDir      = []string{"scratchDir", "scratch_dir"}
	namesCombineViaDisc  = []string{"combineIterationsViaDisc", "do_combine_thru_disc"}
	namesHighResLimit    = []string{"highResLimit", "highres_limit"}
	namesSymmetry        = []string{"symmetry", "sym_group", "sym"}
	namesIniHigh         = []string{"initialLowPass", "ini_high"}
	namesRefGreyscale    = []string{"referenceIsOnAbsoluteGreyscale", "ref_correct_greyscale"}
	namesAngularSampling = []string{"angularSampling", "sampling"}
	namesLocalSampling   = []string{"localSearchesFrom", "auto_local_sampling"}
	namesLocalSearches   = []string{"localAngularSearches", "do_local_ang_searches"}
	namesLocalRange      = []string{"localSearchRange", "sigma_angles"}
	namesBlush           = []string{"useBlush", "do_blush"}
	namesFastSubsets     = []string{"fastSubsets", "do_fast_subsets"}
)

// refineCommon emits the I/O and compute flags every relion_refine kind
// shares.
func (b *base) refineCommon(cmd []string, pad int) []string {
	if !b.yes(namesCombineViaDisc, false) {
		cmd = append(cmd, "--dont_combine_weights_via_disc")
	}
	if b.yes(namesPreRead, false) {
		cmd = append(cmd, "--preread_images")
	} else if dir := b.str(namesScratchDir, ""); dir != "" {
		cmd = append(cmd, "--scratch_dir", dir)
	}
	return append(cmd, "--pool", itoa(b.num(namesPool, 3)), "--pad", itoa(pad))
}

// refineModel emits the CTF, regularisation and masking flags.
func (b *base) refineModel(cmd []string, tau float64) []string {
	if b.yes(namesCtfCorrection, true) {
		cmd = append(cmd, "--ctf")
		if b.yes(namesCtfFirstPeak, false) {
			cmd = append(cmd, "--ctf_intact_first_peak")
		}
	}
	cmd = append(cmd,
		"--tau2_fudge", ftoa(b.flt(namesTau, tau)),
		"--particle_diameter", itoa(b.num(namesMaskDiameter, 200)),
	)
	return cmd
}

func (b *base) refineMasking(cmd []string) []string {
	cmd = append(cmd, "--flatten_solvent")
	if b.yes(namesZeroMask, true) {
		cmd = append(cmd, "--zero_mask")
	}
	if mask := b.str(namesReferenceMask, ""); mask != "" {
		cmd = append(cmd, "--solvent_mask", b.path(mask))
	}
	return cmd
}

func (b *base) refineTail(cmd []string, exe, out string, gpu bool) []string {
	if limit := b.flt(namesHighResLimit, -1); limit > 0 {
		cmd = append(cmd, "--strict_highres_exp", ftoa(limit))
	}
	cmd = append(cmd, "--j", itoa(b.threads()))
	cmd = append(cmd, b.gpuArgs(gpu)...)
	cmd = append(cmd, b.extraArgs(exe)...)
	return append(cmd, "--pipeline_control", out)
}

// validateRefineInputs checks particles and, when needRef is set, the
// reference map. Continue mode only needs the optimiser checkpoint.
func (b *base) validateRefineInputs(needRef bool) Result {
	if b.continuing() {
		return b.checkContinue()
	}
	results := []Result{
		b.requireFile(namesRefineParticles, extStar...),
		b.optionalFile(namesReferenceMask, extMap...),
		b.positive(namesMaskDiameter, 200),
	}
	if needRef {
		results = append(results, b.requireFile(namesReference, extMap...))
	}
	return firstInvalid(results...)
}

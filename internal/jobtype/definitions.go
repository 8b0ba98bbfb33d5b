package jobtype

import (
	"github.com/relionflow/api/internal/builder"
	"github.com/relionflow/api/internal/model"
)

// definitions is the fixed set of job kinds. Aliases are part of the
// public contract: add freely, never remove.
func definitions() []Definition {
	def := func(id, stage string, tier model.ComputeTier, f builder.Factory, aliases ...string) Definition {
		return Definition{ID: id, StageName: stage, Tier: tier, NewBuilder: f, Validate: BuilderValidator, Aliases: aliases}
	}
	link := def("link", "Link", model.TierLocal, builder.NewLink, "symlink")
	link.Validate = nil

	return []Definition{
		def("import", "Import", model.TierLocal, builder.NewImport, "Import", "relion.import", "import_movies"),
		def("motioncorr", "MotionCorr", model.TierMPI, builder.NewMotionCorr, "MotionCorr", "relion.motioncorr", "motion_correction", "motion"),
		def("ctffind", "CtfFind", model.TierMPI, builder.NewCtfFind, "CtfFind", "relion.ctffind", "ctf", "ctf_estimation"),
		def("autopick", "AutoPick", model.TierMPI, builder.NewAutoPick, "AutoPick", "relion.autopick", "autopicking"),
		def("manualpick", "ManualPick", model.TierLocal, builder.NewManualPick, "ManualPick", "relion.manualpick", "manual_pick"),
		def("extract", "Extract", model.TierMPI, builder.NewExtract, "Extract", "relion.extract", "particle_extraction"),
		def("class2d", "Class2D", model.TierGPU, builder.NewClass2D, "Class2D", "relion.class2d", "2d_classification"),
		def("class3d", "Class3D", model.TierGPU, builder.NewClass3D, "Class3D", "relion.class3d", "3d_classification"),
		def("initialmodel", "InitialModel", model.TierGPU, builder.NewInitialModel, "InitialModel", "relion.initialmodel", "initial_model", "inimodel"),
		def("refine3d", "Refine3D", model.TierGPU, builder.NewRefine3D, "Refine3D", "relion.refine3d", "auto_refine", "3d_refinement"),
		def("postprocess", "PostProcess", model.TierLocal, builder.NewPostProcess, "PostProcess", "relion.postprocess", "post_process"),
		def("maskcreate", "MaskCreate", model.TierLocal, builder.NewMaskCreate, "MaskCreate", "relion.maskcreate", "mask_create", "mask"),
		def("localres", "LocalRes", model.TierMPI, builder.NewLocalRes, "LocalRes", "relion.localres", "local_resolution"),
		def("subtract", "Subtract", model.TierMPI, builder.NewSubtract, "Subtract", "relion.subtract", "particle_subtraction"),
		def("joinstar", "JoinStar", model.TierLocal, builder.NewJoinStar, "JoinStar", "relion.joinstar", "join_star"),
		def("select", "Select", model.TierLocal, builder.NewSelect, "Select", "relion.select", "subset_selection"),
		def("multibody", "MultiBody", model.TierGPU, builder.NewMultiBody, "MultiBody", "relion.multibody", "multi_body"),
		def("ctfrefine", "CtfRefine", model.TierMPI, builder.NewCtfRefine, "CtfRefine", "relion.ctfrefine", "ctf_refinement"),
		def("polish", "Polish", model.TierMPI, builder.NewPolish, "Polish", "relion.polish", "bayesian_polishing"),
		def("modelangelo", "ModelAngelo", model.TierGPU, builder.NewModelAngelo, "ModelAngelo", "relion.modelangelo", "model_building"),
		def("dynamight", "DynaMight", model.TierGPU, builder.NewDynaMight, "DynaMight", "relion.dynamight", "flexibility"),
		def("classselect", "Select", model.TierLocal, builder.NewClassSelect, "ClassSelect", "relion.select.class2dauto", "class_selection", "class_ranker"),
		link,
	}
}

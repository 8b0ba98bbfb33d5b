package builder

import (
	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/params"
)

var (
	namesUseResMap    = []string{"useResmap", "do_resmap_locres"}
	namesResMapExe    = []string{"resmapExecutable", "fn_resmap"}
	namesResMapMask   = inputNames("resmapMask", "fn_mask_resmap")
	namesResMapPval   = []string{"pval"}
	namesResMapMinRes = []string{"minRes", "minres"}
	namesResMapMaxRes = []string{"maxRes", "maxres"}
	namesResMapStep   = []string{"stepSize", "stepres"}
	namesLocresBfac   = []string{"userBfactor", "adhoc_bfac"}
)

type localResBuilder struct{ base }

// NewLocalRes builds local-resolution estimation with either RELION's own
// implementation or ResMap.
func NewLocalRes(bag params.Bag, project model.ProjectContext, opts Options) Builder {
	return &localResBuilder{newBase(bag, project, opts)}
}

func (b *localResBuilder) resmap() bool { return b.yes(namesUseResMap, false) }

func (b *localResBuilder) SupportsGPU() bool { return false }

// SupportsMPI is false for ResMap, an external single-process tool.
func (b *localResBuilder) SupportsMPI() bool { return !b.resmap() }

func (b *localResBuilder) Validate() Result {
	if r := b.completeHalfMaps(namesHalfMap1, namesHalfMap2); !r.OK {
		return r
	}
	if b.resmap() {
		return b.requireFile(namesResMapMask, extMap...)
	}
	return firstInvalid(
		b.optionalFile(namesSolventMask, extMap...),
		b.optionalFile(namesMTF, extStar...),
	)
}

func (b *localResBuilder) BuildCommand(outputDir, _ string) []string {
	out := b.out(outputDir)
	half1 := b.path(b.str(namesHalfMap1, ""))
	half2 := b.path(b.str(namesHalfMap2, ""))
	if b.resmap() {
		exe := b.str(namesResMapExe, "resmap")
		cmd := []string{
			exe,
			"--maskVol=" + b.path(b.str(namesResMapMask, "")),
			"--noguiSplit", half1, half2,
			"--vxSize=" + ftoa(b.flt(namesPostAngpix, -1)),
			"--pVal=" + ftoa(b.flt(namesResMapPval, 0.05)),
			"--minRes=" + ftoa(b.flt(namesResMapMinRes, 0)),
			"--maxRes=" + ftoa(b.flt(namesResMapMaxRes, 0)),
			"--stepRes=" + ftoa(b.flt(namesResMapStep, 1)),
		}
		cmd = append(cmd, b.extraArgs(exe)...)
		return cmd
	}
	cmd := b.executable("relion_postprocess", b.SupportsMPI())
	cmd = append(cmd,
		"--locres",
		"--i", half1,
		"--i2", half2,
		"--o", out+"relion",
		"--angpix", ftoa(b.flt(namesPostAngpix, -1)),
		"--adhoc_bfac", ftoa(b.flt(namesLocresBfac, -100)),
	)
	if mask := b.str(namesSolventMask, ""); mask != "" {
		cmd = append(cmd, "--mask", b.path(mask))
	}
	if mtf := b.str(namesMTF, ""); mtf != "" {
		cmd = append(cmd, "--mtf", b.path(mtf))
	}
	cmd = append(cmd, b.extraArgs("relion_postprocess")...)
	return append(cmd, "--pipeline_control", out)
}

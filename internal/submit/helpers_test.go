package submit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "''", shellQuote(""))
	assert.Equal(t, "Class3D/job009/run", shellQuote("Class3D/job009/run"))
	assert.Equal(t, "'a b.star'", shellQuote("a b.star"))
	assert.Equal(t, `it\'s`, shellQuote("it's"))
	assert.Equal(t, `\$\(reboot\)`, shellQuote("$(reboot)"))
	assert.Equal(t, `'a b; rm -rf ~'`, shellQuote("a b; rm -rf ~"))
	assert.Equal(t, "relion_refine --i 'My Data/p.star'", shellJoin([]string{"relion_refine", "--i", "My Data/p.star"}))
}

func TestSanitizeDirectives(t *testing.T) {
	kept, dropped := sanitizeDirectives("--time=1:00:00 --mem=8G -N1 --x=`id` --out=../etc --a=b;c --qos=high|x")
	assert.Equal(t, []string{"--time=1:00:00", "--mem=8G", "-N1"}, kept)
	assert.Len(t, dropped, 4)

	_, err := sanitizePartition("gpu;rm")
	assert.Error(t, err)
	p, err := sanitizePartition("gpu,cpu")
	assert.NoError(t, err)
	assert.Equal(t, "gpu,cpu", p)
}

func TestContainerWrap(t *testing.T) {
	c := ContainerConfig{Runtime: "apptainer", Image: "/images/relion.sif", Binds: []string{"/scratch", "/proj"}}

	argv := []string{"mpirun", "-n", "4", "relion_refine_mpi", "--o", "x"}
	got := c.wrap(argv, launcherWidth(argv, "mpirun"), 1, "/proj")
	assert.Equal(t, []string{
		"mpirun", "-n", "4",
		"apptainer", "exec", "--nv", "--bind", "/proj", "--bind", "/scratch", "/images/relion.sif",
		"relion_refine_mpi", "--o", "x",
	}, got)

	plain := c.wrap([]string{"relion_postprocess"}, 0, 0, "/proj")
	assert.NotContains(t, plain, "--nv")

	assert.Equal(t, []string{"true"}, ContainerConfig{}.wrap([]string{"true"}, 0, 2, "/proj"))
}

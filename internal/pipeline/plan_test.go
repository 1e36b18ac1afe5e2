package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/toolchain"
)

func defaultPlan(t *testing.T) (ConfigPlan, string) {
	t.Helper()
	cfg := config.Default()
	root := t.TempDir()
	cfg.Root = root
	return ConfigPlan{Config: cfg}, root
}

func TestConfigPlanStagesInOrder(t *testing.T) {
	plan, _ := defaultPlan(t)
	stages, err := plan.Stages(quietContext(DefaultOptions(), nil))
	require.NoError(t, err)

	require.Len(t, stages, 3)
	assert.Equal(t, StageTools, stages[0].Name)
	assert.Equal(t, StageData, stages[1].Name)
	assert.Equal(t, StageProject, stages[2].Name)
	assert.Len(t, stages[1].Steps, 3)
	// One solution build and the layout step.
	assert.Len(t, stages[2].Steps, 2)
}

func TestConfigPlanOnly(t *testing.T) {
	plan, _ := defaultPlan(t)
	plan.Only = []StageName{StageData}
	stages, err := plan.Stages(quietContext(DefaultOptions(), nil))
	require.NoError(t, err)
	require.Len(t, stages, 1)
	assert.Equal(t, StageData, stages[0].Name)
}

func TestConfigPlanGroups(t *testing.T) {
	plan, root := defaultPlan(t)
	opts, _ := ParseArgs([]string{"x86"})
	groups, err := plan.Groups(plan.Vars(opts))
	require.NoError(t, err)

	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}
	assert.Equal(t, []string{"compile_sponza_model", "compile_pbr_materials", "compile_utility_textures"}, names)

	sponza := groups[0]
	require.Len(t, sponza.Sets, 2)
	model := sponza.Sets[0]
	assert.Equal(t, filepath.Join(root, "Bin", "Win32", "Release", "Synesthesia3DTools", "ModelCompiler.exe"), model.Compiler.Executable)
	assert.Equal(t, []string{"sponza.obj"}, model.Source.Files)
	assert.Equal(t, "-q", model.Resolver.Resolve("sponza.obj").Options)

	tex := sponza.Sets[1]
	assert.True(t, tex.Source.Recursive)
	assert.Equal(t, []string{"Thumbs.db"}, tex.Source.Ignore)
	assert.Equal(t, "-q -f L8", tex.Resolver.Resolve("Arch_Metallic.png").Options)
	assert.Equal(t, "-q -f A8R8G8B8", tex.Resolver.Resolve("arch_albedo.png").Options)

	util := groups[2].Sets[0]
	assert.Equal(t, "-q -f A16B16G16R16F", util.Resolver.Resolve("sky.dds").Options)
	assert.Equal(t, "-q -f L8 -mip 1", util.Resolver.Resolve("noise.dds").Options)
}

func TestConfigPlanUnknownCompiler(t *testing.T) {
	plan, _ := defaultPlan(t)
	plan.Config.Data.Groups[0].Sets[0].Compiler = "shader"
	_, err := plan.Groups(plan.Vars(DefaultOptions()))
	require.Error(t, err)
}

func TestConfigPlanLayoutPaths(t *testing.T) {
	plan, root := defaultPlan(t)
	opts, _ := ParseArgs([]string{"profile"})
	layout := plan.layout(plan.Vars(opts))

	assert.Equal(t, filepath.Join(root, "Bin", "x64", "Profile", "GITechDemo"), layout.BinSource)
	assert.Equal(t, filepath.Join(root, "Build", "Windows", "GITechDemo"), layout.DistRoot)
	assert.Equal(t, filepath.Join(root, "Data"), layout.DataSource)
	assert.True(t, layout.Launchers)
}

func TestConfigPlanSolutionsGetExtension(t *testing.T) {
	plan, root := defaultPlan(t)
	got := plan.solutions("Code/Solutions", []string{"GITechDemo", "Other.sln"}, plan.Vars(DefaultOptions()))
	assert.Equal(t, []string{
		filepath.Join(root, "Code", "Solutions", "GITechDemo.sln"),
		filepath.Join(root, "Code", "Solutions", "Other.sln"),
	}, got)
}

func TestSourceDirsDeduplicated(t *testing.T) {
	plan, root := defaultPlan(t)
	dirs := plan.SourceDirs(DefaultOptions())
	assert.Equal(t, []string{
		filepath.Join(root, "DataSrc", "models", "sponza"),
		filepath.Join(root, "DataSrc", "models", "sponza", "textures"),
		filepath.Join(root, "DataSrc", "materials"),
		filepath.Join(root, "DataSrc", "textures"),
	}, dirs)
}

func TestNewFinderPrefersExplicitPath(t *testing.T) {
	plan, root := defaultPlan(t)
	plan.Config.Toolchain.Path = "VS/Common7/Tools"
	path, err := NewFinder(plan.Config, nil).Find(t.Context())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "VS", "Common7", "Tools"), path)

	plan.Config.Toolchain.Path = ""
	plan.Config.Toolchain.EnvVars = []string{"ASSETBUILDER_TEST_TOOLS"}
	t.Setenv("ASSETBUILDER_TEST_TOOLS", "/opt/vs/tools")
	path, err = NewFinder(plan.Config, nil).Find(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "/opt/vs/tools", path)

	t.Setenv("ASSETBUILDER_TEST_TOOLS", "")
	_, err = NewFinder(plan.Config, nil).Find(t.Context())
	assert.ErrorIs(t, err, toolchain.ErrNotFound)
}

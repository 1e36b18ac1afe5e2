package pipeline

import (
	"fmt"
	"path/filepath"
	"slices"

	"git.home.luguber.info/inful/assetbuilder/internal/asset"
	"git.home.luguber.info/inful/assetbuilder/internal/config"
	foundationerrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/msbuild"
	"git.home.luguber.info/inful/assetbuilder/internal/process"
	"git.home.luguber.info/inful/assetbuilder/internal/rules"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
	"git.home.luguber.info/inful/assetbuilder/internal/toolchain"
)

// ConfigPlan derives the stages of a run from the configuration file.
type ConfigPlan struct {
	Config *config.Config
	// Runner launches every external process; nil runs real processes.
	Runner process.Runner
	// Only restricts the run to the named stages; empty runs all three.
	Only []StageName
}

func (p ConfigPlan) includes(name StageName) bool {
	return len(p.Only) == 0 || slices.Contains(p.Only, name)
}

// Vars returns the path placeholders for a run with opts.
func (p ConfigPlan) Vars(opts Options) config.Vars {
	return config.Vars{
		Arch:          opts.Architecture.MSBuildPlatform(),
		ToolsPlatform: opts.Architecture.ToolsPlatform(),
		Configuration: string(opts.Configuration),
		Platform:      string(opts.Platform),
		Project:       p.Config.Project.Name,
	}
}

func (p ConfigPlan) Stages(rc *RunContext) ([]*Stage, error) {
	cfg := p.Config
	vars := p.Vars(rc.Options)
	builder := msbuild.Builder{
		Shell:       cfg.Toolchain.Shell,
		SetupScript: cfg.Toolchain.SetupScript,
		MSBuild:     cfg.Toolchain.MSBuild,
		Runner:      p.Runner,
	}

	pl := NewPipeline()
	if p.includes(StageTools) {
		pl.Add(NewToolsStage(rc, builder, p.solutions(cfg.Tools.SolutionDir, cfg.Tools.Solutions, vars), cfg.Tools.Configuration))
	}
	if p.includes(StageData) {
		groups, err := p.Groups(vars)
		if err != nil {
			return nil, err
		}
		pl.Add(NewDataStage(rc, DataSettings{
			LogDir:          cfg.Path(cfg.Data.LogDir, vars),
			CompareArtifact: cfg.Data.CompareArtifactMtime,
			Runner:          p.Runner,
		}, groups))
	}
	if p.includes(StageProject) {
		pl.Add(NewProjectStage(rc, builder, p.solutions(cfg.Project.SolutionDir, cfg.Project.Solutions, vars), p.layout(vars)))
	}
	return pl.Build(), nil
}

func (p ConfigPlan) solutions(dir string, names []string, vars config.Vars) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if filepath.Ext(name) != ".sln" {
			name += ".sln"
		}
		out = append(out, p.Config.Path(filepath.Join(dir, name), vars))
	}
	return out
}

func (p ConfigPlan) layout(vars config.Vars) Layout {
	cfg := p.Config
	if cfg.Project.Name == "" {
		return Layout{}
	}
	return Layout{
		Project:    cfg.Project.Name,
		BinSource:  cfg.Path(cfg.Project.BinDir, vars),
		Artifacts:  cfg.Project.Artifacts,
		DataSource: cfg.Path(cfg.Project.DataDir, vars),
		DistRoot:   cfg.Path(cfg.Project.DistDir, vars),
		Launchers:  cfg.Project.Launchers,
	}
}

// Groups resolves the configured data groups for vars.
func (p ConfigPlan) Groups(vars config.Vars) ([]Group, error) {
	cfg := p.Config
	compilers := make(map[string]task.Compiler, len(cfg.Compilers))
	resolvers := make(map[string]*rules.Resolver, len(cfg.Compilers))
	for _, c := range cfg.Compilers {
		rs, err := rules.NewResolver(c.DefaultOptions, ConvertRules(c.Rules)...)
		if err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "invalid compiler rules").
				WithContext("compiler", c.Name).
				Build()
		}
		resolvers[c.Name] = rs
		compilers[c.Name] = task.Compiler{
			Name:       c.Name,
			Kind:       asset.ParseKind(c.Kind),
			Executable: cfg.Path(c.Executable, vars),
			Extension:  c.Extension,
		}
	}

	groups := make([]Group, 0, len(cfg.Data.Groups))
	for _, gc := range cfg.Data.Groups {
		g := Group{Name: gc.Name}
		for i, sc := range gc.Sets {
			comp, ok := compilers[sc.Compiler]
			if !ok {
				return nil, foundationerrors.ConfigError(fmt.Sprintf("group %s set %d: unknown compiler %q", gc.Name, i, sc.Compiler)).Build()
			}
			rs := resolvers[sc.Compiler]
			if len(sc.Rules) > 0 {
				layered, err := rs.Layer(ConvertRules(sc.Rules)...)
				if err != nil {
					return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "invalid asset set rules").
						WithContext("group", gc.Name).
						Build()
				}
				rs = layered
			}
			g.Sets = append(g.Sets, AssetSet{
				Compiler: comp,
				Source: asset.Source{
					Dir:       cfg.Path(sc.Source, vars),
					Kind:      comp.Kind,
					Files:     sc.Files,
					Recursive: sc.Recursive,
					Ignore:    cfg.Data.Ignore,
				},
				OutputDir: cfg.Path(sc.Output, vars),
				Resolver:  rs,
			})
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// ConvertRules maps configured rules onto rules.Rule, keeping order.
func ConvertRules(in []config.RuleConfig) []rules.Rule {
	out := make([]rules.Rule, 0, len(in))
	for _, rc := range in {
		var r rules.Rule
		switch {
		case rc.Exact != "":
			r = rules.Exact(rc.Exact, rc.Options)
		case rc.Contains != "":
			r = rules.Contains(rc.Contains, rc.Options)
		default:
			r = rules.Glob(rc.Glob, rc.Options)
		}
		if rc.Name != "" {
			r.Name = rc.Name
		}
		out = append(out, r)
	}
	return out
}

// SourceDirs lists every asset set source directory, in configuration order.
func (p ConfigPlan) SourceDirs(opts Options) []string {
	vars := p.Vars(opts)
	var dirs []string
	for _, g := range p.Config.Data.Groups {
		for _, s := range g.Sets {
			dir := p.Config.Path(s.Source, vars)
			if !slices.Contains(dirs, dir) {
				dirs = append(dirs, dir)
			}
		}
	}
	return dirs
}

// NewFinder builds the toolchain lookup: an explicit path, then the locator
// executable, then the legacy environment variables.
func NewFinder(cfg *config.Config, runner process.Runner) toolchain.Finder {
	vars := config.Vars{}
	return toolchain.Chain{
		toolchain.Static(cfg.Path(cfg.Toolchain.Path, vars)),
		toolchain.VSWhere{Executable: cfg.Path(cfg.Toolchain.VSWhere, vars), Runner: runner},
		toolchain.Env{Vars: cfg.Toolchain.EnvVars},
	}
}

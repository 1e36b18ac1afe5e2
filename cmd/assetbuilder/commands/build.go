package commands

import "git.home.luguber.info/inful/assetbuilder/internal/pipeline"

// BuildCmd implements the default 'build' command: tools, data, project.
type BuildCmd struct {
	Tokens []string `arg:"" optional:"" help:"Run options: rebuild, release, profile, x64, x86"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	return runStages(g, root, "Build", b.Tokens)
}

// ToolsCmd implements the 'tools' command.
type ToolsCmd struct {
	Tokens []string `arg:"" optional:"" help:"Run options: rebuild, x64, x86"`
}

func (t *ToolsCmd) Run(g *Global, root *CLI) error {
	return runStages(g, root, "ToolsBuild", t.Tokens, pipeline.StageTools)
}

// DataCmd implements the 'data' command.
type DataCmd struct {
	Tokens []string `arg:"" optional:"" help:"Run options: rebuild, x64, x86"`
}

func (d *DataCmd) Run(g *Global, root *CLI) error {
	return runStages(g, root, "DataBuild", d.Tokens, pipeline.StageData)
}

// ProjectCmd implements the 'project' command.
type ProjectCmd struct {
	Tokens []string `arg:"" optional:"" help:"Run options: rebuild, release, profile, x64, x86"`
}

func (p *ProjectCmd) Run(g *Global, root *CLI) error {
	return runStages(g, root, "ProjectBuild", p.Tokens, pipeline.StageProject)
}

package config

// Defaults used when a field is omitted.
const (
	CurrentVersion         = "1.0"
	DefaultConfigFile      = "assetbuilder.yaml"
	DefaultPipelineVersion = "1"
	DefaultStateFile       = ".assetbuilder/state.json"
	DefaultHistoryFile     = ".assetbuilder/history.db"
	DefaultLogDir          = "Logs"
	DefaultNotifySubject   = "assetbuilder.runs"
	DefaultDebounce        = "300ms"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// CoreDefaultApplier handles top-level defaults.
type CoreDefaultApplier struct{}

func (CoreDefaultApplier) Domain() string { return "core" }

func (CoreDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}
	if cfg.Root == "" {
		cfg.Root = "."
	}
	if cfg.PipelineVersion == "" {
		cfg.PipelineVersion = DefaultPipelineVersion
	}
	if cfg.StateFile == "" {
		cfg.StateFile = DefaultStateFile
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = DefaultLogDir
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	return nil
}

// ToolchainDefaultApplier handles toolchain discovery and invocation defaults.
type ToolchainDefaultApplier struct{}

func (ToolchainDefaultApplier) Domain() string { return "toolchain" }

func (ToolchainDefaultApplier) ApplyDefaults(cfg *Config) error {
	t := &cfg.Toolchain
	if t.VSWhere == "" {
		t.VSWhere = "Tools/vswhere/vswhere.exe"
	}
	if len(t.EnvVars) == 0 {
		// VS2012 and later; older toolchains ship vsvars32.bat instead of VsDevCmd.bat.
		t.EnvVars = []string{"VS140COMNTOOLS", "VS120COMNTOOLS", "VS110COMNTOOLS"}
	}
	if t.Shell == "" {
		t.Shell = "cmd.exe"
	}
	if t.SetupScript == "" {
		t.SetupScript = "VsDevCmd.bat"
	}
	if t.MSBuild == "" {
		t.MSBuild = "MSBuild.exe"
	}
	if cfg.Tools.SolutionDir == "" {
		cfg.Tools.SolutionDir = "Code/Solutions"
	}
	if cfg.Tools.Configuration == "" {
		cfg.Tools.Configuration = "Release"
	}
	if cfg.Project.SolutionDir == "" {
		cfg.Project.SolutionDir = cfg.Tools.SolutionDir
	}
	return nil
}

// DataDefaultApplier handles data stage defaults.
type DataDefaultApplier struct{}

func (DataDefaultApplier) Domain() string { return "data" }

func (DataDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Data.LogDir == "" {
		cfg.Data.LogDir = "DataSrc/Logs"
	}
	if cfg.Data.Ignore == nil {
		cfg.Data.Ignore = []string{"Thumbs.db"}
	}
	return nil
}

// ProjectDefaultApplier handles project layout defaults.
type ProjectDefaultApplier struct{}

func (ProjectDefaultApplier) Domain() string { return "project" }

func (ProjectDefaultApplier) ApplyDefaults(cfg *Config) error {
	p := &cfg.Project
	if p.BinDir == "" {
		p.BinDir = "Bin/${arch}/${configuration}/${project}"
	}
	if p.DataDir == "" {
		p.DataDir = "Data"
	}
	if p.DistDir == "" {
		p.DistDir = "Build/${platform}/${project}"
	}
	if len(p.Artifacts) == 0 {
		p.Artifacts = []string{"*.exe", "*.dll"}
	}
	return nil
}

// IntegrationDefaultApplier handles history, notification and watch defaults.
type IntegrationDefaultApplier struct{}

func (IntegrationDefaultApplier) Domain() string { return "integration" }

func (IntegrationDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryFile
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = DefaultNotifySubject
	}
	if cfg.Watch.Debounce == "" {
		cfg.Watch.Debounce = DefaultDebounce
	}
	return nil
}

// ApplyDefaults runs every domain applier in order.
func ApplyDefaults(cfg *Config) error {
	appliers := []DefaultApplier{
		CoreDefaultApplier{},
		ToolchainDefaultApplier{},
		DataDefaultApplier{},
		ProjectDefaultApplier{},
		IntegrationDefaultApplier{},
	}
	for _, a := range appliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}

const (
	toolsBin   = "Bin/${tools_platform}/Release/Synesthesia3DTools/"
	pbrTexture = "-q -f L8"
)

// Default returns the configuration reproducing the GITechDemo build layout.
func Default() *Config {
	cfg := &Config{
		Version: CurrentVersion,
		Tools: ToolsConfig{
			Solutions: []string{"Synesthesia3DTools"},
		},
		Compilers: []CompilerConfig{
			{
				Name:           "model",
				Kind:           "model",
				Executable:     toolsBin + "ModelCompiler.exe",
				Extension:      ".s3dmdl",
				DefaultOptions: "-q",
			},
			{
				Name:           "texture",
				Kind:           "texture",
				Executable:     toolsBin + "TextureCompiler.exe",
				Extension:      ".s3dtex",
				DefaultOptions: "-q -f A8R8G8B8",
			},
		},
		Data: DataConfig{
			Groups: []GroupConfig{
				{
					Name: "compile_sponza_model",
					Sets: []AssetSetConfig{
						{
							Compiler: "model",
							Source:   "DataSrc/models/sponza",
							Output:   "Data/models/sponza",
							Files:    []string{"sponza.obj"},
						},
						{
							Compiler:  "texture",
							Source:    "DataSrc/models/sponza/textures",
							Output:    "Data/models/sponza/textures",
							Recursive: true,
							Rules:     pbrRules(),
						},
					},
				},
				{
					Name: "compile_pbr_materials",
					Sets: []AssetSetConfig{
						{
							Compiler:  "texture",
							Source:    "DataSrc/materials",
							Output:    "Data/materials",
							Recursive: true,
							Rules:     pbrRules(),
						},
					},
				},
				{
					Name: "compile_utility_textures",
					Sets: []AssetSetConfig{
						{
							Compiler:  "texture",
							Source:    "DataSrc/textures",
							Output:    "Data/textures",
							Recursive: true,
							Rules: []RuleConfig{
								{Exact: "sky.dds", Options: "-q -f A16B16G16R16F"},
								{Exact: "LensFlareDirt.png", Options: "-q -f A8R8G8B8 -mip 1"},
								{Exact: "LensFlareStarBurst.png", Options: "-q -f A8R8G8B8 -mip 1"},
								{Exact: "bayer_matrix.dds", Options: "-q -f L8 -mip 1"},
								{Exact: "noise.dds", Options: "-q -f L8 -mip 1"},
							},
						},
					},
				},
			},
		},
		Project: ProjectConfig{
			Name:      "GITechDemo",
			Solutions: []string{"GITechDemo"},
			Launchers: true,
		},
	}
	_ = ApplyDefaults(cfg)
	return cfg
}

func pbrRules() []RuleConfig {
	return []RuleConfig{
		{Name: "metallic", Contains: "_metallic.", Options: pbrTexture},
		{Name: "roughness", Contains: "_roughness.", Options: pbrTexture},
	}
}

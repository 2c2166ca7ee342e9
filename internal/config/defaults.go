package config

const (
	defaultInputDir       = "~/.local/share/geminitl/input"
	defaultOutputDir      = "~/.local/share/geminitl/output"
	defaultLogDir         = "~/.local/share/geminitl/logs"
	defaultGlossaryDir    = "~/.local/share/geminitl/glossaries"
	defaultDatabasePath   = "~/.local/share/geminitl/jobs.db"
	defaultLockPath       = "~/.local/share/geminitl/run.lock"
	defaultProviderName   = "gemini"
	defaultSourceLanguage = "Japanese"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"

	defaultMaxRetries           = 3
	defaultBaseDelaySeconds     = 1.0
	defaultRequestTimeout       = 120
	defaultSizeDeviationPercent = 115.0
	defaultSizeDeviationKB      = 7.0
	defaultSizeRetryLimit       = 4
	defaultSizeRetryBaseSecs    = 30
	defaultGlossaryDelaySecs    = 3
	defaultProofingMinBytes     = 1024
	defaultMaxChunkBytes        = 10240
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:     defaultInputDir,
			OutputDir:    defaultOutputDir,
			LogDir:       defaultLogDir,
			GlossaryDir:  defaultGlossaryDir,
			DatabasePath: defaultDatabasePath,
			LockPath:     defaultLockPath,
		},
		Translation: Translation{
			DefaultProvider: defaultProviderName,
			FallbackOrder:   []string{"gemini", "openai", "anthropic"},
			SourceLanguage:  defaultSourceLanguage,
		},
		Providers: map[string]Provider{
			"gemini":    {Enabled: true, Settings: map[string]string{}},
			"openai":    {Enabled: false, Settings: map[string]string{}},
			"anthropic": {Enabled: false, Settings: map[string]string{}},
		},
		Retry: Retry{
			MaxRetries:         defaultMaxRetries,
			BaseDelaySeconds:   defaultBaseDelaySeconds,
			ExponentialBackoff: true,
		},
		Workflow: Workflow{
			RequestTimeoutSeconds: defaultRequestTimeout,
			SizeDeviationPercent:  defaultSizeDeviationPercent,
			SizeDeviationKB:       defaultSizeDeviationKB,
			SizeRetryLimit:        defaultSizeRetryLimit,
			SizeRetryBaseSeconds:  defaultSizeRetryBaseSecs,
			GlossaryDelaySeconds:  defaultGlossaryDelaySecs,
			ProofingMinSizeBytes:  defaultProofingMinBytes,
			MaxChapterChunkBytes:  defaultMaxChunkBytes,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

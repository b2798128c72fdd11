package config

const (
	defaultSplit        = "train"
	defaultBBoxType     = "amodal"
	defaultDatasetsPath = "~/datasets/bop"
	defaultInfoURL      = "https://github.com/thodan/bop_toolkit"
	defaultInfoVersion  = "0.1.0"
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"

	// datasetsPathEnv mirrors the BOP toolkit's dataset root variable.
	datasetsPathEnv = "BOP_DATASETS_PATH"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Dataset: Dataset{
			Split:    defaultSplit,
			BBoxType: defaultBBoxType,
		},
		Info: Info{
			URL:     defaultInfoURL,
			Version: defaultInfoVersion,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

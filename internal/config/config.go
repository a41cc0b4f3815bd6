package config

import (
	"os"
	"path/filepath"
)

type Config struct {
	Cache  CacheConfig
	Output OutputConfig
	Tools  ToolsConfig
	Fetch  FetchConfig
	Log    LogConfig
}

type CacheConfig struct {
	// Dir holds downloaded sources and graph-document intermediaries.
	Dir string
}

type OutputConfig struct {
	Dir string
}

// ToolsConfig names the external engine commands. Paths are resolved through
// PATH unless absolute.
type ToolsConfig struct {
	Java         string
	RobotJar     string
	Docker       string
	SemsqlImage  string
	Runoak       string
	Perl         string
	RxNormScript string
}

type FetchConfig struct {
	// Redownload forces refetching sources whose cache file already exists.
	Redownload bool
}

type LogConfig struct {
	Level string
	File  string
}

func defaults() Config {
	return Config{
		Cache:  CacheConfig{Dir: defaultCacheDir()},
		Output: OutputConfig{Dir: "output"},
		Tools: ToolsConfig{
			Java:         "java",
			RobotJar:     "robot.jar",
			Docker:       "docker",
			SemsqlImage:  "obolibrary/odkfull:dev",
			Runoak:       "runoak",
			Perl:         "perl",
			RxNormScript: "convert_owl_ncbo2owl.pl",
		},
		Log: LogConfig{Level: "info"},
	}
}

func defaultCacheDir() string {
	dir := os.Getenv("XDG_CACHE_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".cache")
		} else {
			return "cache"
		}
	}
	return filepath.Join(dir, "owl2fhir")
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/owl2fhir/config.json, then applies OWL2FHIR_* environment
// overrides.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()))
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()
	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

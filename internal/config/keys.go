package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kBool
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "cache.dir", typ: kString, env: "OWL2FHIR_CACHE_DIR",
		apply:   func(cfg *Config, v any) { cfg.Cache.Dir = v.(string) },
		extract: func(cfg Config) any { return cfg.Cache.Dir },
	},
	{
		key: "output.dir", typ: kString, env: "OWL2FHIR_OUTPUT_DIR",
		apply:   func(cfg *Config, v any) { cfg.Output.Dir = v.(string) },
		extract: func(cfg Config) any { return cfg.Output.Dir },
	},
	{
		key: "tools.java", typ: kString, env: "OWL2FHIR_TOOLS_JAVA",
		apply:   func(cfg *Config, v any) { cfg.Tools.Java = v.(string) },
		extract: func(cfg Config) any { return cfg.Tools.Java },
	},
	{
		key: "tools.robot_jar", typ: kString, env: "OWL2FHIR_TOOLS_ROBOT_JAR",
		apply:   func(cfg *Config, v any) { cfg.Tools.RobotJar = v.(string) },
		extract: func(cfg Config) any { return cfg.Tools.RobotJar },
	},
	{
		key: "tools.docker", typ: kString, env: "OWL2FHIR_TOOLS_DOCKER",
		apply:   func(cfg *Config, v any) { cfg.Tools.Docker = v.(string) },
		extract: func(cfg Config) any { return cfg.Tools.Docker },
	},
	{
		key: "tools.semsql_image", typ: kString, env: "OWL2FHIR_TOOLS_SEMSQL_IMAGE",
		apply:   func(cfg *Config, v any) { cfg.Tools.SemsqlImage = v.(string) },
		extract: func(cfg Config) any { return cfg.Tools.SemsqlImage },
	},
	{
		key: "tools.runoak", typ: kString, env: "OWL2FHIR_TOOLS_RUNOAK",
		apply:   func(cfg *Config, v any) { cfg.Tools.Runoak = v.(string) },
		extract: func(cfg Config) any { return cfg.Tools.Runoak },
	},
	{
		key: "tools.perl", typ: kString, env: "OWL2FHIR_TOOLS_PERL",
		apply:   func(cfg *Config, v any) { cfg.Tools.Perl = v.(string) },
		extract: func(cfg Config) any { return cfg.Tools.Perl },
	},
	{
		key: "tools.rxnorm_script", typ: kString, env: "OWL2FHIR_TOOLS_RXNORM_SCRIPT",
		apply:   func(cfg *Config, v any) { cfg.Tools.RxNormScript = v.(string) },
		extract: func(cfg Config) any { return cfg.Tools.RxNormScript },
	},
	{
		key: "fetch.redownload", typ: kBool, env: "OWL2FHIR_FETCH_REDOWNLOAD",
		apply:   func(cfg *Config, v any) { cfg.Fetch.Redownload = v.(bool) },
		extract: func(cfg Config) any { return cfg.Fetch.Redownload },
	},
	{
		key: "log.level", typ: kString, env: "OWL2FHIR_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "log.file", typ: kString, env: "OWL2FHIR_LOG_FILE",
		apply:   func(cfg *Config, v any) { cfg.Log.File = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.File },
	},
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		v, ok, err := b.GetString(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, v)
		case kBool:
			if v == "" {
				continue
			}
			if bv, err := strconv.ParseBool(v); err == nil {
				s.apply(cfg, bv)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}

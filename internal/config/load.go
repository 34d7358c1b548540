// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

package config

import (
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// FlagKeys maps command-line flag names to configuration keys. Flags not listed
// here are ignored by Load.
var FlagKeys = map[string]string{
	"input":      "options.input",
	"out-dir":    "options.dir",
	"format":     "options.format",
	"platform":   "options.platform",
	"watch":      "options.watch",
	"log-level":  "log.level",
	"log-format": "log.format",
}

// Load reads the configuration at path and overlays flags.
//
// An empty path skips the file. Flags the user set always win; unset flags only
// supply defaults for keys the file leaves out. The result is validated.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, oops.Code(CodeLoadFailed).With("path", path).Wrapf(err, "config file not readable")
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code(CodeLoadFailed).With("path", path).Wrapf(err, "failed to parse config")
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := FlagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code(CodeLoadFailed).Wrapf(err, "failed to load flags")
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code(CodeLoadFailed).With("path", path).Wrapf(err, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	return cfg, nil
}

// Default returns the configuration used when no file sets a value.
func Default() *Config {
	return &Config{
		Version: "1.0.0",
		Options: Options{Dir: "dist", Format: "esm"},
		Log:     Log{Level: "info", Format: "text"},
	}
}

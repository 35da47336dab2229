// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the viewer's settings. Precedence, highest to
// lowest: command-line flags, CDV_ environment variables, the config file,
// built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// S3 is the credential block for s3:// sources. Empty fields fall back to
// the engine's defaults.
type S3 struct {
	KeyID        string `koanf:"key_id"`
	Secret       string `koanf:"secret"`
	SessionToken string `koanf:"session_token"`
	Region       string `koanf:"region"`
	Endpoint     string `koanf:"endpoint"`
}

// Config is the viewer's resolved settings.
type Config struct {
	// RowLimit caps how many rows a query materializes into memory.
	// 0 means no cap.
	RowLimit int `koanf:"row_limit"`
	// Theme selects the color variant: "dark", "light" or "" for the
	// system default.
	Theme string `koanf:"theme"`
	// S3 is applied to every s3:// source added during the session.
	S3 S3 `koanf:"s3"`
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "cdv", "config.yaml")
}

// Load layers defaults, the config file (cfgFile, or the per-user default
// when empty), CDV_ environment variables and the given flag set. A missing
// config file is not an error; a malformed one is.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"row_limit": 0,
		"theme":     "",
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	path := cfgFile
	if path == "" {
		path = DefaultPath()
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("error reading config file %s: %w", path, err)
			}
		} else if cfgFile != "" {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// CDV_S3_KEY_ID -> s3.key_id
	if err := k.Load(env.Provider("CDV_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "CDV_"))
		if after, ok := strings.CutPrefix(key, "s3_"); ok {
			return "s3." + after
		}
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if cfg.RowLimit < 0 {
		return nil, fmt.Errorf("row_limit must not be negative, got %d", cfg.RowLimit)
	}
	return &cfg, nil
}

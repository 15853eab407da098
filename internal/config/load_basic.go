// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"grimm.is/vrouter/internal/errors"
)

// LoadFile loads an appliance config file (HCL or JSON), applies defaults
// and validates it.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindNotFound, "failed to read config file %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		return LoadHCL(data, path)
	case ".json":
		return LoadJSON(data)
	default:
		cfg, hclErr := LoadHCL(data, path)
		if hclErr == nil {
			return cfg, nil
		}
		cfg, jsonErr := LoadJSON(data)
		if jsonErr == nil {
			return cfg, nil
		}
		return nil, errors.Wrapf(hclErr, errors.KindValidation,
			"failed to parse config as HCL (JSON fallback error: %v)", jsonErr)
	}
}

// LoadHCL loads config from HCL bytes.
func LoadHCL(data []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, errors.Wrap(diags, errors.KindValidation, "failed to parse HCL")
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	for _, diag := range diags {
		if diag.Severity == hcl.DiagError {
			return nil, errors.Wrap(diags, errors.KindValidation, "failed to decode HCL")
		}
	}

	return finish(&cfg)
}

// LoadJSON loads config from JSON bytes.
func LoadJSON(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, errors.KindValidation, "failed to parse JSON")
	}
	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	if cfg.SchemaVersion != "" && cfg.SchemaVersion != CurrentSchemaVersion {
		return nil, errors.Errorf(errors.KindValidation,
			"config version %s does not match supported version %s", cfg.SchemaVersion, CurrentSchemaVersion)
	}
	if err := cfg.Canonicalize(); err != nil {
		return nil, errors.Wrap(err, errors.KindValidation, "canonicalization failed")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// String renders a one-line summary safe for logs.
func (c *Config) String() string {
	return fmt.Sprintf("%s(type=%s redundant=%t addresses=%d)", c.Name, c.Type, c.Redundant, len(c.Addresses))
}

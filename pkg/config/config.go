package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/bedag/subst-installer/pkg/release"
	"github.com/bedag/subst-installer/pkg/spec"
	"github.com/bedag/subst-installer/schema"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is looked up in the working directory and its parents.
const DefaultConfigPath = ".config/subst-installer.yml"

// Load reads and parses a release table file from the given path.
// A path of "-" reads from stdin.
func Load(path string) (*spec.ReleaseTable, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read release table: %s", path)
	}
	return Parse(data, path)
}

// Parse decodes a release table, checks it against the schema, applies
// defaults and validates it.
func Parse(data []byte, source string) (*spec.ReleaseTable, error) {
	var table spec.ReleaseTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, errors.Wrapf(err, "failed to parse release table: %s", source)
	}
	if err := schema.Validate(data); err != nil {
		return nil, errors.Wrapf(err, "invalid release table: %s", source)
	}

	if err := table.SetDefaults(); err != nil {
		return nil, errors.Wrapf(err, "invalid release table: %s", source)
	}
	// Duplicate variants are left to the installer so they surface as an
	// ambiguous variant for the affected platform
	if err := table.Validate(); err != nil {
		var dup *spec.DuplicateVariantError
		if !errors.As(err, &dup) {
			return nil, errors.Wrapf(err, "invalid release table: %s", source)
		}
		log.Warnf("release table %s: %v", source, err)
	}

	return &table, nil
}

// Discover searches for a release table file in the current directory
// and parent directories
func Discover() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(err, "failed to get current directory")
	}

	for {
		configPath := filepath.Join(dir, DefaultConfigPath)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		// Check if we've reached the root
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("no release table found")
}

// LoadOrDefault loads the table at configPath. With an empty path it tries
// Discover and falls back to the embedded table for version. The returned
// source names where the table came from.
func LoadOrDefault(configPath, version string) (table *spec.ReleaseTable, source string, err error) {
	if configPath == "" {
		if discovered, err := Discover(); err == nil {
			configPath = discovered
		}
	}

	if configPath != "" {
		log.Debugf("Loading release table from %s", configPath)
		table, err := Load(configPath)
		if err != nil {
			return nil, "", err
		}
		return table, configPath, nil
	}

	table, err = release.Lookup(version)
	if err != nil {
		return nil, "", err
	}
	return table, "embedded", nil
}

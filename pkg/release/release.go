// Package release holds the release tables compiled into the installer.
//
// Each file under tables/ describes exactly one published version. A new
// release adds a new file, existing files are never edited.
package release

import (
	"embed"
	"fmt"
	"path"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/bedag/subst-installer/pkg/spec"
	"github.com/bedag/subst-installer/schema"
	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"
)

//go:embed tables/*.yml
var tablesFS embed.FS

// UnknownVersionError is returned by Lookup for versions with no embedded table.
type UnknownVersionError struct {
	Version   string
	Available []string
}

func (e *UnknownVersionError) Error() string {
	return fmt.Sprintf("no release table for version %s (available: %v)", e.Version, e.Available)
}

// Parse decodes, schema checks, defaults and validates a release table.
func Parse(data []byte) (*spec.ReleaseTable, error) {
	var table spec.ReleaseTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, errors.Wrap(err, "failed to parse release table")
	}
	if err := schema.Validate(data); err != nil {
		return nil, err
	}
	if err := table.SetDefaults(); err != nil {
		return nil, err
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &table, nil
}

// All returns every embedded table, newest version first.
func All() ([]*spec.ReleaseTable, error) {
	entries, err := tablesFS.ReadDir("tables")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list embedded release tables")
	}

	tables := make([]*spec.ReleaseTable, 0, len(entries))
	for _, entry := range entries {
		data, err := tablesFS.ReadFile(path.Join("tables", entry.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", entry.Name())
		}
		table, err := Parse(data)
		if err != nil {
			return nil, errors.Wrapf(err, "embedded table %s", entry.Name())
		}
		tables = append(tables, table)
	}

	sort.SliceStable(tables, func(i, j int) bool {
		return versionLess(tables[j].Version, tables[i].Version)
	})
	return tables, nil
}

// Versions lists the embedded versions, newest first.
func Versions() ([]string, error) {
	tables, err := All()
	if err != nil {
		return nil, err
	}
	versions := make([]string, len(tables))
	for i, t := range tables {
		versions[i] = t.Version
	}
	return versions, nil
}

// Default returns the table of the newest embedded version.
func Default() (*spec.ReleaseTable, error) {
	return Lookup("")
}

// Lookup returns the embedded table for version. An empty version or
// "latest" selects the newest one. A leading "v" is ignored.
func Lookup(version string) (*spec.ReleaseTable, error) {
	tables, err := All()
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("no embedded release tables")
	}
	if version == "" || version == "latest" {
		return tables[0], nil
	}

	for _, t := range tables {
		if VersionMatches(version, t.Version) {
			return t, nil
		}
	}

	available := make([]string, len(tables))
	for i, t := range tables {
		available[i] = t.Version
	}
	return nil, &UnknownVersionError{Version: version, Available: available}
}

// VersionMatches reports whether the requested version selects a table of
// version table. An empty request or "latest" accepts any table. Versions
// are compared as semver, so "v1.2" and "1.2.0" match.
func VersionMatches(requested, table string) bool {
	if requested == "" || requested == "latest" {
		return true
	}
	return sameVersion(requested, table)
}

func sameVersion(a, b string) bool {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA != nil || errB != nil {
		return trimV(a) == trimV(b)
	}
	return va.Equal(vb)
}

// versionLess orders by semver, falling back to string order for
// versions that do not parse.
func versionLess(a, b string) bool {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA != nil || errB != nil {
		return trimV(a) < trimV(b)
	}
	return va.LessThan(vb)
}

func trimV(s string) string {
	if len(s) > 0 && s[0] == 'v' {
		return s[1:]
	}
	return s
}

// Package checksums builds pinned release tables for new versions from the
// checksum file published with a release, or from the archives themselves.
package checksums

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/apex/log"
	"github.com/bedag/subst-installer/pkg/spec"
	"github.com/bedag/subst-installer/pkg/verify"
	"github.com/buildkite/interpolate"
	"github.com/pkg/errors"
)

// EmbedMode represents the checksum acquisition mode
type EmbedMode string

const (
	// EmbedModeDownload downloads the checksum file next to the archives
	EmbedModeDownload EmbedMode = "download"
	// EmbedModeChecksumFile uses a local checksum file
	EmbedModeChecksumFile EmbedMode = "checksum-file"
	// EmbedModeCalculate downloads every archive and hashes it
	EmbedModeCalculate EmbedMode = "calculate"
)

// DefaultChecksumTemplate names the checksum file goreleaser publishes.
const DefaultChecksumTemplate = "${NAME}_${VERSION}_checksums.txt"

// DefaultPlatforms is used when the template table lists no variants.
var DefaultPlatforms = []spec.Platform{
	{OS: spec.OSDarwin, Arch: spec.ArchAMD64},
	{OS: spec.OSDarwin, Arch: spec.ArchARM64},
	{OS: spec.OSLinux, Arch: spec.ArchARM64},
	{OS: spec.OSLinux, Arch: spec.ArchAMD64},
	{OS: spec.OSLinux, Arch: spec.ArchARMv6},
}

// Fetcher downloads a URL into a file under destDir.
type Fetcher interface {
	Fetch(ctx context.Context, url, destDir string) (string, error)
}

// Embedder builds the release table of Version. Template supplies the name,
// binary, metadata, URL template and platform list.
type Embedder struct {
	Mode     EmbedMode
	Version  string
	Template *spec.ReleaseTable
	// ChecksumFile is read in checksum-file mode ("-" reads stdin)
	ChecksumFile string
	// ChecksumTemplate names the checksum file in download mode
	ChecksumTemplate string
	Fetcher          Fetcher
}

// Embed returns a validated table for e.Version with one pinned variant per
// platform that has a checksum. Platforms without one are skipped.
func (e *Embedder) Embed(ctx context.Context) (*spec.ReleaseTable, error) {
	if e.Template == nil {
		return nil, fmt.Errorf("template release table cannot be nil")
	}
	if e.Template.URLTemplate == "" {
		return nil, fmt.Errorf("template release table %s has no url_template", e.Template.Name)
	}
	if e.Version == "" {
		return nil, fmt.Errorf("version is required")
	}

	table := &spec.ReleaseTable{
		Schema:      e.Template.Schema,
		Name:        e.Template.Name,
		Version:     strings.TrimPrefix(e.Version, "v"),
		Binary:      e.Template.Binary,
		License:     e.Template.License,
		Homepage:    e.Template.Homepage,
		URLTemplate: e.Template.URLTemplate,
	}

	assets := make(map[spec.Platform]string)
	platforms := e.platforms()
	for _, p := range platforms {
		u, err := table.ExpandURL(p)
		if err != nil {
			return nil, err
		}
		assets[p] = u
	}

	var sums map[string]string
	var err error
	switch e.Mode {
	case EmbedModeDownload:
		sums, err = e.downloadChecksumFile(ctx, table, assets[platforms[0]])
	case EmbedModeChecksumFile:
		if e.ChecksumFile == "" {
			return nil, fmt.Errorf("checksum file path is required for checksum-file mode")
		}
		log.Infof("Parsing checksums from file: %s", e.ChecksumFile)
		sums, err = ParseFile(e.ChecksumFile)
	case EmbedModeCalculate:
		sums, err = e.calculateChecksums(ctx, platforms, assets)
	default:
		return nil, fmt.Errorf("invalid mode: %s", e.Mode)
	}
	if err != nil {
		return nil, err
	}

	for _, p := range platforms {
		asset := AssetName(assets[p])
		hash, ok := sums[asset]
		if !ok {
			log.Warnf("No checksum for %s (%s), skipping", p, asset)
			continue
		}
		if !spec.IsSHA256(hash) {
			return nil, fmt.Errorf("checksum for %s is not a sha256 digest: %s", asset, hash)
		}
		table.Variants = append(table.Variants, spec.ReleaseVariant{
			OS:     p.OS,
			Arch:   p.Arch,
			SHA256: strings.ToLower(hash),
		})
	}
	if len(table.Variants) == 0 {
		return nil, fmt.Errorf("no checksums found for any platform of %s %s", table.Name, table.Version)
	}

	// Variant URLs are left to url_template, validate the expanded form
	expanded := *table
	expanded.Variants = append([]spec.ReleaseVariant(nil), table.Variants...)
	if err := expanded.SetDefaults(); err != nil {
		return nil, err
	}
	if err := expanded.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// platforms returns the template's platforms without duplicates, or
// DefaultPlatforms.
func (e *Embedder) platforms() []spec.Platform {
	seen := make(map[spec.Platform]bool)
	var platforms []spec.Platform
	for _, p := range e.Template.Platforms() {
		if !seen[p] {
			seen[p] = true
			platforms = append(platforms, p)
		}
	}
	if len(platforms) == 0 {
		return DefaultPlatforms
	}
	return platforms
}

// ChecksumURL returns the URL of the checksum file published in the same
// directory as assetURL.
func (e *Embedder) ChecksumURL(table *spec.ReleaseTable, assetURL string) (string, error) {
	tmpl := e.ChecksumTemplate
	if tmpl == "" {
		tmpl = DefaultChecksumTemplate
	}
	env := interpolate.NewMapEnv(map[string]string{
		"NAME":    table.Name,
		"VERSION": table.Version,
		"TAG":     "v" + table.Version,
	})
	filename, err := interpolate.Interpolate(env, tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to interpolate checksum template: %w", err)
	}

	u, err := url.Parse(assetURL)
	if err != nil {
		return "", errors.Wrapf(err, "invalid asset url %s", assetURL)
	}
	u.Path = path.Join(path.Dir(u.Path), filename)
	return u.String(), nil
}

func (e *Embedder) downloadChecksumFile(ctx context.Context, table *spec.ReleaseTable, assetURL string) (map[string]string, error) {
	if e.Fetcher == nil {
		return nil, fmt.Errorf("download mode requires a fetcher")
	}
	checksumURL, err := e.ChecksumURL(table, assetURL)
	if err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp("", "subst-installer-checksums-")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create temp directory")
	}
	defer os.RemoveAll(tmpDir)

	log.Infof("Downloading checksums from %s", checksumURL)
	file, err := e.Fetcher.Fetch(ctx, checksumURL, tmpDir)
	if err != nil {
		return nil, err
	}
	return ParseFile(file)
}

func (e *Embedder) calculateChecksums(ctx context.Context, platforms []spec.Platform, assets map[spec.Platform]string) (map[string]string, error) {
	if e.Fetcher == nil {
		return nil, fmt.Errorf("calculate mode requires a fetcher")
	}
	tmpDir, err := os.MkdirTemp("", "subst-installer-calculate-")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create temp directory")
	}
	defer os.RemoveAll(tmpDir)

	sums := make(map[string]string, len(platforms))
	for _, p := range platforms {
		assetURL := assets[p]
		log.Infof("Downloading %s", assetURL)
		file, err := e.Fetcher.Fetch(ctx, assetURL, tmpDir)
		if err != nil {
			log.WithError(err).Warnf("Failed to download archive for %s", p)
			continue
		}
		hash, err := verify.ComputeSHA256(file)
		os.Remove(file)
		if err != nil {
			return nil, err
		}
		sums[AssetName(assetURL)] = hash
	}
	return sums, nil
}

// ParseFile parses a checksum file. A path of "-" reads from stdin.
func ParseFile(checksumFile string) (map[string]string, error) {
	if checksumFile == "-" {
		return Parse(os.Stdin)
	}
	file, err := os.Open(checksumFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open checksum file: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

// Parse reads "<hash> [*]<filename>" lines and returns a map of filename
// to hash.
func Parse(r io.Reader) (map[string]string, error) {
	checksums := make(map[string]string)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 2 {
			log.Warnf("Ignoring invalid checksum line: %s", line)
			continue
		}

		// Binary mode entries carry a leading *
		filename := strings.TrimPrefix(parts[1], "*")
		checksums[filename] = parts[0]
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading checksum file: %w", err)
	}
	if len(checksums) == 0 {
		return nil, fmt.Errorf("no checksums found in file")
	}
	return checksums, nil
}

// AssetName returns the file name part of a download URL.
func AssetName(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(rawURL)
}

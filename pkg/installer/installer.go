// Package installer runs the install pipeline: it selects the release variant
// for a platform, downloads and verifies the archive, extracts the executable
// and places it in the binary directory.
//
// Every stage is terminal on failure. Either the verified executable is
// installed or the binary directory is left untouched.
package installer

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/bedag/subst-installer/pkg/archive"
	"github.com/bedag/subst-installer/pkg/install"
	"github.com/bedag/subst-installer/pkg/release"
	"github.com/bedag/subst-installer/pkg/resolve"
	"github.com/bedag/subst-installer/pkg/spec"
	"github.com/bedag/subst-installer/pkg/verify"
	"github.com/pkg/errors"
)

// Fetcher downloads a URL into a file under destDir. Download failures are
// reported as *RetrievalError, any other error is treated as local.
type Fetcher interface {
	Fetch(ctx context.Context, url, destDir string) (string, error)
}

// InstalledArtifact describes the executable placed by Install.
type InstalledArtifact struct {
	Path     string
	Name     string
	Version  string
	Platform spec.Platform
	URL      string
	SHA256   string
	// DryRun is set when nothing was downloaded or written
	DryRun bool
}

// Installer installs release variants into BinDir.
type Installer struct {
	Fetcher Fetcher
	// BinDir is resolved with install.ResolveInstallDir
	BinDir string
	DryRun bool
	// ScratchDir is the parent of the per-run download directory
	// (default os.TempDir)
	ScratchDir string
}

// Install selects the variant of table built for platform and installs it.
// Nothing is cached between calls, every call downloads and verifies again.
func (i *Installer) Install(ctx context.Context, version string, table *spec.ReleaseTable, platform spec.Platform) (*InstalledArtifact, error) {
	if table == nil {
		return nil, fmt.Errorf("no release table")
	}
	if !release.VersionMatches(version, table.Version) {
		return nil, fmt.Errorf("requested version %s but release table is for %s %s", version, table.Name, table.Version)
	}

	// Resolve
	variant, err := resolve.Select(table, platform)
	if err != nil {
		return nil, err
	}
	log.Infof("Selected %s %s for %s", table.Name, table.Version, platform)

	binDir, err := install.ResolveInstallDir(i.BinDir)
	if err != nil {
		return nil, err
	}
	binary := table.Binary
	if binary == "" {
		binary = table.Name
	}

	artifact := &InstalledArtifact{
		Path:     filepath.Join(binDir, binary),
		Name:     binary,
		Version:  table.Version,
		Platform: platform,
		URL:      variant.URL,
		SHA256:   strings.ToLower(variant.SHA256),
	}

	if i.DryRun {
		log.Info(install.DryRunOutput(variant.URL, artifact.Path))
		artifact.DryRun = true
		return artifact, nil
	}
	if i.Fetcher == nil {
		return nil, fmt.Errorf("installer has no fetcher")
	}

	scratch, err := os.MkdirTemp(i.ScratchDir, "subst-installer-")
	if err != nil {
		return nil, &InstallError{Path: i.ScratchDir, Err: errors.Wrap(err, "failed to create scratch directory")}
	}
	defer os.RemoveAll(scratch)

	// Fetch
	log.Infof("Downloading %s", variant.URL)
	archivePath, err := i.Fetcher.Fetch(ctx, variant.URL, scratch)
	if err != nil {
		return nil, localError(err, scratch, new(*RetrievalError))
	}

	// Verify
	if err := verify.Digest(archivePath, variant.SHA256); err != nil {
		return nil, localError(err, archivePath, new(*IntegrityError))
	}
	log.Infof("Checksum verified for %s", assetName(variant.URL))

	// Extract
	if format := archive.DetectFormat(assetName(variant.URL)); format != archive.FormatTarGz {
		return nil, &ExtractionError{Archive: variant.URL, Reason: fmt.Sprintf("unsupported archive format %s", format)}
	}
	extracted, err := archive.ExtractBinary(archivePath, binary, filepath.Join(scratch, "extract"))
	if err != nil {
		return nil, err
	}

	// Install
	installed, err := install.InstallBinary(extracted, binDir, binary)
	if err != nil {
		return nil, err
	}
	artifact.Path = installed
	log.Infof("Installed %s to %s", binary, installed)
	return artifact, nil
}

// localError passes err through when it matches target and otherwise
// reports it as a failure of the local filesystem under path.
func localError(err error, path string, target interface{}) error {
	if errors.As(err, target) {
		return err
	}
	return &InstallError{Path: path, Err: err}
}

// assetName returns the file name part of a download URL.
func assetName(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(rawURL)
}

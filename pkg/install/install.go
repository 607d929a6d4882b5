package install

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// EnvBinDir overrides the default installation directory.
const EnvBinDir = "SUBST_INSTALLER_BIN"

// InstallError is returned when the install directory or a local working
// file could not be prepared or written.
type InstallError struct {
	Path string
	Err  error
}

func (e *InstallError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to install: %v", e.Err)
	}
	return fmt.Sprintf("failed to install %s: %v", e.Path, e.Err)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

// ResolveInstallDir resolves the installation directory, handling defaults and expansions
func ResolveInstallDir(binDir string) (string, error) {
	if binDir == "" {
		// Use default from environment or HOME
		if envBin := os.Getenv(EnvBinDir); envBin != "" {
			binDir = envBin
		} else if home := os.Getenv("HOME"); home != "" {
			binDir = filepath.Join(home, ".local", "bin")
		} else {
			return "", &InstallError{Err: fmt.Errorf("could not determine install directory: no HOME environment variable")}
		}
	}

	// Expand path (handles ~ and environment variables)
	binDir = expandPath(binDir)

	// Make absolute
	absPath, err := filepath.Abs(binDir)
	if err != nil {
		return "", &InstallError{Path: binDir, Err: errors.Wrap(err, "failed to resolve install directory")}
	}

	return absPath, nil
}

// InstallBinary installs a binary from source to the target directory. The
// target is replaced through a rename so it is never seen half written.
func InstallBinary(sourcePath, targetDir, targetName string) (string, error) {
	targetPath, err := installBinary(sourcePath, targetDir, targetName)
	if err != nil {
		return "", &InstallError{Path: filepath.Join(targetDir, targetName), Err: err}
	}
	return targetPath, nil
}

func installBinary(sourcePath, targetDir, targetName string) (string, error) {
	if targetName == "" || targetName != filepath.Base(targetName) {
		return "", fmt.Errorf("invalid binary name %q", targetName)
	}
	targetPath := filepath.Join(targetDir, targetName)

	// Create target directory if it doesn't exist
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return "", errors.Wrap(err, "failed to create install directory")
	}

	// Open source file
	source, err := os.Open(sourcePath)
	if err != nil {
		return "", errors.Wrap(err, "failed to open source file")
	}
	defer source.Close()

	// Create temporary file in target directory for atomic replacement
	tmpFile, err := os.CreateTemp(targetDir, "."+targetName+"-*")
	if err != nil {
		return "", errors.Wrap(err, "failed to create temporary file")
	}
	tmpPath := tmpFile.Name()

	// Clean up on error
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	// Copy content
	if _, err := io.Copy(tmpFile, source); err != nil {
		tmpFile.Close()
		return "", errors.Wrap(err, "failed to copy binary")
	}

	// Set executable permissions
	if err := tmpFile.Chmod(0755); err != nil {
		tmpFile.Close()
		return "", errors.Wrap(err, "failed to set permissions")
	}

	// Flush to disk before the rename makes the file visible
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return "", errors.Wrap(err, "failed to sync binary")
	}

	if err := tmpFile.Close(); err != nil {
		return "", errors.Wrap(err, "failed to close temporary file")
	}

	// Atomic replacement
	if err := atomicInstall(tmpPath, targetPath); err != nil {
		return "", err
	}

	success = true
	return targetPath, nil
}

// atomicInstall renames sourcePath over targetPath. Both must be in the same
// directory; there is no remove-then-rename fallback.
func atomicInstall(sourcePath, targetPath string) error {
	if err := os.Rename(sourcePath, targetPath); err != nil {
		return errors.Wrap(err, "failed to replace binary")
	}
	return nil
}

// expandPath expands ~ and environment variables in a path
func expandPath(path string) string {
	// Expand ~ to HOME
	if strings.HasPrefix(path, "~/") {
		if home := os.Getenv("HOME"); home != "" {
			path = filepath.Join(home, path[2:])
		}
	}

	// Expand environment variables
	path = os.ExpandEnv(path)

	return path
}

// DryRunOutput returns the message to display for a dry run
func DryRunOutput(sourcePath, targetPath string) string {
	return fmt.Sprintf("Would install %s to %s", sourcePath, targetPath)
}

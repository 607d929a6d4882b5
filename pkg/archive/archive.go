package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Format represents the archive format
type Format string

const (
	FormatTarGz Format = "tar.gz"
	FormatTar   Format = "tar"
	FormatZip   Format = "zip"
	FormatRaw   Format = "raw"
)

// ExtractionError is returned for archives that are malformed or do not
// contain exactly one expected executable.
type ExtractionError struct {
	Archive string
	Reason  string
	Err     error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to extract %s: %s: %v", e.Archive, e.Reason, e.Err)
	}
	return fmt.Sprintf("failed to extract %s: %s", e.Archive, e.Reason)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// DetectFormat detects the archive format based on the filename
func DetectFormat(filename string) Format {
	lower := strings.ToLower(filename)

	if strings.HasSuffix(lower, ".tar.gz") || strings.HasSuffix(lower, ".tgz") {
		return FormatTarGz
	}
	if strings.HasSuffix(lower, ".tar") {
		return FormatTar
	}
	if strings.HasSuffix(lower, ".zip") {
		return FormatZip
	}

	// Default to raw for unknown formats or no extension
	return FormatRaw
}

// ExtractBinary reads the gzip compressed tarball at archivePath and writes
// the regular file named binaryName to destDir. The entry may sit in any
// directory of the archive but must be the only one with that name.
func ExtractBinary(archivePath, binaryName, destDir string) (string, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return "", &ExtractionError{Archive: archivePath, Reason: "failed to open archive", Err: err}
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return "", &ExtractionError{Archive: archivePath, Reason: "not a gzip stream", Err: err}
	}
	defer gzReader.Close()

	target := filepath.Join(destDir, binaryName)
	found := ""
	tarReader := tar.NewReader(gzReader)

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", &ExtractionError{Archive: archivePath, Reason: "failed to read tar header", Err: err}
		}

		if !safeEntryName(header.Name) {
			return "", &ExtractionError{Archive: archivePath, Reason: fmt.Sprintf("invalid path in archive: %s", header.Name)}
		}
		if header.Typeflag != tar.TypeReg || path.Base(header.Name) != binaryName {
			continue
		}
		if found != "" {
			return "", &ExtractionError{Archive: archivePath, Reason: fmt.Sprintf("%s found twice (%s, %s)", binaryName, found, header.Name)}
		}

		if err := writeEntry(target, tarReader); err != nil {
			return "", &ExtractionError{Archive: archivePath, Reason: "failed to extract " + header.Name, Err: err}
		}
		found = header.Name
	}

	if found == "" {
		return "", &ExtractionError{Archive: archivePath, Reason: fmt.Sprintf("%s not found in archive", binaryName)}
	}
	return target, nil
}

func writeEntry(target string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.Wrap(err, "failed to create parent directory")
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return errors.Wrap(err, "failed to write file")
	}
	return out.Close()
}

// safeEntryName rejects absolute names and names that climb out of the
// archive root.
func safeEntryName(name string) bool {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return false
	}
	clean := path.Clean(name)
	return clean != ".." && !strings.HasPrefix(clean, "../")
}

package verify

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// IntegrityError is returned when a file does not match its expected digest,
// or when there is no usable digest to check against.
type IntegrityError struct {
	Path     string
	Expected string
	Actual   string
	Reason   string
}

func (e *IntegrityError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("integrity check failed for %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("checksum mismatch for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// ComputeSHA256 computes the hex encoded SHA-256 of a file
func ComputeSHA256(filePath string) (string, error) {
	sum, err := sum256(filePath)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sum), nil
}

func sum256(filePath string) ([]byte, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return nil, errors.Wrap(err, "failed to compute checksum")
	}
	return h.Sum(nil), nil
}

// Digest verifies that the file at filePath has the SHA-256 digest expected.
// An empty or malformed expected digest fails the check. A file that cannot
// be read is a local error, not an IntegrityError.
func Digest(filePath, expected string) error {
	want, err := hex.DecodeString(strings.TrimSpace(expected))
	if err != nil || len(want) != sha256.Size {
		return &IntegrityError{Path: filePath, Expected: expected, Reason: fmt.Sprintf("invalid expected sha256 %q", expected)}
	}

	got, err := sum256(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", filePath)
	}

	if subtle.ConstantTimeCompare(got, want) != 1 {
		return &IntegrityError{
			Path:     filePath,
			Expected: strings.ToLower(strings.TrimSpace(expected)),
			Actual:   hex.EncodeToString(got),
		}
	}
	return nil
}

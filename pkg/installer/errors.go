package installer

import (
	"github.com/bedag/subst-installer/pkg/archive"
	"github.com/bedag/subst-installer/pkg/fetch"
	"github.com/bedag/subst-installer/pkg/install"
	"github.com/bedag/subst-installer/pkg/resolve"
	"github.com/bedag/subst-installer/pkg/verify"
	"github.com/pkg/errors"
)

// Errors returned by Install. None of them is retried.
type (
	UnsupportedPlatformError = resolve.UnsupportedPlatformError
	AmbiguousVariantError    = resolve.AmbiguousVariantError
	RetrievalError           = fetch.RetrievalError
	IntegrityError           = verify.IntegrityError
	ExtractionError          = archive.ExtractionError
	InstallError             = install.InstallError
)

// Process exit codes, one per failure class.
const (
	ExitOK                  = 0
	ExitError               = 1
	ExitUnsupportedPlatform = 2
	ExitAmbiguousVariant    = 3
	ExitRetrieval           = 4
	ExitIntegrity           = 5
	ExitExtraction          = 6
	ExitInstall             = 7
)

// ExitCode maps an error returned by Install to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		unsupported *UnsupportedPlatformError
		ambiguous   *AmbiguousVariantError
		retrieval   *RetrievalError
		integrity   *IntegrityError
		extraction  *ExtractionError
		installErr  *InstallError
	)
	switch {
	case errors.As(err, &unsupported):
		return ExitUnsupportedPlatform
	case errors.As(err, &ambiguous):
		return ExitAmbiguousVariant
	case errors.As(err, &retrieval):
		return ExitRetrieval
	case errors.As(err, &integrity):
		return ExitIntegrity
	case errors.As(err, &extraction):
		return ExitExtraction
	case errors.As(err, &installErr):
		return ExitInstall
	default:
		return ExitError
	}
}

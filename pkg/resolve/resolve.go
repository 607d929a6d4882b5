package resolve

import (
	"fmt"
	"strings"

	"github.com/bedag/subst-installer/pkg/spec"
)

// UnsupportedPlatformError is returned when no variant matches the host.
type UnsupportedPlatformError struct {
	Platform  spec.Platform
	Supported []spec.Platform
}

func (e *UnsupportedPlatformError) Error() string {
	supported := make([]string, len(e.Supported))
	for i, p := range e.Supported {
		supported[i] = p.String()
	}
	return fmt.Sprintf("unsupported platform %s (supported: %s)", e.Platform, strings.Join(supported, ", "))
}

// AmbiguousVariantError is returned when the table carries more than one
// variant for the host. This is a defect in the table.
type AmbiguousVariantError struct {
	Platform spec.Platform
	Count    int
}

func (e *AmbiguousVariantError) Error() string {
	return fmt.Sprintf("release table defect: %d variants match %s", e.Count, e.Platform)
}

// Select returns the single variant built for platform. Matching is exact,
// there is no fallback to a similar platform.
func Select(table *spec.ReleaseTable, platform spec.Platform) (spec.ReleaseVariant, error) {
	var matches []spec.ReleaseVariant
	for _, v := range table.Variants {
		if v.OS == platform.OS && v.Arch == platform.Arch {
			matches = append(matches, v)
		}
	}

	switch len(matches) {
	case 0:
		return spec.ReleaseVariant{}, &UnsupportedPlatformError{Platform: platform, Supported: table.Platforms()}
	case 1:
		return matches[0], nil
	default:
		return spec.ReleaseVariant{}, &AmbiguousVariantError{Platform: platform, Count: len(matches)}
	}
}

// Supported reports whether exactly one variant matches platform.
func Supported(table *spec.ReleaseTable, platform spec.Platform) bool {
	_, err := Select(table, platform)
	return err == nil
}

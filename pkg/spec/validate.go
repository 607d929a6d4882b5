package spec

import (
	"fmt"
	"regexp"
	"strings"
)

var sha256Pattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// DuplicateVariantError reports two or more variants for the same platform.
type DuplicateVariantError struct {
	Platform Platform
	Count    int
}

func (e *DuplicateVariantError) Error() string {
	return fmt.Sprintf("release table has %d variants for %s", e.Count, e.Platform)
}

// IsSHA256 reports whether s is a hex encoded SHA-256 digest.
func IsSHA256(s string) bool {
	return sha256Pattern.MatchString(s)
}

// Validate checks the table for configuration defects. Call SetDefaults first.
func (t *ReleaseTable) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("release table has no name")
	}
	if strings.TrimSpace(t.Version) == "" {
		return fmt.Errorf("release table %s has no version", t.Name)
	}
	if len(t.Variants) == 0 {
		return fmt.Errorf("release table %s %s has no variants", t.Name, t.Version)
	}
	if t.URLTemplate != "" {
		if err := t.checkURLTemplate(); err != nil {
			return err
		}
	}

	counts := make(map[Platform]int, len(t.Variants))
	for _, v := range t.Variants {
		p := v.Platform()
		if v.OS == "" || v.Arch == "" {
			return fmt.Errorf("variant %s is missing os or arch", p)
		}
		if v.URL == "" {
			return fmt.Errorf("variant %s has no url", p)
		}
		if !IsSHA256(v.SHA256) {
			return fmt.Errorf("variant %s has an invalid sha256 %q", p, v.SHA256)
		}
		counts[p]++
	}

	// report the first duplicate in table order
	for _, v := range t.Variants {
		if n := counts[v.Platform()]; n > 1 {
			return &DuplicateVariantError{Platform: v.Platform(), Count: n}
		}
	}
	return nil
}

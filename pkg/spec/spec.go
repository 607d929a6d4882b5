package spec

import (
	"fmt"
	"slices"
	"strings"

	"github.com/buildkite/interpolate"
)

// OSFamily is the operating system a release variant is built for.
type OSFamily string

const (
	OSDarwin OSFamily = "darwin"
	OSLinux  OSFamily = "linux"
)

// ArchClass is the CPU architecture a release variant is built for.
type ArchClass string

const (
	ArchAMD64 ArchClass = "amd64"
	ArchARM64 ArchClass = "arm64"
	// ArchARMv6 covers every 32-bit ARM host.
	ArchARMv6 ArchClass = "armv6"
)

// Platform identifies a host by operating system and architecture.
type Platform struct {
	OS   OSFamily  `json:"os" yaml:"os"`
	Arch ArchClass `json:"arch" yaml:"arch"`
}

func (p Platform) String() string {
	return fmt.Sprintf("%s/%s", p.OS, p.Arch)
}

// ReleaseVariant is one platform-specific build of a release.
type ReleaseVariant struct {
	OS   OSFamily  `json:"os" yaml:"os"`
	Arch ArchClass `json:"arch" yaml:"arch"`
	// Download location of the .tar.gz archive
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
	// Hex encoded SHA-256 of the archive
	SHA256 string `json:"sha256" yaml:"sha256"`
}

// Platform returns the (OS, Arch) pair the variant was built for.
func (v ReleaseVariant) Platform() Platform {
	return Platform{OS: v.OS, Arch: v.Arch}
}

// ReleaseTable is the static set of variants published for a single version.
//
// Minimal example:
//
//	schema: v1
//	name: subst
//	version: 0.0.1-alpha9
//	url_template: https://github.com/bedag/subst/releases/download/v${VERSION}/${NAME}_${VERSION}_${OS}_${ARCH}.tar.gz
//	variants:
//	  - os: linux
//	    arch: amd64
//	    sha256: 36fb49ca08918c2e117de8431fa3e6650406ec94393b80add18e71b4d91b8d12
type ReleaseTable struct {
	Schema  string `json:"schema,omitempty" yaml:"schema,omitempty"`
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
	// Name of the executable inside every archive (defaults to Name)
	Binary   string `json:"binary,omitempty" yaml:"binary,omitempty"`
	License  string `json:"license,omitempty" yaml:"license,omitempty"`
	Homepage string `json:"homepage,omitempty" yaml:"homepage,omitempty"`
	// Used to fill in the URL of variants that do not carry one
	URLTemplate string           `json:"url_template,omitempty" yaml:"url_template,omitempty"`
	Variants    []ReleaseVariant `json:"variants" yaml:"variants"`
}

// SetDefaults sets default values for the ReleaseTable
func (t *ReleaseTable) SetDefaults() error {
	if t.Schema == "" {
		t.Schema = "v1"
	}
	if t.Binary == "" {
		t.Binary = t.Name
	}
	if t.URLTemplate == "" {
		return nil
	}
	for i := range t.Variants {
		if t.Variants[i].URL != "" {
			continue
		}
		url, err := t.ExpandURL(t.Variants[i].Platform())
		if err != nil {
			return err
		}
		t.Variants[i].URL = url
	}
	return nil
}

// TemplateVariables are the variables url_template may reference.
var TemplateVariables = []string{"NAME", "VERSION", "OS", "ARCH"}

// checkURLTemplate rejects variables other than TemplateVariables, which
// interpolate would otherwise expand to nothing.
func (t *ReleaseTable) checkURLTemplate() error {
	idents, err := interpolate.Identifiers(t.URLTemplate)
	if err != nil {
		return fmt.Errorf("invalid url template %q: %w", t.URLTemplate, err)
	}
	for _, id := range idents {
		// escaped $$ literals
		if strings.HasPrefix(id, "$") {
			continue
		}
		if !slices.Contains(TemplateVariables, id) {
			return fmt.Errorf("url template %q uses unknown variable ${%s}, supported: %s",
				t.URLTemplate, id, strings.Join(TemplateVariables, ", "))
		}
	}
	return nil
}

// ExpandURL renders URLTemplate for the given platform.
func (t *ReleaseTable) ExpandURL(p Platform) (string, error) {
	if err := t.checkURLTemplate(); err != nil {
		return "", err
	}
	env := interpolate.NewMapEnv(map[string]string{
		"NAME":    t.Name,
		"VERSION": strings.TrimPrefix(t.Version, "v"),
		"OS":      string(p.OS),
		"ARCH":    string(p.Arch),
	})
	url, err := interpolate.Interpolate(env, t.URLTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to expand url template for %s: %w", p, err)
	}
	return url, nil
}

// Platforms returns the platforms of all variants in table order.
func (t *ReleaseTable) Platforms() []Platform {
	platforms := make([]Platform, 0, len(t.Variants))
	for _, v := range t.Variants {
		platforms = append(platforms, v.Platform())
	}
	return platforms
}

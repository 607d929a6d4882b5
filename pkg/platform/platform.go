// Package platform detects the operating system and CPU architecture of the
// running host and maps them onto the names used by release tables.
package platform

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/apex/log"
	"github.com/bedag/subst-installer/pkg/spec"
	"github.com/shirou/gopsutil/v4/host"
)

// Detector resolves the host platform.
type Detector struct {
	// GOOS and GOARCH default to the runtime values
	GOOS   string
	GOARCH string
	// KernelArch reports the machine hardware name (uname -m)
	KernelArch func() (string, error)
}

// NewDetector creates a detector for the running host.
func NewDetector() *Detector {
	return &Detector{
		GOOS:       runtime.GOOS,
		GOARCH:     runtime.GOARCH,
		KernelArch: host.KernelArch,
	}
}

// Detect resolves the host platform. The architecture is taken from the
// kernel so the machine word size decides between arm64 and armv6, not the
// architecture the installer itself was built for.
func (d *Detector) Detect(ctx context.Context) (spec.Platform, error) {
	if err := ctx.Err(); err != nil {
		return spec.Platform{}, err
	}

	raw := d.GOARCH
	if d.KernelArch != nil {
		machine, err := d.KernelArch()
		switch {
		case err != nil:
			log.WithError(err).Debugf("could not query kernel architecture, using %s", d.GOARCH)
		case strings.TrimSpace(machine) != "":
			raw = machine
		}
	}

	p := spec.Platform{
		OS:   NormalizeOS(d.GOOS),
		Arch: NormalizeArch(raw),
	}
	log.Debugf("detected platform %s (raw arch %s)", p, raw)
	return p, nil
}

// Detect resolves the platform of the running host.
func Detect(ctx context.Context) (spec.Platform, error) {
	return NewDetector().Detect(ctx)
}

// NormalizeOS maps OS names onto release table names. Unknown names are
// lowercased and returned as is.
func NormalizeOS(raw string) spec.OSFamily {
	switch s := strings.ToLower(strings.TrimSpace(raw)); s {
	case "darwin", "macos", "osx":
		return spec.OSDarwin
	case "linux":
		return spec.OSLinux
	default:
		return spec.OSFamily(s)
	}
}

// NormalizeArch maps GOARCH and uname -m values onto release table names.
// Every 32-bit ARM flavour maps to armv6, the one 32-bit ARM build published.
func NormalizeArch(raw string) spec.ArchClass {
	switch s := strings.ToLower(strings.TrimSpace(raw)); s {
	case "amd64", "x86_64", "x64":
		return spec.ArchAMD64
	case "arm64", "aarch64", "arm64e":
		return spec.ArchARM64
	case "arm", "armv5", "armv5l", "armv6", "armv6l", "armv7", "armv7l", "armv8l", "armhf", "armel":
		return spec.ArchARMv6
	default:
		return spec.ArchClass(s)
	}
}

// Parse reads an "os/arch" string such as "linux/amd64".
func Parse(s string) (spec.Platform, error) {
	osName, arch, ok := strings.Cut(s, "/")
	if !ok || strings.TrimSpace(osName) == "" || strings.TrimSpace(arch) == "" {
		return spec.Platform{}, fmt.Errorf("invalid platform %q, expected os/arch", s)
	}
	return spec.Platform{OS: NormalizeOS(osName), Arch: NormalizeArch(arch)}, nil
}

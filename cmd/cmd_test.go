package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bedag/subst-installer/internal/testutil"
	"github.com/bedag/subst-installer/pkg/checksums"
	"github.com/bedag/subst-installer/pkg/fetch"
	"github.com/bedag/subst-installer/pkg/installer"
	"github.com/bedag/subst-installer/pkg/spec"
	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout and stderr.
// Flag variables are reset first since they outlive a single run.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	configFile, verbose, quiet = "", false, false
	installBinDir, installDryRun, installPlatform, installTimeout = "", false, "", fetch.DefaultTimeout
	checkVersion = ""
	platformOverride = ""
	tableVersion, tableList = "", false
	embedVersion, embedOutput, embedMode, embedFile, embedTemplate = "", "", "download", "", checksums.DefaultChecksumTemplate

	var stdout, stderr bytes.Buffer
	RootCmd.SetOut(&stdout)
	RootCmd.SetErr(&stderr)
	RootCmd.SetArgs(args)
	err := RootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// mirror serves archive under /subst_0.0.1-alpha9_linux_amd64.tar.gz and
// writes a table file for it with the given digest.
func mirror(t *testing.T, archive []byte, digest string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/subst_0.0.1-alpha9_linux_amd64.tar.gz" {
			http.NotFound(w, r)
			return
		}
		w.Write(archive)
	}))
	t.Cleanup(srv.Close)

	table := `name: subst
version: 0.0.1-alpha9
url_template: ` + srv.URL + `/${NAME}_${VERSION}_${OS}_${ARCH}.tar.gz
variants:
  - os: linux
    arch: amd64
    sha256: ` + digest + `
  - os: darwin
    arch: arm64
    sha256: 8407cb57b8ac7b7e4b5f0f4c8f5b8b4ed3a1f43c3a0b3e6ec7d2b7ac9b6e8d21
`
	path := filepath.Join(t.TempDir(), "mirror.yml")
	require.NoError(t, os.WriteFile(path, []byte(table), 0644))
	return path
}

func TestInstallCommand(t *testing.T) {
	archive := testutil.SubstArchive(t, "#!/bin/sh\necho subst\n")
	digest := testutil.SHA256(archive)

	t.Run("installs verified binary", func(t *testing.T) {
		cfg := mirror(t, archive, digest)
		binDir := t.TempDir()

		stdout, _, err := execute(t, "install", "--config", cfg, "--bin-dir", binDir, "--platform", "linux/amd64")
		require.NoError(t, err)

		target := filepath.Join(binDir, "subst")
		assert.Equal(t, target, strings.TrimSpace(stdout))
		content, err := os.ReadFile(target)
		require.NoError(t, err)
		assert.Equal(t, "#!/bin/sh\necho subst\n", string(content))
	})

	t.Run("explicit version must match table", func(t *testing.T) {
		cfg := mirror(t, archive, digest)
		_, _, err := execute(t, "install", "v0.0.1-alpha9", "--config", cfg, "--bin-dir", t.TempDir(), "--platform", "linux/amd64")
		assert.NoError(t, err)

		_, _, err = execute(t, "install", "0.0.2", "--config", cfg, "--bin-dir", t.TempDir(), "--platform", "linux/amd64")
		require.Error(t, err)
		assert.Equal(t, installer.ExitError, installer.ExitCode(err))
	})

	t.Run("digest mismatch leaves bin dir untouched", func(t *testing.T) {
		cfg := mirror(t, archive, strings.Repeat("0", 64))
		binDir := t.TempDir()

		_, _, err := execute(t, "install", "--config", cfg, "--bin-dir", binDir, "--platform", "linux/amd64")
		require.Error(t, err)
		assert.Equal(t, installer.ExitIntegrity, installer.ExitCode(err))

		entries, err := os.ReadDir(binDir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("missing archive is a retrieval failure", func(t *testing.T) {
		cfg := mirror(t, archive, digest)
		_, _, err := execute(t, "install", "--config", cfg, "--bin-dir", t.TempDir(), "--platform", "darwin/arm64")
		require.Error(t, err)
		assert.Equal(t, installer.ExitRetrieval, installer.ExitCode(err))
	})

	t.Run("unsupported platform", func(t *testing.T) {
		cfg := mirror(t, archive, digest)
		_, _, err := execute(t, "install", "--config", cfg, "--bin-dir", t.TempDir(), "--platform", "windows/amd64")
		require.Error(t, err)
		assert.Equal(t, installer.ExitUnsupportedPlatform, installer.ExitCode(err))
	})

	t.Run("dry run prints url and target", func(t *testing.T) {
		cfg := mirror(t, archive, digest)
		binDir := t.TempDir()

		stdout, _, err := execute(t, "install", "-n", "--config", cfg, "-b", binDir, "--platform", "linux/amd64")
		require.NoError(t, err)
		assert.Contains(t, stdout, "/subst_0.0.1-alpha9_linux_amd64.tar.gz\t")
		assert.Contains(t, stdout, filepath.Join(binDir, "subst"))

		entries, err := os.ReadDir(binDir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("invalid platform flag", func(t *testing.T) {
		_, _, err := execute(t, "install", "--dry-run", "--platform", "linux")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected os/arch")
	})
}

func TestCheckCommand(t *testing.T) {
	t.Run("embedded table passes", func(t *testing.T) {
		t.Chdir(t.TempDir())
		stdout, _, err := execute(t, "check")
		require.NoError(t, err)
		assert.Contains(t, stdout, "PLATFORM")
		for _, p := range []string{"darwin/amd64", "darwin/arm64", "linux/arm64", "linux/amd64", "linux/armv6"} {
			assert.Contains(t, stdout, p)
		}
		assert.NotContains(t, stdout, "ambiguous")
	})

	t.Run("duplicate variants fail", func(t *testing.T) {
		table := `name: subst
version: 0.0.1-alpha9
url_template: https://example.com/${NAME}_${OS}_${ARCH}.tar.gz
variants:
  - os: linux
    arch: amd64
    sha256: 36fb49ca08918c2e117de8431fa3e6650406ec94393b80add18e71b4d91b8d12
  - os: linux
    arch: amd64
    sha256: 718eb07b606178f731d803dddd5c938bbddf53fe12c4f56212cfc2d81650a1a5
`
		path := filepath.Join(t.TempDir(), "dup.yml")
		require.NoError(t, os.WriteFile(path, []byte(table), 0644))

		stdout, _, err := execute(t, "check", "--config", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
		assert.Contains(t, stdout, "ambiguous (2)")
	})

	t.Run("unknown embedded version", func(t *testing.T) {
		t.Chdir(t.TempDir())
		_, _, err := execute(t, "check", "--version", "9.9.9")
		assert.Error(t, err)
	})
}

func TestPlatformCommand(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name     string
		platform string
		want     string
		wantCode int
	}{
		{
			name:     "supported platform",
			platform: "linux/x86_64",
			want:     "linux/amd64",
			wantCode: installer.ExitOK,
		},
		{
			name:     "raspberry pi class arm",
			platform: "linux/armv7l",
			want:     "linux/armv6",
			wantCode: installer.ExitOK,
		},
		{
			name:     "unsupported platform",
			platform: "windows/amd64",
			want:     "unsupported",
			wantCode: installer.ExitUnsupportedPlatform,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, "platform", "--platform", tt.platform)
			assert.Equal(t, tt.wantCode, installer.ExitCode(err))
			assert.Contains(t, stdout, tt.want)
		})
	}
}

func TestTableCommand(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Run("prints embedded table", func(t *testing.T) {
		stdout, _, err := execute(t, "table")
		require.NoError(t, err)

		var table spec.ReleaseTable
		require.NoError(t, yaml.Unmarshal([]byte(stdout), &table))
		assert.Equal(t, "subst", table.Name)
		assert.Len(t, table.Variants, 5)
		for _, v := range table.Variants {
			assert.True(t, strings.HasPrefix(v.URL, "https://github.com/bedag/subst/releases/download/"), v.URL)
		}
	})

	t.Run("lists versions", func(t *testing.T) {
		stdout, _, err := execute(t, "table", "--list")
		require.NoError(t, err)
		assert.Contains(t, strings.Split(strings.TrimSpace(stdout), "\n"), "0.0.1-alpha9")
	})
}

func TestRunSchema(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		want    string
		wantErr bool
	}{
		{name: "yaml", format: "yaml", want: "title: ReleaseTable"},
		{name: "json", format: "json", want: `"title": "ReleaseTable"`},
		{name: "unknown format", format: "typespec", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := RunSchema(tt.format, &buf)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestEmbedChecksumsCommand(t *testing.T) {
	t.Chdir(t.TempDir())

	sums := filepath.Join(t.TempDir(), "checksums.txt")
	content := "36fb49ca08918c2e117de8431fa3e6650406ec94393b80add18e71b4d91b8d12  subst_0.0.2_linux_amd64.tar.gz\n" +
		"718eb07b606178f731d803dddd5c938bbddf53fe12c4f56212cfc2d81650a1a5  subst_0.0.2_linux_arm64.tar.gz\n"
	require.NoError(t, os.WriteFile(sums, []byte(content), 0644))

	t.Run("writes pinned table", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "tables", "subst_0.0.2.yml")
		_, _, err := execute(t, "embed-checksums", "--version", "v0.0.2", "--mode", "checksum-file", "--file", sums, "-o", out)
		require.NoError(t, err)

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		var table spec.ReleaseTable
		require.NoError(t, yaml.Unmarshal(data, &table))
		assert.Equal(t, "0.0.2", table.Version)
		assert.Len(t, table.Variants, 2)
	})

	t.Run("file required in checksum-file mode", func(t *testing.T) {
		_, _, err := execute(t, "embed-checksums", "--version", "0.0.2", "--mode", "checksum-file")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--file")
	})

	t.Run("invalid mode", func(t *testing.T) {
		_, _, err := execute(t, "embed-checksums", "--version", "0.0.2", "--mode", "guess")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid mode")
	})
}

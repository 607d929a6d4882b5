package install

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveInstallDir(t *testing.T) {
	tests := []struct {
		name     string
		binDir   string
		setupEnv map[string]string
		want     string
		wantErr  bool
	}{
		{
			name:   "explicit directory",
			binDir: "/usr/local/bin",
			want:   "/usr/local/bin",
		},
		{
			name:   "expand home directory",
			binDir: "~/bin",
			setupEnv: map[string]string{
				"HOME": "/home/user",
			},
			want: "/home/user/bin",
		},
		{
			name:   "expand environment variable",
			binDir: "${CUSTOM_BIN}/tools",
			setupEnv: map[string]string{
				"CUSTOM_BIN": "/opt/bin",
			},
			want: "/opt/bin/tools",
		},
		{
			name:   "default with SUBST_INSTALLER_BIN set",
			binDir: "",
			setupEnv: map[string]string{
				EnvBinDir: "/custom/bin",
			},
			want: "/custom/bin",
		},
		{
			name:   "default with HOME set",
			binDir: "",
			setupEnv: map[string]string{
				EnvBinDir: "",
				"HOME":    "/home/user",
			},
			want: "/home/user/.local/bin",
		},
		{
			name:   "default with no HOME",
			binDir: "",
			setupEnv: map[string]string{
				EnvBinDir: "",
				"HOME":    "",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.setupEnv {
				t.Setenv(k, v)
			}

			got, err := ResolveInstallDir(tt.binDir)
			if tt.wantErr {
				var installErr *InstallError
				assert.True(t, errors.As(err, &installErr), "got %v", err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInstallBinary(t *testing.T) {
	tests := []struct {
		name           string
		setupSource    func(t *testing.T) string
		setupTarget    func(t *testing.T) string
		targetName     string
		wantErr        bool
		validateResult func(t *testing.T, targetPath string)
	}{
		{
			name: "install new binary",
			setupSource: func(t *testing.T) string {
				source := filepath.Join(t.TempDir(), "source-binary")
				require.NoError(t, os.WriteFile(source, []byte("binary content"), 0644))
				return source
			},
			setupTarget: func(t *testing.T) string {
				return t.TempDir()
			},
			targetName: "subst",
			validateResult: func(t *testing.T, targetPath string) {
				info, err := os.Stat(targetPath)
				require.NoError(t, err)
				assert.Equal(t, os.FileMode(0755), info.Mode()&0777)

				content, err := os.ReadFile(targetPath)
				require.NoError(t, err)
				assert.Equal(t, "binary content", string(content))
			},
		},
		{
			name: "overwrite existing binary",
			setupSource: func(t *testing.T) string {
				source := filepath.Join(t.TempDir(), "new-binary")
				require.NoError(t, os.WriteFile(source, []byte("new content"), 0755))
				return source
			},
			setupTarget: func(t *testing.T) string {
				dir := t.TempDir()
				existing := filepath.Join(dir, "subst")
				require.NoError(t, os.WriteFile(existing, []byte("old content"), 0600))
				return dir
			},
			targetName: "subst",
			validateResult: func(t *testing.T, targetPath string) {
				content, err := os.ReadFile(targetPath)
				require.NoError(t, err)
				assert.Equal(t, "new content", string(content))

				info, err := os.Stat(targetPath)
				require.NoError(t, err)
				assert.Equal(t, os.FileMode(0755), info.Mode()&0777)
			},
		},
		{
			name: "create target directory if missing",
			setupSource: func(t *testing.T) string {
				source := filepath.Join(t.TempDir(), "binary")
				require.NoError(t, os.WriteFile(source, []byte("content"), 0755))
				return source
			},
			setupTarget: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "new", "bin", "dir")
			},
			targetName: "subst",
			validateResult: func(t *testing.T, targetPath string) {
				assert.FileExists(t, targetPath)
				assert.DirExists(t, filepath.Dir(targetPath))
			},
		},
		{
			name: "source file not found",
			setupSource: func(t *testing.T) string {
				return "/nonexistent/file"
			},
			setupTarget: func(t *testing.T) string {
				return t.TempDir()
			},
			targetName: "subst",
			wantErr:    true,
		},
		{
			name: "name with path separator",
			setupSource: func(t *testing.T) string {
				source := filepath.Join(t.TempDir(), "binary")
				require.NoError(t, os.WriteFile(source, []byte("content"), 0755))
				return source
			},
			setupTarget: func(t *testing.T) string {
				return t.TempDir()
			},
			targetName: "../subst",
			wantErr:    true,
		},
		{
			name: "target is a directory",
			setupSource: func(t *testing.T) string {
				source := filepath.Join(t.TempDir(), "binary")
				require.NoError(t, os.WriteFile(source, []byte("content"), 0755))
				return source
			},
			setupTarget: func(t *testing.T) string {
				dir := t.TempDir()
				require.NoError(t, os.MkdirAll(filepath.Join(dir, "subst", "child"), 0755))
				return dir
			},
			targetName: "subst",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sourcePath := tt.setupSource(t)
			targetDir := tt.setupTarget(t)

			targetPath, err := InstallBinary(sourcePath, targetDir, tt.targetName)
			if tt.wantErr {
				var installErr *InstallError
				require.True(t, errors.As(err, &installErr), "got %v", err)
				assertNoTempFiles(t, targetDir)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, targetDir, filepath.Dir(targetPath))
			assertNoTempFiles(t, targetDir)

			if tt.validateResult != nil {
				tt.validateResult(t, targetPath)
			}
		})
	}
}

func TestInstallBinaryTwice(t *testing.T) {
	source := filepath.Join(t.TempDir(), "binary")
	require.NoError(t, os.WriteFile(source, []byte("same content"), 0755))
	dir := t.TempDir()

	first, err := InstallBinary(source, dir, "subst")
	require.NoError(t, err)
	second, err := InstallBinary(source, dir, "subst")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "subst", entries[0].Name())
}

func TestExpandPath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		setupEnv map[string]string
		want     string
	}{
		{
			name: "expand tilde to home",
			path: "~/bin",
			setupEnv: map[string]string{
				"HOME": "/home/user",
			},
			want: "/home/user/bin",
		},
		{
			name: "expand environment variable",
			path: "${GOPATH}/bin",
			setupEnv: map[string]string{
				"GOPATH": "/go",
			},
			want: "/go/bin",
		},
		{
			name: "no expansion needed",
			path: "/usr/local/bin",
			want: "/usr/local/bin",
		},
		{
			name: "empty path",
			path: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.setupEnv {
				t.Setenv(k, v)
			}
			assert.Equal(t, tt.want, expandPath(tt.path))
		})
	}
}

func TestAtomicInstall(t *testing.T) {
	dir := t.TempDir()
	targetPath := filepath.Join(dir, "subst")
	require.NoError(t, os.WriteFile(targetPath, []byte("old"), 0755))

	tmpFile := filepath.Join(dir, ".subst-new")
	require.NoError(t, os.WriteFile(tmpFile, []byte("new"), 0755))

	require.NoError(t, atomicInstall(tmpFile, targetPath))

	content, err := os.ReadFile(targetPath)
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))
	assert.NoFileExists(t, tmpFile)
}

func TestDryRunOutput(t *testing.T) {
	assert.Equal(t,
		"Would install https://example.com/subst.tar.gz to /usr/local/bin/subst",
		DryRunOutput("https://example.com/subst.tar.gz", "/usr/local/bin/subst"))
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return
	}
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), "."), "temporary file left behind: %s", e.Name())
	}
}

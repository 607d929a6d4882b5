// Package testutil builds release archives for tests.
package testutil

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

// Entry is a file in a test tarball.
type Entry struct {
	Name    string
	Content string
	Mode    int64
	// Type defaults to tar.TypeReg
	Type     byte
	Linkname string
}

// TarGz returns a gzip compressed tarball holding entries.
func TarGz(t testing.TB, entries ...Entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, e := range entries {
		typ := e.Type
		if typ == 0 {
			typ = tar.TypeReg
		}
		mode := e.Mode
		if mode == 0 {
			mode = 0644
		}
		hdr := &tar.Header{
			Name:     e.Name,
			Mode:     mode,
			Typeflag: typ,
			Linkname: e.Linkname,
		}
		if typ == tar.TypeReg {
			hdr.Size = int64(len(e.Content))
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write tar header %s: %v", e.Name, err)
		}
		if typ == tar.TypeReg {
			if _, err := tw.Write([]byte(e.Content)); err != nil {
				t.Fatalf("write tar entry %s: %v", e.Name, err)
			}
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("close tar writer: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip writer: %v", err)
	}
	return buf.Bytes()
}

// SubstArchive is a tarball laid out like the published subst releases.
func SubstArchive(t testing.TB, content string) []byte {
	return TarGz(t,
		Entry{Name: "LICENSE", Content: "Apache License"},
		Entry{Name: "README.md", Content: "# subst"},
		Entry{Name: "subst", Content: content, Mode: 0755},
	)
}

// SHA256 returns the hex encoded SHA-256 of data.
func SHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

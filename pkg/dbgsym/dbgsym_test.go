package dbgsym

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargo-deb-go/cargo-deb/pkg/archive"
	"github.com/cargo-deb-go/cargo-deb/pkg/config"
	"github.com/cargo-deb-go/cargo-deb/pkg/debugsplit"
)

func TestBuild_NoSplitsReturnsEmpty(t *testing.T) {
	t.Parallel()

	path, err := Build(&config.PackageDescription{Name: "hello-cli"}, nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestBuild_WritesDdeb(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	debugFile := filepath.Join(dir, "hello.debug")
	require.NoError(t, os.WriteFile(debugFile, []byte("debug data"), 0o644))

	desc := &config.PackageDescription{
		Name:         "hello-cli",
		Version:      "1.0.0",
		Architecture: "amd64",
		Maintainer:   "Jane Doe <jane@example.com>",
	}

	splits := []*debugsplit.Split{
		{BinaryPath: filepath.Join(dir, "hello"), DebugInfoPath: debugFile, BuildIDPath: "usr/lib/debug/usr/bin/hello.debug"},
	}

	outDir := t.TempDir()
	path, err := Build(desc, splits, Options{
		OutputDir: outDir,
		Compress:  archive.CompressOptions{Type: archive.CompressGzip},
	})
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Contains(t, path, "hello-cli-dbgsym_1.0.0_amd64.ddeb")
}

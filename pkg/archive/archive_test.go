package archive

import (
	"archive/tar"
	"bytes"
	"strings"
	"testing"

	"github.com/blakesmith/ar"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTar_SortsAndNormalizes(t *testing.T) {
	t.Parallel()

	entries := []Entry{
		{Name: "usr/bin/z", Mode: 0o755, Size: 1, Contents: strings.NewReader("a")},
		{Name: "usr/bin/a", Mode: 0o755, Size: 1, Contents: strings.NewReader("b")},
	}

	var buf bytes.Buffer
	require.NoError(t, BuildTar(&buf, entries, 0))

	tr := tar.NewReader(&buf)

	hdr, err := tr.Next()
	require.NoError(t, err)
	assert.Equal(t, "./usr/bin/a", hdr.Name)
	assert.Equal(t, int64(0), hdr.Uid)

	hdr, err = tr.Next()
	require.NoError(t, err)
	assert.Equal(t, "./usr/bin/z", hdr.Name)
}

func TestBuildTar_Directory(t *testing.T) {
	t.Parallel()

	entries := []Entry{{Name: "usr/bin", IsDir: true}}

	var buf bytes.Buffer
	require.NoError(t, BuildTar(&buf, entries, 0))

	tr := tar.NewReader(&buf)
	hdr, err := tr.Next()
	require.NoError(t, err)
	assert.Equal(t, "./usr/bin/", hdr.Name)
	assert.Equal(t, byte(tar.TypeDir), hdr.Typeflag)
}

func TestCompress_Gzip(t *testing.T) {
	t.Parallel()

	suffix, compressed, err := Compress([]byte("hello world"), CompressOptions{Type: CompressGzip})
	require.NoError(t, err)
	assert.Equal(t, ".gz", suffix)

	gr, err := gzip.NewReader(bytes.NewReader(compressed))
	require.NoError(t, err)
	defer gr.Close()

	out := new(bytes.Buffer)
	_, err = out.ReadFrom(gr)
	require.NoError(t, err)
	assert.Equal(t, "hello world", out.String())
}

func TestBuildDeb_MemberOrder(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := BuildDeb(&buf, Member{Name: "control.tar.gz", Content: []byte("ctrl")}, Member{Name: "data.tar.gz", Content: []byte("data")})
	require.NoError(t, err)

	r := ar.NewReader(&buf)

	hdr, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "debian-binary", strings.TrimSpace(hdr.Name))

	hdr, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "control.tar.gz", strings.TrimSpace(hdr.Name))

	hdr, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "data.tar.gz", strings.TrimSpace(hdr.Name))
}

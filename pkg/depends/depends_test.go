package depends

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForDeb(t *testing.T) {
	t.Parallel()

	in := []string{"libc6>=2.31", "libssl3", "foo (>= 1.0)"}
	out := FormatForDeb(in)

	assert.Equal(t, []string{"libc6 (>= 2.31)", "libssl3", "foo (>= 1.0)"}, out)
}

func TestNormalizeConfFiles(t *testing.T) {
	t.Parallel()

	out := NormalizeConfFiles([]string{"etc/hello.conf", "/etc/other.conf"})
	assert.Equal(t, []string{"/etc/hello.conf", "/etc/other.conf"}, out)
}

func TestDeriveConfFiles_UnionsAssetsUnderEtc(t *testing.T) {
	t.Parallel()

	out := DeriveConfFiles([]string{"etc/explicit.conf"}, []string{"etc/foo/cfg", "etc/explicit.conf"})
	assert.Equal(t, []string{"etc/explicit.conf", "etc/foo/cfg"}, out)
}

func TestDeriveConfFiles_NoAssetsUnderEtc(t *testing.T) {
	t.Parallel()

	out := DeriveConfFiles([]string{"etc/explicit.conf"}, nil)
	assert.Equal(t, []string{"etc/explicit.conf"}, out)
}

func TestResolveAuto_NoSentinel(t *testing.T) {
	t.Parallel()

	resolved, err := ResolveAuto(context.Background(), []string{"libc6"}, nil, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"libc6"}, resolved)
}

func TestSplitRelationList(t *testing.T) {
	t.Parallel()

	out := splitRelationList("libc6 (>= 2.31), libssl3 (>= 3.0.0)")
	assert.Equal(t, []string{"libc6 (>= 2.31)", "libssl3 (>= 3.0.0)"}, out)
}

func TestDedupe(t *testing.T) {
	t.Parallel()

	out := dedupe([]string{"a", "b", "a", "c", "b"})
	assert.Equal(t, []string{"a", "b", "c"}, out)
}

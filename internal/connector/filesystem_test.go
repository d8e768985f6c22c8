package connector

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFilesystemConnector(t *testing.T, pattern string) (*FilesystemConnector, string) {
	t.Helper()
	dir := t.TempDir()
	cfg, err := json.Marshal(FilesystemConfig{Root: dir, Pattern: pattern})
	require.NoError(t, err)
	conn, err := NewFilesystemConnector(cfg)
	require.NoError(t, err)
	fsConn, ok := conn.(*FilesystemConnector)
	require.True(t, ok)
	return fsConn, dir
}

func TestFilesystemConnector_ListArtifacts(t *testing.T) {
	conn, dir := newTestFilesystemConnector(t, "*.txt")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello world"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("goodbye"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.bin"), []byte{0x00, 0x01}, 0o644))

	var refs []ArtifactRef
	for ref, err := range conn.ListArtifacts(context.Background()) {
		require.NoError(t, err)
		refs = append(refs, ref)
	}

	require.Len(t, refs, 2, "glob must exclude non-matching extensions")
	for _, ref := range refs {
		assert.NotEmpty(t, ref.Fingerprint.Version)
		assert.True(t, strings.HasPrefix(ref.Fingerprint.ContentType, "text/"))
	}
}

func TestFilesystemConnector_VersionIsContentAddressed(t *testing.T) {
	conn, dir := newTestFilesystemConnector(t, "*")
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("same content"), 0o644))

	_, fp1, err := conn.GetArtifact(context.Background(), "doc.txt", "")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("same content"), 0o644))
	_, fp2, err := conn.GetArtifact(context.Background(), "doc.txt", "")
	require.NoError(t, err)
	assert.Equal(t, fp1.Version, fp2.Version, "identical content must hash to the same version")

	require.NoError(t, os.WriteFile(path, []byte("different content"), 0o644))
	_, fp3, err := conn.GetArtifact(context.Background(), "doc.txt", "")
	require.NoError(t, err)
	assert.NotEqual(t, fp1.Version, fp3.Version)
}

func TestFilesystemConnector_GetArtifactChunk(t *testing.T) {
	conn, dir := newTestFilesystemConnector(t, "*")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.txt"), []byte("0123456789"), 0o644))

	chunk, err := conn.GetArtifactChunk(context.Background(), "doc.txt", 2, 5, "")
	require.NoError(t, err)
	assert.Equal(t, []byte("2345"), chunk, "bounds are inclusive-inclusive")
}

func TestFilesystemConnector_CalcLineChunks(t *testing.T) {
	conn, dir := newTestFilesystemConnector(t, "*")
	content := "line1\nline2\nline3\nline4\nline5"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.txt"), []byte(content), 0o644))

	var ranges []ByteRange
	for r, err := range conn.CalcLineChunks(context.Background(), "doc.txt", 2, "") {
		require.NoError(t, err)
		ranges = append(ranges, r)
	}

	require.Len(t, ranges, 3, "5 lines at 2 per chunk yields 2 full chunks plus a short final one")
	last := ranges[len(ranges)-1]
	assert.EqualValues(t, len(content)-1, last.End, "last chunk's end must reach content_length - 1")

	var reconstructed []byte
	for _, r := range ranges {
		chunk, err := conn.GetArtifactChunk(context.Background(), "doc.txt", r.Start, r.End, "")
		require.NoError(t, err)
		reconstructed = append(reconstructed, chunk...)
	}
	assert.Equal(t, content, string(reconstructed), "chunks must cover the entire file with no gaps or overlaps")
}

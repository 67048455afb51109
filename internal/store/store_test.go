package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsmith-io/pdf-extractor-api/internal/domain"
	"github.com/docsmith-io/pdf-extractor-api/internal/observability"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

func newTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := New(t.TempDir(), observability.Nop())
	require.NoError(t, err)
	return st
}

// writeBundle lays out one upload directory the way the processor does.
func writeBundle(t *testing.T, st *Store, id, text string, images map[string][]byte, withPDF bool) {
	t.Helper()

	dir := filepath.Join(st.Root(), id)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ImagesDir), 0o755))

	if text != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, TextFile), []byte(text), 0o644))
	}
	if withPDF {
		require.NoError(t, os.WriteFile(filepath.Join(dir, OriginalFile), []byte("%PDF-fake"), 0o644))
	}
	for name, data := range images {
		require.NoError(t, os.WriteFile(filepath.Join(dir, ImagesDir, name), data, 0o644))
	}
}

func TestValidateSegment(t *testing.T) {
	valid := []string{"abc", "550e8400-e29b-41d4-a716-446655440000", "page1_image1.png", "..."}
	for _, seg := range valid {
		assert.NoError(t, ValidateSegment(seg), "segment %q", seg)
	}

	invalid := []string{"", ".", "..", "../x", "a/b", `a\b`, "/abs", "a\x00b", "x/.."}
	for _, seg := range invalid {
		assert.Error(t, ValidateSegment(seg), "segment %q", seg)
	}
}

func TestFetch_NotFoundForUnknownID(t *testing.T) {
	st := newTestStore(t)

	_, err := st.Text("missing")
	assert.True(t, domain.IsType(err, domain.ErrorTypeNotFound))

	_, _, err = st.Image("missing", "page1_image1.png")
	assert.True(t, domain.IsType(err, domain.ErrorTypeNotFound))

	_, err = st.Original("missing")
	assert.True(t, domain.IsType(err, domain.ErrorTypeNotFound))

	err = st.Delete("missing")
	assert.True(t, domain.IsType(err, domain.ErrorTypeNotFound))
}

func TestFetch_TraversalNeverEscapesRoot(t *testing.T) {
	st := newTestStore(t)

	// A file sitting right outside the store root must stay invisible.
	outside := filepath.Join(filepath.Dir(st.Root()), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o644))

	hostile := []string{"..", "../", "../secret.txt", "a/../../secret.txt", "/etc/passwd", `..\..\secret.txt`}

	for _, id := range hostile {
		_, err := st.Text(id)
		assert.True(t, domain.IsType(err, domain.ErrorTypeNotFound), "Text(%q)", id)

		_, err = st.Original(id)
		assert.True(t, domain.IsType(err, domain.ErrorTypeNotFound), "Original(%q)", id)

		err = st.Delete(id)
		assert.True(t, domain.IsType(err, domain.ErrorTypeNotFound), "Delete(%q)", id)
	}

	writeBundle(t, st, "real", "text", nil, true)
	for _, name := range hostile {
		_, _, err := st.Image("real", name)
		assert.True(t, domain.IsType(err, domain.ErrorTypeNotFound), "Image(real, %q)", name)
	}

	// Nothing was deleted outside the root.
	_, err := os.Stat(outside)
	assert.NoError(t, err)
}

func TestTextAndOriginal_RoundTrip(t *testing.T) {
	st := newTestStore(t)
	writeBundle(t, st, "u1", "hello world", nil, true)

	text, err := st.Text("u1")
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)

	data, err := st.Original("u1")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-fake"), data)
}

func TestText_NotFoundWhenFileAbsent(t *testing.T) {
	st := newTestStore(t)
	writeBundle(t, st, "u1", "", nil, false)

	_, err := st.Text("u1")
	assert.True(t, domain.IsType(err, domain.ErrorTypeNotFound))

	_, err = st.Original("u1")
	assert.True(t, domain.IsType(err, domain.ErrorTypeNotFound))
}

func TestImage_ContentTypeSniffing(t *testing.T) {
	st := newTestStore(t)
	writeBundle(t, st, "u1", "", map[string][]byte{
		"page1_image1.png": pngHeader,
		"page1_image2.bin": {0x00, 0x01, 0x02, 0x03},
	}, false)

	data, contentType, err := st.Image("u1", "page1_image1.png")
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
	assert.Equal(t, "image/png", contentType)

	_, contentType, err = st.Image("u1", "page1_image2.bin")
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", contentType)
}

func TestList_OrderingAndFields(t *testing.T) {
	st := newTestStore(t)

	writeBundle(t, st, "old", "t", nil, true)
	writeBundle(t, st, "mid", "", map[string][]byte{"page1_image1.png": pngHeader}, false)
	writeBundle(t, st, "new", "t", map[string][]byte{
		"page1_image1.png": pngHeader,
		"page1_image2.png": pngHeader,
	}, true)

	base := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(st.Root(), "old"), base, base))
	require.NoError(t, os.Chtimes(filepath.Join(st.Root(), "mid"), base.Add(time.Minute), base.Add(time.Minute)))
	require.NoError(t, os.Chtimes(filepath.Join(st.Root(), "new"), base.Add(2*time.Minute), base.Add(2*time.Minute)))

	summaries, err := st.List()
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	// Most recent first.
	assert.Equal(t, "new", summaries[0].ID)
	assert.Equal(t, "mid", summaries[1].ID)
	assert.Equal(t, "old", summaries[2].ID)

	assert.True(t, summaries[0].HasText)
	assert.True(t, summaries[0].HasPDF)
	assert.Equal(t, 2, summaries[0].ImageCount)
	assert.Equal(t, []string{"page1_image1.png", "page1_image2.png"}, summaries[0].Images)

	assert.False(t, summaries[1].HasText)
	assert.False(t, summaries[1].HasPDF)
	assert.Equal(t, []string{"page1_image1.png"}, summaries[1].Images)
}

func TestList_TiebreakByID(t *testing.T) {
	st := newTestStore(t)

	writeBundle(t, st, "bbb", "", nil, false)
	writeBundle(t, st, "aaa", "", nil, false)

	stamp := time.Now().Truncate(time.Second)
	require.NoError(t, os.Chtimes(filepath.Join(st.Root(), "aaa"), stamp, stamp))
	require.NoError(t, os.Chtimes(filepath.Join(st.Root(), "bbb"), stamp, stamp))

	summaries, err := st.List()
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "aaa", summaries[0].ID)
	assert.Equal(t, "bbb", summaries[1].ID)
}

func TestList_IgnoresStrayFiles(t *testing.T) {
	st := newTestStore(t)
	writeBundle(t, st, "u1", "", nil, false)
	require.NoError(t, os.WriteFile(filepath.Join(st.Root(), "stray.txt"), []byte("x"), 0o644))

	summaries, err := st.List()
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "u1", summaries[0].ID)
}

func TestDelete_IdempotentObservable(t *testing.T) {
	st := newTestStore(t)
	writeBundle(t, st, "u1", "t", map[string][]byte{"page1_image1.png": pngHeader}, true)

	require.NoError(t, st.Delete("u1"))

	summaries, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, summaries)

	err = st.Delete("u1")
	assert.True(t, domain.IsType(err, domain.ErrorTypeNotFound))
}

func TestCreateUpload_CollisionFailsLoudly(t *testing.T) {
	st := newTestStore(t)

	dir, err := st.CreateUpload("u1")
	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.DirExists(t, filepath.Join(dir, ImagesDir))

	_, err = st.CreateUpload("u1")
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeStorage))
}

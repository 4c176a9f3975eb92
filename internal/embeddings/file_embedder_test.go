package embeddings

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/ragnchat/internal/repository"
	v1 "github.com/fyrsmithlabs/ragnchat/pkg/api/v1"
)

type stubEmbedder struct {
	dim   int
	calls []string
	err   error
}

func (s *stubEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.EmbedQuery(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	s.calls = append(s.calls, text)
	if s.err != nil {
		return nil, s.err
	}
	return make([]float32, s.dim), nil
}

type mapDownloader map[string]string

func (m mapDownloader) Download(_ context.Context, f repository.RemoteFile) (string, error) {
	content, ok := m[f.Path]
	if !ok {
		return "", v1.NewRemoteAPIError("github", 404, errors.New("not found"))
	}
	return content, nil
}

func mdFile(name string) repository.RemoteFile {
	return repository.RemoteFile{Name: name, Path: name, Type: repository.TypeFile, DownloadURL: "https://raw/" + name}
}

func newTestFileEmbedder(emb Embedder, dl Downloader, cfg FileEmbedderConfig) *FileEmbedder {
	return NewFileEmbedder(emb, dl, cfg, nil, nil)
}

func TestFileEmbedder_EmbedFile(t *testing.T) {
	emb := &stubEmbedder{dim: 8}
	dl := mapDownloader{"README.md": "  # Title\n\nbody  \n"}
	fe := newTestFileEmbedder(emb, dl, FileEmbedderConfig{Dimension: 8})

	chunk, err := fe.EmbedFile(context.Background(), mdFile("README.md"))
	require.NoError(t, err)
	require.NotNil(t, chunk)
	assert.Equal(t, "README.md", chunk.FileName)
	assert.Equal(t, "# Title\n\nbody", chunk.Content, "surrounding whitespace is trimmed")
	assert.Equal(t, "https://raw/README.md", chunk.DownloadURL)
	assert.Len(t, chunk.Embedding, 8)
	assert.Equal(t, []string{"# Title\n\nbody"}, emb.calls)
}

func TestFileEmbedder_Skips(t *testing.T) {
	tests := []struct {
		name string
		file repository.RemoteFile
		dl   mapDownloader
	}{
		{name: "extension not allowed", file: mdFile("image.png"), dl: mapDownloader{"image.png": "PNG"}},
		{name: "directory", file: repository.RemoteFile{Name: "docs.md", Path: "docs.md", Type: repository.TypeDir}},
		{name: "symlink", file: repository.RemoteFile{Name: "a.md", Path: "a.md", Type: "symlink"}},
		{name: "whitespace only", file: mdFile("blank.md"), dl: mapDownloader{"blank.md": " \n\t "}},
		{name: "empty", file: mdFile("empty.md"), dl: mapDownloader{"empty.md": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb := &stubEmbedder{dim: 4}
			fe := newTestFileEmbedder(emb, tt.dl, FileEmbedderConfig{Dimension: 4})

			chunk, err := fe.EmbedFile(context.Background(), tt.file)
			require.NoError(t, err)
			assert.Nil(t, chunk)
			assert.Empty(t, emb.calls, "skipped files never reach the embedding API")
		})
	}
}

func TestFileEmbedder_ExtensionsConfigurable(t *testing.T) {
	dl := mapDownloader{"main.go": "package main", "app.py": "print(1)", "NOTES.MD": "notes"}

	fe := newTestFileEmbedder(&stubEmbedder{dim: 2}, dl, FileEmbedderConfig{Dimension: 2})
	assert.True(t, fe.Eligible(mdFile("app.py")), "default list includes .py")
	assert.True(t, fe.Eligible(mdFile("NOTES.MD")), "matching is case-insensitive")
	assert.False(t, fe.Eligible(mdFile("main.go")))

	fe = newTestFileEmbedder(&stubEmbedder{dim: 2}, dl, FileEmbedderConfig{Dimension: 2, Extensions: []string{".go"}})
	chunk, err := fe.EmbedFile(context.Background(), mdFile("main.go"))
	require.NoError(t, err)
	require.NotNil(t, chunk)

	chunk, err = fe.EmbedFile(context.Background(), mdFile("app.py"))
	require.NoError(t, err)
	assert.Nil(t, chunk)
}

func TestFilter(t *testing.T) {
	f := NewFilter([]string{".MD"})
	assert.True(t, f.Eligible(mdFile("README.md")))
	assert.False(t, f.Eligible(mdFile("main.go")))
	assert.False(t, f.Eligible(repository.RemoteFile{Name: "docs.md", Type: repository.TypeDir}))

	assert.True(t, NewFilter(nil).Eligible(mdFile("app.py")))
}

func TestFileEmbedder_Truncates(t *testing.T) {
	emb := &stubEmbedder{dim: 2}
	dl := mapDownloader{"big.md": strings.Repeat("é", 20) + "   tail"}
	fe := newTestFileEmbedder(emb, dl, FileEmbedderConfig{Dimension: 2, MaxChars: 10})

	chunk, err := fe.EmbedFile(context.Background(), mdFile("big.md"))
	require.NoError(t, err)
	require.NotNil(t, chunk)
	assert.Equal(t, strings.Repeat("é", 10), chunk.Content)
}

func TestFileEmbedder_TruncateThenTrim(t *testing.T) {
	emb := &stubEmbedder{dim: 2}
	dl := mapDownloader{"pad.md": "     " + strings.Repeat("x", 20)}
	fe := newTestFileEmbedder(emb, dl, FileEmbedderConfig{Dimension: 2, MaxChars: 5})

	chunk, err := fe.EmbedFile(context.Background(), mdFile("pad.md"))
	require.NoError(t, err)
	assert.Nil(t, chunk, "cap applies before trimming, so only whitespace remains")
}

func TestFileEmbedder_DimensionMismatch(t *testing.T) {
	emb := &stubEmbedder{dim: 3}
	dl := mapDownloader{"README.md": "hello"}
	fe := newTestFileEmbedder(emb, dl, FileEmbedderConfig{Dimension: 1536})

	chunk, err := fe.EmbedFile(context.Background(), mdFile("README.md"))
	assert.Nil(t, chunk)
	assert.ErrorIs(t, err, v1.ErrDimensionMismatch)

	_, err = fe.EmbedText(context.Background(), "query")
	assert.ErrorIs(t, err, v1.ErrDimensionMismatch)
}

func TestFileEmbedder_DownloadError(t *testing.T) {
	emb := &stubEmbedder{dim: 2}
	fe := newTestFileEmbedder(emb, mapDownloader{}, FileEmbedderConfig{Dimension: 2})

	_, err := fe.EmbedFile(context.Background(), mdFile("gone.md"))
	var rerr *v1.RemoteAPIError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 404, rerr.StatusCode)
	assert.Empty(t, emb.calls)
}

func TestFileEmbedder_EmbedError(t *testing.T) {
	emb := &stubEmbedder{dim: 2, err: v1.NewRemoteAPIError("openai", 429, errors.New("rate limited"))}
	fe := newTestFileEmbedder(emb, mapDownloader{"a.md": "text"}, FileEmbedderConfig{Dimension: 2})

	_, err := fe.EmbedFile(context.Background(), mdFile("a.md"))
	var rerr *v1.RemoteAPIError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 429, rerr.StatusCode)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "日本", Truncate("日本語", 2))
	assert.Equal(t, "", Truncate("abc", 0))
}

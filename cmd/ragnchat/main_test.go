package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/ragnchat/internal/chat"
	"github.com/fyrsmithlabs/ragnchat/internal/config"
	"github.com/fyrsmithlabs/ragnchat/internal/logging"
	"github.com/fyrsmithlabs/ragnchat/internal/repository"
	"github.com/fyrsmithlabs/ragnchat/internal/services"
	v1 "github.com/fyrsmithlabs/ragnchat/pkg/api/v1"
)

type fakeIngester struct {
	ref    repository.Ref
	result *repository.Result
	err    error
}

func (f *fakeIngester) VectorizeWithProgress(_ context.Context, ref repository.Ref, progress repository.Progress) (*repository.Result, error) {
	f.ref = ref
	if progress != nil {
		progress.Listed(1)
		progress.FileDone(repository.RemoteFile{Path: "README.md"}, true)
	}
	return f.result, f.err
}

type fakeStore struct {
	namespaces []string
	deleted    string
	deleteErr  error
}

func (f *fakeStore) ListNamespaces(context.Context) ([]string, error) { return f.namespaces, nil }
func (f *fakeStore) Health(context.Context) error                     { return nil }
func (f *fakeStore) DeleteNamespace(_ context.Context, ns string) error {
	f.deleted = ns
	return f.deleteErr
}

type fakeAnswerer struct {
	req    chat.Request
	answer string
	err    error
}

func (f *fakeAnswerer) Answer(_ context.Context, req chat.Request) (string, error) {
	f.req = req
	return f.answer, f.err
}

type nopCloser struct{ closed bool }

func (n *nopCloser) Close() error {
	n.closed = true
	return nil
}

type harness struct {
	cli      *cli
	out      *bytes.Buffer
	errOut   *bytes.Buffer
	ingester *fakeIngester
	store    *fakeStore
	answerer *fakeAnswerer
	closer   *nopCloser
	opened   bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		cli:      newCLI(),
		out:      &bytes.Buffer{},
		errOut:   &bytes.Buffer{},
		ingester: &fakeIngester{},
		store:    &fakeStore{},
		answerer: &fakeAnswerer{},
		closer:   &nopCloser{},
	}
	h.cli.loadConfig = func(string) (*config.Config, error) { return config.Default(), nil }
	h.cli.open = func(context.Context, *config.Config, *logging.Logger) (services.Registry, io.Closer, error) {
		h.opened = true
		return services.NewRegistry(services.Options{
			Repository:  h.ingester,
			VectorStore: h.store,
			Chat:        h.answerer,
		}), h.closer, nil
	}
	h.cli.root.SetOut(h.out)
	h.cli.root.SetErr(h.errOut)
	return h
}

func (h *harness) run(args ...string) error {
	h.cli.root.SetArgs(args)
	err := h.cli.root.Execute()
	if err != nil {
		h.cli.printError(err)
	}
	return err
}

func TestRootCommands(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range newCLI().root.Commands() {
		names[cmd.Name()] = true
		assert.NotEmpty(t, cmd.Short, cmd.Name())
	}
	for _, want := range []string{"ping", "chat", "repo-list", "repo-vectorize", "repo-delete", "interactive"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestPing(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run("ping", "--text", "hello", "--json"))

	var resp v1.PingResponse
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &resp))
	assert.Equal(t, v1.PingResponse{Ping: "hello", Pong: "olleh"}, resp)
	assert.False(t, h.opened)
}

func TestPing_MissingText(t *testing.T) {
	h := newHarness(t)
	err := h.run("ping")
	require.Error(t, err)
	assert.True(t, errors.Is(err, v1.ErrValidation))
	assert.Contains(t, h.errOut.String(), "Please provide a ping field")
}

func TestChat(t *testing.T) {
	h := newHarness(t)
	h.answerer.answer = "It prints hello."

	require.NoError(t, h.run("chat", "--prompt", "what?", "--repo", "octocat/hello", "--context", "a,b"))

	assert.Equal(t, "It prints hello.\n", h.out.String())
	assert.Equal(t, "what?", h.answerer.req.Prompt)
	require.NotNil(t, h.answerer.req.Repository)
	assert.Equal(t, "octocat/hello", *h.answerer.req.Repository)
	assert.Equal(t, []string{"a", "b"}, h.answerer.req.Context)
	assert.True(t, h.closer.closed)
}

func TestChat_NoRepository(t *testing.T) {
	h := newHarness(t)
	h.answerer.answer = "hi"

	require.NoError(t, h.run("chat", "--prompt", "hello", "--json"))
	assert.Nil(t, h.answerer.req.Repository)
	assert.JSONEq(t, `{"response":"hi"}`, h.out.String())
}

func TestChat_ValidationBeforeOpen(t *testing.T) {
	h := newHarness(t)
	long := make([]byte, v1.MaxPromptLength+1)
	for i := range long {
		long[i] = 'a'
	}

	err := h.run("chat", "--prompt", string(long))
	require.Error(t, err)
	assert.True(t, errors.Is(err, v1.ErrValidation))
	assert.False(t, h.opened)
}

func TestChat_BlankPrompt(t *testing.T) {
	for _, prompt := range []string{"", "   "} {
		h := newHarness(t)
		err := h.run("chat", "--prompt", prompt)
		require.Error(t, err)
		assert.ErrorIs(t, err, v1.ErrValidation)
		assert.False(t, h.opened, "prompt %q reached the services", prompt)
		assert.Empty(t, h.answerer.req.Prompt)
	}
}

func TestChat_NotFoundJSON(t *testing.T) {
	h := newHarness(t)
	h.answerer.err = v1.NotFoundf("Repository index not found: %s", "a/b/main")

	err := h.run("chat", "--prompt", "q", "--repo", "a/b", "--json")
	require.Error(t, err)
	assert.JSONEq(t, `{"error":"Repository index not found: a/b/main"}`, h.out.String())
}

func TestRepoList(t *testing.T) {
	h := newHarness(t)
	h.store.namespaces = []string{"a/b/main", "c/d/dev"}

	require.NoError(t, h.run("repo-list", "--json"))
	assert.JSONEq(t, `["a/b/main","c/d/dev"]`, h.out.String())

	h = newHarness(t)
	h.store.namespaces = []string{"a/b/main"}
	require.NoError(t, h.run("repo-list"))
	assert.Contains(t, h.out.String(), "a/b/main")
}

func TestRepoVectorize(t *testing.T) {
	h := newHarness(t)
	h.ingester.result = &repository.Result{ProcessedFiles: 3, Owner: "octocat", Repo: "hello", Branch: "dev"}

	require.NoError(t, h.run("repo-vectorize", "--repo", "octocat/hello/dev", "--json"))

	assert.Equal(t, repository.Ref{Owner: "octocat", Repo: "hello", Branch: "dev"}, h.ingester.ref)
	assert.JSONEq(t, `{"status":"success","processed_files":3,"owner":"octocat","repo":"hello","branch":"dev"}`, h.out.String())
}

func TestRepoVectorize_ProgressBar(t *testing.T) {
	h := newHarness(t)
	h.ingester.result = &repository.Result{ProcessedFiles: 1, Owner: "octocat", Repo: "hello", Branch: "main"}

	require.NoError(t, h.run("repo-vectorize", "--repo", "octocat/hello"))
	assert.Contains(t, h.out.String(), "octocat/hello/main")
	assert.NotEmpty(t, h.errOut.String())
}

func TestRepoVectorize_InvalidFormat(t *testing.T) {
	h := newHarness(t)

	err := h.run("repo-vectorize", "--repo", "just-a-name")
	require.Error(t, err)
	assert.True(t, errors.Is(err, v1.ErrInvalidFormat))
	assert.False(t, h.opened)
}

func TestRepoVectorize_NoValidFilesJSON(t *testing.T) {
	h := newHarness(t)
	h.ingester.err = &repository.NoValidFilesError{
		Ref:      repository.Ref{Owner: "a", Repo: "b", Branch: "main"},
		Contents: []repository.RemoteFile{{Name: "x.go", Path: "x.go", Type: "file", DownloadURL: "https://example.com/x.go"}},
	}

	err := h.run("repo-vectorize", "--repo", "a/b", "--json")
	require.Error(t, err)

	var body v1.ErrorResponse
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &body))
	assert.Equal(t, "No valid files to process in repository: a/b/main", body.Error)
	require.Len(t, body.GitHubContents, 1)
	assert.Equal(t, "x.go", body.GitHubContents[0].Path)
}

func TestRepoDelete(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("repo-delete", "--repo", "/a/b", "--json"))
	assert.Equal(t, "a/b/main", h.store.deleted)
	assert.JSONEq(t, `{"status":"success","repository":"a/b/main"}`, h.out.String())
}

func TestRepoDelete_NotFound(t *testing.T) {
	h := newHarness(t)
	h.store.deleteErr = v1.ErrNotFound

	err := h.run("repo-delete", "--repo", "a/b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, v1.ErrNotFound))
	assert.Contains(t, h.errOut.String(), "Repository namespace not found: a/b/main")
}

func TestRepoDelete_RequiresRepo(t *testing.T) {
	h := newHarness(t)
	require.Error(t, h.run("repo-delete"))
	assert.False(t, h.opened)
}

func TestConfigError(t *testing.T) {
	h := newHarness(t)
	h.cli.loadConfig = func(string) (*config.Config, error) { return nil, errors.New("config validation failed: bad port") }

	err := h.run("repo-list")
	require.Error(t, err)
	assert.False(t, h.opened)
	assert.Contains(t, h.errOut.String(), "bad port")
}

func TestVerboseLogConfig_WritesToStderr(t *testing.T) {
	lc, err := verboseLogConfig(config.Default())
	require.NoError(t, err)
	assert.True(t, lc.Output.Stderr)
	assert.False(t, lc.Output.Stdout, "stdout carries --json output")
	assert.Equal(t, "console", lc.Format)
	require.NoError(t, lc.Validate())
}

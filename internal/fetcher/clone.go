package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragnchat/internal/config"
	"github.com/fyrsmithlabs/ragnchat/internal/logging"
	"github.com/fyrsmithlabs/ragnchat/internal/repository"
	v1 "github.com/fyrsmithlabs/ragnchat/pkg/api/v1"
)

const (
	defaultCloneBase = "https://github.com"
	defaultRawBase   = "https://raw.githubusercontent.com"
)

// CloneFetcher lists a branch from a depth-1 in-memory clone. Bodies of
// kept files are held until Download hands them out once or the same
// branch is listed again.
type CloneFetcher struct {
	cloneBase string
	rawBase   string
	token     config.Secret
	http      *http.Client
	timeout   time.Duration
	logger    *logging.Logger
	keep      func(repository.RemoteFile) bool

	mu    sync.Mutex
	blobs map[string]map[string]string // branch key -> download url -> content
}

// NewCloneFetcher builds a clone-mode fetcher. opts.BaseURL, when set,
// replaces https://github.com as the clone host.
func NewCloneFetcher(opts Options) *CloneFetcher {
	opts.applyDefaults()
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	base := defaultCloneBase
	if opts.BaseURL != "" {
		base = strings.TrimSuffix(opts.BaseURL, "/")
	}
	return &CloneFetcher{
		cloneBase: base,
		rawBase:   defaultRawBase,
		token:     opts.Token,
		http:      hc,
		timeout:   opts.Timeout,
		logger:    opts.Logger.Named("fetcher"),
		keep:      opts.Keep,
		blobs:     make(map[string]map[string]string),
	}
}

// ListContents clones the branch and returns its files in tree order.
func (f *CloneFetcher) ListContents(ctx context.Context, owner, repo, branch string) ([]repository.RemoteFile, error) {
	cctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	opts := &git.CloneOptions{
		URL:           fmt.Sprintf("%s/%s/%s.git", f.cloneBase, owner, repo),
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Depth:         1,
		Tags:          git.NoTags,
	}
	if f.token.IsSet() {
		opts.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: f.token.Value()}
	}

	start := time.Now()
	r, err := git.CloneContext(cctx, memory.NewStorage(), nil, opts)
	if err != nil {
		return nil, cloneError(cctx, err)
	}

	head, err := r.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving head: %w", err)
	}
	commit, err := r.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("loading commit %s: %w", head.Hash(), err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("loading tree: %w", err)
	}

	files, blobs, err := f.walkTree(tree, owner, repo, branch)
	if err != nil {
		return nil, err
	}

	f.store(owner+"/"+repo+"@"+branch, blobs)

	f.logger.Debug(ctx, "cloned repository",
		zap.String("repo", owner+"/"+repo),
		zap.String("branch", branch),
		zap.String("commit", head.Hash().String()),
		zap.Int("files", len(files)),
		zap.Duration("duration", time.Since(start)))
	return files, nil
}

func (f *CloneFetcher) walkTree(tree *object.Tree, owner, repo, branch string) ([]repository.RemoteFile, map[string]string, error) {
	var files []repository.RemoteFile
	blobs := make(map[string]string)

	err := tree.Files().ForEach(func(obj *object.File) error {
		name := obj.Name
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
		rf := repository.RemoteFile{
			Name:        name,
			Path:        obj.Name,
			Type:        repository.TypeFile,
			DownloadURL: fmt.Sprintf("%s/%s/%s/%s/%s", f.rawBase, owner, repo, branch, obj.Name),
		}
		files = append(files, rf)

		if f.keep != nil && !f.keep(rf) {
			return nil
		}
		if obj.Size > maxDownloadBytes {
			return nil
		}
		isBin, err := obj.IsBinary()
		if err != nil || isBin {
			return nil
		}
		content, err := obj.Contents()
		if err != nil {
			return fmt.Errorf("reading %s: %w", obj.Name, err)
		}
		blobs[rf.DownloadURL] = content
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return files, blobs, nil
}

// store replaces whatever is still held for the branch with blobs.
func (f *CloneFetcher) store(key string, blobs map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(blobs) == 0 {
		delete(f.blobs, key)
		return
	}
	f.blobs[key] = blobs
}

// take removes and returns the held body for url.
func (f *CloneFetcher) take(url string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, held := range f.blobs {
		content, ok := held[url]
		if !ok {
			continue
		}
		delete(held, url)
		if len(held) == 0 {
			delete(f.blobs, key)
		}
		return content, true
	}
	return "", false
}

// Download returns the content captured during the clone, falling back to
// an HTTP fetch of the raw URL.
func (f *CloneFetcher) Download(ctx context.Context, file repository.RemoteFile) (string, error) {
	if content, ok := f.take(file.DownloadURL); ok {
		return content, nil
	}
	return download(ctx, f.http, f.timeout, file)
}

func cloneError(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return v1.NewRemoteAPIError(serviceName, 0, err)
	case errors.Is(err, transport.ErrRepositoryNotFound):
		return v1.NewRemoteAPIError(serviceName, http.StatusNotFound, err)
	case errors.Is(err, transport.ErrAuthenticationRequired), errors.Is(err, transport.ErrAuthorizationFailed):
		return v1.NewRemoteAPIError(serviceName, http.StatusUnauthorized, err)
	case errors.Is(err, plumbing.ErrReferenceNotFound), errors.Is(err, git.NoMatchingRefSpecError{}):
		return v1.NewRemoteAPIError(serviceName, http.StatusNotFound, err)
	}
	return v1.NewRemoteAPIError(serviceName, 0, err)
}

package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/ragnchat/internal/config"
	"github.com/fyrsmithlabs/ragnchat/internal/logging"
	"github.com/fyrsmithlabs/ragnchat/internal/repository"
	v1 "github.com/fyrsmithlabs/ragnchat/pkg/api/v1"
)

const serviceName = "github"

// maxDownloadBytes bounds a single file download. Larger files are
// truncated by the embedder anyway.
const maxDownloadBytes = 4 << 20

// Options configures a fetcher.
type Options struct {
	Token             config.Secret
	BaseURL           string // GitHub Enterprise API root; empty for github.com
	RequestsPerSecond float64
	Timeout           time.Duration
	HTTPClient        *http.Client
	Logger            *logging.Logger
	// Keep limits which clone-mode file bodies are held for Download. Nil
	// keeps every text file.
	Keep func(repository.RemoteFile) bool
}

func (o *Options) applyDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = config.DefaultRequestTimeout
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
}

// ContentsFetcher lists repositories through the contents API.
type ContentsFetcher struct {
	client  *github.Client
	http    *http.Client
	limiter *rate.Limiter
	timeout time.Duration
	logger  *logging.Logger
}

// NewContentsFetcher builds a fetcher. The token is optional; without it
// requests are anonymous and subject to GitHub's lower rate limit.
func NewContentsFetcher(ctx context.Context, opts Options) (*ContentsFetcher, error) {
	opts.applyDefaults()

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	if opts.Token.IsSet() {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, hc)
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token.Value()})
		hc = oauth2.NewClient(ctx, ts)
	}

	client := github.NewClient(hc)
	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid github base url %q: %w", opts.BaseURL, err)
		}
		client.BaseURL = u
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &ContentsFetcher{
		client:  client,
		http:    hc,
		limiter: rate.NewLimiter(limit, 1),
		timeout: opts.Timeout,
		logger:  opts.Logger.Named("fetcher"),
	}, nil
}

// ListContents returns every non-directory entry of the branch, depth first
// in listing order. Any failed directory listing aborts the walk.
func (f *ContentsFetcher) ListContents(ctx context.Context, owner, repo, branch string) ([]repository.RemoteFile, error) {
	root, err := f.listDir(ctx, owner, repo, branch, "")
	if err != nil {
		return nil, err
	}

	var files []repository.RemoteFile
	stack := pushReversed(nil, root)
	for len(stack) > 0 {
		entry := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if entry.Type != repository.TypeDir {
			files = append(files, entry)
			continue
		}

		children, err := f.listDir(ctx, owner, repo, branch, entry.Path)
		if err != nil {
			return nil, err
		}
		stack = pushReversed(stack, children)
	}

	f.logger.Debug(ctx, "listed contents",
		zap.String("repo", owner+"/"+repo),
		zap.String("branch", branch),
		zap.Int("files", len(files)))
	return files, nil
}

func (f *ContentsFetcher) listDir(ctx context.Context, owner, repo, branch, path string) ([]repository.RemoteFile, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	file, dir, resp, err := f.client.Repositories.GetContents(ctx, owner, repo, path,
		&github.RepositoryContentGetOptions{Ref: branch})
	if err != nil {
		return nil, remoteError(ctx, resp, err)
	}

	// A path naming a single file yields one object instead of a listing.
	if file != nil {
		return []repository.RemoteFile{toRemoteFile(file)}, nil
	}
	out := make([]repository.RemoteFile, 0, len(dir))
	for _, c := range dir {
		out = append(out, toRemoteFile(c))
	}
	return out, nil
}

// Download fetches the raw text of a file from its download URL.
func (f *ContentsFetcher) Download(ctx context.Context, file repository.RemoteFile) (string, error) {
	return download(ctx, f.http, f.timeout, file)
}

func download(ctx context.Context, hc *http.Client, timeout time.Duration, file repository.RemoteFile) (string, error) {
	if file.DownloadURL == "" {
		return "", fmt.Errorf("file %s has no download url", file.Path)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.DownloadURL, nil)
	if err != nil {
		return "", fmt.Errorf("building download request: %w", err)
	}
	resp, err := hc.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", v1.NewRemoteAPIError(serviceName, 0, err)
		}
		return "", fmt.Errorf("downloading %s: %w", file.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", v1.NewRemoteAPIError(serviceName, resp.StatusCode,
			fmt.Errorf("downloading %s: %s", file.Path, resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", file.Path, err)
	}
	return string(body), nil
}

func remoteError(ctx context.Context, resp *github.Response, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return v1.NewRemoteAPIError(serviceName, 0, err)
	}
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return v1.NewRemoteAPIError(serviceName, ghErr.Response.StatusCode, errors.New(ghErr.Message))
	}
	if resp != nil && resp.Response != nil {
		return v1.NewRemoteAPIError(serviceName, resp.StatusCode, err)
	}
	return v1.NewRemoteAPIError(serviceName, 0, err)
}

func toRemoteFile(c *github.RepositoryContent) repository.RemoteFile {
	return repository.RemoteFile{
		Name:        c.GetName(),
		Path:        c.GetPath(),
		Type:        c.GetType(),
		DownloadURL: c.GetDownloadURL(),
	}
}

func pushReversed(stack, entries []repository.RemoteFile) []repository.RemoteFile {
	for i := len(entries) - 1; i >= 0; i-- {
		stack = append(stack, entries[i])
	}
	return stack
}

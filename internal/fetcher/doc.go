// Package fetcher lists and downloads the files of a GitHub repository
// branch.
//
// ContentsFetcher walks the repository through the REST contents API.
// CloneFetcher makes a shallow in-memory clone and walks the worktree,
// which costs one network round trip regardless of repository size.
// Both satisfy repository.Lister and embeddings.Downloader.
package fetcher

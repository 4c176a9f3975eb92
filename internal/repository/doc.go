// Package repository turns GitHub repositories into namespaced vector
// records.
//
// A repository is addressed by a Ref parsed from "owner/repo[/branch]".
// Service.Vectorize lists every file of the ref, embeds the eligible ones
// and upserts one record per embedded file into the namespace
// "owner/repo/branch":
//
//	ref, err := repository.ParseRef("octocat/hello-world")
//	if err != nil {
//	    return err // wraps v1.ErrInvalidFormat
//	}
//	res, err := svc.Vectorize(ctx, ref)
//
// Listing failures abort the run. Failures on a single file are logged and
// the file is skipped. A run that embeds nothing fails with a
// *NoValidFilesError carrying the listing.
//
// Records are keyed "{namespace}/{file_name}", so re-running ingestion
// overwrites earlier records of the same file name. Records of files that
// were removed from the repository stay until the namespace is deleted.
package repository

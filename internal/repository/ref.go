package repository

import (
	"fmt"
	"strings"

	v1 "github.com/fyrsmithlabs/ragnchat/pkg/api/v1"
)

// DefaultBranch is used when a repository string names no branch.
const DefaultBranch = "main"

// Ref identifies one branch of a GitHub repository.
type Ref struct {
	Owner  string
	Repo   string
	Branch string
}

// ParseRef parses "owner/repo" or "owner/repo/branch", with one optional
// leading slash. Any other shape fails with v1.ErrInvalidFormat.
func ParseRef(s string) (Ref, error) {
	parts := strings.Split(strings.TrimPrefix(s, "/"), "/")

	var ref Ref
	switch len(parts) {
	case 2:
		ref = Ref{Owner: parts[0], Repo: parts[1], Branch: DefaultBranch}
	case 3:
		ref = Ref{Owner: parts[0], Repo: parts[1], Branch: parts[2]}
	default:
		return Ref{}, fmt.Errorf("%w: got %q", v1.ErrInvalidFormat, s)
	}

	if ref.Owner == "" || ref.Repo == "" {
		return Ref{}, fmt.Errorf("%w: got %q", v1.ErrInvalidFormat, s)
	}
	return ref, nil
}

// Namespace returns "owner/repo/branch", the vector store partition of the ref.
func (r Ref) Namespace() string {
	return r.Owner + "/" + r.Repo + "/" + r.Branch
}

func (r Ref) String() string {
	return r.Namespace()
}

// RecordID returns the id of the record holding fileName.
func (r Ref) RecordID(fileName string) string {
	return r.Namespace() + "/" + fileName
}

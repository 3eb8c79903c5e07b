package main

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SourceHost resolves gists, repositories, branches and commits.
// Implementations must be safe for concurrent use.
type SourceHost interface {
	GetSnippet(ctx context.Context, id string) (*Snippet, error)
	GetRepository(ctx context.Context, owner, name string) (*Repository, error)
	ListBranches(ctx context.Context, repo *Repository) ([]Branch, error)
	// ListCommits returns at most limit commits reachable from sha, newest first.
	ListCommits(ctx context.Context, repo *Repository, sha string, limit int) ([]Commit, error)
}

// Account is the owner of a gist or repository.
type Account struct {
	Login     string
	HTMLURL   string
	AvatarURL string
}

// Snippet is a gist and its latest revisions, newest first.
type Snippet struct {
	ID        string
	Owner     *Account
	UpdatedAt time.Time
	History   []SnippetRevision
}

// SnippetRevision is one entry in a gist's history.
type SnippetRevision struct {
	Version     string
	URL         string // API URL for this revision.
	CommittedAt time.Time
}

// Repository identifies a resolved repository.
type Repository struct {
	Owner    *Account
	Name     string
	FullName string
	HTMLURL  string
}

// Branch is a branch name and the SHA of its tip commit.
type Branch struct {
	Name   string
	TipSHA string
}

// Commit is a single commit as listed from a branch tip.
type Commit struct {
	SHA         string
	HTMLURL     string
	Message     string
	CommittedAt time.Time
}

// Remote failure kinds. Every *HostError unwraps to exactly one of these.
var (
	ErrRemoteNotFound     = errors.New("remote: not found")
	ErrRemoteAccessDenied = errors.New("remote: access denied")
	ErrRemoteTransient    = errors.New("remote: transient failure")
)

// HostError is a failed remote lookup with its kind attached.
type HostError struct {
	Kind error  // One of the ErrRemote* sentinels.
	Op   string // e.g. "get gist"
	ID   string // The identifier being looked up.
	Err  error
}

func (e *HostError) Error() string {
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.ID, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the underlying error to errors.Is/As.
func (e *HostError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// IsRemoteFailure reports whether err is one of the expected remote failure
// kinds, as opposed to a bug or a cancelled context.
func IsRemoteFailure(err error) bool {
	return errors.Is(err, ErrRemoteNotFound) ||
		errors.Is(err, ErrRemoteAccessDenied) ||
		errors.Is(err, ErrRemoteTransient)
}

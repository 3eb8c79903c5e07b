package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/calebcase/oops"
	"github.com/google/go-github/v66/github"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// branchPageSize is the largest page GitHub allows for branch listings.
const branchPageSize = 100

// GitHubHost implements SourceHost on top of the GitHub REST API.
type GitHubHost struct {
	client  *github.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewGitHubHost creates a GitHubHost. An empty token makes unauthenticated
// requests; a non-empty baseURL targets a GitHub Enterprise server. Requests
// are limited to rps per second (unlimited if rps <= 0) with the given burst.
func NewGitHubHost(
	token string,
	baseURL string,
	rps float64,
	burst int,
	logger zerolog.Logger,
) (*GitHubHost, error) {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	if baseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, oops.Trace(err)
		}
	}

	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}

	return newGitHubHost(client, rate.NewLimiter(limit, burst), logger), nil
}

func newGitHubHost(client *github.Client, limiter *rate.Limiter, logger zerolog.Logger) *GitHubHost {
	return &GitHubHost{
		client:  client,
		limiter: limiter,
		logger:  logger.With().Str("component", "github").Logger(),
	}
}

// GetSnippet fetches a gist and its latest revisions.
func (h *GitHubHost) GetSnippet(ctx context.Context, id string) (*Snippet, error) {
	const op = "get gist"

	if err := h.wait(ctx, op, id); err != nil {
		return nil, err
	}

	h.logger.Debug().Str("gist_id", id).Msg("fetching gist")

	gist, _, err := h.client.Gists.Get(ctx, id)
	if err != nil {
		return nil, hostError(op, id, err)
	}

	if err := h.wait(ctx, op, id); err != nil {
		return nil, err
	}

	// The gist payload does not carry its history; the commits listing does,
	// newest first.
	history, _, err := h.client.Gists.ListCommits(ctx, id, &github.ListOptions{PerPage: maxRevisions})
	if err != nil {
		return nil, hostError(op, id, err)
	}

	snippet := &Snippet{
		ID:        gist.GetID(),
		Owner:     account(gist.GetOwner()),
		UpdatedAt: gist.GetUpdatedAt().Time,
		History:   make([]SnippetRevision, 0, len(history)),
	}
	for _, c := range history {
		snippet.History = append(snippet.History, SnippetRevision{
			Version:     c.GetVersion(),
			URL:         c.GetURL(),
			CommittedAt: c.GetCommittedAt().Time,
		})
	}

	return snippet, nil
}

// GetRepository resolves owner/name.
func (h *GitHubHost) GetRepository(ctx context.Context, owner, name string) (*Repository, error) {
	const op = "get repository"
	id := owner + "/" + name

	if err := h.wait(ctx, op, id); err != nil {
		return nil, err
	}

	h.logger.Debug().Str("repo", id).Msg("fetching repository")

	repo, _, err := h.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, hostError(op, id, err)
	}

	fullName := repo.GetFullName()
	if fullName == "" {
		fullName = id
	}

	return &Repository{
		Owner:    account(repo.GetOwner()),
		Name:     repo.GetName(),
		FullName: fullName,
		HTMLURL:  repo.GetHTMLURL(),
	}, nil
}

// ListBranches returns every branch of repo in API order, following pagination.
func (h *GitHubHost) ListBranches(ctx context.Context, repo *Repository) ([]Branch, error) {
	const op = "list branches"
	owner, name := splitFullName(repo.FullName)

	opts := &github.BranchListOptions{
		ListOptions: github.ListOptions{PerPage: branchPageSize},
	}

	var branches []Branch
	for {
		if err := h.wait(ctx, op, repo.FullName); err != nil {
			return nil, err
		}

		page, resp, err := h.client.Repositories.ListBranches(ctx, owner, name, opts)
		if err != nil {
			return nil, hostError(op, repo.FullName, err)
		}

		for _, b := range page {
			branches = append(branches, Branch{
				Name:   b.GetName(),
				TipSHA: b.GetCommit().GetSHA(),
			})
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	h.logger.Debug().
		Str("repo", repo.FullName).
		Int("branches", len(branches)).
		Msg("listed branches")

	return branches, nil
}

// ListCommits returns up to limit commits reachable from sha, newest first.
func (h *GitHubHost) ListCommits(ctx context.Context, repo *Repository, sha string, limit int) ([]Commit, error) {
	const op = "list commits"
	owner, name := splitFullName(repo.FullName)

	if err := h.wait(ctx, op, repo.FullName); err != nil {
		return nil, err
	}

	opts := &github.CommitsListOptions{
		SHA:         sha,
		ListOptions: github.ListOptions{PerPage: limit},
	}

	page, _, err := h.client.Repositories.ListCommits(ctx, owner, name, opts)
	if err != nil {
		return nil, hostError(op, repo.FullName+"@"+sha, err)
	}

	commits := make([]Commit, 0, min(limit, len(page)))
	for _, c := range page {
		if len(commits) == limit {
			break
		}
		commits = append(commits, Commit{
			SHA:         c.GetSHA(),
			HTMLURL:     c.GetHTMLURL(),
			Message:     c.GetCommit().GetMessage(),
			CommittedAt: c.GetCommit().GetCommitter().GetDate().Time,
		})
	}

	return commits, nil
}

// wait blocks on the rate limiter. A limiter that cannot be satisfied before
// the context deadline counts as a transient failure.
func (h *GitHubHost) wait(ctx context.Context, op, id string) error {
	err := h.limiter.Wait(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return oops.Trace(err)
	}
	return &HostError{Kind: ErrRemoteTransient, Op: op, ID: id, Err: err}
}

// hostError attaches a failure kind to a go-github error. Errors that do not
// map onto a known kind are returned traced and unkinded.
func hostError(op, id string, err error) error {
	var (
		rateErr  *github.RateLimitError
		abuseErr *github.AbuseRateLimitError
		respErr  *github.ErrorResponse
		netErr   net.Error
		kind     error
	)

	switch {
	case errors.Is(err, context.Canceled):
		return oops.Trace(err)
	case errors.As(err, &rateErr), errors.As(err, &abuseErr):
		kind = ErrRemoteTransient
	case errors.As(err, &respErr) && respErr.Response != nil:
		switch code := respErr.Response.StatusCode; {
		case code == http.StatusNotFound:
			kind = ErrRemoteNotFound
		case code == http.StatusUnauthorized, code == http.StatusForbidden,
			code == http.StatusUnavailableForLegalReasons:
			kind = ErrRemoteAccessDenied
		case code == http.StatusTooManyRequests, code >= 500:
			kind = ErrRemoteTransient
		}
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		kind = ErrRemoteTransient
	}

	if kind == nil {
		return oops.Trace(err)
	}

	return &HostError{Kind: kind, Op: op, ID: id, Err: err}
}

func account(u *github.User) *Account {
	if u == nil {
		return nil
	}
	return &Account{
		Login:     u.GetLogin(),
		HTMLURL:   u.GetHTMLURL(),
		AvatarURL: u.GetAvatarURL(),
	}
}

func splitFullName(fullName string) (owner, name string) {
	owner, name, _ = strings.Cut(fullName, "/")
	return owner, name
}

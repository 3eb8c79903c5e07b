package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calebcase/oops"
	"github.com/rs/zerolog"
)

// No-card outcomes. These are expected and only ever logged.
var (
	// ErrAmbiguousSnippet means the gist URL held zero or several IDs. A second
	// ID pins a revision, which has no history worth summarizing.
	ErrAmbiguousSnippet = errors.New("gist URL does not hold exactly one ID")
	ErrBranchNotFound   = errors.New("branch not found")
	ErrNoRevisions      = errors.New("no revisions")
)

const (
	snippetTitle         = "GitHub Gist"
	repoTitlePrefix      = "GitHub Repository: "
	revisionsFieldName   = "revisions(latest 5)"
	branchesFieldName    = "branches"
	snippetFooter        = "HEAD updated at:"
	repositoryFileFooter = "HEAD committed at:"
)

// Summarizer turns URLs found in messages into revision history cards.
// It holds no per-message state and is safe for concurrent use.
type Summarizer struct {
	host       SourceHost
	classifier *Classifier
	logger     zerolog.Logger
}

// NewSummarizer creates a new Summarizer.
func NewSummarizer(host SourceHost, classifier *Classifier, logger zerolog.Logger) *Summarizer {
	return &Summarizer{
		host:       host,
		classifier: classifier,
		logger:     logger.With().Str("component", "history").Logger(),
	}
}

// GetHistory builds a card for the first URL in text. It returns a nil card
// and nil error whenever no card should be posted; an error is only returned
// for failures that are not an expected no-card outcome.
func (s *Summarizer) GetHistory(ctx context.Context, text string) (*Card, error) {
	classified := s.classifier.Classify(text)
	if classified == nil {
		s.logger.Debug().Msg("no URL found in the message content")
		return nil, nil
	}

	logger := s.logger.With().
		Str("url", classified.Raw).
		Stringer("path", classified.Kind).
		Logger()

	var (
		card *Card
		err  error
	)

	switch classified.Kind {
	case URLSnippet:
		logger.Info().Msg("gist URL found in the message content")
		card, err = s.summarizeSnippet(ctx, classified, logger)
	case URLRepositoryFile:
		logger = logger.With().
			Str("repo", classified.User+"/"+classified.Repo).
			Str("branch", classified.Branch).
			Str("file", classified.FilePath).
			Logger()
		logger.Info().Msg("repository file URL found in the message content")
		card, err = s.summarizeRepoFile(ctx, classified, logger)
	default:
		logger.Info().Msg("URL found in the message content is not processable")
		return nil, nil
	}

	if err != nil {
		if isNoCard(err) {
			logger.Info().Err(err).Msg("no card produced")
			return nil, nil
		}
		return nil, err
	}

	return card, nil
}

func isNoCard(err error) bool {
	return IsRemoteFailure(err) ||
		errors.Is(err, ErrAmbiguousSnippet) ||
		errors.Is(err, ErrBranchNotFound) ||
		errors.Is(err, ErrNoRevisions)
}

// summarizeSnippet builds a card listing a gist's latest revisions.
func (s *Summarizer) summarizeSnippet(
	ctx context.Context,
	classified *ClassifiedURL,
	logger zerolog.Logger,
) (*Card, error) {
	ids := SnippetIDs(classified.URL)
	if len(ids) != 1 {
		logger.Debug().Strs("ids", ids).Msg("gist URL does not hold exactly one ID")
		return nil, ErrAmbiguousSnippet
	}
	id := ids[0]

	logger = logger.With().Str("gist_id", id).Logger()

	snippet, err := s.host.GetSnippet(ctx, id)
	if err != nil {
		return nil, traceUnlessRemote(err)
	}

	if len(snippet.History) == 0 {
		return nil, fmt.Errorf("gist %s: %w", id, ErrNoRevisions)
	}

	base := "https://" + s.classifier.SnippetHost + "/" + id + "/"

	history := snippet.History[:min(maxRevisions, len(snippet.History))]
	lines := make([]string, 0, len(history))
	for _, rev := range history {
		lines = append(lines, markdownLink(shorten(rev.Version, snippetVersionLength), base+rev.Version))
	}

	card := &Card{
		Title:       snippetTitle,
		Description: headDescription(base + snippet.History[0].Version),
		Author:      cardAuthor(snippet.Owner),
		Footer:      snippetFooter,
		Timestamp:   snippet.UpdatedAt,
	}
	card.AddField(revisionsFieldName, lines)

	logger.Debug().
		Int("revisions", len(snippet.History)).
		Msg("built gist card")

	return card, nil
}

// summarizeRepoFile builds a card for a file on a branch, linking to the file
// at the branch's current tip commit.
func (s *Summarizer) summarizeRepoFile(
	ctx context.Context,
	classified *ClassifiedURL,
	logger zerolog.Logger,
) (*Card, error) {
	repo, err := s.host.GetRepository(ctx, classified.User, classified.Repo)
	if err != nil {
		return nil, traceUnlessRemote(err)
	}

	branches, err := s.host.ListBranches(ctx, repo)
	if err != nil {
		return nil, traceUnlessRemote(err)
	}

	checkedOut, ok := findBranch(branches, classified.Branch)
	if !ok {
		logger.Debug().Int("branches", len(branches)).Msg("requested branch does not exist")
		return nil, fmt.Errorf("%s@%s: %w", repo.FullName, classified.Branch, ErrBranchNotFound)
	}

	commits, err := s.host.ListCommits(ctx, repo, checkedOut.TipSHA, maxRevisions)
	if err != nil {
		return nil, traceUnlessRemote(err)
	}
	if len(commits) == 0 {
		return nil, fmt.Errorf("%s@%s: %w", repo.FullName, checkedOut.TipSHA, ErrNoRevisions)
	}

	fileURL := fmt.Sprintf(
		"https://%s/%s/%s/blob/%s/%s",
		classified.URL.Host,
		classified.User,
		classified.Repo,
		checkedOut.TipSHA,
		classified.FilePath,
	)

	lines := make([]string, 0, len(commits))
	for _, c := range commits[:min(maxRevisions, len(commits))] {
		lines = append(lines, formatCommit(c))
	}

	card := &Card{
		Title:       repoTitlePrefix + classified.User + "/" + classified.Repo,
		Description: headDescription(fileURL),
		Author:      cardAuthor(repo.Owner),
		Footer:      repositoryFileFooter,
		Timestamp:   tipCommittedAt(commits, checkedOut.TipSHA),
	}
	card.AddField(branchesFieldName, formatBranches(branches, checkedOut.Name))
	card.AddField(revisionsFieldName, lines)

	logger.Debug().
		Str("tip", checkedOut.TipSHA).
		Int("commits", len(commits)).
		Msg("built repository file card")

	return card, nil
}

func findBranch(branches []Branch, name string) (Branch, bool) {
	for _, b := range branches {
		if b.Name == name {
			return b, true
		}
	}
	return Branch{}, false
}

// tipCommittedAt is the committer date of the tip commit. The listing starts
// at the tip, so the first commit is used if the SHA is not found.
func tipCommittedAt(commits []Commit, tip string) time.Time {
	for _, c := range commits {
		if c.SHA == tip {
			return c.CommittedAt
		}
	}
	return commits[0].CommittedAt
}

func traceUnlessRemote(err error) error {
	if IsRemoteFailure(err) {
		return err
	}
	return oops.Trace(err)
}

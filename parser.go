package main

import (
	"net/url"
	"regexp"
	"strings"
)

// URLKind tags the shape of a URL found in a message.
type URLKind int

const (
	// URLUnrecognized is a well-formed URL of a shape we do not summarize.
	URLUnrecognized URLKind = iota
	// URLSnippet points at a gist (any path under the snippet host).
	URLSnippet
	// URLRepositoryFile points at a file on a branch: /user/repo/blob/branch/path.
	URLRepositoryFile
)

func (k URLKind) String() string {
	switch k {
	case URLSnippet:
		return "snippet"
	case URLRepositoryFile:
		return "repo_file"
	default:
		return "unrecognized"
	}
}

// ClassifiedURL is the first URL found in a message and what it points at.
type ClassifiedURL struct {
	Kind URLKind
	URL  *url.URL
	Raw  string

	// Only set for URLRepositoryFile.
	User     string
	Repo     string
	Branch   string
	FilePath string
}

// urlPattern matches the first http(s) URL in a message. Slack's <url|label>
// wrapping ends the match at '|' or '>'.
var urlPattern = regexp.MustCompile(`https?://[a-zA-Z0-9.%/-]+`)

// blobPattern matches: /user/repo/blob/branch/file/path
// Groups: user, repo, branch, file path (rest of the path).
var blobPattern = regexp.MustCompile(`^/([0-9a-zA-Z-]+)/([0-9a-zA-Z-]+)/blob/([0-9a-zA-Z-]+)/(.+)$`)

// Classifier finds and tags URLs in message text.
type Classifier struct {
	SnippetHost string
	RepoHost    string
}

// NewClassifier creates a Classifier for the given hosts. An empty repoHost
// accepts repository file paths on any host.
func NewClassifier(snippetHost, repoHost string) *Classifier {
	return &Classifier{
		SnippetHost: snippetHost,
		RepoHost:    repoHost,
	}
}

// Classify finds the first URL in text and determines its shape.
// Returns nil if the text contains no URL.
func (c *Classifier) Classify(text string) *ClassifiedURL {
	raw := urlPattern.FindString(text)
	if raw == "" {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		// Bad percent escapes and the like. There is a URL, but not one we can use.
		return &ClassifiedURL{Kind: URLUnrecognized, Raw: raw}
	}

	classified := &ClassifiedURL{
		Kind: URLUnrecognized,
		URL:  u,
		Raw:  raw,
	}

	if u.Hostname() == c.SnippetHost {
		classified.Kind = URLSnippet
		return classified
	}

	if c.RepoHost != "" && u.Hostname() != c.RepoHost {
		return classified
	}

	// EscapedPath keeps percent escapes intact so matching sees the URL as written.
	matches := blobPattern.FindStringSubmatch(u.EscapedPath())
	if len(matches) < 5 {
		return classified
	}

	classified.Kind = URLRepositoryFile
	classified.User = matches[1]
	classified.Repo = matches[2]
	classified.Branch = matches[3]
	classified.FilePath = matches[4]

	return classified
}

// snippetIDPattern matches a gist ID or revision SHA path segment.
var snippetIDPattern = regexp.MustCompile(`^[0-9a-z]{32,}$`)

// SnippetIDs returns every path segment that looks like a gist ID or revision.
func SnippetIDs(u *url.URL) []string {
	var ids []string
	for _, segment := range strings.Split(u.EscapedPath(), "/") {
		if snippetIDPattern.MatchString(segment) {
			ids = append(ids, segment)
		}
	}
	return ids
}

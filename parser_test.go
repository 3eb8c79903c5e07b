package main

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGistID = "0123456789abcdef0123456789abcdef"

func TestClassify(t *testing.T) {
	classifier := NewClassifier("gist.github.com", "github.com")

	tests := []struct {
		name     string
		input    string
		expected *ClassifiedURL // nil means no URL at all
	}{
		{
			name:  "no url",
			input: "nothing to see here",
		},
		{
			name:  "scheme without host characters",
			input: "ftp://github.com/alice/proj/blob/main/x.txt",
		},
		{
			name:  "gist",
			input: "see https://gist.github.com/alice/" + testGistID,
			expected: &ClassifiedURL{
				Kind: URLSnippet,
				Raw:  "https://gist.github.com/alice/" + testGistID,
			},
		},
		{
			name:  "repository file",
			input: "look at https://github.com/alice/proj/blob/main/src/x.txt please",
			expected: &ClassifiedURL{
				Kind:     URLRepositoryFile,
				Raw:      "https://github.com/alice/proj/blob/main/src/x.txt",
				User:     "alice",
				Repo:     "proj",
				Branch:   "main",
				FilePath: "src/x.txt",
			},
		},
		{
			name:  "repository file over http",
			input: "http://github.com/alice/proj/blob/feature-1/README.md",
			expected: &ClassifiedURL{
				Kind:     URLRepositoryFile,
				Raw:      "http://github.com/alice/proj/blob/feature-1/README.md",
				User:     "alice",
				Repo:     "proj",
				Branch:   "feature-1",
				FilePath: "README.md",
			},
		},
		{
			name:  "slack wrapped link",
			input: "<https://github.com/alice/proj/blob/main/src/x.txt|x.txt>",
			expected: &ClassifiedURL{
				Kind:     URLRepositoryFile,
				Raw:      "https://github.com/alice/proj/blob/main/src/x.txt",
				User:     "alice",
				Repo:     "proj",
				Branch:   "main",
				FilePath: "src/x.txt",
			},
		},
		{
			name:  "percent escapes are not decoded",
			input: "https://github.com/alice/proj/blob/main/my%20file.txt",
			expected: &ClassifiedURL{
				Kind:     URLRepositoryFile,
				Raw:      "https://github.com/alice/proj/blob/main/my%20file.txt",
				User:     "alice",
				Repo:     "proj",
				Branch:   "main",
				FilePath: "my%20file.txt",
			},
		},
		{
			name:  "other host",
			input: "https://example.com/alice/proj/blob/main/x.txt",
			expected: &ClassifiedURL{
				Kind: URLUnrecognized,
				Raw:  "https://example.com/alice/proj/blob/main/x.txt",
			},
		},
		{
			name:  "repository root",
			input: "https://github.com/alice/proj",
			expected: &ClassifiedURL{
				Kind: URLUnrecognized,
				Raw:  "https://github.com/alice/proj",
			},
		},
		{
			name:  "tree url",
			input: "https://github.com/alice/proj/tree/main/src",
			expected: &ClassifiedURL{
				Kind: URLUnrecognized,
				Raw:  "https://github.com/alice/proj/tree/main/src",
			},
		},
		{
			name:  "matching is case sensitive",
			input: "https://github.com/alice/proj/BLOB/main/x.txt",
			expected: &ClassifiedURL{
				Kind: URLUnrecognized,
				Raw:  "https://github.com/alice/proj/BLOB/main/x.txt",
			},
		},
		{
			name:  "branch with a dot",
			input: "https://github.com/alice/proj/blob/v1.2/x.txt",
			expected: &ClassifiedURL{
				Kind: URLUnrecognized,
				Raw:  "https://github.com/alice/proj/blob/v1.2/x.txt",
			},
		},
		{
			name:  "empty file path",
			input: "https://github.com/alice/proj/blob/main/",
			expected: &ClassifiedURL{
				Kind: URLUnrecognized,
				Raw:  "https://github.com/alice/proj/blob/main/",
			},
		},
		{
			name:  "first url wins",
			input: "https://example.com/x then https://github.com/alice/proj/blob/main/x.txt",
			expected: &ClassifiedURL{
				Kind: URLUnrecognized,
				Raw:  "https://example.com/x",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := classifier.Classify(tt.input)
			if tt.expected == nil {
				assert.Nil(t, result)
				return
			}

			require.NotNil(t, result)
			assert.Equal(t, tt.expected.Kind, result.Kind)
			assert.Equal(t, tt.expected.Raw, result.Raw)
			assert.Equal(t, tt.expected.User, result.User)
			assert.Equal(t, tt.expected.Repo, result.Repo)
			assert.Equal(t, tt.expected.Branch, result.Branch)
			assert.Equal(t, tt.expected.FilePath, result.FilePath)
		})
	}
}

func TestClassify_AnyRepoHost(t *testing.T) {
	classifier := NewClassifier("gist.github.com", "")

	result := classifier.Classify("https://git.example.com/alice/proj/blob/main/x.txt")
	require.NotNil(t, result)
	assert.Equal(t, URLRepositoryFile, result.Kind)
	assert.Equal(t, "git.example.com", result.URL.Host)
	assert.Equal(t, "x.txt", result.FilePath)

	// The snippet host still takes priority.
	result = classifier.Classify("https://gist.github.com/alice/proj/blob/main/x.txt")
	require.NotNil(t, result)
	assert.Equal(t, URLSnippet, result.Kind)
}

func TestSnippetIDs(t *testing.T) {
	const revision = "fedcba9876543210fedcba9876543210fedcba98"

	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "gist id",
			input:    "https://gist.github.com/alice/" + testGistID,
			expected: []string{testGistID},
		},
		{
			name:     "gist id without user",
			input:    "https://gist.github.com/" + testGistID,
			expected: []string{testGistID},
		},
		{
			name:     "pinned revision",
			input:    "https://gist.github.com/alice/" + testGistID + "/" + revision,
			expected: []string{testGistID, revision},
		},
		{
			name:  "no id",
			input: "https://gist.github.com/alice",
		},
		{
			name:  "too short",
			input: "https://gist.github.com/alice/0123456789abcdef",
		},
		{
			name:  "file extension",
			input: "https://gist.github.com/alice/" + testGistID + ".js",
		},
		{
			name:  "upper case",
			input: "https://gist.github.com/alice/0123456789ABCDEF0123456789ABCDEF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, SnippetIDs(u))
		})
	}
}

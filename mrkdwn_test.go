package main

import (
	"strings"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertMarkdownToMrkdwn(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "bold double asterisk",
			input:    "This is **bold** text",
			expected: "This is *bold* text",
		},
		{
			name:     "italic underscore",
			input:    "This is _italic_ text",
			expected: "This is _italic_ text",
		},
		{
			name:     "italic asterisk",
			input:    "This is *italic* text",
			expected: "This is _italic_ text",
		},
		{
			name:     "link",
			input:    "[Click here](https://example.com)",
			expected: "<https://example.com|Click here>",
		},
		{
			name:     "head link",
			input:    "[Link for **HEAD**](https://gist.github.com/abc/00aaa)",
			expected: "<https://gist.github.com/abc/00aaa|Link for *HEAD*>",
		},
		{
			name:     "strikethrough",
			input:    "This is ~~deleted~~ text",
			expected: "This is ~deleted~ text",
		},
		{
			name:     "inline code unchanged",
			input:    "Run `npm install` to install",
			expected: "Run `npm install` to install",
		},
		{
			name:     "branch list with marker",
			input:    "dev\n\\* **main**\nfeature",
			expected: "dev\n* *main*\nfeature",
		},
		{
			name:     "control characters escaped",
			input:    "Fix <b> & co",
			expected: "Fix &lt;b&gt; &amp; co",
		},
		{
			name:     "commit line",
			input:    "[abcdef1](https://github.com/alice/proj/commit/abcdef1): Fix typo",
			expected: "<https://github.com/alice/proj/commit/abcdef1|abcdef1>: Fix typo",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertMarkdownToMrkdwn(tt.input)
			// Normalize whitespace for comparison.
			result = strings.TrimSpace(result)
			expected := strings.TrimSpace(tt.expected)
			if result != expected {
				t.Errorf("ConvertMarkdownToMrkdwn(%q)\ngot:  %q\nwant: %q", tt.input, result, expected)
			}
		})
	}
}

func TestConvertMarkdownToMrkdwn_RevisionField(t *testing.T) {
	input := strings.Join([]string{
		"[abcdef1](https://github.com/alice/proj/commit/abcdef1): Second",
		"[1234567](https://github.com/alice/proj/commit/1234567): First",
	}, "\n")

	result := ConvertMarkdownToMrkdwn(input)

	if !strings.Contains(result, "<https://github.com/alice/proj/commit/abcdef1|abcdef1>: Second") {
		t.Errorf("first commit not converted: %q", result)
	}
	if !strings.Contains(result, "<https://github.com/alice/proj/commit/1234567|1234567>: First") {
		t.Errorf("second commit not converted: %q", result)
	}
	if strings.Count(result, "\n") != 1 {
		t.Errorf("expected one line break, got %q", result)
	}
}

func TestCardAttachment(t *testing.T) {
	card := &Card{
		Title:       "GitHub Repository: alice/proj",
		Description: "[Link for **HEAD**](https://github.com/alice/proj/blob/abc/x.txt)",
		Author: &CardAuthor{
			Name:    "alice",
			URL:     "https://github.com/alice",
			IconURL: "https://avatars.githubusercontent.com/u/1",
		},
		Footer:    "HEAD committed at:",
		Timestamp: time.Unix(1700000000, 0),
	}
	card.AddField("branches", []string{`\* **main**`, "dev"})

	attachment := CardAttachment(card)

	assert.Equal(t, "GitHub Repository: alice/proj", attachment.Title)
	assert.Equal(t, "GitHub Repository: alice/proj", attachment.Fallback)
	assert.Equal(t, "<https://github.com/alice/proj/blob/abc/x.txt|Link for *HEAD*>", attachment.Text)
	assert.Equal(t, "alice", attachment.AuthorName)
	assert.Equal(t, "https://github.com/alice", attachment.AuthorLink)
	assert.Equal(t, "https://avatars.githubusercontent.com/u/1", attachment.AuthorIcon)
	assert.Equal(t, "HEAD committed at:", attachment.Footer)
	assert.Equal(t, "1700000000", attachment.Ts.String())
	assert.Equal(t, []string{"text", "fields"}, attachment.MarkdownIn)

	require.Len(t, attachment.Fields, 1)
	assert.Equal(t, slack.AttachmentField{
		Title: "branches",
		Value: "* *main*\ndev",
	}, attachment.Fields[0])
}

func TestCardAttachment_Minimal(t *testing.T) {
	attachment := CardAttachment(&Card{Title: "GitHub Gist"})

	assert.Equal(t, "GitHub Gist", attachment.Title)
	assert.Empty(t, attachment.AuthorName)
	assert.Empty(t, attachment.Ts)
	assert.Empty(t, attachment.Fields)
}

func TestCardAttachment_UntrustedText(t *testing.T) {
	card := &Card{Title: "GitHub Repository: alice/proj"}
	card.AddField("branches", formatBranches([]Branch{
		{Name: "main"},
		{Name: "dev"},
		{Name: "==="},
		{Name: "fix_*x*"},
		{Name: "-"},
	}, "main"))
	card.AddField("revisions(latest 5)", []string{
		formatCommit(Commit{SHA: "abcdef1234567890", HTMLURL: "https://github.com/alice/proj/commit/abcdef1", Message: "Release 2.0\n\n- added foo\n- b"}),
		formatCommit(Commit{SHA: "1234567890abcdef", HTMLURL: "https://github.com/alice/proj/commit/1234567", Message: "# Heading <b>"}),
	})

	attachment := CardAttachment(card)
	require.Len(t, attachment.Fields, 2)

	// Every branch keeps its own line, as written.
	assert.Equal(t, "* *main*\ndev\n===\nfix_*x*\n-", attachment.Fields[0].Value)

	assert.Equal(t,
		"<https://github.com/alice/proj/commit/abcdef1|abcdef1>: Release 2.0 - added foo - b\n"+
			"<https://github.com/alice/proj/commit/1234567|1234567>: # Heading &lt;b&gt;",
		attachment.Fields[1].Value,
	)
}

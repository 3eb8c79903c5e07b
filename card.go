package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/gomarkdown/markdown/parser"
)

const (
	// maxRevisions is how many revisions a card lists.
	maxRevisions = 5
	// snippetVersionLength is how much of a gist revision SHA is shown.
	snippetVersionLength = 5
	// commitSHALength is how much of a commit SHA is shown.
	commitSHALength = 7
	// commitMessageLength is where commit messages are cut.
	commitMessageLength = 30
	// ellipsis marks a truncated commit message.
	ellipsis = "..."
	// checkedOutMarker prefixes the branch the link points at. Escaped so
	// markdown renders a literal "* " instead of a list bullet.
	checkedOutMarker = `\* `
)

// Card is the summary posted in reply to a message. Text values are
// GitHub-flavored markdown; the transport converts them for display.
type Card struct {
	Title       string
	Description string
	Author      *CardAuthor
	Fields      []CardField
	Footer      string
	Timestamp   time.Time
}

// CardAuthor is the owner block shown above the title.
type CardAuthor struct {
	Name    string
	URL     string
	IconURL string
}

// CardField is a named, multi-line value.
type CardField struct {
	Name  string
	Value string
}

// AddField appends a field whose value is lines joined by newlines.
func (c *Card) AddField(name string, lines []string) {
	c.Fields = append(c.Fields, CardField{
		Name:  name,
		Value: strings.Join(lines, "\n"),
	})
}

func cardAuthor(a *Account) *CardAuthor {
	if a == nil {
		return nil
	}
	return &CardAuthor{
		Name:    a.Login,
		URL:     a.HTMLURL,
		IconURL: a.AvatarURL,
	}
}

func headDescription(link string) string {
	return fmt.Sprintf("[Link for **HEAD**](%s)", link)
}

func markdownLink(text, link string) string {
	return fmt.Sprintf("[%s](%s)", text, link)
}

// shorten returns at most n bytes of an identifier (identifiers are hex/ASCII).
func shorten(id string, n int) string {
	if len(id) <= n {
		return id
	}
	return id[:n]
}

// truncateMessage cuts a commit message to commitMessageLength characters,
// appending an ellipsis only if something was cut.
func truncateMessage(message string) string {
	runes := []rune(message)
	if len(runes) <= commitMessageLength {
		return message
	}
	return string(runes[:commitMessageLength]) + ellipsis
}

// markdownEscapeChars are the characters the markdown parser accepts a
// backslash escape for.
var markdownEscapeChars = string(parser.EscapeChars)

// escapeMarkdown makes text from the API render literally.
func escapeMarkdown(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		if strings.IndexByte(markdownEscapeChars, text[i]) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(text[i])
	}
	return b.String()
}

// singleLine collapses every run of whitespace, newlines included, to one space.
func singleLine(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// formatCommit renders "[sha7](url): message" on a single line.
func formatCommit(c Commit) string {
	message := singleLine(c.Message)

	short := truncateMessage(message)
	suffix := ""
	if short != message {
		short = strings.TrimSuffix(short, ellipsis)
		suffix = ellipsis
	}

	return markdownLink(shorten(c.SHA, commitSHALength), c.HTMLURL) + ": " + escapeMarkdown(short) + suffix
}

// formatBranches lists branch names in the given order, marking the one
// named checkedOut.
func formatBranches(branches []Branch, checkedOut string) []string {
	lines := make([]string, 0, len(branches))
	for _, b := range branches {
		name := escapeMarkdown(b.Name)
		if b.Name == checkedOut {
			lines = append(lines, checkedOutMarker+"**"+name+"**")
			continue
		}
		lines = append(lines, name)
	}
	return lines
}

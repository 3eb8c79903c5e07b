package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
	"github.com/slack-go/slack"
)

// cardColor is the attachment side bar colour.
const cardColor = "#24292f"

// CardAttachment renders a card as a Slack message attachment. Slack shows
// Ts next to the footer, which gives the "HEAD ... at:" label its time.
func CardAttachment(card *Card) slack.Attachment {
	attachment := slack.Attachment{
		Color:      cardColor,
		Fallback:   card.Title,
		Title:      card.Title,
		Text:       ConvertMarkdownToMrkdwn(card.Description),
		Footer:     card.Footer,
		MarkdownIn: []string{"text", "fields"},
	}

	if card.Author != nil {
		attachment.AuthorName = card.Author.Name
		attachment.AuthorLink = card.Author.URL
		attachment.AuthorIcon = card.Author.IconURL
	}

	for _, field := range card.Fields {
		attachment.Fields = append(attachment.Fields, slack.AttachmentField{
			Title: field.Name,
			Value: convertLines(field.Value),
		})
	}

	if !card.Timestamp.IsZero() {
		attachment.Ts = json.Number(strconv.FormatInt(card.Timestamp.Unix(), 10))
	}

	return attachment
}

// convertLines converts each line of a field on its own, so one line can
// never turn its neighbours into a heading, list or code block.
func convertLines(md string) string {
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		lines[i] = ConvertMarkdownToMrkdwn(line)
	}
	return strings.Join(lines, "\n")
}

// ConvertMarkdownToMrkdwn converts the inline markdown used in cards to
// Slack's mrkdwn format.
func ConvertMarkdownToMrkdwn(md string) string {
	// "$" and leading ":" are common in commit messages; keep them as text.
	extensions := (parser.CommonExtensions | parser.Strikethrough) &^ (parser.MathJax | parser.DefinitionLists)
	p := parser.NewWithExtensions(extensions)

	data := markdown.NormalizeNewlines([]byte(md))
	node := p.Parse(data)

	renderer := &mrkdwnRenderer{}
	result := markdown.Render(node, renderer)

	return strings.TrimSpace(string(result))
}

// slackEscaper escapes the three characters Slack treats as control sequences.
var slackEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// mrkdwnRenderer renders markdown AST to Slack's mrkdwn format.
type mrkdwnRenderer struct{}

func (r *mrkdwnRenderer) RenderNode(w io.Writer, node ast.Node, entering bool) ast.WalkStatus {
	switch n := node.(type) {
	case *ast.Document:
		return ast.GoToNext

	case *ast.Paragraph:
		if !entering {
			_, _ = fmt.Fprint(w, "\n")
		}
		return ast.GoToNext

	case *ast.Text:
		if entering {
			_, _ = fmt.Fprint(w, slackEscaper.Replace(string(n.Literal)))
		}
		return ast.GoToNext

	case *ast.Strong:
		_, _ = fmt.Fprint(w, "*")
		return ast.GoToNext

	case *ast.Emph:
		_, _ = fmt.Fprint(w, "_")
		return ast.GoToNext

	case *ast.Del:
		_, _ = fmt.Fprint(w, "~")
		return ast.GoToNext

	case *ast.Link:
		if entering {
			// Render children to get the link text.
			var textBuilder strings.Builder
			for _, child := range n.Children {
				textBuilder.Write(markdown.Render(child, r))
			}
			linkText := strings.TrimSpace(textBuilder.String())
			_, _ = fmt.Fprintf(w, "<%s|%s>", string(n.Destination), linkText)
			return ast.SkipChildren
		}
		return ast.GoToNext

	case *ast.Code:
		if entering {
			_, _ = fmt.Fprintf(w, "`%s`", slackEscaper.Replace(string(n.Literal)))
		}
		return ast.GoToNext

	case *ast.Softbreak, *ast.Hardbreak:
		if entering {
			_, _ = fmt.Fprint(w, "\n")
		}
		return ast.GoToNext

	case *ast.HTMLSpan:
		// Commit messages mentioning tags are text, not markup.
		if entering {
			_, _ = fmt.Fprint(w, slackEscaper.Replace(string(n.Literal)))
		}
		return ast.GoToNext

	default:
		// Block constructs do not occur in cards; render their children.
		return ast.GoToNext
	}
}

func (r *mrkdwnRenderer) RenderHeader(w io.Writer, node ast.Node) {}

func (r *mrkdwnRenderer) RenderFooter(w io.Writer, node ast.Node) {}

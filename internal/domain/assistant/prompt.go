package assistant

import (
	"fmt"
	"strings"

	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/domain/embedding"
)

const (
	respondSystemPrompt = `You are %s, a helpful teammate inside a team chat workspace.
Answer the latest request using the conversation so far. Be concise, use Markdown sparingly,
and say so when the conversation does not contain the information you need.`

	summarizeSystemPrompt = `You summarize team chat discussions for %s.
Write a short summary covering decisions, open questions and action items with their owners.
Use bullet points. Do not invent details that are not in the transcript.`

	maxContextSnippet = 500
)

func respondPrompt(name string) string {
	return fmt.Sprintf(respondSystemPrompt, name)
}

func summarizePrompt(name string) string {
	return fmt.Sprintf(summarizeSystemPrompt, name)
}

// relatedBlock renders search matches that are not already part of the history.
func relatedBlock(matches []embedding.Match, history []content.Item) string {
	seen := make(map[content.Target]bool, len(history))
	for _, item := range history {
		seen[item.Target] = true
	}
	var b strings.Builder
	for _, m := range matches {
		if seen[m.Target] {
			continue
		}
		if b.Len() == 0 {
			b.WriteString("Possibly relevant earlier messages:\n")
		}
		fmt.Fprintf(&b, "- (%s) %s\n", m.CreatedAt.Format("2006-01-02"), snippet(m.Text))
	}
	return b.String()
}

func transcript(items []content.Item, names map[string]string) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "[%s] %s: %s\n", item.CreatedAt.Format("2006-01-02 15:04"), nameOf(item.AuthorID, names), item.Text)
	}
	return b.String()
}

func nameOf(userID string, names map[string]string) string {
	if name := names[userID]; name != "" {
		return name
	}
	return userID
}

func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) > maxContextSnippet {
		return string(runes[:maxContextSnippet]) + "…"
	}
	return text
}

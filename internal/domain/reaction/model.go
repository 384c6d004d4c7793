package reaction

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/rivo/uniseg"

	"github.com/huddlehq/huddle-server/internal/domain/content"
)

const maxEmojiBytes = 16

var shortcodePattern = regexp.MustCompile(`^:[a-z0-9_+\-]{1,62}:$`)

// NormalizeEmoji accepts a ":shortcode:" or a single grapheme of at most 16 bytes.
func NormalizeEmoji(raw string) (string, bool) {
	e := strings.TrimSpace(raw)
	if e == "" {
		return "", false
	}
	if strings.HasPrefix(e, ":") {
		e = strings.ToLower(e)
		return e, shortcodePattern.MatchString(e)
	}
	if len(e) > maxEmojiBytes || uniseg.GraphemeClusterCount(e) != 1 {
		return "", false
	}
	// keycaps (1️⃣) and emoji presentation sequences (ℹ️) carry a letter or digit base
	emojiSequence := strings.ContainsAny(e, "\uFE0F\u20E3")
	for _, r := range e {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", false
		}
		if !emojiSequence && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return "", false
		}
	}
	return e, true
}

// Reaction is one user's emoji on one piece of content.
type Reaction struct {
	ID         string             `json:"id"`
	TargetType content.TargetType `json:"target_type"`
	TargetID   string             `json:"target_id"`
	UserID     string             `json:"user_id"`
	Emoji      string             `json:"emoji"`
	CreatedAt  time.Time          `json:"created_at"`
}

// Summary groups the reactions of a target by emoji.
type Summary struct {
	Emoji       string   `json:"emoji"`
	Count       int      `json:"count"`
	UserIDs     []string `json:"user_ids"`
	ReactedByMe bool     `json:"reacted_by_me"`
}

// ToggleResult reports the state after a toggle.
type ToggleResult struct {
	Added   bool      `json:"added"`
	Emoji   string    `json:"emoji"`
	Summary []Summary `json:"summary"`
}

// Summarize groups reactions in order of each emoji's first use.
func Summarize(reactions []*Reaction, viewerID string) []Summary {
	out := []Summary{}
	index := map[string]int{}
	for _, r := range reactions {
		i, ok := index[r.Emoji]
		if !ok {
			i = len(out)
			index[r.Emoji] = i
			out = append(out, Summary{Emoji: r.Emoji, UserIDs: []string{}})
		}
		out[i].Count++
		out[i].UserIDs = append(out[i].UserIDs, r.UserID)
		if r.UserID == viewerID {
			out[i].ReactedByMe = true
		}
	}
	return out
}

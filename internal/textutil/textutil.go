// Package textutil holds helpers for post-processing model output.
package textutil

import (
	"regexp"
	"strings"
)

// fencePattern matches a whole reply wrapped in a markdown code fence with an
// optional language tag.
var fencePattern = regexp.MustCompile("(?s)\\A\\s*```(?:\\w+)?\\s*\\n(.*?)\\n\\s*```\\s*\\z")

// StripCodeFence removes a surrounding ``` fence from text. Both the input and
// the fenced body are trimmed of outer whitespace. Text that is not entirely
// fenced is returned trimmed but otherwise unchanged.
func StripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	return trimmed
}

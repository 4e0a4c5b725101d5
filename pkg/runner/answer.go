package runner

import "strings"

const finalAnswerMarker = "FINAL ANSWER:"

// ExtractFinalAnswer returns the text after the last "FINAL ANSWER:" marker
// in the reply, matched case-insensitively. Replies without the marker are
// returned whole, trimmed.
func ExtractFinalAnswer(reply string) string {
	// Scan byte offsets in the original string; uppercasing the whole
	// reply first can change byte lengths under Unicode case folding.
	idx := -1
	for i := 0; i+len(finalAnswerMarker) <= len(reply); i++ {
		if strings.EqualFold(reply[i:i+len(finalAnswerMarker)], finalAnswerMarker) {
			idx = i
		}
	}
	if idx == -1 {
		return strings.TrimSpace(reply)
	}
	return strings.TrimSpace(reply[idx+len(finalAnswerMarker):])
}

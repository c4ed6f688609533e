// Package speech holds the capture options shared by the speech-to-text
// backends and the wake-word filtering applied to their transcripts.
package speech

import (
	"strings"
	"unicode"
)

// ExtractWakeCommand returns the command that follows a wake-word prefix in
// the transcript. Matching is case-insensitive and ignores punctuation, and a
// wake word may be transcribed as several words ("voice os" matches
// "voiceos"). It returns false when the transcript does not open with any of
// the wake words; a mention later in the sentence does not count.
func ExtractWakeCommand(transcript string, wakeWords []string) (string, bool) {
	fields := strings.Fields(transcript)
	for _, wakeWord := range wakeWords {
		want := normalizeWord(wakeWord)
		if want == "" {
			continue
		}

		prefix := ""
		for i, field := range fields {
			prefix += normalizeWord(field)
			if len(prefix) > len(want) {
				break
			}
			if prefix == want {
				command := strings.Join(fields[i+1:], " ")
				return strings.TrimLeft(command, " .,!?-"), true
			}
		}
	}
	return "", false
}

func normalizeWord(word string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, word)
}

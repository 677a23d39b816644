package transcribe

import "strings"

const blankAudioToken = "[BLANK_AUDIO]"

func isBlankTranscript(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return true
	}

	return strings.EqualFold(trimmed, blankAudioToken)
}

func noSpeechHint() string {
	return "no speech was detected; check that the uploaded file actually contains audio"
}

// Package transcribe runs one transcription request end to end: stage the
// upload, pick the engine task, run inference, clean up.
package transcribe

import (
	"fmt"
	"strings"
)

// LanguageMode mirrors the language choice in the UI.
type LanguageMode string

// TranslationMode mirrors the translation choice in the UI.
type TranslationMode string

// Task is the inference mode handed to the engine.
type Task string

const (
	LanguageAuto    LanguageMode = "auto"
	LanguageSwedish LanguageMode = "swedish"

	TranslateNone    TranslationMode = "none"
	TranslateEnglish TranslationMode = "english"
	TranslateSwedish TranslationMode = "swedish"

	TaskTranscribe Task = "transcribe"
	TaskTranslate  Task = "translate"
)

// ParseLanguageMode accepts the wire value for the language choice. The
// empty string falls back to Swedish, matching the UI default.
func ParseLanguageMode(value string) (LanguageMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(LanguageSwedish):
		return LanguageSwedish, nil
	case string(LanguageAuto):
		return LanguageAuto, nil
	}

	return "", fmt.Errorf("unknown language mode %q", value)
}

// ParseTranslationMode accepts the wire value for the translation choice.
// The empty string means plain transcription.
func ParseTranslationMode(value string) (TranslationMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(TranslateNone):
		return TranslateNone, nil
	case string(TranslateEnglish):
		return TranslateEnglish, nil
	case string(TranslateSwedish):
		return TranslateSwedish, nil
	}

	return "", fmt.Errorf("unknown translation mode %q", value)
}

// Resolve maps the two user-facing modes onto the engine task and source
// language hint. Translating to Swedish always forces the Swedish hint no
// matter what the language mode says; the mode values themselves are
// never mutated.
func Resolve(translation TranslationMode, language LanguageMode) (Task, string) {
	task := TaskTranscribe
	if translation == TranslateEnglish || translation == TranslateSwedish {
		task = TaskTranslate
	}

	hint := ""
	if language == LanguageSwedish || translation == TranslateSwedish {
		hint = "sv"
	}

	return task, hint
}

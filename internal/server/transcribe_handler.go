package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tolka/tolka/internal/transcribe"
	"github.com/tolka/tolka/internal/upload"
	"github.com/tolka/tolka/internal/whisper"
)

// Multipart uploads beyond this spill to disk instead of memory.
const maxUploadMemory = 32 << 20

// Transcriber runs one uploaded file through the speech engine.
type Transcriber interface {
	Transcribe(ctx context.Context, src io.Reader, filename string, opts transcribe.Options) (transcribe.Outcome, error)
}

type TranscribeHandler struct {
	log *zap.Logger
	svc Transcriber
}

func NewTranscribeHandler(log *zap.Logger, svc Transcriber) *TranscribeHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &TranscribeHandler{log: log, svc: svc}
}

// transcriptionResponse mirrors what the page renders: the result itself
// plus the settings the run actually used.
type transcriptionResponse struct {
	Language     string            `json:"language"`
	Text         string            `json:"text"`
	Segments     []whisper.Segment `json:"segments"`
	Model        string            `json:"model"`
	Task         string            `json:"task"`
	LanguageHint string            `json:"language_hint,omitempty"`
	TookMS       int64             `json:"took_ms"`
	Warnings     []string          `json:"warnings,omitempty"`
}

// Transcribe handles POST /api/transcribe. The request is a multipart form
// with the audio under "audio" and the UI settings as plain fields.
func (h *TranscribeHandler) Transcribe(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
		return
	}

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		respondError(c, http.StatusBadRequest, "missing_audio_file", err)
		return
	}

	language, err := transcribe.ParseLanguageMode(c.PostForm("language_mode"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_language_mode", err)
		return
	}

	translation, err := transcribe.ParseTranslationMode(c.PostForm("translation_mode"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_translation_mode", err)
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "unreadable_upload", err)
		return
	}
	defer src.Close()

	outcome, err := h.svc.Transcribe(c.Request.Context(), src, fileHeader.Filename, transcribe.Options{
		Model:       strings.TrimSpace(c.PostForm("model")),
		Language:    language,
		Translation: translation,
	})
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrUnsupportedType):
			respondError(c, http.StatusBadRequest, "unsupported_audio_type", err)
		case errors.Is(err, whisper.ErrUnknownModel):
			respondError(c, http.StatusBadRequest, "unknown_model", err)
		case errors.Is(err, whisper.ErrModelMissing):
			respondError(c, http.StatusServiceUnavailable, "model_unavailable", err)
		default:
			h.log.Error("transcription failed",
				zap.String("file", fileHeader.Filename),
				zap.Error(err),
			)
			respondError(c, http.StatusBadGateway, "transcription_failed", err)
		}
		return
	}

	respondOK(c, transcriptionResponse{
		Language:     outcome.Result.Language,
		Text:         outcome.Result.Text,
		Segments:     outcome.Result.Segments,
		Model:        outcome.Model,
		Task:         string(outcome.Task),
		LanguageHint: outcome.Hint,
		TookMS:       outcome.Elapsed.Milliseconds(),
		Warnings:     outcome.Warnings,
	})
}

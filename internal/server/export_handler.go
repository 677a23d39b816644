package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tolka/tolka/internal/export"
	"github.com/tolka/tolka/internal/whisper"
)

type ExportHandler struct {
	log *zap.Logger
}

func NewExportHandler(log *zap.Logger) *ExportHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ExportHandler{log: log}
}

// exportRequest carries a finished result back from the page. The server
// keeps no transcription state between requests, so the export endpoint is
// a pure rendering step.
type exportRequest struct {
	Format string         `json:"format"`
	Result whisper.Result `json:"result"`
}

// Export handles POST /api/export.
func (h *ExportHandler) Export(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	format, err := export.ParseFormat(req.Format)
	if err != nil {
		respondError(c, http.StatusBadRequest, "unknown_format", err)
		return
	}

	data, err := export.Render(format, req.Result)
	if err != nil {
		h.log.Error("export failed", zap.String("format", string(format)), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "export_failed", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(format)))
	c.Data(http.StatusOK, export.ContentType(format), data)
}

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tolka/tolka/internal/webui"
	"github.com/tolka/tolka/internal/whisper"
)

func serveIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", webui.Index)
}

type HealthHandler struct {
	version string
}

func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version}
}

func (h *HealthHandler) Health(c *gin.Context) {
	respondOK(c, gin.H{"status": "ok", "version": h.version})
}

type ModelsHandler struct {
	modelDir     string
	defaultModel string
}

func NewModelsHandler(modelDir, defaultModel string) *ModelsHandler {
	return &ModelsHandler{modelDir: modelDir, defaultModel: defaultModel}
}

// preselected returns the model the UI should select by default. A custom
// model path or an unknown name falls back to the registry default.
func (h *ModelsHandler) preselected() string {
	for _, name := range whisper.ModelNames() {
		if name == h.defaultModel {
			return name
		}
	}
	return whisper.DefaultModel
}

type modelInfo struct {
	Name       string `json:"name"`
	Downloaded bool   `json:"downloaded"`
}

// List reports the selectable model sizes, smallest first, and whether
// their weights are already on disk.
func (h *ModelsHandler) List(c *gin.Context) {
	models := make([]modelInfo, 0, len(whisper.ModelNames()))
	for _, name := range whisper.ModelNames() {
		resolved, err := whisper.ResolveModel(name, h.modelDir)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "model_registry_error", err)
			return
		}
		models = append(models, modelInfo{Name: name, Downloaded: !resolved.NeedsDownload})
	}

	respondOK(c, gin.H{"models": models, "default": h.preselected()})
}

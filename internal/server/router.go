package server

import (
	"github.com/gin-gonic/gin"
)

func NewRouter(cfg Config, deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(deps.Logger))
	r.Use(CORS(cfg.Origins))

	health := NewHealthHandler(cfg.Version)
	models := NewModelsHandler(deps.ModelDir, deps.DefaultModel)
	transcription := NewTranscribeHandler(deps.Logger, deps.Service)
	exports := NewExportHandler(deps.Logger)

	r.GET("/", serveIndex)

	api := r.Group("/api")
	{
		api.GET("/health", health.Health)
		api.GET("/models", models.List)
		api.POST("/transcribe", transcription.Transcribe)
		api.POST("/export", exports.Export)
	}

	return r
}

package http

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"go.ngs.io/oceancolor/internal/domain"
	"go.ngs.io/oceancolor/internal/usecase"
)

// Handler handles HTTP requests for ocean-color subsets.
type Handler struct {
	pipeline *usecase.Pipeline
}

// NewHandler creates a new HTTP handler.
func NewHandler(pipeline *usecase.Pipeline) *Handler {
	return &Handler{
		pipeline: pipeline,
	}
}

// SubsetRequest is the body of POST /v1/subsets. Omitted settings fields
// keep their defaults.
type SubsetRequest struct {
	domain.RetrievalSettings
	Plot bool `json:"plot"`
}

// bindSettings decodes a settings body over the defaults.
func bindSettings(c *gin.Context) (SubsetRequest, bool) {
	req := SubsetRequest{RetrievalSettings: domain.DefaultSettings()}
	if c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return req, false
	}
	return req, true
}

// GetProducts handles GET /v1/products.
func (h *Handler) GetProducts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"catalog":  domain.GetCatalog(),
		"defaults": domain.DefaultSettings(),
	})
}

// ValidateSettings handles POST /v1/validate.
func (h *Handler) ValidateSettings(c *gin.Context) {
	req, ok := bindSettings(c)
	if !ok {
		return
	}
	if err := req.RetrievalSettings.Validate(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "settings": req.RetrievalSettings})
}

// ListURLs handles POST /v1/urls.
func (h *Handler) ListURLs(c *gin.Context) {
	req, ok := bindSettings(c)
	if !ok {
		return
	}
	urls, err := h.pipeline.URLs(c.Request.Context(), req.RetrievalSettings)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"urls":  urls,
		"count": len(urls),
	})
}

// CreateSubset handles POST /v1/subsets. The subset is saved to the output
// directory and can be downloaded by file name.
func (h *Handler) CreateSubset(c *gin.Context) {
	req, ok := bindSettings(c)
	if !ok {
		return
	}
	result, err := h.pipeline.Execute(c.Request.Context(), usecase.RetrievalRequest{
		Settings: req.RetrievalSettings,
		Save:     true,
		Plot:     req.Plot,
	})
	if err != nil {
		body := errorBody(err)
		if result != nil && result.Report != nil {
			body["report"] = result.Report
		}
		c.JSON(errorStatus(err), body)
		return
	}

	resp := gin.H{"result": result}
	if result.OutputPath != "" {
		name := filepath.Base(result.OutputPath)
		resp["file"] = name
		resp["download"] = "/v1/subsets/" + name
	}
	c.JSON(http.StatusCreated, resp)
}

// GetSubset handles GET /v1/subsets/:name.
func (h *Handler) GetSubset(c *gin.Context) {
	name := c.Param("name")
	if name != filepath.Base(name) || !strings.HasSuffix(name, ".nc") || strings.HasPrefix(name, ".") {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid subset name %q", name)})
		return
	}
	path := filepath.Join(h.pipeline.OutputDir(), name)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("subset %s not found", name)})
		return
	}
	c.FileAttachment(path, name)
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func writeError(c *gin.Context, err error) {
	c.JSON(errorStatus(err), errorBody(err))
}

func errorBody(err error) gin.H {
	body := gin.H{"error": err.Error()}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body["field"] = verr.Field
	}
	return body
}

// errorStatus maps the retrieval error taxonomy to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoGranules):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrEmptyWindow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrSourceUnreachable),
		errors.Is(err, domain.ErrNoReachableGranules),
		errors.Is(err, domain.ErrKeyNotFound),
		errors.Is(err, domain.ErrMalformedFilename):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

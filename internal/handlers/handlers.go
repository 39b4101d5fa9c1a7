package handlers

import (
	"errors"
	"image"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Brownie44l1/quickdraw-api/internal/classifier"
	"github.com/Brownie44l1/quickdraw-api/internal/sketch"
)

const (
	maxUpload      = 10 << 20
	maxStrokesBody = 1 << 20
)

type Handler struct {
	classifier *classifier.Classifier
	loadErr    error
	filter     sketch.Filter
}

// NewHandler serves c. A nil c (with the error that caused it) keeps the
// API up but answers 503 until restarted with a working model.
func NewHandler(c *classifier.Classifier, loadErr error, filter sketch.Filter) *Handler {
	return &Handler{
		classifier: c,
		loadErr:    loadErr,
		filter:     filter,
	}
}

type PredictionRequest struct {
	Image []float32 `json:"image" binding:"required"`
}

type StrokesRequest struct {
	Strokes   sketch.Drawing `json:"strokes" binding:"required"`
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	LineWidth float64        `json:"line_width"`
}

type PredictionResponse struct {
	Class string `json:"class"`
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/health", h.Health)
	r.GET("/labels", h.Labels)
	r.POST("/predict", h.Predict)
	r.POST("/predict/image", h.PredictFromImage)
	r.POST("/predict/strokes", h.PredictFromStrokes)
}

func (h *Handler) ready(c *gin.Context) bool {
	if err := h.classifier.Ready(); err != nil {
		msg := err.Error()
		if h.loadErr != nil {
			msg = h.loadErr.Error()
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": msg})
		return false
	}
	return true
}

func (h *Handler) Health(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *Handler) Labels(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"labels": h.classifier.Labels()})
}

func (h *Handler) Predict(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	var req PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON", "message": err.Error()})
		return
	}

	result, err := h.classifier.Predict(req.Image)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, PredictionResponse{Class: result.Label})
}

func (h *Handler) PredictFromImage(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUpload)
	header, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image file provided. Use 'image' as the form field name"})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to open form file", "message": err.Error()})
		return
	}
	defer file.Close()

	img, format, err := sketch.Decode(file)
	if errors.Is(err, sketch.ErrCanvasTooLarge) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image too large", "message": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image format. Supported: JPEG, PNG"})
		return
	}

	log.Debug().
		Str("file", header.Filename).Int64("size", header.Size).
		Str("format", format).
		Int("width", img.Bounds().Dx()).Int("height", img.Bounds().Dy()).
		Msg("received image")

	h.classify(c, img)
}

func (h *Handler) PredictFromStrokes(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxStrokesBody)
	var req StrokesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON", "message": err.Error()})
		return
	}

	opt := sketch.DefaultRenderOptions
	opt.Width, opt.Height = req.Width, req.Height
	if req.LineWidth > 0 {
		opt.LineWidth = req.LineWidth
	}

	img, err := sketch.Render(req.Strokes, opt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid drawing", "message": err.Error()})
		return
	}

	h.classify(c, img)
}

func (h *Handler) classify(c *gin.Context, img image.Image) {
	w, hgt := h.classifier.InputSize()
	label, err := h.classifier.Classify(sketch.Prepare(img, w, hgt, h.filter))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, PredictionResponse{Class: label})
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, classifier.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, classifier.ErrNotReady):
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
	default:
		log.Error().Err(err).Msg("prediction failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Prediction failed"})
	}
}

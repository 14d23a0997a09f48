package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/bessim-dev/ocr-api/internal/config"
	apperrors "github.com/bessim-dev/ocr-api/internal/errors"
	"github.com/bessim-dev/ocr-api/internal/logger"
	"github.com/bessim-dev/ocr-api/internal/observer"
	"github.com/bessim-dev/ocr-api/internal/service"
	"github.com/bessim-dev/ocr-api/pkg/models"
	"github.com/bessim-dev/ocr-api/pkg/validation"
)

type handlerResult struct {
	data   interface{}
	cached bool
}

type ocrHandlerFunc func(ctx context.Context, req *models.OcrRequest) (handlerResult, error)

// buildHandlerTable maps every supported document type to its orchestrator
// operation. Adding a document type means adding a prompt template; the
// generic entry here is derived from the type list.
func buildHandlerTable(svc service.OcrService) map[models.OcrType]ocrHandlerFunc {
	table := make(map[models.OcrType]ocrHandlerFunc, len(models.SupportedOcrTypes))

	table[models.TypeCarPlate] = func(ctx context.Context, req *models.OcrRequest) (handlerResult, error) {
		images := req.AllImages()
		image := ""
		if len(images) > 0 {
			image = images[0]
		}
		result, cached, err := svc.OcrCarPlate(ctx, image)
		if err != nil {
			return handlerResult{}, err
		}
		return handlerResult{data: result, cached: cached}, nil
	}

	for _, t := range models.GenericOcrTypes {
		docType := t
		table[docType] = func(ctx context.Context, req *models.OcrRequest) (handlerResult, error) {
			result, cached, err := svc.OcrStructured(ctx, docType, req)
			if err != nil {
				return handlerResult{}, err
			}
			return handlerResult{data: result, cached: cached}, nil
		}
	}
	return table
}

// NewHandler wires the gin router over the orchestrator.
func NewHandler(svc service.OcrService, metrics *observer.MetricsObserver, cfg *config.Config) http.Handler {
	r := gin.Default()

	r.Use(requestSizeLimiter(cfg.MaxRequestBodySize))

	table := buildHandlerTable(svc)

	r.GET("/health", healthCheck(metrics))
	// gin has no optional path segment; both routes share one handler.
	r.POST("/ocr", handleOcr(svc, table, cfg))
	r.POST("/ocr/:type", handleOcr(svc, table, cfg))

	return r
}

func handleOcr(svc service.OcrService, table map[models.OcrType]ocrHandlerFunc, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		typeParam := c.Param("type")
		if typeParam != "" && !models.IsSupportedType(models.OcrType(typeParam)) {
			respondError(c, apperrors.NewUnsupportedTypeError("Unsupported OCR type"))
			return
		}

		var req models.OcrRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperrors.NewValidationError("Invalid JSON body", err))
			return
		}
		req.Fields = validation.MergeFields(req.Fields, validation.ParseFieldsParam(c.Query("fields")))

		if err := validation.ValidateOcrRequest(&req); err != nil {
			respondError(c, err)
			return
		}

		docType := models.OcrType(typeParam)
		if typeParam == "" {
			detected, err := svc.DetectType(ctx, &req)
			if err != nil {
				respondError(c, err)
				return
			}
			if detected.Type == nil {
				respondError(c, apperrors.NewDetectionError("Unable to detect document type"))
				return
			}
			docType = *detected.Type
		}

		handler, ok := table[docType]
		if !ok {
			respondError(c, apperrors.NewUnsupportedTypeError("Unsupported OCR type"))
			return
		}

		result, err := handler(ctx, &req)
		if err != nil {
			respondError(c, err)
			return
		}

		logger.WithFields(logrus.Fields{
			"doc_type":           docType,
			"cached":             result.cached,
			"processing_time_ms": time.Since(start).Milliseconds(),
			"ip":                 c.ClientIP(),
		}).Info("OCR request served")

		if docType == models.TypeCarPlate {
			cacheStatus := "miss"
			if result.cached {
				cacheStatus = "hit"
			}
			c.Header("Cache-Status", cacheStatus)
		}

		cached := result.cached
		c.JSON(http.StatusOK, models.OcrResponse{
			Success: true,
			Data:    result.data,
			Cached:  &cached,
			Error:   nil,
		})
	}
}

func healthCheck(metrics *observer.MetricsObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload := gin.H{
			"status":  "available",
			"version": "1.0.0",
			"time":    time.Now().UTC().Format(time.RFC3339),
		}
		if metrics != nil {
			payload["metrics"] = metrics.GetMetrics()
		}
		c.JSON(http.StatusOK, payload)
	}
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func respondError(c *gin.Context, err error) {
	code := apperrors.GetStatusCode(err)
	message := apperrors.UserMessage(err)

	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, models.OcrResponse{
		Success: false,
		Data:    nil,
		Error:   &message,
	})
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/bessim-dev/ocr-api/internal/cache"
	"github.com/bessim-dev/ocr-api/internal/config"
	apperrors "github.com/bessim-dev/ocr-api/internal/errors"
	"github.com/bessim-dev/ocr-api/internal/groq"
	"github.com/bessim-dev/ocr-api/internal/logger"
	"github.com/bessim-dev/ocr-api/internal/observer"
	"github.com/bessim-dev/ocr-api/internal/ocr"
	"github.com/bessim-dev/ocr-api/pkg/models"
)

// OcrService orchestrates the extraction pipeline: cache keying, model
// calls, post-processing, field filtering and cache writes. The returned
// bool reports whether the result was served from cache.
type OcrService interface {
	OcrCarPlate(ctx context.Context, image string) (*models.OcrResult, bool, error)
	OcrStructured(ctx context.Context, docType models.OcrType, req *models.OcrRequest) (*models.GenericOcrStructuredResult, bool, error)
	DetectType(ctx context.Context, req *models.OcrRequest) (*models.TypeDetectionResult, error)
}

type ocrService struct {
	client      groq.ChatCompleter
	store       cache.Store
	model       string
	cacheTTL    time.Duration
	callTimeout time.Duration
	events      observer.Subject
	log         *logrus.Entry
}

// NewOcrService creates the orchestrator with explicit dependencies so
// tests can substitute a fake chat client and an in-memory store.
func NewOcrService(client groq.ChatCompleter, store cache.Store, cfg *config.Config, events observer.Subject) OcrService {
	return &ocrService{
		client:      client,
		store:       store,
		model:       cfg.GroqModel,
		cacheTTL:    cfg.CacheTTL,
		callTimeout: cfg.OcrRequestTimeout,
		events:      events,
		log:         logger.WithComponent("ocr-service"),
	}
}

// OcrCarPlate runs the legacy single-image extraction with the fixed
// car-plate prompt. Absent model fields are defaulted to null/0.
func (s *ocrService) OcrCarPlate(ctx context.Context, image string) (*models.OcrResult, bool, error) {
	if image == "" {
		return nil, false, apperrors.NewValidationError("No image provided for car-plate OCR", nil)
	}

	start := time.Now()
	key := cache.Key(models.TypeCarPlate, []string{image}, nil)
	s.publish(ctx, observer.OcrEvent{EventType: observer.RequestStarted, DocType: string(models.TypeCarPlate), CacheKey: key})

	if payload, found := s.cacheGet(ctx, key); found {
		var cached models.OcrResult
		if err := json.Unmarshal(payload, &cached); err == nil {
			s.finish(ctx, string(models.TypeCarPlate), key, start, true)
			return &cached, true, nil
		}
		s.log.WithField("cache_key", key).Warn("Discarding undecodable cache entry")
	}
	s.publish(ctx, observer.OcrEvent{EventType: observer.CacheMiss, DocType: string(models.TypeCarPlate), CacheKey: key})

	content, err := s.callModel(ctx, groq.VisionRequest(s.model, ocr.CarPlatePrompt, []string{image}, groq.MaxTokensCarPlate))
	if err != nil {
		s.fail(ctx, string(models.TypeCarPlate), key, err)
		return nil, false, err
	}

	var raw struct {
		Plate             *string  `json:"plate"`
		PlateConfidence   *float64 `json:"plate_confidence"`
		Country           *string  `json:"country"`
		CountryConfidence *float64 `json:"country_confidence"`
		Region            *string  `json:"region"`
		RegionConfidence  *float64 `json:"region_confidence"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		wrapped := apperrors.NewDownstreamError("Groq OCR failed", fmt.Errorf("unparsable model output: %w", err))
		s.fail(ctx, string(models.TypeCarPlate), key, wrapped)
		return nil, false, wrapped
	}

	result := &models.OcrResult{
		Plate:             raw.Plate,
		PlateConfidence:   floatOrZero(raw.PlateConfidence),
		Country:           raw.Country,
		CountryConfidence: floatOrZero(raw.CountryConfidence),
		Region:            raw.Region,
		RegionConfidence:  floatOrZero(raw.RegionConfidence),
	}

	s.cacheSet(ctx, key, result)
	s.finish(ctx, string(models.TypeCarPlate), key, start, false)
	return result, false, nil
}

// OcrStructured runs the generic pipeline for any non-legacy document
// type: prompt build, cache lookup, model call on miss, shape coercion,
// post-processing, cache write, field filtering.
func (s *ocrService) OcrStructured(ctx context.Context, docType models.OcrType, req *models.OcrRequest) (*models.GenericOcrStructuredResult, bool, error) {
	template, ok := ocr.Prompts[docType]
	if !ok {
		return nil, false, apperrors.NewUnsupportedTypeError("Unsupported OCR type")
	}
	images := req.AllImages()
	if len(images) == 0 {
		return nil, false, apperrors.NewValidationError("Provide either 'image' or non-empty 'images' array", nil)
	}
	fields := normalizeFields(req.Fields)

	start := time.Now()
	key := cache.Key(docType, images, fields)
	s.publish(ctx, observer.OcrEvent{EventType: observer.RequestStarted, DocType: string(docType), CacheKey: key})

	if payload, found := s.cacheGet(ctx, key); found {
		var cached models.GenericOcrStructuredResult
		if err := json.Unmarshal(payload, &cached); err == nil {
			s.finish(ctx, string(docType), key, start, true)
			return cached.FilterFields(fields), true, nil
		}
		s.log.WithField("cache_key", key).Warn("Discarding undecodable cache entry")
	}
	s.publish(ctx, observer.OcrEvent{EventType: observer.CacheMiss, DocType: string(docType), CacheKey: key})

	prompt := ocr.BuildPrompt(template, ocr.TodayUTC(), fields)
	content, err := s.callModel(ctx, groq.VisionRequest(s.model, prompt, images, groq.MaxTokensStructured))
	if err != nil {
		s.fail(ctx, string(docType), key, err)
		return nil, false, err
	}

	result, err := decodeStructuredResult(docType, content)
	if err != nil {
		s.fail(ctx, string(docType), key, err)
		return nil, false, err
	}

	ocr.PostProcess(docType, result)
	s.cacheSet(ctx, key, result)
	s.finish(ctx, string(docType), key, start, false)
	return result.FilterFields(fields), false, nil
}

// DetectType issues a classification-only call constrained to the generic
// type set. Any answer outside the closed set is coerced to a nil type
// with zero confidence; callers must treat that as "cannot process".
func (s *ocrService) DetectType(ctx context.Context, req *models.OcrRequest) (*models.TypeDetectionResult, error) {
	images := req.AllImages()
	if len(images) == 0 {
		return nil, apperrors.NewValidationError("Provide either 'image' or non-empty 'images' array", nil)
	}

	content, err := s.callModel(ctx, groq.VisionRequest(s.model, detectionPrompt(), images, groq.MaxTokensCarPlate))
	if err != nil {
		return nil, err
	}

	var raw struct {
		Type       *string  `json:"type"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, apperrors.NewDownstreamError("Groq OCR failed", fmt.Errorf("unparsable model output: %w", err))
	}

	detected := &models.TypeDetectionResult{}
	if raw.Type != nil {
		candidate := models.OcrType(strings.TrimSpace(*raw.Type))
		if models.IsGenericType(candidate) {
			detected.Type = &candidate
			detected.Confidence = floatOrZero(raw.Confidence)
		}
	}
	if detected.Type != nil {
		s.publish(ctx, observer.OcrEvent{
			EventType: observer.TypeDetected,
			DocType:   string(*detected.Type),
			Metadata:  map[string]interface{}{"confidence": detected.Confidence},
		})
	}
	return detected, nil
}

// callModel issues one model call under the configured timeout. Every
// failure class, including timeout and empty content, surfaces as the same
// wrapped downstream error. No retries happen at this layer.
func (s *ocrService) callModel(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(callCtx, req)
	if err != nil {
		return "", apperrors.NewDownstreamError("Groq OCR failed", err)
	}
	content := groq.ResponseContent(resp)
	if content == "" {
		return "", apperrors.NewDownstreamError("Groq OCR failed", fmt.Errorf("no content returned from model"))
	}
	return content, nil
}

func (s *ocrService) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	payload, found, err := s.store.Get(ctx, key)
	if err != nil {
		// Degrade to miss: a cache outage must not take extraction down.
		s.log.WithError(err).WithField("cache_key", key).Warn("Cache lookup failed, treating as miss")
		return nil, false
	}
	if found {
		s.publish(ctx, observer.OcrEvent{EventType: observer.CacheHit, CacheKey: key})
	}
	return payload, found
}

func (s *ocrService) cacheSet(ctx context.Context, key string, value interface{}) {
	payload, err := json.Marshal(value)
	if err != nil {
		s.log.WithError(err).WithField("cache_key", key).Warn("Failed to serialize cache entry")
		return
	}
	if err := s.store.Set(ctx, key, payload, s.cacheTTL); err != nil {
		s.log.WithError(err).WithField("cache_key", key).Warn("Failed to write cache entry")
	}
}

func (s *ocrService) publish(ctx context.Context, event observer.OcrEvent) {
	if s.events == nil {
		return
	}
	event.Timestamp = time.Now()
	s.events.NotifyObservers(ctx, event)
}

func (s *ocrService) finish(ctx context.Context, docType, key string, start time.Time, cached bool) {
	elapsed := time.Since(start)
	s.log.WithFields(logrus.Fields{
		"doc_type":           docType,
		"cache_key":          key,
		"processing_time_ms": elapsed.Milliseconds(),
		"cached":             cached,
	}).Info("OCR extraction completed")
	s.publish(ctx, observer.OcrEvent{
		EventType:      observer.RequestCompleted,
		DocType:        docType,
		CacheKey:       key,
		ProcessingTime: elapsed,
		CacheHit:       cached,
		Success:        true,
	})
}

func (s *ocrService) fail(ctx context.Context, docType, key string, err error) {
	s.publish(ctx, observer.OcrEvent{
		EventType:    observer.RequestFailed,
		DocType:      docType,
		CacheKey:     key,
		ErrorMessage: err.Error(),
	})
}

// decodeStructuredResult parses the model's JSON and coerces it into the
// expected shape: maps non-nil, doc_type defaulted to the requested type.
// Unparsable content is a hard failure, not a retry.
func decodeStructuredResult(docType models.OcrType, content string) (*models.GenericOcrStructuredResult, error) {
	var result models.GenericOcrStructuredResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, apperrors.NewDownstreamError("Groq OCR failed", fmt.Errorf("unparsable model output: %w", err))
	}
	if result.DocType == "" {
		result.DocType = string(docType)
	}
	if result.Fields == nil {
		result.Fields = make(map[string]interface{})
	}
	if result.Derived == nil {
		result.Derived = make(map[string]interface{})
	}
	return &result, nil
}

// detectionPrompt constrains the classification call to the closed set of
// structured document types.
func detectionPrompt() string {
	tags := make([]string, len(models.GenericOcrTypes))
	for i, t := range models.GenericOcrTypes {
		tags[i] = fmt.Sprintf("'%s'", t)
	}
	return fmt.Sprintf(
		"Classify the document shown in the image(s) into exactly one of the following types: %s. Return ONLY a JSON object of the form {\"type\": <one of the listed types>, \"confidence\": <number between 0 and 1>}. No markdown, no prose. If the document matches none of the listed types, return {\"type\": null, \"confidence\": 0}.",
		strings.Join(tags, ", "))
}

func normalizeFields(fields []string) []string {
	var out []string
	for _, f := range fields {
		if trimmed := strings.TrimSpace(f); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func floatOrZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

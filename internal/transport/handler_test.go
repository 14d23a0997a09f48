package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sashabaranov/go-openai"

	"github.com/bessim-dev/ocr-api/internal/cache"
	"github.com/bessim-dev/ocr-api/internal/config"
	"github.com/bessim-dev/ocr-api/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeChatClient struct {
	mu      sync.Mutex
	calls   int
	content []string
	err     error
}

func (f *fakeChatClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	idx := f.calls - 1
	if idx >= len(f.content) {
		idx = len(f.content) - 1
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content[idx]}},
		},
	}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Host:               "127.0.0.1",
		Port:               "8080",
		GroqAPIKey:         "test-key",
		GroqModel:          "test-model",
		CacheTTL:           time.Hour,
		RequestTimeout:     5 * time.Second,
		OcrRequestTimeout:  5 * time.Second,
		MaxRequestBodySize: 1 << 20,
	}
}

func newTestHandler(content ...string) (http.Handler, *fakeChatClient) {
	client := &fakeChatClient{content: content}
	cfg := testConfig()
	svc := service.NewOcrService(client, cache.NewMemoryStore(), cfg, nil)
	return NewHandler(svc, nil, cfg), client
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Cached  *bool           `json:"cached"`
	Error   *string         `json:"error"`
}

func doPost(t *testing.T, h http.Handler, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("Failed to decode response envelope %q: %v", w.Body.String(), err)
	}
	return w, env
}

const ribContent = `{
	"doc_type": "rib",
	"fields": {
		"iban": {"value": "FR7630006000011234567890189", "confidence": 0.92},
		"bic": {"value": "AGRIFRPP", "confidence": 0.88}
	},
	"pages_seen": 1
}`

const kbisContent = `{
	"doc_type": "kbis",
	"fields": {
		"siren": {"value": "123456789", "confidence": 0.9}
	},
	"pages_seen": 1
}`

func TestHandleOcr_UnsupportedType(t *testing.T) {
	h, client := newTestHandler(ribContent)

	w, env := doPost(t, h, "/ocr/passport", `{"images": ["aW1n"]}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
	if env.Success {
		t.Error("Expected success=false")
	}
	if env.Error == nil || !strings.Contains(*env.Error, "Unsupported OCR type") {
		t.Errorf("Expected unsupported-type error, got %v", env.Error)
	}
	if client.calls != 0 {
		t.Error("Expected no model call for unsupported type")
	}
}

func TestHandleOcr_NoImages(t *testing.T) {
	h, _ := newTestHandler(ribContent)

	w, env := doPost(t, h, "/ocr/rib", `{}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
	if env.Error == nil || !strings.Contains(*env.Error, "image") {
		t.Errorf("Expected missing-image error, got %v", env.Error)
	}
}

func TestHandleOcr_InvalidJSON(t *testing.T) {
	h, _ := newTestHandler(ribContent)

	w, env := doPost(t, h, "/ocr/rib", `{"images": [`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
	if env.Error == nil || !strings.Contains(*env.Error, "Invalid JSON body") {
		t.Errorf("Expected invalid-JSON error, got %v", env.Error)
	}
}

func TestHandleOcr_DetectionDispatch(t *testing.T) {
	// First model call classifies, second extracts.
	h, client := newTestHandler(`{"type": "kbis", "confidence": 0.9}`, kbisContent)

	w, env := doPost(t, h, "/ocr", `{"images": ["aW1n"]}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !env.Success {
		t.Error("Expected success=true")
	}
	var data struct {
		DocType string `json:"doc_type"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("Failed to decode data: %v", err)
	}
	if data.DocType != "kbis" {
		t.Errorf("Expected doc_type kbis, got %q", data.DocType)
	}
	if client.calls != 2 {
		t.Errorf("Expected detection call plus extraction call, got %d", client.calls)
	}
}

func TestHandleOcr_DetectionFailure(t *testing.T) {
	h, _ := newTestHandler(`{"type": "passport", "confidence": 0.9}`)

	w, env := doPost(t, h, "/ocr", `{"images": ["aW1n"]}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
	if env.Error == nil || !strings.Contains(*env.Error, "Unable to detect document type") {
		t.Errorf("Expected detection error, got %v", env.Error)
	}
}

func TestHandleOcr_CachedRoundTrip(t *testing.T) {
	h, client := newTestHandler(ribContent)
	body := `{"images": ["aW1n"]}`

	_, first := doPost(t, h, "/ocr/rib", body)
	if first.Cached == nil || *first.Cached {
		t.Errorf("Expected cached=false on first call, got %v", first.Cached)
	}

	_, second := doPost(t, h, "/ocr/rib", body)
	if second.Cached == nil || !*second.Cached {
		t.Errorf("Expected cached=true on second call, got %v", second.Cached)
	}
	if client.calls != 1 {
		t.Errorf("Expected exactly one model call, got %d", client.calls)
	}
	if string(first.Data) != string(second.Data) {
		t.Errorf("Expected identical payloads, got %s and %s", first.Data, second.Data)
	}
}

func TestHandleOcr_FieldsQueryParam(t *testing.T) {
	h, _ := newTestHandler(ribContent)

	w, env := doPost(t, h, "/ocr/rib?fields=iban", `{"images": ["aW1n"]}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var data struct {
		Fields map[string]interface{} `json:"fields"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("Failed to decode data: %v", err)
	}
	if len(data.Fields) != 1 {
		t.Errorf("Expected only requested field, got %v", data.Fields)
	}
	if _, ok := data.Fields["iban"]; !ok {
		t.Error("Expected iban field in filtered result")
	}
}

func TestHandleOcr_CarPlateCacheStatusHeader(t *testing.T) {
	h, _ := newTestHandler(`{"plate": "AB-123-CD", "plate_confidence": 0.97}`)
	body := `{"image": "aW1n"}`

	w, _ := doPost(t, h, "/ocr/car-plate", body)
	if got := w.Header().Get("Cache-Status"); got != "miss" {
		t.Errorf("Expected Cache-Status miss, got %q", got)
	}

	w, env := doPost(t, h, "/ocr/car-plate", body)
	if got := w.Header().Get("Cache-Status"); got != "hit" {
		t.Errorf("Expected Cache-Status hit, got %q", got)
	}
	var data struct {
		Plate *string `json:"plate"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("Failed to decode data: %v", err)
	}
	if data.Plate == nil || *data.Plate != "AB-123-CD" {
		t.Errorf("Expected cached plate, got %v", data.Plate)
	}
}

func TestHealthCheck(t *testing.T) {
	h, _ := newTestHandler(ribContent)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("Failed to decode health payload: %v", err)
	}
	if payload["status"] != "available" {
		t.Errorf("Expected status available, got %v", payload["status"])
	}
}

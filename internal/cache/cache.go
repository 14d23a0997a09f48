package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bessim-dev/ocr-api/pkg/models"
)

// Store defines the key/value cache contract. Get reports absence via the
// bool so an expired or missing entry is not an error; an error means the
// backing store itself failed.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key derives the content-addressed cache key for an OCR request. The
// digest covers the image payloads in caller-supplied order, then the
// sorted, pipe-joined field names when a field subset was requested. Image
// order is significant: callers must submit images consistently to benefit
// from cache hits.
func Key(ocrType models.OcrType, images []string, fields []string) string {
	h := sha256.New()
	for _, img := range images {
		h.Write([]byte(img))
	}
	if len(fields) > 0 {
		sorted := append([]string(nil), fields...)
		sort.Strings(sorted)
		h.Write([]byte(strings.Join(sorted, "|")))
	}
	return fmt.Sprintf("%s:%s", ocrType, hex.EncodeToString(h.Sum(nil)))
}

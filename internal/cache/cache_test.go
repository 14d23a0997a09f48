package cache

import (
	"context"
	"testing"
	"time"

	"github.com/bessim-dev/ocr-api/pkg/models"
)

func TestKey_Deterministic(t *testing.T) {
	images := []string{"aGVsbG8=", "d29ybGQ="}
	fields := []string{"iban", "bic"}

	first := Key(models.TypeRib, images, fields)
	second := Key(models.TypeRib, images, fields)

	if first != second {
		t.Errorf("Expected identical keys, got %q and %q", first, second)
	}
}

func TestKey_FieldOrderInsensitive(t *testing.T) {
	images := []string{"aGVsbG8="}

	a := Key(models.TypeRib, images, []string{"iban", "bic"})
	b := Key(models.TypeRib, images, []string{"bic", "iban"})

	if a != b {
		t.Errorf("Expected field order not to matter, got %q and %q", a, b)
	}
}

func TestKey_Sensitivity(t *testing.T) {
	base := Key(models.TypeRib, []string{"aaa", "bbb"}, []string{"iban"})

	tests := []struct {
		name string
		key  string
	}{
		{
			name: "different image content",
			key:  Key(models.TypeRib, []string{"aaa", "ccc"}, []string{"iban"}),
		},
		{
			name: "different image order",
			key:  Key(models.TypeRib, []string{"bbb", "aaa"}, []string{"iban"}),
		},
		{
			name: "different document type",
			key:  Key(models.TypeKbis, []string{"aaa", "bbb"}, []string{"iban"}),
		},
		{
			name: "different field list",
			key:  Key(models.TypeRib, []string{"aaa", "bbb"}, []string{"bic"}),
		},
		{
			name: "no field list",
			key:  Key(models.TypeRib, []string{"aaa", "bbb"}, nil),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.key == base {
				t.Errorf("Expected key to differ from base %q", base)
			}
		})
	}
}

func TestKey_TypePrefix(t *testing.T) {
	key := Key(models.TypeDrivingPermit, []string{"img"}, nil)
	prefix := string(models.TypeDrivingPermit) + ":"
	if len(key) <= len(prefix) || key[:len(prefix)] != prefix {
		t.Errorf("Expected key prefixed with %q, got %q", prefix, key)
	}
}

func TestMemoryStore_SetGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, found, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Fatal("Expected entry to be found")
	}
	if string(value) != "v" {
		t.Errorf("Expected value %q, got %q", "v", value)
	}
}

func TestMemoryStore_Miss(t *testing.T) {
	store := NewMemoryStore()

	_, found, err := store.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Error("Expected miss for absent key")
	}
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { return now }

	if err := store.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	store.now = func() time.Time { return now.Add(2 * time.Minute) }

	_, found, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Error("Expected entry to expire after TTL")
	}
	if store.Len() != 0 {
		t.Errorf("Expected expired entry to be swept, have %d entries", store.Len())
	}
}

func TestNewRedisStore_InvalidURL(t *testing.T) {
	if _, err := NewRedisStore("not-a-url"); err == nil {
		t.Error("Expected error for invalid Redis URL")
	}
}

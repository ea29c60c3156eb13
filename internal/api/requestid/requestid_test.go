package requestid

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
)

func TestRequestID(t *testing.T) {
	if got := ExtractRequestID(context.Background()); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}

	id := New()
	if _, err := ulid.Parse(id); err != nil {
		t.Fatalf("New() returned a non-ulid id %q: %v", id, err)
	}
	if New() == id {
		t.Error("expected distinct ids")
	}

	ctx := InjectRequestID(context.Background(), id)
	if got := ExtractRequestID(ctx); got != id {
		t.Errorf("expected %q, got %q", id, got)
	}
}

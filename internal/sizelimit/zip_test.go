package sizelimit

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/antigravity-dev/fulfillment/internal/blobstore"
)

// randomishText builds a deterministic, low-redundancy byte sequence:
// real compression ratios on arbitrary activity payloads are nowhere
// near as favorable as a repeated string, so zipping alone won't bring
// this under the size limit.
func randomishText(n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	r := rand.New(rand.NewSource(42))
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[r.Intn(len(alphabet))]
	}
	return string(b)
}

func TestDeliverPassesThroughUnderLimit(t *testing.T) {
	got, err := Deliver(context.Background(), blobstore.NewInMemoryStore(), "bucket", "small payload", 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "small payload" {
		t.Fatalf("expected passthrough, got %q", got)
	}
}

func TestDeliverAndReceiveRoundTripZipped(t *testing.T) {
	// A 72,686-byte repetitive payload compresses well under the
	// 30,000-byte limit, so it stays inline as an FF-ZIP payload.
	const wantLen = 72686
	payload := strings.Repeat("the quick brown fox jumps over the lazy dog. ", wantLen/45+1)[:wantLen]
	if len(payload) != wantLen {
		t.Fatalf("test fixture drifted from its intended size: %d bytes", len(payload))
	}

	store := blobstore.NewInMemoryStore()
	delivered, err := Deliver(context.Background(), store, "bucket", payload, 30000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(delivered, "FF-ZIP:") {
		t.Fatalf("expected a zipped payload, got prefix %q", delivered[:minInt(10, len(delivered))])
	}
	if len(delivered) >= len(payload) {
		t.Fatalf("expected the zipped form to be smaller than the original")
	}

	received, err := Receive(context.Background(), store, delivered)
	if err != nil {
		t.Fatalf("unexpected error receiving: %v", err)
	}
	if received != payload {
		t.Fatal("expected the round-tripped payload to match the original exactly")
	}
}

func TestDeliverAndReceiveRoundTripOverflowsToBlobStore(t *testing.T) {
	// A 394,710-byte payload of low-redundancy text still exceeds the
	// limit even zipped, forcing the blob-store overflow path.
	const wantLen = 394710
	payload := randomishText(wantLen)
	if len(payload) != wantLen {
		t.Fatalf("test fixture drifted from its intended size: %d bytes", len(payload))
	}

	store := blobstore.NewInMemoryStore()
	delivered, err := Deliver(context.Background(), store, "overflow-bucket", payload, 30000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(delivered, "FF-URL:") {
		t.Fatalf("expected an FF-URL overflow pointer, got prefix %q", delivered[:minInt(10, len(delivered))])
	}

	received, err := Receive(context.Background(), store, delivered)
	if err != nil {
		t.Fatalf("unexpected error receiving: %v", err)
	}
	if received != payload {
		t.Fatal("expected the overflow-stored payload to round-trip exactly")
	}
}

func TestReceivePassesThroughUnrecognizedPrefix(t *testing.T) {
	got, err := Receive(context.Background(), blobstore.NewInMemoryStore(), "plain text, no magic prefix")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "plain text, no magic prefix" {
		t.Fatalf("expected passthrough, got %q", got)
	}
}

func TestReceiveZippedAcceptsLegacyWrappedBase64(t *testing.T) {
	store := blobstore.NewInMemoryStore()
	delivered, err := Deliver(context.Background(), store, "bucket", strings.Repeat("z", 40000), 30000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(delivered, "FF-ZIP:") {
		t.Fatalf("expected a zipped payload for this fixture, got %q", delivered[:10])
	}

	parts := strings.SplitN(delivered, ":", 3)
	wrapped := parts[0] + ":" + parts[1] + ":" + wrapEvery76Columns(parts[2])

	received, err := Receive(context.Background(), store, wrapped)
	if err != nil {
		t.Fatalf("unexpected error receiving legacy-wrapped payload: %v", err)
	}
	if received != strings.Repeat("z", 40000) {
		t.Fatal("expected the legacy-wrapped payload to still round-trip")
	}
}

func wrapEvery76Columns(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i += 76 {
		end := i + 76
		if end > len(s) {
			end = len(s)
		}
		b.WriteString(s[i:end])
		b.WriteByte('\n')
	}
	return b.String()
}

func TestReceiveRejectsNonS3FFURLScheme(t *testing.T) {
	store := blobstore.NewInMemoryStore()
	_, err := Receive(context.Background(), store, "FF-URL:deadbeef:https://example.com/evil")
	if err == nil {
		t.Fatal("expected an error for an FF-URL payload not pointing at an s3:// url")
	}
}

func TestDefaultLimitConstant(t *testing.T) {
	if DefaultLimit != 32000 {
		t.Fatalf("expected the fixed SWF size limit of 32000, got %d", DefaultLimit)
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

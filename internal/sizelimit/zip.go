// Package sizelimit implements the size-limited delivery codec: plain
// payloads pass through unchanged, oversized ones are zlib-compressed
// and base64-wrapped, and payloads too big even zipped spill into a
// content-addressed blob store.
package sizelimit

import (
	"bytes"
	"compress/zlib"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/antigravity-dev/fulfillment/internal/blobstore"
)

// DefaultLimit is the SWF response size ceiling this codec targets.
// The historical source oscillates between 32000 and 32768; 32000 is
// the value fixed here (see DESIGN.md).
const DefaultLimit = 32000

const (
	magicZip  = "FF-ZIP"
	magicURL  = "FF-URL"
	separator = ":"
)

const (
	zipperFolder          = "zipped-ff"
	s3RetentionPolicy     = "retain_30_180"
)

func s3Key(filename string) string {
	return strings.Join([]string{s3RetentionPolicy, zipperFolder, filename}, "/")
}

// Deliver returns data unchanged if it's under limit; otherwise it
// zips it, and if the zipped form is still over limit, uploads the
// zipped form to store under bucket and returns an "FF-URL:" pointer.
func Deliver(ctx context.Context, store blobstore.Store, bucket string, data string, limit int) (string, error) {
	if len(data) < limit {
		return data, nil
	}

	zipped, err := zipData(data)
	if err != nil {
		return "", err
	}
	if len(zipped) <= limit {
		return zipped, nil
	}
	return storeOverflow(ctx, store, bucket, zipped)
}

func zipData(data string) (string, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write([]byte(data)); err != nil {
		return "", fmt.Errorf("zipping payload: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("zipping payload: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())
	return strings.Join([]string{magicZip, fmt.Sprintf("%d", len(data)), encoded}, separator), nil
}

func storeOverflow(ctx context.Context, store blobstore.Store, bucket string, zipped string) (string, error) {
	sum := md5.Sum([]byte(zipped))
	hash := hex.EncodeToString(sum[:])

	key := s3Key(hash + ".ff")
	url, err := store.Put(ctx, bucket, key, []byte(zipped))
	if err != nil {
		return "", fmt.Errorf("storing overflow blob: %w", err)
	}
	return strings.Join([]string{magicURL, hash, url}, separator), nil
}

// Receive reverses Deliver: unwraps an FF-ZIP payload in place, or
// fetches and recursively unwraps an FF-URL payload, or returns data
// unchanged if it carries neither magic prefix.
func Receive(ctx context.Context, store blobstore.Store, data string) (string, error) {
	switch {
	case strings.HasPrefix(data, magicZip):
		return receiveZipped(data)
	case strings.HasPrefix(data, magicURL):
		return receiveURL(ctx, store, data)
	default:
		return data, nil
	}
}

func receiveURL(ctx context.Context, store blobstore.Store, ffURL string) (string, error) {
	parts := strings.SplitN(ffURL, separator, 3)
	if len(parts) != 3 {
		return "", fmt.Errorf("malformed FF-URL payload: %q", ffURL)
	}
	blobURL := parts[2]
	parsed, err := url.Parse(blobURL)
	if err != nil || parsed.Scheme != "s3" {
		return "", fmt.Errorf("FF-URL payload must point at an s3:// url, got %q", blobURL)
	}
	body, err := store.Get(ctx, blobURL)
	if err != nil {
		return "", fmt.Errorf("fetching overflow blob: %w", err)
	}
	return Receive(ctx, store, string(body))
}

// receiveZipped parses the "FF-ZIP:{length}:{base64}" header (both
// separators must fall within the first 18 bytes, which leaves room
// for a 10-digit length), then zlib-inflates the base64 payload. Both
// the newline-free and legacy 76-column-wrapped base64 flavors are
// accepted.
func receiveZipped(zipped string) (string, error) {
	headEnd := min(18, len(zipped))
	head := zipped[:headEnd]
	sepCount := strings.Count(head, separator)
	if sepCount < 2 {
		return "", fmt.Errorf("malformed FF-ZIP header: %q", zipped)
	}
	firstSep := strings.Index(zipped, separator)
	secondSep := strings.Index(zipped[firstSep+1:], separator) + firstSep + 1
	headerLength := secondSep + 1

	encoded := zipped[headerLength:]
	cleaned := strings.NewReplacer("\n", "", "\r", "").Replace(encoded)
	compressed, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return "", fmt.Errorf("base64-decoding zipped payload: %w", err)
	}

	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return "", fmt.Errorf("opening zlib stream: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("inflating zipped payload: %w", err)
	}
	return string(out), nil
}

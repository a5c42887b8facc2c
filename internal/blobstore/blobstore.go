// Package blobstore abstracts the size-limit overflow destination: a
// content-addressed object store that oversized responses spill into
// when even a compressed form exceeds the task queue's size limit.
package blobstore

import "context"

// Store puts and retrieves blobs by a store-chosen URL. Put returns
// the URL Get later needs to retrieve the same bytes.
type Store interface {
	Put(ctx context.Context, bucket, key string, body []byte) (url string, err error)
	Get(ctx context.Context, url string) ([]byte, error)
}

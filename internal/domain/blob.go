package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader fetches and lists stored objects.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}

// WorldArchive is a point-in-time copy of the world and clock.
type WorldArchive struct {
	Year       int       `json:"year"`
	LastSeq    int64     `json:"last_seq"`
	World      World     `json:"world"`
	ArchivedAt time.Time `json:"archived_at"`
}

// Archiver stores and restores world archives.
type Archiver interface {
	Archive(ctx context.Context, a WorldArchive) (string, error)
	Latest(ctx context.Context) (WorldArchive, error)
}

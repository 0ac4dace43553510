package s3blob

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/alanyoungcy/divinefavor/internal/domain"
	"github.com/alanyoungcy/divinefavor/internal/snapshot"
)

// multipartThreshold is the encoded size above which archives are uploaded
// in parts.
const multipartThreshold = 16 << 20

// Archiver writes zstd world archives under prefix. Keys are zero-padded by
// year so that lexical order is chronological:
//
//	<prefix>/year-00000040.zst
type Archiver struct {
	writer domain.BlobWriter
	reader domain.BlobReader
	prefix string
	logger *slog.Logger
}

// NewArchiver returns an Archiver. An empty prefix means "archives/world".
func NewArchiver(writer domain.BlobWriter, reader domain.BlobReader, prefix string, logger *slog.Logger) *Archiver {
	if prefix == "" {
		prefix = "archives/world"
	}
	return &Archiver{
		writer: writer,
		reader: reader,
		prefix: strings.TrimSuffix(prefix, "/"),
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// Archive encodes a and uploads it, returning the object key.
func (a *Archiver) Archive(ctx context.Context, arc domain.WorldArchive) (string, error) {
	var buf bytes.Buffer
	if err := snapshot.Write(&buf, arc); err != nil {
		return "", fmt.Errorf("s3blob: encode archive: %w", err)
	}
	key := a.key(arc.Year)
	size := buf.Len()

	var err error
	if size > multipartThreshold {
		err = a.writer.PutMultipart(ctx, key, &buf, minPartSize)
	} else {
		err = a.writer.Put(ctx, key, &buf, snapshot.ContentType)
	}
	if err != nil {
		return "", fmt.Errorf("s3blob: upload archive: %w", err)
	}
	a.logger.InfoContext(ctx, "archiver: world archived",
		slog.String("key", key),
		slog.Int("year", arc.Year),
		slog.Int("bytes", size),
	)
	return key, nil
}

// Latest downloads the archive with the highest year. It returns
// domain.ErrNotFound when none exist.
func (a *Archiver) Latest(ctx context.Context) (domain.WorldArchive, error) {
	infos, err := a.reader.List(ctx, a.prefix+"/")
	if err != nil {
		return domain.WorldArchive{}, fmt.Errorf("s3blob: list archives: %w", err)
	}
	latest := ""
	for _, info := range infos {
		if !strings.HasSuffix(info.Path, ".zst") || !strings.HasPrefix(path.Base(info.Path), "year-") {
			continue
		}
		if info.Path > latest {
			latest = info.Path
		}
	}
	if latest == "" {
		return domain.WorldArchive{}, domain.NotFound("archive", a.prefix)
	}

	body, err := a.reader.Get(ctx, latest)
	if err != nil {
		return domain.WorldArchive{}, fmt.Errorf("s3blob: fetch archive: %w", err)
	}
	defer body.Close()

	_, arc, err := snapshot.Read(body)
	if err != nil {
		return domain.WorldArchive{}, fmt.Errorf("s3blob: decode %s: %w", latest, err)
	}
	return arc, nil
}

func (a *Archiver) key(year int) string {
	return fmt.Sprintf("%s/year-%08d.zst", a.prefix, year)
}

var _ domain.Archiver = (*Archiver)(nil)

// Package snapshot encodes world archives as a zstd stream holding a JSON
// header line followed by a gob body.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

// Version is the current archive format.
const Version = 1

// ContentType is used when archives are uploaded.
const ContentType = "application/zstd"

// ErrVersion is returned for archives written by an unknown format version.
var ErrVersion = errors.New("snapshot: unsupported version")

// Header is readable without decoding the body.
type Header struct {
	Version int   `json:"version"`
	Seed    int64 `json:"seed"`
	Year    int   `json:"year"`
	LastSeq int64 `json:"last_seq"`
}

// Write encodes a to w.
func Write(w io.Writer, a domain.WorldArchive) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("snapshot: new encoder: %w", err)
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, err := json.Marshal(Header{Version: Version, Seed: a.World.Seed, Year: a.Year, LastSeq: a.LastSeq})
	if err != nil {
		enc.Close()
		return fmt.Errorf("snapshot: header: %w", err)
	}
	if _, err := bw.Write(append(hb, '\n')); err != nil {
		enc.Close()
		return fmt.Errorf("snapshot: write header: %w", err)
	}
	if err := gob.NewEncoder(bw).Encode(&a); err != nil {
		enc.Close()
		return fmt.Errorf("snapshot: gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return fmt.Errorf("snapshot: flush: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("snapshot: close encoder: %w", err)
	}
	return nil
}

// Read decodes an archive from r.
func Read(r io.Reader) (Header, domain.WorldArchive, error) {
	var (
		h Header
		a domain.WorldArchive
	)
	dec, err := zstd.NewReader(r)
	if err != nil {
		return h, a, fmt.Errorf("snapshot: new decoder: %w", err)
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, a, fmt.Errorf("snapshot: read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, a, fmt.Errorf("snapshot: decode header: %w", err)
	}
	if h.Version != Version {
		return h, a, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	if err := gob.NewDecoder(br).Decode(&a); err != nil {
		return h, a, fmt.Errorf("snapshot: gob decode: %w", err)
	}
	return h, a, nil
}

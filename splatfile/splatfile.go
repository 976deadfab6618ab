// Package splatfile reads and writes the positions of .splat point cloud
// files.
//
// A .splat file is a flat array of 32-byte little-endian records:
//
//	offset  size  field
//	0       12    position, 3 x float32
//	12      12    scale, 3 x float32
//	24      4     color, RGBA 4 x uint8
//	28      4     rotation, 4 x uint8 (quaternion mapped to 0..255)
//
// Only positions are decoded. Gzip-compressed files (.splat.gz) are
// detected by their magic bytes.
package splatfile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/gogpu/splatsort"
)

// RecordSize is the size in bytes of one .splat record.
const RecordSize = 32

// Errors
var (
	ErrTruncated = errors.New("splatfile: data is not a whole number of records")
)

var gzipMagic = []byte{0x1f, 0x8b}

// Read decodes the positions of all records in r. Gzip input is
// decompressed transparently.
func Read(r io.Reader) ([]splatsort.Position, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	head, err := br.Peek(len(gzipMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("splatfile: %w", err)
	}

	var src io.Reader = br
	if bytes.Equal(head, gzipMagic) {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("splatfile: gzip: %w", err)
		}
		defer zr.Close()
		src = zr
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("splatfile: read: %w", err)
	}
	return Decode(data)
}

// ReadFile reads the positions of the .splat or .splat.gz file at path.
func ReadFile(path string) ([]splatsort.Position, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pos, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	splatsort.Logger().Debug("splatfile: loaded", "path", path, "splats", len(pos))
	return pos, nil
}

// Decode extracts positions from raw record data.
func Decode(data []byte) ([]splatsort.Position, error) {
	if len(data)%RecordSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncated, len(data))
	}

	le := binary.LittleEndian
	pos := make([]splatsort.Position, len(data)/RecordSize)
	for i := range pos {
		rec := data[i*RecordSize:]
		pos[i] = splatsort.V3(
			math.Float32frombits(le.Uint32(rec[0:])),
			math.Float32frombits(le.Uint32(rec[4:])),
			math.Float32frombits(le.Uint32(rec[8:])),
		)
	}
	return pos, nil
}

// Write encodes positions as .splat records with unit scale, opaque white
// color and identity rotation.
func Write(w io.Writer, positions []splatsort.Position) error {
	bw := bufio.NewWriterSize(w, 64*1024)
	var rec [RecordSize]byte
	le := binary.LittleEndian

	// Fixed appearance fields.
	le.PutUint32(rec[12:], math.Float32bits(1))
	le.PutUint32(rec[16:], math.Float32bits(1))
	le.PutUint32(rec[20:], math.Float32bits(1))
	rec[24], rec[25], rec[26], rec[27] = 255, 255, 255, 255
	rec[28], rec[29], rec[30], rec[31] = 255, 128, 128, 128 // w=1, x=y=z=0

	for _, p := range positions {
		le.PutUint32(rec[0:], math.Float32bits(p.X))
		le.PutUint32(rec[4:], math.Float32bits(p.Y))
		le.PutUint32(rec[8:], math.Float32bits(p.Z))
		if _, err := bw.Write(rec[:]); err != nil {
			return fmt.Errorf("splatfile: write: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("splatfile: write: %w", err)
	}
	return nil
}

// WriteGzip is like Write but gzip-compresses the output at the given
// level (gzip.DefaultCompression, gzip.BestSpeed, ...).
func WriteGzip(w io.Writer, positions []splatsort.Position, level int) error {
	zw, err := gzip.NewWriterLevel(w, level)
	if err != nil {
		return fmt.Errorf("splatfile: gzip: %w", err)
	}
	if err := Write(zw, positions); err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("splatfile: gzip: %w", err)
	}
	return nil
}

package splatfile

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/gogpu/splatsort"
)

func testCloud() []splatsort.Position {
	return []splatsort.Position{
		splatsort.V3(0, 0, 0),
		splatsort.V3(1.5, -2.25, 3),
		splatsort.V3(-1e6, 4e-3, 7),
		splatsort.V3(float32(math.Inf(1)), 0, -1),
	}
}

func TestWriteRead(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, testCloud()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if buf.Len() != 4*RecordSize {
		t.Fatalf("wrote %d bytes, want %d", buf.Len(), 4*RecordSize)
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !slices.Equal(got, testCloud()) {
		t.Errorf("Read = %v, want %v", got, testCloud())
	}
}

func TestRecordLayout(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, []splatsort.Position{splatsort.V3(1, 2, 3)}); err != nil {
		t.Fatal(err)
	}
	rec := buf.Bytes()

	// Position 1.0f little-endian is 00 00 80 3f.
	if !bytes.Equal(rec[0:4], []byte{0, 0, 0x80, 0x3f}) {
		t.Errorf("x bytes = % x", rec[0:4])
	}
	if !bytes.Equal(rec[24:28], []byte{255, 255, 255, 255}) {
		t.Errorf("color = % x, want opaque white", rec[24:28])
	}
	if rec[28] != 255 || rec[29] != 128 {
		t.Errorf("rotation = % x, want identity", rec[28:32])
	}
}

func TestRead_Empty(t *testing.T) {
	got, err := Read(bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("Read(empty) failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Read(empty) = %v, want no positions", got)
	}
}

func TestRead_Truncated(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{"short record", 31},
		{"trailing bytes", RecordSize + 5},
		{"one byte", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(make([]byte, tt.size)))
			if !errors.Is(err, ErrTruncated) {
				t.Errorf("err = %v, want ErrTruncated", err)
			}
		})
	}
}

func TestRead_Gzip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteGzip(&buf, testCloud(), gzip.BestSpeed); err != nil {
		t.Fatalf("WriteGzip failed: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), gzipMagic) {
		t.Fatal("gzip output lacks magic bytes")
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read(gzip) failed: %v", err)
	}
	if !slices.Equal(got, testCloud()) {
		t.Errorf("Read(gzip) = %v, want %v", got, testCloud())
	}
}

func TestRead_CorruptGzip(t *testing.T) {
	data := append(slices.Clone(gzipMagic), 0x00, 0x01, 0x02)
	if _, err := Read(bytes.NewReader(data)); err == nil {
		t.Error("expected error for corrupt gzip stream")
	}
}

func TestWriteGzip_InvalidLevel(t *testing.T) {
	if err := WriteGzip(&bytes.Buffer{}, testCloud(), 42); err == nil {
		t.Error("expected error for invalid compression level")
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "cloud.splat")
	var buf bytes.Buffer
	if err := Write(&buf, testCloud()); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(plain, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	packed := filepath.Join(dir, "cloud.splat.gz")
	buf.Reset()
	if err := WriteGzip(&buf, testCloud(), gzip.DefaultCompression); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(packed, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{plain, packed} {
		got, err := ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile(%s) failed: %v", path, err)
		}
		if !slices.Equal(got, testCloud()) {
			t.Errorf("ReadFile(%s) = %v", path, got)
		}
	}

	if _, err := ReadFile(filepath.Join(dir, "missing.splat")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v, want os.ErrNotExist", err)
	}
}

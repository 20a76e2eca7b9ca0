package dataset

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/encoding/unicode"

	"loandesk/ml"
)

func TestStoreReadsAndWritesUTF16(t *testing.T) {
	dir := t.TempDir()
	utf16 := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	features, err := utf16.String(testingFeatures)
	if err != nil {
		t.Fatal(err)
	}
	labels, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(testingLabels)
	if err != nil {
		t.Fatal(err)
	}
	def := writeFiles(t, dir, features, labels)
	def.Encoding = "utf-16le"

	store, err := NewStore([]Definition{def})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ds, err := store.Load(Testing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.Len() != 3 || ds.Rows[2][1] != 3000 || ds.Labels[1] != ml.Rejected {
		t.Fatalf("unexpected dataset: %+v", ds)
	}

	if _, err := store.Append(Testing, ml.FeatureRow{400, 4000}, ml.Approved); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "X_test.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(raw, []byte{'4', 0, '0', 0, '0', 0, ',', 0}) {
		t.Fatalf("appended row not written as UTF-16: %q", raw)
	}

	reopened, err := NewStore([]Definition{def})
	if err != nil {
		t.Fatal(err)
	}
	ds, err = reopened.Load(Testing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.Len() != 4 || ds.Rows[3][0] != 400 {
		t.Fatalf("unexpected dataset after reopen: %+v", ds)
	}
}

func TestNewStoreRejectsUnknownEncoding(t *testing.T) {
	def := writeFiles(t, t.TempDir(), testingFeatures, testingLabels)
	def.Encoding = "ebcdic-klingon"
	if _, err := NewStore([]Definition{def}); err == nil {
		t.Fatal("expected error for unknown encoding")
	}
}

package journal

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestWriterRotatesDaily(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	day1 := time.Date(2024, 5, 1, 23, 59, 0, 0, time.Local)
	day2 := day1.Add(2 * time.Minute)

	w.now = func() time.Time { return day1 }
	if _, err := w.Write([]byte("{\"n\":1}\n")); err != nil {
		t.Fatal(err)
	}
	w.now = func() time.Time { return day2 }
	if _, err := w.Write([]byte("{\"n\":2}\n")); err != nil {
		t.Fatal(err)
	}

	for _, p := range []string{w.Path(day1), w.Path(day2)} {
		b, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		if len(b) == 0 {
			t.Errorf("%s is empty", p)
		}
	}
	if filepath.Base(w.Path(day2)) != "2024-05-02.jsonl" {
		t.Errorf("Path(day2) = %s", w.Path(day2))
	}
}

func TestNewLoggerWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	log := NewLogger(w)
	log.Info("request", zap.String("origin", "TG"), zap.String("text", "btc"))
	log.Info("request", zap.String("origin", "CONSOLE"), zap.String("text", "eth"))
	if err := log.Sync(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(w.Path(time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var lines []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line %q is not JSON: %v", sc.Text(), err)
		}
		lines = append(lines, m)
	}
	if len(lines) != 2 {
		t.Fatalf("%d lines, want 2", len(lines))
	}
	if lines[0]["origin"] != "TG" || lines[1]["text"] != "eth" || lines[0]["msg"] != "request" {
		t.Errorf("lines = %v", lines)
	}
	if _, ok := lines[0]["ts"]; !ok {
		t.Error("missing ts key")
	}
}

func TestCompressOlder(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "2024-01-01.jsonl")
	fresh := filepath.Join(dir, "2024-01-09.jsonl")
	for _, p := range []string{old, fresh} {
		if err := os.WriteFile(p, []byte("{\"text\":\"btc\"}\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	stale := time.Now().AddDate(0, 0, -10)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatal(err)
	}

	if err := CompressOlder(dir, 7); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Errorf("old journal should be removed, stat err = %v", err)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh journal should stay: %v", err)
	}

	f, err := os.Open(old + ".gz")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	b, err := io.ReadAll(gr)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "{\"text\":\"btc\"}\n" {
		t.Errorf("decompressed = %q", b)
	}
}

func TestCompressOlderDisabled(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "2024-01-01.jsonl")
	if err := os.WriteFile(p, []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	stale := time.Now().AddDate(0, 0, -30)
	if err := os.Chtimes(p, stale, stale); err != nil {
		t.Fatal(err)
	}
	if err := CompressOlder(dir, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(p); err != nil {
		t.Errorf("retention 0 must keep files: %v", err)
	}
}

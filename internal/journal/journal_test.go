package journal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriter_RecordAndReadBack(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	at := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)
	frames := []string{
		`{"heartbeat":true,"tick":10}`,
		`[{"id":"ev_1","tick":11,"event":{"TechUnlocked":{"tech_id":"t1"}}}]`,
	}
	for i, frame := range frames {
		if err := w.Record([]byte(frame), at.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := ListFiles(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("files = %v, want one hour file", files)
	}

	var got []Entry
	err = ReadFile(files[0], func(e Entry) error {
		got = append(got, e)
		return nil
	})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != len(frames) {
		t.Fatalf("entries = %d, want %d", len(got), len(frames))
	}
	for i, e := range got {
		if string(e.Frame) != frames[i] {
			t.Fatalf("frame %d = %s, want %s", i, e.Frame, frames[i])
		}
		if e.ReceivedAtMs != at.Add(time.Duration(i)*time.Second).UnixMilli() {
			t.Fatalf("frame %d timestamp = %d", i, e.ReceivedAtMs)
		}
	}
}

func TestWriter_RotatesPerHour(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	first := time.Date(2026, 5, 4, 9, 59, 0, 0, time.UTC)
	second := first.Add(2 * time.Minute) // crosses into 10:00
	if err := w.Record([]byte(`{"heartbeat":true,"tick":1}`), first); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := w.Record([]byte(`{"heartbeat":true,"tick":2}`), second); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := ListFiles(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files = %v, want two hour files", files)
	}

	// Rotation order must match arrival order for the replayer.
	var ticks []uint64
	for _, path := range files {
		err := ReadFile(path, func(e Entry) error {
			var hb struct {
				Tick uint64 `json:"tick"`
			}
			if err := json.Unmarshal(e.Frame, &hb); err != nil {
				return err
			}
			ticks = append(ticks, hb.Tick)
			return nil
		})
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
	}
	if len(ticks) != 2 || ticks[0] != 1 || ticks[1] != 2 {
		t.Fatalf("replay order = %v, want [1 2]", ticks)
	}
}

func TestListFiles_IgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	if err := w.Record([]byte(`{"heartbeat":true,"tick":1}`), time.Now()); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	writeJunk(t, dir)

	files, err := ListFiles(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("files = %v, want only the journal file", files)
	}
}

func writeJunk(t *testing.T, dir string) {
	t.Helper()
	for _, name := range []string{"notes.txt", "stream-partial.tmp"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("junk"), 0o644); err != nil {
			t.Fatalf("junk %s: %v", name, err)
		}
	}
}

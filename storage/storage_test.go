package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestTrialName(t *testing.T) {
	at := time.Date(2025, 3, 7, 15, 4, 5, 0, time.UTC)
	if got, want := TrialName(1, 1, at), "output_1_20250307_trial1.owl"; got != want {
		t.Errorf("TrialName = %q, want %q", got, want)
	}
	if got, want := TrialName(2, 12, at), "output_2_20250307_trial12.owl"; got != want {
		t.Errorf("TrialName = %q, want %q", got, want)
	}
}

func TestAtomicWrite(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "cq_text_flash.txt")

	if err := AtomicWrite(target, []byte("first")); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}
	if err := AtomicWrite(target, []byte("second")); err != nil {
		t.Fatalf("AtomicWrite overwrite failed: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q, want %q", data, "second")
	}

	entries, err := os.ReadDir(filepath.Dir(target))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}

func TestLockAndWrite_Concurrent(t *testing.T) {
	target := filepath.Join(t.TempDir(), "output.owl")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := LockAndWrite(context.Background(), target, []byte("<rdf:RDF/>")); err != nil {
				t.Errorf("LockAndWrite: %v", err)
			}
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "<rdf:RDF/>" {
		t.Errorf("content = %q", data)
	}
}

func TestFileLock_ContextCancelled(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "artifact.lock")

	held := NewFileLock(lockPath)
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock = %v, %v", ok, err)
	}
	defer held.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// A second flock handle on the same file conflicts even within one process.
	err = NewFileLock(lockPath).Lock(ctx)
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("Lock error = %v, want ErrLocked", err)
	}
}

func TestArtifacts_WriteRead(t *testing.T) {
	store := NewArtifacts(t.TempDir(), nil)

	path, err := store.WriteString(context.Background(), NormalizedFile, "<rdf:RDF/>")
	if err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	if path != filepath.Join(store.Dir, "owl_files", "output.owl") {
		t.Errorf("path = %q", path)
	}

	data, err := store.Read(NormalizedFile)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "<rdf:RDF/>" {
		t.Errorf("Read = %q", data)
	}

	if _, err := store.Read("missing.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read missing error = %v, want ErrNotFound", err)
	}
}

func TestArtifacts_AbsolutePath(t *testing.T) {
	store := NewArtifacts(t.TempDir(), nil)
	abs := filepath.Join(t.TempDir(), "elsewhere.txt")
	if got := store.Path(abs); got != abs {
		t.Errorf("Path(%q) = %q", abs, got)
	}
}

func TestArtifacts_NextTrial(t *testing.T) {
	store := NewArtifacts(t.TempDir(), nil)
	at := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	if got := store.NextTrial(1, at); got != 1 {
		t.Fatalf("NextTrial on empty dir = %d, want 1", got)
	}
	for trial := 1; trial <= 2; trial++ {
		if _, err := store.WriteString(context.Background(), TrialName(1, trial, at), "x"); err != nil {
			t.Fatal(err)
		}
	}
	if got := store.NextTrial(1, at); got != 3 {
		t.Errorf("NextTrial = %d, want 3", got)
	}
	if got := store.NextTrial(2, at); got != 1 {
		t.Errorf("NextTrial for another run = %d, want 1", got)
	}
}

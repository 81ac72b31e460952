package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nava", "session.json")
	s := NewFileStore(path)

	p, err := s.Load()
	if err != nil || !p.Empty() {
		t.Fatalf("missing file must load as empty, got %+v %v", p, err)
	}

	want := TokenPair{AccessToken: "a", RefreshToken: "r"}
	if err := s.Save(want); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("session file mode = %v, want 0600", info.Mode().Perm())
	}

	got, err := NewFileStore(path).Load()
	if err != nil || got != want {
		t.Fatalf("Load = %+v %v, want %+v", got, err, want)
	}

	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("Clear must remove the file")
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("clearing twice must not fail: %v", err)
	}
}

func TestFileStore_Keys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := NewFileStore(path).Save(TokenPair{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(b); got != `{"accessToken":"a","refreshToken":"r"}` {
		t.Fatalf("unexpected file content %s", got)
	}
}

func TestFileStore_Corrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path).Load(); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	_ = s.Save(TokenPair{AccessToken: "a"})
	if p, _ := s.Load(); p.AccessToken != "a" {
		t.Fatalf("unexpected pair %+v", p)
	}
	_ = s.Clear()
	if p, _ := s.Load(); !p.Empty() {
		t.Fatalf("store must be empty after Clear")
	}
}

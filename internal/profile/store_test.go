package profile

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	logx "tgsend/pkg/logx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "api_profiles.json"), logx.Nop())
}

func TestCreateAndLoad(t *testing.T) {
	s := newTestStore(t)
	if err := s.Create("main", "12345", "abcdef"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got := s.Load()
	if len(got) != 1 || got[0].Name != "main" || got[0].APIID != "12345" {
		t.Fatalf("Load = %+v", got)
	}

	id, hash, err := got[0].Credentials()
	if err != nil {
		t.Fatalf("Credentials: %v", err)
	}
	if id != 12345 || hash != "abcdef" {
		t.Fatalf("Credentials = %d %q", id, hash)
	}
}

func TestCreateDuplicateNameRejected(t *testing.T) {
	s := newTestStore(t)
	if err := s.Create("X", "1", "h1"); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	err := s.Create("X", "2", "h2")
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("second Create err = %v, want ErrDuplicateName", err)
	}
	if n := len(s.Load()); n != 1 {
		t.Fatalf("stored profile count = %d, want 1", n)
	}
}

func TestCreateEmptyFieldRejected(t *testing.T) {
	s := newTestStore(t)
	for _, c := range [][3]string{{"", "1", "h"}, {"n", "", "h"}, {"n", "1", ""}, {"  ", "1", "h"}} {
		if err := s.Create(c[0], c[1], c[2]); !errors.Is(err, ErrEmptyField) {
			t.Fatalf("Create(%q,%q,%q) err = %v, want ErrEmptyField", c[0], c[1], c[2], err)
		}
	}
	if n := len(s.Load()); n != 0 {
		t.Fatalf("stored profile count = %d, want 0", n)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.Create("gone", "1", "h"); err != nil {
		t.Fatal(err)
	}
	s.Delete("gone")
	s.Delete("gone") // second delete is a no-op
	if n := len(s.Load()); n != 0 {
		t.Fatalf("stored profile count = %d, want 0", n)
	}
}

func TestLoadFailsSoftOnCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api_profiles.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	s := NewStore(path, logx.Nop())
	if got := s.Load(); len(got) != 0 {
		t.Fatalf("Load on corrupt file = %+v, want empty", got)
	}
}

func TestDocumentShape(t *testing.T) {
	s := newTestStore(t)
	if err := s.Create("main", "42", "beef"); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string][]map[string]string
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("document not valid JSON: %v", err)
	}
	ps := doc["profiles"]
	if len(ps) != 1 || ps[0]["api_id"] != "42" || ps[0]["api_hash"] != "beef" {
		t.Fatalf("unexpected document: %s", b)
	}
}

func TestGetUnknownProfile(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get err = %v, want ErrNotFound", err)
	}
}

package delivery

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadRecipientsSkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.txt")
	if err := os.WriteFile(path, []byte("alice\n\n  \nbob\ncarol\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := LoadRecipients(path)
	if err != nil {
		t.Fatalf("LoadRecipients: %v", err)
	}
	if want := []string{"alice", "bob", "carol"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestLoadRecipientsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.txt")
	if err := os.WriteFile(path, []byte("\n\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := LoadRecipients(path)
	if !errors.Is(err, ErrNoRecipients) {
		t.Fatalf("err = %v, want ErrNoRecipients", err)
	}
}

func TestLoadRecipientsMissingFile(t *testing.T) {
	_, err := LoadRecipients(filepath.Join(t.TempDir(), "nope.txt"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

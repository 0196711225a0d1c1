// Package profile persists named API credential profiles.
//
// Profiles live in a single JSON document that is rewritten wholesale on every
// mutation. Reads fail soft: a missing or corrupt document behaves like an
// empty profile list so the rest of the engine keeps working.
package profile

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	logx "tgsend/pkg/logx"
)

var (
	ErrDuplicateName = errors.New("profile name already exists")
	ErrEmptyField    = errors.New("profile name, api id and api hash must not be blank")
	ErrNotFound      = errors.New("profile not found")
)

// Profile is a named credential pair used to authenticate a transport session.
// APIID is kept as a string in the document; Credentials() validates it.
type Profile struct {
	Name    string `json:"name"`
	APIID   string `json:"api_id"`
	APIHash string `json:"api_hash"`
}

// Credentials returns the parsed credential pair.
func (p Profile) Credentials() (int, string, error) {
	id, err := strconv.Atoi(strings.TrimSpace(p.APIID))
	if err != nil {
		return 0, "", errors.New("api id must be a number")
	}
	hash := strings.TrimSpace(p.APIHash)
	if hash == "" {
		return 0, "", errors.New("api hash is empty")
	}
	return id, hash, nil
}

type document struct {
	Profiles []Profile `json:"profiles"`
}

// Store owns the profile document. Safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	path string
	log  logx.Logger
}

func NewStore(path string, log logx.Logger) *Store {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Store{path: path, log: log}
}

// Load returns all profiles. Read or parse errors are logged and yield an
// empty list, never an error.
func (s *Store) Load() []Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() []Profile {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("profile document unreadable", logx.String("path", s.path), logx.Err(err))
		}
		return nil
	}
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		s.log.Warn("profile document corrupt", logx.String("path", s.path), logx.Err(err))
		return nil
	}
	return doc.Profiles
}

// Save rewrites the document from the given list. I/O errors are logged, not
// returned; the in-memory view the caller holds stays authoritative.
func (s *Store) Save(profiles []Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveLocked(profiles)
}

func (s *Store) saveLocked(profiles []Profile) {
	doc := document{Profiles: profiles}
	if doc.Profiles == nil {
		doc.Profiles = []Profile{}
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		s.log.Warn("profile document encode failed", logx.Err(err))
		return
	}
	b = append(b, '\n')

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			s.log.Warn("profile directory create failed", logx.String("dir", dir), logx.Err(err))
			return
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		s.log.Warn("profile document write failed", logx.String("path", tmp), logx.Err(err))
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.log.Warn("profile document replace failed", logx.String("path", s.path), logx.Err(err))
	}
}

// Create appends a new profile and persists the document.
func (s *Store) Create(name, apiID, apiHash string) error {
	name = strings.TrimSpace(name)
	apiID = strings.TrimSpace(apiID)
	apiHash = strings.TrimSpace(apiHash)
	if name == "" || apiID == "" || apiHash == "" {
		return ErrEmptyField
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	profiles := s.loadLocked()
	for _, p := range profiles {
		if p.Name == name {
			return ErrDuplicateName
		}
	}
	profiles = append(profiles, Profile{Name: name, APIID: apiID, APIHash: apiHash})
	s.saveLocked(profiles)
	s.log.Info("profile created", logx.String("profile", name))
	return nil
}

// Delete removes all profiles with the given name (at most one should exist)
// and persists. Unknown names are a no-op, not an error.
func (s *Store) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles := s.loadLocked()
	kept := profiles[:0]
	removed := 0
	for _, p := range profiles {
		if p.Name == name {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	if removed == 0 {
		return
	}
	s.saveLocked(kept)
	s.log.Info("profile deleted", logx.String("profile", name))
}

// Get resolves a profile by name.
func (s *Store) Get(name string) (Profile, error) {
	for _, p := range s.Load() {
		if p.Name == name {
			return p, nil
		}
	}
	return Profile{}, ErrNotFound
}

// Names returns profile names in document order.
func (s *Store) Names() []string {
	profiles := s.Load()
	out := make([]string, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p.Name)
	}
	return out
}

package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store keeps synthesized audio on disk for the lifetime of the process so
// the frontend can fetch it by URL. Nothing here is durable state: the
// directory can be wiped between runs.
type Store struct {
	dir string
}

// NewStore creates (if needed) and wraps the audio directory.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Put writes data under a fresh uuid name and returns the file name.
// The extension is derived from the output format ("wav", "mp3_44100_128").
func (s *Store) Put(data []byte, outputFormat string) (string, error) {
	name := uuid.NewString() + extFor(outputFormat)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}
	return name, nil
}

// Read returns the bytes for a stored file name.
func (s *Store) Read(name string) ([]byte, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// Path resolves a stored name to an absolute path, rejecting anything that
// would escape the audio directory.
func (s *Store) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid audio name %q", name)
	}
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

// URLPath returns the route the HTTP layer serves this file at.
func (s *Store) URLPath(name string) string {
	return "/audio/" + name
}

// Dir returns the backing directory.
func (s *Store) Dir() string { return s.dir }

func extFor(outputFormat string) string {
	f := strings.ToLower(outputFormat)
	switch {
	case strings.HasPrefix(f, "wav"), strings.HasPrefix(f, "pcm"):
		return ".wav"
	case strings.HasPrefix(f, "ulaw"), strings.HasPrefix(f, "mulaw"):
		return ".ulaw"
	default:
		return ".mp3"
	}
}

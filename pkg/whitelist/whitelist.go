package whitelist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"bskyfollow/pkg/logger"
	"bskyfollow/pkg/models"
)

// Scope selects which list of protected handles a Store holds
type Scope string

const (
	// ScopeUnfollow protects non-follow-backs from being unfollowed
	ScopeUnfollow Scope = "unfollow"
	// ScopeFollow protects fans from being followed back
	ScopeFollow Scope = "follow"
)

// FileName returns the file the scope is persisted in
func (s Scope) FileName() string {
	if s == ScopeFollow {
		return "follow-whitelist.json"
	}
	return "whitelist.json"
}

// Store is a persisted set of lowercased handles
type Store struct {
	path    string
	scope   Scope
	handles map[string]struct{}
	mu      sync.RWMutex
	logger  logger.Logger
}

// Open loads the scope's whitelist from dir, creating dir if needed. An
// empty dir selects the platform data directory.
func Open(dir string, scope Scope, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if dir == "" {
		d, err := DataDirectory()
		if err != nil {
			return nil, fmt.Errorf("failed to get data directory: %w", err)
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create whitelist directory: %w", err)
	}

	s := &Store{
		path:    filepath.Join(dir, scope.FileName()),
		scope:   scope,
		handles: make(map[string]struct{}),
		logger:  log,
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file
func (s *Store) Path() string {
	return s.path
}

// Load replaces the in-memory set with the file contents. A missing file
// is an empty whitelist. A corrupt file is logged and treated as empty.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.replace(nil)
			return nil
		}
		return fmt.Errorf("failed to read whitelist file: %w", err)
	}

	var handles []string
	if err := json.Unmarshal(data, &handles); err != nil {
		s.logger.WarnWithFields("Whitelist file is corrupt, starting empty", map[string]interface{}{
			"path":  s.path,
			"scope": string(s.scope),
			"error": err.Error(),
		})
		s.replace(nil)
		return nil
	}

	s.replace(handles)
	s.logger.DebugWithFields("Whitelist loaded", map[string]interface{}{
		"scope": string(s.scope),
		"count": len(handles),
	})
	return nil
}

func (s *Store) replace(handles []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handles = make(map[string]struct{}, len(handles))
	for _, h := range handles {
		if k := key(h); k != "" {
			s.handles[k] = struct{}{}
		}
	}
}

// Save writes the whitelist to disk atomically as a JSON array
func (s *Store) Save() error {
	data, err := json.MarshalIndent(s.List(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode whitelist: %w", err)
	}

	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary whitelist file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write whitelist: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync whitelist file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close whitelist file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace whitelist file: %w", err)
	}

	s.logger.DebugWithFields("Whitelist saved", map[string]interface{}{
		"scope": string(s.scope),
		"path":  s.path,
	})
	return nil
}

// Add protects handle and persists the change. Reports whether the handle
// was newly added.
func (s *Store) Add(handle string) (bool, error) {
	k := key(handle)
	if k == "" {
		return false, fmt.Errorf("empty handle")
	}

	s.mu.Lock()
	_, exists := s.handles[k]
	s.handles[k] = struct{}{}
	s.mu.Unlock()

	if exists {
		return false, nil
	}
	return true, s.Save()
}

// Remove unprotects handle and persists the change. Reports whether the
// handle was present.
func (s *Store) Remove(handle string) (bool, error) {
	k := key(handle)

	s.mu.Lock()
	_, exists := s.handles[k]
	delete(s.handles, k)
	s.mu.Unlock()

	if !exists {
		return false, nil
	}
	return true, s.Save()
}

// Set protects or unprotects handle depending on on
func (s *Store) Set(handle string, on bool) error {
	var err error
	if on {
		_, err = s.Add(handle)
	} else {
		_, err = s.Remove(handle)
	}
	return err
}

// Contains reports whether handle is protected, ignoring case
func (s *Store) Contains(handle string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.handles[key(handle)]
	return ok
}

// Len returns the number of protected handles
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handles)
}

// List returns the protected handles sorted
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.handles))
	for h := range s.handles {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

func key(handle string) string {
	return models.HandleKey(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
}

// DataDirectory returns the platform data directory for bskyfollow
func DataDirectory() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "bskyfollow"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		return filepath.Join(appData, "bskyfollow"), nil
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "bskyfollow"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", "bskyfollow"), nil
	}
}

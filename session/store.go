// Package session persists and restores named conversation snapshots as
// JSON files under a per-user directory.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tinkerhq/tinker/agent"
	"github.com/tinkerhq/tinker/llm"
)

// DefaultName is the session name used when the caller gives none. Every
// unnamed save overwrites it.
const DefaultName = "last"

// ErrNotFound is returned by Load when no session file exists for the name.
var ErrNotFound = errors.New("session not found")

const (
	summaryUserMessages = 3
	summaryMaxChars     = 50
)

// File is the on-disk session format.
type File struct {
	SavedAt  time.Time     `json:"savedAt"`
	Cwd      string        `json:"cwd"`
	Provider string        `json:"provider"`
	Model    string        `json:"model"`
	History  []llm.Message `json:"history"`
	Stats    agent.Stats   `json:"stats"`
	Summary  string        `json:"summary"`
}

// Snapshot is the in-memory state to persist.
type Snapshot struct {
	Cwd      string
	Provider string
	Model    string
	History  []llm.Message
	Stats    agent.Stats
}

// ListEntry describes one saved session.
type ListEntry struct {
	Name     string
	ModTime  time.Time
	SavedAt  time.Time
	Provider string
	Model    string
	Summary  string
}

// Store reads and writes session files in one directory.
type Store struct {
	dir string
}

// DefaultDir returns the per-user session directory.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "tinker", "sessions"), nil
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store's directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func validName(name string) error {
	if name == "" {
		return errors.New("session name is empty")
	}
	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return fmt.Errorf("invalid session name %q", name)
	}
	return nil
}

// Save writes a snapshot under name, generating the summary. An empty name
// uses DefaultName.
func (s *Store) Save(name string, snap Snapshot) error {
	if name == "" {
		name = DefaultName
	}
	if err := validName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	file := File{
		SavedAt:  time.Now(),
		Cwd:      snap.Cwd,
		Provider: snap.Provider,
		Model:    snap.Model,
		History:  snap.History,
		Stats:    snap.Stats,
		Summary:  Summarize(snap.History),
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(s.path(name), data, 0600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Load reads the session saved under name. A missing file yields ErrNotFound.
// Merging loaded stats into live state is the caller's concern.
func (s *Store) Load(name string) (*File, error) {
	if name == "" {
		name = DefaultName
	}
	if err := validName(name); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("read session: %w", err)
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", name, err)
	}
	return &file, nil
}

// List enumerates saved sessions sorted by modification time, newest first.
// Unparsable files stay in the listing with an empty summary rather than
// failing the whole call.
func (s *Store) List() ([]ListEntry, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var out []ListEntry
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		item := ListEntry{Name: strings.TrimSuffix(entry.Name(), ".json")}
		if info, err := entry.Info(); err == nil {
			item.ModTime = info.ModTime()
		}
		if data, err := os.ReadFile(filepath.Join(s.dir, entry.Name())); err == nil {
			var file File
			if err := json.Unmarshal(data, &file); err == nil {
				item.SavedAt = file.SavedAt
				item.Provider = file.Provider
				item.Model = file.Model
				item.Summary = file.Summary
			}
		}
		out = append(out, item)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ModTime.After(out[j].ModTime) })
	return out, nil
}

// Delete removes a saved session.
func (s *Store) Delete(name string) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := os.Remove(s.path(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Summarize derives the short human-readable summary: the last three user
// messages, each capped at 50 characters with a "..." marker when truncated,
// joined by " -> ".
func Summarize(history []llm.Message) string {
	if len(history) == 0 {
		return "Empty session"
	}

	var userMessages []string
	for _, m := range history {
		if m.Role == llm.RoleUser {
			userMessages = append(userMessages, m.Content)
		}
	}
	if len(userMessages) == 0 {
		return "No user messages"
	}

	if len(userMessages) > summaryUserMessages {
		userMessages = userMessages[len(userMessages)-summaryUserMessages:]
	}
	parts := make([]string, len(userMessages))
	for i, msg := range userMessages {
		if len(msg) > summaryMaxChars {
			msg = msg[:summaryMaxChars] + "..."
		}
		parts[i] = msg
	}
	return strings.Join(parts, " -> ")
}

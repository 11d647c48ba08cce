package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ruleFile is the on-disk shape of the rules file.
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// Store holds the live rule list. Dispatch consults Snapshot on every
// event, so edits (via Add/Remove or a file reload) take effect on the next
// hook without restart.
type Store struct {
	mu     sync.RWMutex
	rules  List
	path   string
	logger *zap.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewStore creates an empty store. Logger may be nil.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{logger: logger}
}

// Snapshot returns a copy of the current rule list, safe to iterate without
// holding the store lock.
func (s *Store) Snapshot() List {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(List, len(s.rules))
	copy(out, s.rules)
	return out
}

// Replace swaps in a new rule list.
func (s *Store) Replace(l List) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = l
}

// Add appends a rule.
func (s *Store) Add(r Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, r)
}

// Remove deletes the rule with the given id, reporting whether it existed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.rules {
		if r.ID == id {
			s.rules = append(s.rules[:i], s.rules[i+1:]...)
			return true
		}
	}
	return false
}

// LoadFile reads the YAML rules file at path into the store. A missing file
// is not an error: it yields an empty list.
func (s *Store) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.Replace(nil)
			s.mu.Lock()
			s.path = path
			s.mu.Unlock()
			return nil
		}
		return fmt.Errorf("read rules file: %w", err)
	}
	var rf ruleFile
	if err := yaml.Unmarshal(b, &rf); err != nil {
		return fmt.Errorf("parse rules file %s: %w", path, err)
	}
	s.mu.Lock()
	s.rules = rf.Rules
	s.path = path
	s.mu.Unlock()
	s.logger.Debug("rules loaded", zap.String("path", path), zap.Int("count", len(rf.Rules)))
	return nil
}

// Watch reloads the rules file whenever it changes on disk. Call Close to
// stop the watcher.
func (s *Store) Watch() error {
	s.mu.RLock()
	path := s.path
	s.mu.RUnlock()
	if path == "" {
		return fmt.Errorf("no rules file loaded")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch rules file: %w", err)
	}
	// Watch the directory: editors replace the file rather than rewrite it.
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return fmt.Errorf("watch rules dir: %w", err)
	}
	s.watcher = w
	s.done = make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Name != path {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if err := s.LoadFile(path); err != nil {
					s.logger.Warn("rules reload failed", zap.Error(err))
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Warn("rules watcher error", zap.Error(err))
			case <-s.done:
				return
			}
		}
	}()
	return nil
}

// Close stops the file watcher, if any.
func (s *Store) Close() {
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
}

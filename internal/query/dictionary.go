package query

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// dictionaryDebounce coalesces bursts of file events into one reload.
const dictionaryDebounce = 500 * time.Millisecond

// dictionaryDoc is the YAML schema of a dictionary override file.
type dictionaryDoc struct {
	Abbreviations map[string]string   `yaml:"abbreviations"`
	Synonyms      map[string][]string `yaml:"synonyms"`
}

// DictionaryFile provides abbreviation and synonym dictionaries merged
// from the built-in domain tables and an optional YAML override file.
// When watching, the file is reloaded on change and the merged maps
// swapped atomically; readers always see a complete dictionary.
type DictionaryFile struct {
	path   string
	logger *slog.Logger

	mu            sync.RWMutex
	abbreviations map[string]string
	synonyms      map[string][]string

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewDictionaryFile merges the override file at path (optional, may be
// empty or missing) over the built-in dictionaries.
func NewDictionaryFile(path string, logger *slog.Logger) (*DictionaryFile, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &DictionaryFile{
		path:   path,
		logger: logger,
	}
	if err := d.reload(); err != nil {
		return nil, err
	}
	return d, nil
}

// Abbreviations returns the current merged abbreviation dictionary.
// The returned map must not be mutated.
func (d *DictionaryFile) Abbreviations() map[string]string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.abbreviations
}

// Synonyms returns the current merged synonym dictionary.
// The returned map must not be mutated.
func (d *DictionaryFile) Synonyms() map[string][]string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.synonyms
}

// Watch starts reloading the override file on change, debounced.
// No-op when the file path is empty.
func (d *DictionaryFile) Watch() error {
	if d.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create dictionary watcher: %w", err)
	}
	if err := watcher.Add(d.path); err != nil {
		watcher.Close()
		return fmt.Errorf("watch dictionary file %s: %w", d.path, err)
	}

	d.watcher = watcher
	d.done = make(chan struct{})

	go d.watchLoop()
	return nil
}

// Close stops the watcher if one is running.
func (d *DictionaryFile) Close() error {
	if d.watcher == nil {
		return nil
	}
	close(d.done)
	return d.watcher.Close()
}

func (d *DictionaryFile) watchLoop() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-d.done:
			return
		case ev, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(dictionaryDebounce)
				timerC = timer.C
			} else {
				timer.Reset(dictionaryDebounce)
			}
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.logger.Warn("dictionary_watch_error", "error", err)
		case <-timerC:
			if err := d.reload(); err != nil {
				d.logger.Warn("dictionary_reload_failed", "path", d.path, "error", err)
				continue
			}
			d.logger.Info("dictionary_reloaded", "path", d.path)
		}
	}
}

// reload reads the override file and swaps in freshly merged maps.
func (d *DictionaryFile) reload() error {
	abbrevs := make(map[string]string, len(DomainAbbreviations))
	for k, v := range DomainAbbreviations {
		abbrevs[k] = v
	}
	synonyms := make(map[string][]string, len(DomainSynonyms))
	for k, v := range DomainSynonyms {
		synonyms[k] = v
	}

	if d.path != "" {
		data, err := os.ReadFile(d.path)
		if err != nil {
			if os.IsNotExist(err) {
				// Missing override file means built-ins only.
				data = nil
			} else {
				return fmt.Errorf("read dictionary file %s: %w", d.path, err)
			}
		}
		if len(data) > 0 {
			var doc dictionaryDoc
			if err := yaml.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("parse dictionary file %s: %w", d.path, err)
			}
			for k, v := range doc.Abbreviations {
				abbrevs[k] = v
			}
			for k, v := range doc.Synonyms {
				synonyms[k] = v
			}
		}
	}

	d.mu.Lock()
	d.abbreviations = abbrevs
	d.synonyms = synonyms
	d.mu.Unlock()
	return nil
}

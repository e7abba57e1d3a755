// Package locale holds the translation dictionaries used by the web pages.
package locale

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/text/language"

	"github.com/joescharf/tracker/internal/store"
)

// Dictionaries maps a locale code to its key -> text table.
type Dictionaries map[string]map[string]string

// Catalog serves translations. It is safe for concurrent use and can be
// reloaded while in use.
type Catalog struct {
	docs store.Store
	def  string

	mu      sync.RWMutex
	dicts   Dictionaries
	codes   []string
	order   []string
	matcher language.Matcher
}

// New creates a catalog over the locales collection. def is the locale used
// when nothing else matches.
func New(docs store.Store, def string) *Catalog {
	return &Catalog{docs: docs, def: def}
}

// Init seeds the locales document with the built-in dictionaries when it does
// not exist yet, then loads it.
func (c *Catalog) Init(ctx context.Context) error {
	exists, err := c.docs.Exists(store.Locales)
	if err != nil {
		return err
	}
	if !exists {
		if err := c.docs.Save(ctx, store.Locales, Defaults()); err != nil {
			return fmt.Errorf("seed locales: %w", err)
		}
	}
	return c.Reload(ctx)
}

// Reload reads the locales document again.
func (c *Catalog) Reload(ctx context.Context) error {
	dicts := Dictionaries{}
	if err := c.docs.Load(ctx, store.Locales, &dicts); err != nil {
		return fmt.Errorf("load locales: %w", err)
	}
	if len(dicts) == 0 {
		dicts = Defaults()
	}
	c.set(dicts)
	return nil
}

func (c *Catalog) set(dicts Dictionaries) {
	codes := make([]string, 0, len(dicts))
	for code := range dicts {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	// The matcher falls back to its first tag, so the default goes first.
	var order []string
	if _, ok := dicts[c.def]; ok {
		order = append(order, c.def)
	}
	for _, code := range codes {
		if code != c.def {
			order = append(order, code)
		}
	}
	tags := make([]language.Tag, len(order))
	for i, code := range order {
		tags[i] = language.Make(code)
	}

	c.mu.Lock()
	c.dicts = dicts
	c.codes = codes
	c.order = order
	c.matcher = language.NewMatcher(tags)
	c.mu.Unlock()
}

// Default returns the fallback locale code.
func (c *Catalog) Default() string { return c.def }

// Codes returns the available locale codes in sorted order.
func (c *Catalog) Codes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.codes...)
}

// Has reports whether locale has a dictionary.
func (c *Catalog) Has(locale string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.dicts[locale]
	return ok
}

// T translates key in locale. Unknown keys are returned unchanged.
func (c *Catalog) T(locale, key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if text, ok := c.dicts[locale][key]; ok {
		return text
	}
	return key
}

// Negotiate picks the best available locale for an Accept-Language header.
func (c *Catalog) Negotiate(acceptLanguage string) string {
	c.mu.RLock()
	m, order := c.matcher, c.order
	c.mu.RUnlock()
	if m == nil || len(order) == 0 || acceptLanguage == "" {
		return c.def
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return c.def
	}
	_, idx, conf := m.Match(tags...)
	if conf == language.No || idx < 0 || idx >= len(order) {
		return c.def
	}
	return order[idx]
}

// Watch reloads the catalog whenever the file at path changes. It blocks
// until ctx is done.
func (c *Catalog) Watch(ctx context.Context, path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch locales: %w", err)
	}
	defer w.Close()

	// Watch the directory: atomic replace swaps the file's inode.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch locales: %w", err)
	}
	name := filepath.Base(path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := c.Reload(ctx); err != nil {
				slog.Warn("locale reload failed", "err", err)
				continue
			}
			slog.Info("locales reloaded", "path", path)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("locale watcher error", "err", err)
		}
	}
}

package msgcat

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.en.yaml
var embedded []byte

// Catalog holds user-facing message templates keyed by dotted path, e.g.
// "board.outcome.rejected". Templates are compiled when loaded, and a missing
// data key at render time is an error.
type Catalog struct {
	mu   sync.RWMutex
	tpls map[string]*template.Template
}

// New loads the embedded messages, then every *.yaml / *.yml file in
// overrideDir in name order. Overrides may only replace known keys.
func New(overrideDir string) (*Catalog, error) {
	c := &Catalog{tpls: make(map[string]*template.Template)}
	base, err := flatten(embedded, "messages.en.yaml")
	if err != nil {
		return nil, err
	}
	if err := c.store(base, "messages.en.yaml"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(overrideDir) == "" {
		return c, nil
	}
	if err := c.applyDir(overrideDir); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) applyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read messages dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			if !e.IsDir() {
				names = append(names, e.Name())
			}
		}
	}
	sort.Strings(names)

	owner := make(map[string]string)
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		msgs, err := flatten(raw, name)
		if err != nil {
			return err
		}
		for key := range msgs {
			if prev, dup := owner[key]; dup {
				return fmt.Errorf("duplicate override key %q in %s and %s", key, prev, name)
			}
			if !c.has(key) {
				return fmt.Errorf("%s: unknown message key %q", name, key)
			}
			owner[key] = name
		}
		if err := c.store(msgs, name); err != nil {
			return err
		}
	}
	return nil
}

func (c *Catalog) store(msgs map[string]string, source string) error {
	compiled := make(map[string]*template.Template, len(msgs))
	for key, text := range msgs {
		t, err := template.New(key).Option("missingkey=error").Parse(text)
		if err != nil {
			return fmt.Errorf("%s: message %q: %w", source, key, err)
		}
		compiled[key] = t
	}
	c.mu.Lock()
	for key, t := range compiled {
		c.tpls[key] = t
	}
	c.mu.Unlock()
	return nil
}

func (c *Catalog) has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.tpls[key]
	return ok
}

// flatten walks a YAML document of nested mappings and returns its scalar
// leaves keyed by dotted path.
func flatten(raw []byte, source string) (map[string]string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}
	out := make(map[string]string)
	if len(doc.Content) == 0 {
		return out, nil
	}
	if err := walk(doc.Content[0], "", source, out); err != nil {
		return nil, err
	}
	return out, nil
}

func walk(n *yaml.Node, prefix, source string, out map[string]string) error {
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			if prefix != "" {
				key = prefix + "." + key
			}
			if err := walk(n.Content[i+1], key, source, out); err != nil {
				return err
			}
		}
		return nil
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil
		}
		if prefix == "" {
			return fmt.Errorf("%s:%d: message without a key", source, n.Line)
		}
		out[prefix] = n.Value
		return nil
	default:
		return fmt.Errorf("%s:%d: %s must be a string or a mapping", source, n.Line, prefix)
	}
}

// Render executes the template stored under key.
func (c *Catalog) Render(key string, data any) (string, error) {
	c.mu.RLock()
	t, ok := c.tpls[strings.TrimSpace(key)]
	c.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("message not found: %s", key)
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Text renders key and falls back to the key itself on any error, for
// status lines where a message must always be shown.
func (c *Catalog) Text(key string, data any) string {
	if c == nil {
		return key
	}
	s, err := c.Render(key, data)
	if err != nil {
		return key
	}
	return s
}

// Keys lists every message key in sorted order.
func (c *Catalog) Keys() []string {
	c.mu.RLock()
	keys := make([]string, 0, len(c.tpls))
	for k := range c.tpls {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

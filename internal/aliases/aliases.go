// Package aliases maps short model names to fully-qualified provider/model
// identifiers.
//
// A Table is parsed once from a YAML mapping of strings and never mutated
// afterwards, so it can be shared by any number of clients without locking.
package aliases

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/bimmerbailey/aicommons/internal/clienterr"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the name of the bundled alias file inside the embedded data directory.
const DefaultFile = "data/model-aliases.yaml"

//go:embed data/model-aliases.yaml
var bundled embed.FS

// ErrEmpty is the cause of the configuration error returned for a file with
// no YAML document in it.
var ErrEmpty = errors.New("model alias file is empty")

// Table is an immutable alias → qualified identifier mapping.
type Table struct {
	entries map[string]string
}

// Parse builds a Table from YAML content. The document must be a single
// mapping whose keys and values are non-empty scalars; anything else is a
// configuration error and no partial table is returned.
func Parse(data []byte) (*Table, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, clienterr.Configuration(err, "error parsing model alias file")
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, clienterr.Configuration(ErrEmpty, "invalid model alias file")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, clienterr.Configuration(nil, "model alias file content is not a mapping")
	}

	entries := make(map[string]string, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if key.Kind != yaml.ScalarNode || val.Kind != yaml.ScalarNode {
			return nil, clienterr.Configuration(nil, "alias entry at line %d is not a string pair", key.Line)
		}
		if val.Tag == "!!null" || strings.TrimSpace(val.Value) == "" {
			return nil, clienterr.Configuration(nil, "alias %q at line %d has no target", key.Value, key.Line)
		}
		if _, dup := entries[key.Value]; dup {
			return nil, clienterr.Configuration(nil, "alias %q defined twice (line %d)", key.Value, key.Line)
		}
		entries[key.Value] = strings.TrimSpace(val.Value)
	}

	return &Table{entries: entries}, nil
}

// Load reads and parses name from fsys.
func Load(fsys fs.FS, name string) (*Table, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, clienterr.Configuration(err, "error reading model alias file %s", name)
	}
	return Parse(data)
}

// LoadFile reads and parses the alias file at path.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, clienterr.Configuration(err, "error reading model alias file %s", path)
	}
	return Parse(data)
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
	defaultErr   error
)

// Default returns the bundled alias table. It is parsed on first use and
// cached for the life of the process.
func Default() (*Table, error) {
	defaultOnce.Do(func() {
		defaultTable, defaultErr = Load(bundled, DefaultFile)
	})
	return defaultTable, defaultErr
}

// New builds a Table from an in-memory map. The map is copied.
func New(entries map[string]string) *Table {
	cp := make(map[string]string, len(entries))
	for k, v := range entries {
		cp[k] = v
	}
	return &Table{entries: cp}
}

// IsQualified reports whether identifier already names a provider.
func IsQualified(identifier string) bool {
	return strings.Contains(identifier, "/")
}

// Resolve returns the fully-qualified identifier for identifier. Qualified
// identifiers are returned unchanged without consulting the table.
func (t *Table) Resolve(identifier string) (string, error) {
	if IsQualified(identifier) {
		return identifier, nil
	}
	if target, ok := t.Lookup(identifier); ok {
		return target, nil
	}
	return "", clienterr.ModelAlias(identifier)
}

// Lookup returns the target of alias without qualification checks.
func (t *Table) Lookup(alias string) (string, bool) {
	if t == nil {
		return "", false
	}
	target, ok := t.entries[alias]
	return target, ok
}

// Len returns the number of aliases.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Names returns the sorted alias names.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entries returns a copy of the underlying mapping.
func (t *Table) Entries() map[string]string {
	if t == nil {
		return map[string]string{}
	}
	cp := make(map[string]string, len(t.entries))
	for k, v := range t.entries {
		cp[k] = v
	}
	return cp
}

// Merge returns a new Table holding the entries of t overlaid with the
// entries of other. Entries in other win on conflict.
func (t *Table) Merge(other *Table) *Table {
	merged := t.Entries()
	for k, v := range other.Entries() {
		merged[k] = v
	}
	return &Table{entries: merged}
}

// WriteYAML encodes the table as a YAML mapping with sorted keys.
func (t *Table) WriteYAML(w io.Writer) error {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range t.Names() {
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: name},
			&yaml.Node{Kind: yaml.ScalarNode, Value: t.entries[name]},
		)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("encode aliases: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode aliases: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

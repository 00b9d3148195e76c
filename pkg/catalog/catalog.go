// Package catalog loads the buyer-facing copy of the checkout: validation
// messages per field and the success/failure notification templates.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-checkout/pkg/model"
)

// Notification kinds understood by the catalog.
const (
	KindSuccess = "success"
	KindFailure = "failure"
)

// Copy is a notification template pair. Both strings may use pongo2
// placeholders such as {{ reason }}.
type Copy struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// Catalog is the resolved copy set.
type Catalog struct {
	fields        map[model.FieldName]string
	notifications map[string]Copy
}

type documentFile struct {
	Fields        map[string]string `yaml:"fields"`
	Notifications map[string]Copy   `yaml:"notifications"`
}

// Load reads path from fsys and layers it over the bundled defaults.
func Load(fsys fs.FS, path string) (*Catalog, error) {
	if fsys == nil {
		return nil, errors.New("catalog: filesystem is nil")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse layers a YAML document over the bundled defaults. source only labels
// errors.
func Parse(data []byte, source string) (*Catalog, error) {
	cat := Default()
	if err := cat.merge(data, source); err != nil {
		return nil, err
	}
	return cat, nil
}

// Messages returns the validation message per field.
func (c *Catalog) Messages() map[model.FieldName]string {
	out := make(map[model.FieldName]string, len(c.fields))
	for field, msg := range c.fields {
		out[field] = msg
	}
	return out
}

// Message returns the validation message for field.
func (c *Catalog) Message(field model.FieldName) (string, bool) {
	msg, ok := c.fields[field]
	return msg, ok
}

// Notification returns the copy for kind.
func (c *Catalog) Notification(kind string) (Copy, bool) {
	cp, ok := c.notifications[kind]
	return cp, ok
}

func (c *Catalog) merge(data []byte, source string) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("catalog: file %s is empty", source)
	}

	var doc documentFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("catalog: parse %s: %w", source, err)
	}

	if c.fields == nil {
		c.fields = make(map[model.FieldName]string)
	}
	if c.notifications == nil {
		c.notifications = make(map[string]Copy)
	}

	for key, msg := range doc.Fields {
		field, err := model.ParseFieldName(key)
		if err != nil {
			return fmt.Errorf("catalog: file %s: %w", source, err)
		}
		if msg = strings.TrimSpace(msg); msg != "" {
			c.fields[field] = msg
		}
	}

	for key, cp := range doc.Notifications {
		kind := strings.ToLower(strings.TrimSpace(key))
		if kind != KindSuccess && kind != KindFailure {
			return fmt.Errorf("catalog: file %s: unknown notification kind %q", source, key)
		}
		current := c.notifications[kind]
		if title := strings.TrimSpace(cp.Title); title != "" {
			current.Title = title
		}
		if desc := strings.TrimSpace(cp.Description); desc != "" {
			current.Description = desc
		}
		c.notifications[kind] = current
	}
	return nil
}

func (c *Catalog) clone() *Catalog {
	out := &Catalog{
		fields:        make(map[model.FieldName]string, len(c.fields)),
		notifications: make(map[string]Copy, len(c.notifications)),
	}
	for k, v := range c.fields {
		out.fields[k] = v
	}
	for k, v := range c.notifications {
		out.notifications[k] = v
	}
	return out
}

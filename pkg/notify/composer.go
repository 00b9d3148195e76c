package notify

import (
	"fmt"
	"html"
	"io"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	gotemplate "github.com/goliatone/go-template"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-checkout/pkg/catalog"
	"github.com/goliatone/go-checkout/pkg/model"
)

// Data is what notification templates can reference as email, method,
// receipt_id and reason.
type Data struct {
	Email     string
	Method    model.PaymentMethod
	ReceiptID string
	Reason    string
}

func (d Data) context() map[string]any {
	method := ""
	if d.Method != "" {
		method = d.Method.Label()
	}
	return map[string]any{
		"email":      plainText(d.Email),
		"method":     method,
		"receipt_id": plainText(d.ReceiptID),
		"reason":     plainText(d.Reason),
	}
}

type stringRenderer interface {
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
}

type compiled struct {
	raw         catalog.Copy
	title       string
	description string
}

// Composer renders notification copy from a catalog.
type Composer struct {
	renderer  stringRenderer
	templates map[Kind]compiled
}

// NewComposer checks the notification templates of cat and prepares a
// go-template renderer rooted at the catalog files. A nil catalog uses
// catalog.Default().
func NewComposer(cat *catalog.Catalog) (*Composer, error) {
	if cat == nil {
		cat = catalog.Default()
	}
	renderer, err := gotemplate.NewRenderer(gotemplate.WithFS(catalog.FS()))
	if err != nil {
		return nil, fmt.Errorf("notify: template renderer: %w", err)
	}
	c := &Composer{renderer: renderer, templates: make(map[Kind]compiled, 2)}
	for _, kind := range []Kind{KindSuccess, KindFailure} {
		cp, ok := cat.Notification(string(kind))
		if !ok {
			return nil, fmt.Errorf("notify: catalog has no %s copy", kind)
		}
		title, err := compile(cp.Title)
		if err != nil {
			return nil, fmt.Errorf("notify: %s title: %w", kind, err)
		}
		desc, err := compile(cp.Description)
		if err != nil {
			return nil, fmt.Errorf("notify: %s description: %w", kind, err)
		}
		c.templates[kind] = compiled{raw: cp, title: title, description: desc}
	}
	return c, nil
}

// DefaultComposer renders the bundled copy.
func DefaultComposer() *Composer {
	c, err := NewComposer(nil)
	if err != nil {
		panic(err)
	}
	return c
}

// Compose renders the notification for kind.
func (c *Composer) Compose(kind Kind, data Data) (Notification, error) {
	tpl, ok := c.templates[kind]
	if !ok {
		return Notification{}, fmt.Errorf("notify: unknown kind %q", kind)
	}
	ctx := data.context()
	title, err := c.renderer.RenderString(tpl.title, ctx)
	if err != nil {
		return Notification{}, fmt.Errorf("notify: render %s title: %w", kind, err)
	}
	desc, err := c.renderer.RenderString(tpl.description, ctx)
	if err != nil {
		return Notification{}, fmt.Errorf("notify: render %s description: %w", kind, err)
	}
	return Notification{
		Kind:        kind,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(desc),
	}, nil
}

// Success renders the success notification, falling back to the raw catalog
// copy when rendering fails.
func (c *Composer) Success(data Data) Notification {
	return c.composeOrRaw(KindSuccess, data)
}

// Failure renders the failure notification. The reason is used verbatim as
// the description if rendering fails.
func (c *Composer) Failure(data Data) Notification {
	n := c.composeOrRaw(KindFailure, data)
	if n.Description == "" {
		n.Description = plainText(data.Reason)
	}
	return n
}

func (c *Composer) composeOrRaw(kind Kind, data Data) Notification {
	n, err := c.Compose(kind, data)
	if err == nil {
		return n
	}
	raw := c.templates[kind].raw
	return Notification{Kind: kind, Title: raw.Title}
}

// compile wraps src so interpolated values are not HTML escaped and parses
// it once to reject broken copy at construction.
func compile(src string) (string, error) {
	// Output goes to a terminal or a JSON payload, never straight into HTML.
	wrapped := "{% autoescape off %}" + src + "{% endautoescape %}"
	if _, err := pongo2.FromString(wrapped); err != nil {
		return "", err
	}
	return wrapped, nil
}

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// plainText strips markup from gateway or user supplied text before it is
// interpolated.
func plainText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(trimmed)))
}

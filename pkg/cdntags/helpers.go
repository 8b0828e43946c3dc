package cdntags

import (
	"fmt"
	"html/template"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Kind identifies the mapping an asset is looked up in.
type Kind string

const (
	Script     Kind = "javascript"
	Stylesheet Kind = "stylesheet"
)

func (k Kind) String() string {
	return string(k)
}

// ParseKind maps "javascript"/"script"/"js" and "stylesheet"/"css" to a Kind.
func ParseKind(raw string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "javascript", "script", "js":
		return Script, true
	case "stylesheet", "css":
		return Stylesheet, true
	default:
		return "", false
	}
}

type assetKind struct {
	kind Kind
	ext  string
	urls func(*Configuration) map[string]string
	path func(PathResolver, string) string
	node func(src string) *html.Node
}

var scriptKind = assetKind{
	kind: Script,
	ext:  ".js",
	urls: func(c *Configuration) map[string]string { return c.ScriptURLs },
	path: func(r PathResolver, name string) string { return r.JavascriptPath(name) },
	node: func(src string) *html.Node {
		return &html.Node{
			Type:     html.ElementNode,
			DataAtom: atom.Script,
			Data:     atom.Script.String(),
			Attr:     []html.Attribute{{Key: "src", Val: src}},
		}
	},
}

var stylesheetKind = assetKind{
	kind: Stylesheet,
	ext:  ".css",
	urls: func(c *Configuration) map[string]string { return c.StylesheetURLs },
	path: func(r PathResolver, name string) string { return r.StylesheetPath(name) },
	node: func(src string) *html.Node {
		return &html.Node{
			Type:     html.ElementNode,
			DataAtom: atom.Link,
			Data:     atom.Link.String(),
			Attr: []html.Attribute{
				{Key: "rel", Val: "stylesheet"},
				{Key: "media", Val: "screen"},
				{Key: "href", Val: src},
			},
		}
	},
}

var kinds = []assetKind{scriptKind, stylesheetKind}

func kindFor(k Kind) (assetKind, error) {
	switch k {
	case Script:
		return scriptKind, nil
	case Stylesheet:
		return stylesheetKind, nil
	default:
		return assetKind{}, fmt.Errorf("%w: %q", ErrUnknownKind, string(k))
	}
}

// tag serializes the element for src; attribute values are escaped by the renderer.
func (k assetKind) tag(src string) (string, error) {
	var b strings.Builder
	if err := html.Render(&b, k.node(src)); err != nil {
		return "", fmt.Errorf("render %s tag: %w", k.kind, err)
	}
	return b.String(), nil
}

// Asset is a single resolved asset: where its tag points and the tag itself.
type Asset struct {
	Name      string
	Kind      Kind
	URL       string
	Tag       template.HTML
	CDNActive bool
}

// JavascriptIncludeTag renders a script tag per name, joined by newlines.
func (t *Tags) JavascriptIncludeTag(names ...string) (template.HTML, error) {
	return t.renderTags(scriptKind, names)
}

// StylesheetLinkTag renders a stylesheet link tag per name, joined by newlines.
func (t *Tags) StylesheetLinkTag(names ...string) (template.HTML, error) {
	return t.renderTags(stylesheetKind, names)
}

// JavascriptURL returns the URL a script tag for name would point at.
func (t *Tags) JavascriptURL(name string) (string, error) {
	src, _, err := t.source(scriptKind, name)
	return src, err
}

// StylesheetURL returns the URL a stylesheet tag for name would point at.
func (t *Tags) StylesheetURL(name string) (string, error) {
	src, _, err := t.source(stylesheetKind, name)
	return src, err
}

// Tag renders a single tag of the given kind.
func (t *Tags) Tag(kind Kind, name string) (template.HTML, error) {
	k, err := kindFor(kind)
	if err != nil {
		return "", err
	}
	return t.renderTags(k, []string{name})
}

// URL resolves the source of a single asset of the given kind.
func (t *Tags) URL(kind Kind, name string) (string, error) {
	k, err := kindFor(kind)
	if err != nil {
		return "", err
	}
	src, _, err := t.source(k, name)
	return src, err
}

// Resolve returns the URL and tag for name, both derived from one read of
// the configuration.
func (t *Tags) Resolve(kind Kind, name string) (Asset, error) {
	k, err := kindFor(kind)
	if err != nil {
		return Asset{}, err
	}
	src, active, err := t.source(k, name)
	if err != nil {
		return Asset{}, err
	}
	tag, err := k.tag(src)
	if err != nil {
		return Asset{}, err
	}
	return Asset{
		Name:      name,
		Kind:      k.kind,
		URL:       src,
		Tag:       template.HTML(tag),
		CDNActive: active,
	}, nil
}

func (t *Tags) renderTags(k assetKind, names []string) (template.HTML, error) {
	tags := make([]string, 0, len(names))
	for _, name := range names {
		src, _, err := t.source(k, name)
		if err != nil {
			return "", err
		}
		tag, err := k.tag(src)
		if err != nil {
			return "", err
		}
		tags = append(tags, tag)
	}
	return template.HTML(strings.Join(tags, "\n")), nil
}

func (t *Tags) source(k assetKind, name string) (string, bool, error) {
	t.mu.RLock()
	active := t.cfg.CDNActive()
	url, mapped := k.urls(&t.cfg)[name]
	raise := t.cfg.ShouldRaise()
	env := t.cfg.Environment
	t.mu.RUnlock()

	if !active {
		return k.path(t.resolver, name), false, nil
	}
	if mapped {
		return url, true, nil
	}
	if raise {
		t.logger.Warn("missing cdn asset mapping",
			zap.String("asset", name),
			zap.Stringer("kind", k.kind),
			zap.Stringer("environment", env),
		)
		return "", true, &MissingAssetError{Asset: name, Kind: k.kind}
	}

	t.logger.Debug("cdn asset not mapped, using local path",
		zap.String("asset", name),
		zap.Stringer("kind", k.kind),
	)
	return k.path(t.resolver, name), true, nil
}

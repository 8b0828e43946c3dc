package cdntags

import (
	"strings"
)

// DefaultAssetPrefix is the URL prefix StaticResolver uses when none is set.
const DefaultAssetPrefix = "/assets"

// PathResolver maps a logical asset name to the host's local URL for it.
type PathResolver interface {
	JavascriptPath(name string) string
	StylesheetPath(name string) string
}

// StaticResolver resolves assets under a URL prefix, optionally inserting a
// fingerprint digest before the extension.
type StaticResolver struct {
	Prefix  string
	Digests map[string]string
}

// NewStaticResolver creates a resolver rooted at prefix.
func NewStaticResolver(prefix string, digests map[string]string) *StaticResolver {
	return &StaticResolver{Prefix: prefix, Digests: digests}
}

func (r *StaticResolver) JavascriptPath(name string) string {
	return r.path(name, ".js")
}

func (r *StaticResolver) StylesheetPath(name string) string {
	return r.path(name, ".css")
}

func (r *StaticResolver) path(name, ext string) string {
	if isAbsoluteURL(name) {
		return name
	}

	base := strings.TrimSuffix(name, ext)
	if digest := r.Digests[base]; digest != "" {
		base += "-" + digest
	}

	prefix := r.Prefix
	if prefix == "" {
		prefix = DefaultAssetPrefix
	}
	if strings.HasPrefix(base, "/") {
		return base + ext
	}
	return strings.TrimSuffix(prefix, "/") + "/" + base + ext
}

func isAbsoluteURL(name string) bool {
	return strings.HasPrefix(name, "//") ||
		strings.HasPrefix(name, "http://") ||
		strings.HasPrefix(name, "https://")
}

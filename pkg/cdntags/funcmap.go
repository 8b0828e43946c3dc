package cdntags

import "html/template"

// FuncMap exposes the helpers to html/template. A missing mapping error aborts
// template execution.
func (t *Tags) FuncMap() template.FuncMap {
	return template.FuncMap{
		"javascript_cdn_include_tag": t.JavascriptIncludeTag,
		"stylesheet_cdn_link_tag":    t.StylesheetLinkTag,
		"javascript_cdn_url":         t.JavascriptURL,
		"stylesheet_cdn_url":         t.StylesheetURL,
	}
}

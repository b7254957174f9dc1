// Package sanitize reduces untrusted rich text from the editor to a fixed,
// safe HTML subset.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	structuralElements = []string{
		"p", "br", "b", "strong", "i", "em", "u",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li", "blockquote", "div", "span",
	}

	// Elements whose content is dropped along with the tag. Void elements
	// such as embed must not be listed: they have no end tag to stop the skip.
	deniedElements = []string{"script", "style", "object", "applet", "noscript", "template"}

	classNames = regexp.MustCompile(`^[a-zA-Z0-9_\- ]{1,64}$`)
	dimension  = regexp.MustCompile(`^[0-9]{1,4}%?$`)
	colorValue = regexp.MustCompile(`^(#[0-9a-fA-F]{3,6}|[a-zA-Z]{3,20})$`)
	alignValue = regexp.MustCompile(`^(left|right|center|justify)$`)
)

// Sanitizer wraps an allow-list policy. A zero Sanitizer is not usable,
// construct it with New.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func New() *Sanitizer {
	return &Sanitizer{policy: newPolicy()}
}

func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	p.AllowElements(structuralElements...)

	// An anchor whose href is stripped stays as a bare <a> with its text.
	p.AllowAttrs("href").OnElements("a")
	p.AllowNoAttrs().OnElements("a")
	p.RequireNoFollowOnLinks(true)

	p.AllowAttrs("src").OnElements("img", "iframe")
	p.AllowAttrs("alt").Matching(bluemonday.Paragraph).OnElements("img")
	p.AllowAttrs("width", "height").Matching(dimension).OnElements("img", "iframe")
	p.AllowAttrs("allowfullscreen").Matching(regexp.MustCompile(`^(|allowfullscreen|true)$`)).OnElements("iframe")

	p.AllowAttrs("class").Matching(classNames).OnElements("div", "span")
	p.AllowStyles("text-align").Matching(alignValue).OnElements("p", "div", "span")
	p.AllowStyles("color").Matching(colorValue).OnElements("span")

	// Hard denylist layered over the allow-list: links and sources may only
	// use these schemes, so javascript:, vbscript: and data: never survive.
	p.AllowURLSchemes("http", "https", "mailto")
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(true)

	p.SkipElementsContent(deniedElements...)

	return p
}

// Sanitize never fails; input that cannot be kept is stripped.
// Sanitize(Sanitize(x)) == Sanitize(x).
func (s *Sanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}

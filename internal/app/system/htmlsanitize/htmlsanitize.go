// Package htmlsanitize cleans user-supplied organization descriptions before
// they are stored or rendered.
//
// Descriptions are short rich-text blurbs, so the policy is deliberately narrow:
// paragraphs, line breaks, inline emphasis, lists, blockquotes and http(s)/mailto
// links. Everything else is stripped.
package htmlsanitize

import (
	"html"
	"html/template"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

func descriptionPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.NewPolicy()
		p.AllowElements("p", "br", "strong", "em", "b", "i", "u", "ul", "ol", "li", "blockquote", "code")
		p.AllowAttrs("href").OnElements("a")
		p.AllowURLSchemes("http", "https", "mailto")
		p.RequireParseableURLs(true)
		p.RequireNoFollowOnLinks(true)
		p.AddTargetBlankToFullyQualifiedLinks(true)
		policy = p
	})
	return policy
}

// Sanitize returns s with every disallowed element and attribute removed.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return descriptionPolicy().Sanitize(s)
}

// IsPlainText reports whether s contains no markup at all.
func IsPlainText(s string) bool {
	return !(strings.Contains(s, "<") && strings.Contains(s, ">"))
}

// PlainTextToHTML escapes s and wraps it in a paragraph, turning newlines into <br>.
func PlainTextToHTML(s string) string {
	if s == "" {
		return ""
	}
	escaped := html.EscapeString(strings.ReplaceAll(s, "\r\n", "\n"))
	return "<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>"
}

// PrepareForDisplay converts a stored description into safe template HTML.
func PrepareForDisplay(s string) template.HTML {
	if s == "" {
		return ""
	}
	if IsPlainText(s) {
		return template.HTML(PlainTextToHTML(s))
	}
	return template.HTML(Sanitize(s))
}

// PlainText strips every tag from s and unescapes entities.
func PlainText(s string) string {
	return html.UnescapeString(bluemonday.StrictPolicy().Sanitize(s))
}

// TextLength returns the number of visible characters in s after tags are removed.
// Used to enforce description length limits on what the reader actually sees.
func TextLength(s string) int {
	return len([]rune(PlainText(s)))
}

package scrape

import "strings"

// CareerKeywords are matched case-insensitively against a link's href and
// anchor text. Callers must treat the slice as read-only.
var CareerKeywords = []string{
	"career",
	"careers",
	"jobs",
	"join",
	"join-us",
	"work-with-us",
	"we-are-hiring",
	"vacancy",
	"hiring",
	"openings",
	"recruit",
}

// IsCareerLink reports whether a hyperlink plausibly points at a careers page.
// A link is accepted when any keyword occurs in the lower-cased href or anchor
// text, or in any "/"-separated segment of the href's path.
func IsCareerLink(href, text string) bool {
	href = strings.ToLower(href)
	text = strings.ToLower(text)

	for _, kw := range CareerKeywords {
		if strings.Contains(href, kw) || strings.Contains(text, kw) {
			return true
		}
	}

	// Every segment is a substring of href, so this never accepts a link the
	// loop above rejected. Kept so the segment rule stays explicit.
	for _, part := range strings.Split(strings.Trim(href, "/"), "/") {
		for _, kw := range CareerKeywords {
			if strings.Contains(part, kw) {
				return true
			}
		}
	}
	return false
}

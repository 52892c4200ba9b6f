package ghclient

import "strings"

// HasNextPage reports whether a Link header (RFC 8288, as sent by GitHub) announces a next page.
// Only the rel="next" marker counts; the page size of the payload is not trusted.
func HasNextPage(linkHeaders []string) bool {
	for _, header := range linkHeaders {
		for _, link := range strings.Split(header, ",") {
			segments := strings.Split(link, ";")
			for _, param := range segments[1:] {
				param = strings.TrimSpace(param)
				name, value, ok := strings.Cut(param, "=")
				if !ok || !strings.EqualFold(strings.TrimSpace(name), "rel") {
					continue
				}
				for _, rel := range strings.Fields(strings.Trim(strings.TrimSpace(value), `"`)) {
					if strings.EqualFold(rel, "next") {
						return true
					}
				}
			}
		}
	}
	return false
}

package util

import "strings"

func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

// NormalizeDomain turns a cell value into a bare host. It strips whitespace,
// an accidental scheme prefix and trailing slashes; it does not touch "www."
// or the path beyond that, and reports false for values that cannot be a host.
func NormalizeDomain(d string) (string, bool) {
	d = strings.TrimSpace(d)
	low := strings.ToLower(d)
	for _, p := range []string{"https://", "http://"} {
		if strings.HasPrefix(low, p) {
			d = d[len(p):]
			break
		}
	}
	d = strings.TrimRight(d, "/")
	if d == "" || strings.ContainsAny(d, " \t\r\n") {
		return "", false
	}
	return d, true
}

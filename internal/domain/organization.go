package domain

// Organization is one input row: an opaque id, a display name and the
// candidate web domains to probe, in input order.
type Organization struct {
	ID      string
	Name    string
	Domains []string
}

// Pairs returns the number of (organization, domain) work units in orgs.
func Pairs(orgs []Organization) int {
	n := 0
	for _, o := range orgs {
		n += len(o.Domains)
	}
	return n
}

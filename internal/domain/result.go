package domain

import "fmt"

// NotFound is written to careers_page_url when no careers link was found.
const NotFound = "Not Found"

// Columns is the fixed header of the exported result table.
var Columns = []string{"id", "company_name", "domain", "careers_page_url"}

type Row struct {
	ID             string `json:"id"`
	CompanyName    string `json:"company_name"`
	Domain         string `json:"domain"`
	CareersPageURL string `json:"careers_page_url"`
}

func (r Row) Found() bool { return r.CareersPageURL != "" && r.CareersPageURL != NotFound }

// Record returns the row in Columns order.
func (r Row) Record() []string {
	return []string{r.ID, r.CompanyName, r.Domain, r.CareersPageURL}
}

// LogLine is a progress message attributed to one (organization, domain) pair.
type LogLine struct {
	Index   int    `json:"index"`
	Company string `json:"company"`
	Domain  string `json:"domain"`
	Text    string `json:"text"`
}

func (l LogLine) String() string {
	return fmt.Sprintf("[#%d %s/%s] %s", l.Index, l.Company, l.Domain, l.Text)
}

// Outcome is the product of one batch run. Rows are in input order; Logs are
// in emission order, which may interleave across pairs when running concurrently.
type Outcome struct {
	Rows      []Row     `json:"rows"`
	Logs      []LogLine `json:"logs"`
	Total     int       `json:"total"`
	Found     int       `json:"found"`
	Cancelled bool      `json:"cancelled"`
}

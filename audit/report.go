package audit

// Advisory is the condensed view of a vulnerability printed per package.
type Advisory struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Fixed   string `json:"fixed,omitempty"`
}

func (r Result) Advisories() map[string][]Advisory {
	out := make(map[string][]Advisory, len(r))
	for purl, vulns := range r {
		list := make([]Advisory, 0, len(vulns))
		for _, v := range vulns {
			fixed, _ := v.FixedVersion()
			list = append(list, Advisory{ID: v.ID, Summary: v.Summary, Fixed: fixed})
		}
		out[purl] = list
	}
	return out
}

// VulnerablePurls lists the affected purls in the order the tree listed them.
func (r *Report) VulnerablePurls() []string {
	var purls []string
	seen := make(map[string]bool)
	for _, c := range r.Coordinates {
		purl := c.Purl()
		if seen[purl] {
			continue
		}
		seen[purl] = true
		if _, ok := r.Vulnerable[purl]; ok {
			purls = append(purls, purl)
		}
	}
	return purls
}

// Summary is the serialised form of a report.
type Summary struct {
	Packages   int                   `json:"packages"`
	Vulnerable map[string][]Advisory `json:"vulnerable"`
}

func (r *Report) Summary() Summary {
	return Summary{Packages: len(r.Coordinates), Vulnerable: r.Vulnerable.Advisories()}
}

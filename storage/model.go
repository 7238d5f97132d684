package storage

type Finding struct {
	Purl            string `json:"purl"`
	VulnerabilityID string `json:"id"`
	Position        int    `json:"-"`
	Summary         string `json:"summary,omitempty"`
	FixedVersion    string `json:"fixed,omitempty"`
}

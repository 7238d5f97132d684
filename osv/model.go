package osv

import (
	"errors"
	"time"
)

var ErrMissingID = errors.New("vulnerability record has no id")

// Query selects a package for the batch endpoint. Unset fields are omitted
// from the request body.
type Query struct {
	Package   *Package `json:"package,omitempty"`
	Version   string   `json:"version,omitempty"`
	Commit    string   `json:"commit,omitempty"`
	PageToken string   `json:"page_token,omitempty"`
}

type Package struct {
	Name      string `json:"name,omitempty"`
	Ecosystem string `json:"ecosystem,omitempty"`
	Purl      string `json:"purl,omitempty"`
}

func PurlQuery(purl string) Query {
	return Query{Package: &Package{Purl: purl}}
}

type BatchQueryRequest struct {
	Queries []Query `json:"queries"`
}

type VulnerabilityRef struct {
	ID       string    `json:"id"`
	Modified time.Time `json:"modified,omitempty"`
}

type BatchQueryResult struct {
	Vulns         []VulnerabilityRef `json:"vulns"`
	NextPageToken string             `json:"next_page_token,omitempty"`
}

type BatchQueryResponse struct {
	Results []BatchQueryResult `json:"results"`
}

type Vulnerability struct {
	ID        string     `json:"id"`
	Summary   string     `json:"summary,omitempty"`
	Details   string     `json:"details,omitempty"`
	Aliases   []string   `json:"aliases,omitempty"`
	Modified  time.Time  `json:"modified"`
	Published time.Time  `json:"published,omitempty"`
	Affected  []Affected `json:"affected,omitempty"`
}

type Affected struct {
	Package  Package  `json:"package"`
	Ranges   []Range  `json:"ranges,omitempty"`
	Versions []string `json:"versions,omitempty"`
}

type Range struct {
	Type   string  `json:"type"`
	Repo   string  `json:"repo,omitempty"`
	Events []Event `json:"events"`
}

// Event holds exactly one of its fields in well-formed records. Fixed is a
// pointer so a present but empty "fixed" key still counts as a fix event.
type Event struct {
	Introduced   string  `json:"introduced,omitempty"`
	Fixed        *string `json:"fixed,omitempty"`
	LastAffected string  `json:"last_affected,omitempty"`
	Limit        string  `json:"limit,omitempty"`
}

func (v *Vulnerability) Validate() error {
	if v.ID == "" {
		return ErrMissingID
	}
	return nil
}

// FixedVersion returns the first fixed event found walking affected, ranges
// and events in order. Later fixes for other branches are not considered.
func (v *Vulnerability) FixedVersion() (string, bool) {
	for _, affected := range v.Affected {
		for _, r := range affected.Ranges {
			for _, event := range r.Events {
				if event.Fixed != nil {
					return *event.Fixed, true
				}
			}
		}
	}
	return "", false
}

package depsdev

import "time"

type VersionKey struct {
	System  string `json:"system"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

type PackageKey struct {
	System string `json:"system"`
	Name   string `json:"name"`
}

type ProjectKey struct {
	ID string `json:"id"`
}

type AdvisoryKey struct {
	ID string `json:"id"`
}

type RelatedProject struct {
	ProjectKey         ProjectKey `json:"projectKey"`
	RelationType       string     `json:"relationType"`
	RelationProvenance string     `json:"relationProvenance,omitempty"`
}

type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

type PackageVersion struct {
	VersionKey  VersionKey `json:"versionKey"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	IsDefault   bool       `json:"isDefault"`
}

type Package struct {
	PackageKey PackageKey       `json:"packageKey"`
	Versions   []PackageVersion `json:"versions"`
}

// DefaultVersion returns the version deps.dev marks as default, if any.
func (p *Package) DefaultVersion() (string, bool) {
	for _, v := range p.Versions {
		if v.IsDefault {
			return v.VersionKey.Version, true
		}
	}
	return "", false
}

type Version struct {
	VersionKey      VersionKey       `json:"versionKey"`
	PublishedAt     *time.Time       `json:"publishedAt,omitempty"`
	IsDefault       bool             `json:"isDefault"`
	Licenses        []string         `json:"licenses,omitempty"`
	AdvisoryKeys    []AdvisoryKey    `json:"advisoryKeys,omitempty"`
	Links           []Link           `json:"links,omitempty"`
	RelatedProjects []RelatedProject `json:"relatedProjects,omitempty"`
}

type Advisory struct {
	AdvisoryKey AdvisoryKey `json:"advisoryKey"`
	URL         string      `json:"url"`
	Title       string      `json:"title"`
	Aliases     []string    `json:"aliases,omitempty"`
	CVSS3Score  float64     `json:"cvss3Score"`
	CVSS3Vector string      `json:"cvss3Vector,omitempty"`
}

type Scorecard struct {
	Date         string  `json:"date,omitempty"`
	OverallScore float64 `json:"overallScore"`
}

type Project struct {
	ProjectKey      ProjectKey `json:"projectKey"`
	OpenIssuesCount int        `json:"openIssuesCount,omitempty"`
	StarsCount      int        `json:"starsCount,omitempty"`
	ForksCount      int        `json:"forksCount,omitempty"`
	License         string     `json:"license,omitempty"`
	Description     string     `json:"description,omitempty"`
	Homepage        string     `json:"homepage,omitempty"`
	Scorecard       *Scorecard `json:"scorecard,omitempty"`
}

// PurlLookupResult carries Package for versionless purls and Version otherwise.
type PurlLookupResult struct {
	Purl    string   `json:"purl"`
	Package *Package `json:"package,omitempty"`
	Version *Version `json:"version,omitempty"`
}

type versionRequest struct {
	VersionKey VersionKey `json:"versionKey"`
}

type versionBatchRequest struct {
	Requests  []versionRequest `json:"requests"`
	PageToken string           `json:"pageToken,omitempty"`
}

type versionBatchResponse struct {
	Responses []struct {
		Request versionRequest `json:"request"`
		Version *Version       `json:"version,omitempty"`
	} `json:"responses"`
	NextPageToken string `json:"nextPageToken,omitempty"`
}

type ScorecardInfo struct {
	SourceRepo   string
	OpenSSFScore *float64
}

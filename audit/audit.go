package audit

import (
	"context"
	"errors"
	"fmt"

	"mvn-audit/mvn"
	"mvn-audit/osv"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var ErrLookupInconsistency = errors.New("vulnerability id missing from fetched records")

type VulnerabilityAPI interface {
	QueryBatch(ctx context.Context, purls []string) ([][]string, error)
	GetVulnerability(ctx context.Context, id string) (*osv.Vulnerability, error)
}

type Storage interface {
	GetVulnerabilitiesMap(ctx context.Context, ids []string) (map[string]osv.Vulnerability, error)
	UpsertVulnerabilities(ctx context.Context, vulns []osv.Vulnerability) error
	ReplaceFindings(ctx context.Context, purls []string, result map[string][]osv.Vulnerability) error
	ListVulnerabilityIDs(ctx context.Context) ([]string, error)
}

// Result maps a purl to its vulnerabilities. Purls without any are absent.
type Result map[string][]osv.Vulnerability

type Report struct {
	Coordinates []mvn.PackageCoordinate `json:"coordinates"`
	Vulnerable  Result                  `json:"vulnerable"`
}

// Auditor correlates packages with vulnerability records. Store is optional;
// without it every record is fetched and nothing is persisted.
type Auditor struct {
	API           VulnerabilityAPI
	Store         Storage
	Log           *logrus.Logger
	MaxConcurrent int
}

// Audit parses dependency-tree output and correlates every listed package.
func (a *Auditor) Audit(ctx context.Context, lines []string) (*Report, error) {
	coords, err := mvn.ParseDependencyTree(lines)
	if err != nil {
		return nil, err
	}
	a.Log.Infof("Analysing %d packages", len(coords))

	purls := mvn.Purls(coords)
	result, err := a.Correlate(ctx, purls)
	if err != nil {
		a.Log.WithError(err).Error("failed to correlate vulnerabilities")
		return nil, err
	}
	a.Log.Infof("Found %d packages with advisories", len(result))

	if a.Store != nil {
		if err := a.Store.ReplaceFindings(ctx, purls, result); err != nil {
			a.Log.WithError(err).Error("failed to store findings")
			return nil, err
		}
	}

	return &Report{Coordinates: coords, Vulnerable: result}, nil
}

// Correlate runs one batch existence query for purls, fetches every distinct
// vulnerability once and groups the records per purl in query order.
func (a *Auditor) Correlate(ctx context.Context, purls []string) (Result, error) {
	if len(purls) == 0 {
		return Result{}, nil
	}

	idLists, err := a.API.QueryBatch(ctx, purls)
	if err != nil {
		return nil, err
	}
	if len(idLists) != len(purls) {
		return nil, fmt.Errorf("batch query returned %d results for %d purls", len(idLists), len(purls))
	}

	var ids []string
	seen := make(map[string]bool)
	for _, list := range idLists {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return Result{}, nil
	}

	records, err := a.records(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make(Result)
	for i, purl := range purls {
		if len(idLists[i]) == 0 {
			continue
		}
		vulns := make([]osv.Vulnerability, 0, len(idLists[i]))
		for _, id := range idLists[i] {
			v, ok := records[id]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrLookupInconsistency, id)
			}
			vulns = append(vulns, v)
		}
		result[purl] = vulns
	}

	return result, nil
}

// records resolves ids from the cache first and fetches the rest.
func (a *Auditor) records(ctx context.Context, ids []string) (map[string]osv.Vulnerability, error) {
	lookup := make(map[string]osv.Vulnerability, len(ids))

	missing := ids
	if a.Store != nil {
		cached, err := a.Store.GetVulnerabilitiesMap(ctx, ids)
		if err != nil {
			a.Log.WithError(err).Warn("vulnerability cache unavailable, fetching all records")
		} else {
			missing = missing[:0:0]
			for _, id := range ids {
				if v, ok := cached[id]; ok {
					lookup[id] = v
				} else {
					missing = append(missing, id)
				}
			}
			a.Log.Debugf("%d of %d vulnerabilities served from cache", len(lookup), len(ids))
		}
	}

	fetched, err := a.fetch(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, v := range fetched {
		lookup[v.ID] = v
	}

	if a.Store != nil && len(fetched) > 0 {
		if err := a.Store.UpsertVulnerabilities(ctx, fetched); err != nil {
			a.Log.WithError(err).Warn("failed to cache vulnerabilities")
		}
	}

	return lookup, nil
}

// fetch retrieves one record per id concurrently. The first failure cancels
// the remaining fetches and is returned.
func (a *Auditor) fetch(ctx context.Context, ids []string) ([]osv.Vulnerability, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	vulns := make([]osv.Vulnerability, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	if a.MaxConcurrent > 0 {
		g.SetLimit(a.MaxConcurrent)
	}
	for i, id := range ids {
		g.Go(func() error {
			v, err := a.API.GetVulnerability(ctx, id)
			if err != nil {
				return err
			}
			vulns[i] = *v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return vulns, nil
}

// RefreshVulnerabilities re-fetches every cached record.
func (a *Auditor) RefreshVulnerabilities(ctx context.Context) error {
	if a.Store == nil {
		return nil
	}

	ids, err := a.Store.ListVulnerabilityIDs(ctx)
	if err != nil {
		a.Log.WithError(err).Error("failed to list cached vulnerabilities")
		return err
	}
	a.Log.Infof("Refreshing %d cached vulnerabilities", len(ids))

	vulns, err := a.fetch(ctx, ids)
	if err != nil {
		a.Log.WithError(err).Error("failed to fetch vulnerabilities")
		return err
	}

	if err := a.Store.UpsertVulnerabilities(ctx, vulns); err != nil {
		a.Log.WithError(err).Error("failed to upsert vulnerabilities to database")
		return err
	}

	a.Log.Infof("Successfully refreshed %d vulnerabilities", len(vulns))
	return nil
}

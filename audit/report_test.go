package audit

import (
	"testing"

	"mvn-audit/mvn"
	"mvn-audit/osv"

	"github.com/stretchr/testify/assert"
)

func TestAdvisories(t *testing.T) {
	result := Result{
		"pkg:maven/org.yaml/snakeyaml@1.19": {
			{
				ID:      "GHSA-rvwf-54qp-4r6v",
				Summary: "Billion laughs",
				Affected: []osv.Affected{{
					Ranges: []osv.Range{{Events: []osv.Event{{Introduced: "0"}, {Fixed: strPtr("1.26")}}}},
				}},
			},
			{ID: "GHSA-mjmj-j48q-9wg2", Summary: "Constructor deserialization"},
		},
	}

	assert.Equal(t, map[string][]Advisory{
		"pkg:maven/org.yaml/snakeyaml@1.19": {
			{ID: "GHSA-rvwf-54qp-4r6v", Summary: "Billion laughs", Fixed: "1.26"},
			{ID: "GHSA-mjmj-j48q-9wg2", Summary: "Constructor deserialization"},
		},
	}, result.Advisories())
}

func TestVulnerablePurls(t *testing.T) {
	report := &Report{
		Coordinates: []mvn.PackageCoordinate{
			{Group: "junit", Artifact: "junit", Version: "4.12"},
			{Group: "org.yaml", Artifact: "snakeyaml", Version: "1.19"},
			{Group: "com.google.guava", Artifact: "guava", Version: "31.0-jre"},
			{Group: "junit", Artifact: "junit", Version: "4.12", Classifier: "tests"},
		},
		Vulnerable: Result{
			"pkg:maven/org.yaml/snakeyaml@1.19": {{ID: "V1"}},
			"pkg:maven/junit/junit@4.12":        {{ID: "V2"}},
		},
	}

	assert.Equal(t, []string{
		"pkg:maven/junit/junit@4.12",
		"pkg:maven/org.yaml/snakeyaml@1.19",
	}, report.VulnerablePurls())
}

func strPtr(s string) *string {
	return &s
}

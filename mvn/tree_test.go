package mvn_test

import (
	"strings"
	"testing"

	"mvn-audit/mvn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var divider = "[INFO] " + strings.Repeat("-", 72)

const sampleTree = `[INFO] Scanning for projects...
[INFO]
[INFO] ------------------------< com.example:demo >-------------------------
[INFO] Building demo 1.0-SNAPSHOT
[INFO] --------------------------------[ jar ]---------------------------------
[INFO]
[INFO] --- maven-dependency-plugin:3.6.1:tree (default-cli) @ demo ---
[INFO] com.example:demo:jar:1.0-SNAPSHOT
[INFO] +- org.yaml:snakeyaml:jar:1.19:compile
[INFO] +- com.fasterxml.jackson.core:jackson-databind:jar:2.9.8:compile
[INFO] |  +- com.fasterxml.jackson.core:jackson-annotations:jar:2.9.0:compile
[INFO] |  \- com.fasterxml.jackson.core:jackson-core:jar:2.9.8:compile
[INFO] +- io.netty:netty-transport-native-epoll:jar:linux-x86_64:4.1.42.Final:runtime
[INFO] \- org.postgresql:postgresql:jar:42.2.5:compile (optional)
[INFO] ------------------------------------------------------------------------
[INFO] BUILD SUCCESS
[INFO] ------------------------------------------------------------------------
`

func TestParseDependencyTree(t *testing.T) {
	coords, err := mvn.ParseDependencyTree(strings.Split(sampleTree, "\n"))
	require.NoError(t, err)

	assert.Equal(t, []mvn.PackageCoordinate{
		{Group: "com.example", Artifact: "demo", Type: "jar", Version: "1.0-SNAPSHOT"},
		{Group: "org.yaml", Artifact: "snakeyaml", Type: "jar", Version: "1.19", Scope: "compile"},
		{Group: "com.fasterxml.jackson.core", Artifact: "jackson-databind", Type: "jar", Version: "2.9.8", Scope: "compile"},
		{Group: "com.fasterxml.jackson.core", Artifact: "jackson-annotations", Type: "jar", Version: "2.9.0", Scope: "compile"},
		{Group: "com.fasterxml.jackson.core", Artifact: "jackson-core", Type: "jar", Version: "2.9.8", Scope: "compile"},
		{Group: "io.netty", Artifact: "netty-transport-native-epoll", Type: "jar", Classifier: "linux-x86_64", Version: "4.1.42.Final", Scope: "runtime"},
		{Group: "org.postgresql", Artifact: "postgresql", Type: "jar", Version: "42.2.5", Scope: "compile", Optional: true},
	}, coords)
}

func TestParseDependencyTree_SingleDependency(t *testing.T) {
	lines := []string{
		"[INFO] preamble",
		"[INFO] --- plugin ---",
		"[INFO] +- org.yaml:snakeyaml:jar:1.19:compile",
		divider,
	}

	coords, err := mvn.ParseDependencyTree(lines)
	require.NoError(t, err)
	require.Len(t, coords, 1)

	c := coords[0]
	assert.Equal(t, "org.yaml", c.Group)
	assert.Equal(t, "snakeyaml", c.Artifact)
	assert.Equal(t, "1.19", c.Version)
	assert.Equal(t, "jar", c.Type)
	assert.Equal(t, "", c.Classifier)
	assert.False(t, c.Optional)
	assert.Equal(t, "pkg:maven/org.yaml/snakeyaml@1.19", c.Purl())
}

func TestParseDependencyTree_EdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		expected []mvn.PackageCoordinate
	}{
		{
			name:     "no start marker",
			lines:    []string{"[INFO] Scanning for projects...", "[INFO] +- a:b:jar:1.0", divider},
			expected: nil,
		},
		{
			name:     "empty input",
			lines:    nil,
			expected: nil,
		},
		{
			name:     "start marker directly followed by divider",
			lines:    []string{"[INFO] --- plugin ---", divider, "[INFO] +- a:b:jar:1.0"},
			expected: nil,
		},
		{
			name: "blank lines are skipped",
			lines: []string{
				"",
				"[INFO] --- plugin ---",
				"   ",
				"[INFO] +- a:b:jar:1.0",
				"\t",
				divider,
			},
			expected: []mvn.PackageCoordinate{{Group: "a", Artifact: "b", Type: "jar", Version: "1.0"}},
		},
		{
			name: "only the first block is parsed",
			lines: []string{
				"[INFO] --- plugin ---",
				"[INFO] +- a:b:jar:1.0",
				divider,
				"[INFO] --- plugin ---",
				"[INFO] +- c:d:jar:2.0",
				divider,
			},
			expected: []mvn.PackageCoordinate{{Group: "a", Artifact: "b", Type: "jar", Version: "1.0"}},
		},
		{
			name: "missing divider takes the rest",
			lines: []string{
				"[INFO] --- plugin ---",
				"[INFO] +- a:b:jar:1.0",
				"[INFO] \\- c:d:jar:2.0",
			},
			expected: []mvn.PackageCoordinate{
				{Group: "a", Artifact: "b", Type: "jar", Version: "1.0"},
				{Group: "c", Artifact: "d", Type: "jar", Version: "2.0"},
			},
		},
		{
			name: "any annotation after the coordinate marks optional",
			lines: []string{
				"[INFO] --- plugin ---",
				"[INFO] +- g:a:jar:1.0:compile (version managed from 0.9)",
				"[INFO] +- g:b:jar:1.0:compile optional",
				"[INFO] \\- g:c:jar:1.0:compile",
				divider,
			},
			expected: []mvn.PackageCoordinate{
				{Group: "g", Artifact: "a", Type: "jar", Version: "1.0", Scope: "compile", Optional: true},
				{Group: "g", Artifact: "b", Type: "jar", Version: "1.0", Scope: "compile", Optional: true},
				{Group: "g", Artifact: "c", Type: "jar", Version: "1.0", Scope: "compile"},
			},
		},
		{
			name: "trailing whitespace and carriage returns",
			lines: []string{
				"[INFO] --- plugin ---\r",
				"[INFO] +- a:b:jar:1.0  \r",
				divider + "\r",
			},
			expected: []mvn.PackageCoordinate{{Group: "a", Artifact: "b", Type: "jar", Version: "1.0"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coords, err := mvn.ParseDependencyTree(tt.lines)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, coords)
		})
	}
}

func TestParseDependencyTree_MalformedCoordinate(t *testing.T) {
	lines := []string{
		"[INFO] --- plugin ---",
		"[INFO] +- a:b:jar:1.0",
		"[INFO] +- a:b:jar",
		"[INFO] +- c:d:jar:2.0",
		divider,
	}

	coords, err := mvn.ParseDependencyTree(lines)
	assert.ErrorIs(t, err, mvn.ErrMalformedCoordinate)
	assert.Contains(t, err.Error(), "line 3")
	assert.Nil(t, coords)
}

func TestParseDependencyTree_Deterministic(t *testing.T) {
	lines := strings.Split(sampleTree, "\n")

	first, err := mvn.ParseDependencyTree(lines)
	require.NoError(t, err)
	second, err := mvn.ParseDependencyTree(lines)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestReadDependencyTree(t *testing.T) {
	coords, err := mvn.ReadDependencyTree(strings.NewReader(sampleTree))
	require.NoError(t, err)
	assert.Len(t, coords, 7)
	assert.Equal(t, "pkg:maven/org.yaml/snakeyaml@1.19", coords[1].Purl())
}

package mvn

import (
	"errors"
	"fmt"
	"strings"

	"mvn-audit/depsdev"
)

const System = "MAVEN"

var ErrMalformedCoordinate = errors.New("malformed maven coordinate")

// Scopes Maven prints as the last field of a dependency-tree coordinate.
var scopes = map[string]bool{
	"compile":  true,
	"provided": true,
	"runtime":  true,
	"test":     true,
	"system":   true,
	"import":   true,
}

type PackageCoordinate struct {
	Group      string `json:"group"`
	Artifact   string `json:"artifact"`
	Version    string `json:"version"`
	Type       string `json:"type"`
	Classifier string `json:"classifier,omitempty"`
	Scope      string `json:"scope,omitempty"`
	Optional   bool   `json:"optional,omitempty"`
}

// ParseCoordinate decodes one dependency entry with the tree glyphs already
// removed, e.g. "org.yaml:snakeyaml:jar:1.19:compile (optional)".
func ParseCoordinate(entry string) (PackageCoordinate, error) {
	tokens := strings.Fields(entry)
	if len(tokens) == 0 {
		return PackageCoordinate{}, fmt.Errorf("%w: empty entry", ErrMalformedCoordinate)
	}

	// Anything after the coordinate, "(optional)" or otherwise, marks it optional.
	c := PackageCoordinate{Optional: len(tokens) > 1}

	fields := strings.Split(tokens[0], ":")
	switch len(fields) {
	case 4:
		c.Group, c.Artifact, c.Type, c.Version = fields[0], fields[1], fields[2], fields[3]
	case 5:
		c.Group, c.Artifact, c.Type, c.Version = fields[0], fields[1], fields[2], fields[3]
		if scopes[fields[4]] {
			c.Scope = fields[4]
		} else {
			c.Classifier = fields[4]
		}
	case 6:
		c.Group, c.Artifact, c.Type, c.Classifier, c.Version, c.Scope =
			fields[0], fields[1], fields[2], fields[3], fields[4], fields[5]
	default:
		return PackageCoordinate{}, fmt.Errorf("%w: %q has %d fields", ErrMalformedCoordinate, tokens[0], len(fields))
	}

	if c.Group == "" || c.Artifact == "" || c.Version == "" {
		return PackageCoordinate{}, fmt.Errorf("%w: %q is missing group, artifact or version", ErrMalformedCoordinate, tokens[0])
	}
	return c, nil
}

// Purl returns pkg:maven/<group>/<artifact>@<version>. Fields are copied
// verbatim; the result is the lookup key for the vulnerability database.
func (c PackageCoordinate) Purl() string {
	return "pkg:maven/" + c.Group + "/" + c.Artifact + "@" + c.Version
}

// VersionKey is the structured form of the purl used by batch version queries.
func (c PackageCoordinate) VersionKey() depsdev.VersionKey {
	return depsdev.VersionKey{
		System:  System,
		Name:    c.Group + ":" + c.Artifact,
		Version: c.Version,
	}
}

func (c PackageCoordinate) String() string {
	return c.Group + ":" + c.Artifact + "@" + c.Version
}

// Purls maps coordinates to purls, keeping order and duplicates.
func Purls(coords []PackageCoordinate) []string {
	purls := make([]string, 0, len(coords))
	for _, c := range coords {
		purls = append(purls, c.Purl())
	}
	return purls
}

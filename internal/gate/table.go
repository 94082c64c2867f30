package gate

import (
	"strings"

	"github.com/spec-kit/astro-gateway/internal/config"
)

// RouteTable holds the static prefix lists the gate classifies paths against.
// It is immutable after construction.
type RouteTable struct {
	UserProtected       []string
	AstrologerProtected []string
	UserAuth            []string
	AstrologerAuth      []string
	ExcludedPrefixes    []string
}

// Classification records which lists a path matched.
type Classification struct {
	UserProtected       bool
	AstrologerProtected bool
	UserAuth            bool
	AstrologerAuth      bool
}

// NewRouteTable copies the lists out of gate configuration.
func NewRouteTable(cfg config.GateConfig) RouteTable {
	return RouteTable{
		UserProtected:       clone(cfg.UserProtected),
		AstrologerProtected: clone(cfg.AstrologerProtected),
		UserAuth:            clone(cfg.UserAuth),
		AstrologerAuth:      clone(cfg.AstrologerAuth),
		ExcludedPrefixes:    clone(cfg.Excluded),
	}
}

// Classify matches path against each list with starts-with semantics.
// Lists are evaluated independently; role disjointness is not enforced.
func (t RouteTable) Classify(path string) Classification {
	return Classification{
		UserProtected:       matchPrefix(t.UserProtected, path),
		AstrologerProtected: matchPrefix(t.AstrologerProtected, path),
		UserAuth:            matchPrefix(t.UserAuth, path),
		AstrologerAuth:      matchPrefix(t.AstrologerAuth, path),
	}
}

// Excluded reports whether the gate must not evaluate path at all.
func (t RouteTable) Excluded(path string) bool {
	return matchPrefix(t.ExcludedPrefixes, path)
}

func matchPrefix(prefixes []string, path string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func clone(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// Package resolve implements the field resolver chain: an ordered set of
// strategies competing to supply each leaf value during message composition.
// Precedence is explicit data (an integer priority), not source order.
package resolve

import (
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/ConnorBritain/pidgeon/internal/domain"
	"github.com/ConnorBritain/pidgeon/internal/schema"
)

// Request carries everything a resolver may consult for one leaf. Resolvers
// treat it as read-only; the only mutable state they touch is RNG, which is
// the composition's seeded stream.
type Request struct {
	SegmentCode string
	Position    int
	Occurrence  int // 1-based repeat index of the enclosing segment
	Field       schema.FieldDefinition
	Table       *schema.TableDefinition // pre-fetched when Field.TableID is set

	Patient      *domain.Patient
	Encounter    *domain.Encounter
	Prescription *domain.Prescription
	Observation  *domain.Observation

	MessageType string
	Version     string
	Now         time.Time
	RNG         *rand.Rand
}

// nameText returns the searchable text for keyword matching: the field name
// plus its description, lowercased.
func (r *Request) nameText() string {
	return strings.ToLower(r.Field.Name + " " + r.Field.Description)
}

// Resolver is one value-production strategy. Resolve returns the value and
// true, or abstains with false. Higher priorities are consulted first.
type Resolver interface {
	Name() string
	Priority() int
	Resolve(req *Request) (string, bool)
}

// Priority bands for the standard resolvers.
const (
	PriorityFormat      = 400
	PriorityDemographic = 300
	PriorityIdentifier  = 200
	PriorityFallback    = 100
)

// Chain tries resolvers in descending priority order; the first non-abstention
// wins. A chain built by NewChain with the fallback resolver included can
// never fail to produce a value.
type Chain struct {
	resolvers []Resolver
}

// NewChain creates a chain over the given resolvers, sorted once by
// descending priority. Sort is stable so equal priorities keep their
// registration order.
func NewChain(resolvers ...Resolver) *Chain {
	c := &Chain{resolvers: append([]Resolver(nil), resolvers...)}
	sort.SliceStable(c.resolvers, func(i, j int) bool {
		return c.resolvers[i].Priority() > c.resolvers[j].Priority()
	})
	return c
}

// DefaultChain returns the standard four-resolver chain. source may be nil to
// use the bundled demographic dataset.
func DefaultChain(source demographicSource) *Chain {
	return NewChain(
		&FormatResolver{},
		NewDemographicResolver(source),
		&IdentifierResolver{},
		&FallbackResolver{},
	)
}

// Resolve runs the chain. The second return names the resolver that supplied
// the value; both are zero when every resolver abstained.
func (c *Chain) Resolve(req *Request) (string, string) {
	for _, r := range c.resolvers {
		if value, ok := r.Resolve(req); ok {
			return value, r.Name()
		}
	}
	return "", ""
}

// Resolvers returns the chain's resolvers in consultation order.
func (c *Chain) Resolvers() []Resolver {
	return append([]Resolver(nil), c.resolvers...)
}

// containsAny reports whether text contains any of the keywords.
func containsAny(text string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// randomDigits draws n decimal digits from rng.
func randomDigits(rng *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('0' + rng.Intn(10))
	}
	return string(b)
}

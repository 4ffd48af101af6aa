// Package policy holds the traversal policy algebra. A policy rides on every
// queued request and decides whether the request is handled at all, which
// freshness rule gates reprocessing, and what policy its children inherit.
package policy

type Transitivity string

const (
	Shallow     Transitivity = "shallow"
	DeepShallow Transitivity = "deepShallow"
	DeepDeep    Transitivity = "deepDeep"
)

type Freshness string

const (
	FreshAlways   Freshness = "always"
	FreshMatch    Freshness = "match"
	FreshVersion  Freshness = "version"
	FreshMutables Freshness = "mutables"
)

type Fetch string

const (
	FetchNone          Fetch = "none"
	FetchStorage       Fetch = "storage"
	FetchOriginStorage Fetch = "originStorage"
	FetchMutables      Fetch = "mutables"
	FetchAlways        Fetch = "always"
)

// EdgeRole names the kind of edge a child request is queued across.
type EdgeRole string

const (
	EdgeCollectionPage        EdgeRole = "collection-page"
	EdgeCollectionElement     EdgeRole = "collection-element"
	EdgeRootCollectionElement EdgeRole = "root-collection-element"
	EdgeResource              EdgeRole = "resource"
)

// Policy is an immutable tuple of three orthogonal axes. Transitions return
// new values; a policy is never mutated in place.
type Policy struct {
	Transitivity Transitivity `json:"transitivity"`
	Freshness    Freshness    `json:"freshness"`
	Fetch        Fetch        `json:"fetch"`
}

// Default is the standing crawl policy: follow edges one collection deep,
// refetch on etag mismatch.
func Default() Policy {
	return Policy{Transitivity: DeepShallow, Freshness: FreshMatch, Fetch: FetchOriginStorage}
}

// Refresh is the user-initiated force policy. It reprocesses everything it
// touches and decays one level across non-page edges.
func Refresh() Policy {
	return Policy{Transitivity: DeepDeep, Freshness: FreshAlways, Fetch: FetchAlways}
}

// ChildFor returns the policy a child request inherits across an edge of the
// given role. Transitivity follows the transition table; freshness and fetch
// propagate unchanged except that force values decay on non-page edges.
func (p Policy) ChildFor(role EdgeRole) Policy {
	child := p
	child.Transitivity = childTransitivity(p.Transitivity, role)
	if role != EdgeCollectionPage {
		if child.Freshness == FreshAlways {
			child.Freshness = FreshVersion
		}
		if child.Fetch == FetchAlways {
			child.Fetch = FetchOriginStorage
		}
	}
	return child
}

func childTransitivity(t Transitivity, role EdgeRole) Transitivity {
	switch t {
	case Shallow:
		return Shallow
	case DeepShallow:
		switch role {
		case EdgeCollectionPage, EdgeCollectionElement:
			return DeepShallow
		default:
			return Shallow
		}
	case DeepDeep:
		if role == EdgeCollectionPage {
			return DeepDeep
		}
		return DeepShallow
	default:
		return Shallow
	}
}

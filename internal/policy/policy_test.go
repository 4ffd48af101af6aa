package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// The full transitivity transition table. Every pair here is contractual;
// handlers rely on child policies decaying exactly this way.
func TestChildTransitivityTable(t *testing.T) {
	cases := []struct {
		parent Transitivity
		role   EdgeRole
		child  Transitivity
	}{
		{Shallow, EdgeCollectionPage, Shallow},
		{Shallow, EdgeRootCollectionElement, Shallow},
		{Shallow, EdgeCollectionElement, Shallow},
		{Shallow, EdgeResource, Shallow},

		{DeepShallow, EdgeCollectionPage, DeepShallow},
		{DeepShallow, EdgeRootCollectionElement, Shallow},
		{DeepShallow, EdgeCollectionElement, DeepShallow},
		{DeepShallow, EdgeResource, Shallow},

		{DeepDeep, EdgeCollectionPage, DeepDeep},
		{DeepDeep, EdgeRootCollectionElement, DeepShallow},
		{DeepDeep, EdgeCollectionElement, DeepShallow},
		{DeepDeep, EdgeResource, DeepShallow},
	}

	for _, tc := range cases {
		parent := Policy{Transitivity: tc.parent, Freshness: FreshMatch, Fetch: FetchOriginStorage}
		child := parent.ChildFor(tc.role)
		assert.Equal(t, tc.child, child.Transitivity, "%s across %s", tc.parent, tc.role)
	}
}

func TestFreshnessAndFetchPropagateUnchanged(t *testing.T) {
	parent := Policy{Transitivity: DeepShallow, Freshness: FreshMatch, Fetch: FetchOriginStorage}
	for _, role := range []EdgeRole{EdgeCollectionPage, EdgeRootCollectionElement, EdgeCollectionElement, EdgeResource} {
		child := parent.ChildFor(role)
		assert.Equal(t, FreshMatch, child.Freshness)
		assert.Equal(t, FetchOriginStorage, child.Fetch)
	}
}

func TestRefreshDecaysOnNonPageEdges(t *testing.T) {
	parent := Refresh()

	page := parent.ChildFor(EdgeCollectionPage)
	assert.Equal(t, FreshAlways, page.Freshness)
	assert.Equal(t, FetchAlways, page.Fetch)

	for _, role := range []EdgeRole{EdgeRootCollectionElement, EdgeCollectionElement, EdgeResource} {
		child := parent.ChildFor(role)
		assert.Equal(t, FreshVersion, child.Freshness, "freshness across %s", role)
		assert.Equal(t, FetchOriginStorage, child.Fetch, "fetch across %s", role)
	}
}

func TestChildForDoesNotMutateParent(t *testing.T) {
	parent := Policy{Transitivity: DeepDeep, Freshness: FreshAlways, Fetch: FetchAlways}
	_ = parent.ChildFor(EdgeResource)
	assert.Equal(t, DeepDeep, parent.Transitivity)
	assert.Equal(t, FreshAlways, parent.Freshness)
}

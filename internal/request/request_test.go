package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/thep200/github-graph-crawler/internal/policy"
	"github.com/thep200/github-graph-crawler/internal/urn"
)

func TestStripTemplate(t *testing.T) {
	assert.Equal(t, "http://x", StripTemplate("http://x{/y}"))
	assert.Equal(t, "http://commits", StripTemplate("http://commits{/sha}"))
	assert.Equal(t, "http://x", StripTemplate("http://x{?page,per_page}"))
	assert.Equal(t, "http://x", StripTemplate("http://x"))
}

func TestNewStripsTemplates(t *testing.T) {
	req := New("repo", "http://foo/repo{/id}")
	assert.Equal(t, "http://foo/repo", req.Url)
	assert.Equal(t, policy.Default(), req.Policy)
}

func TestChildInheritsQualifierAndDerivesPolicy(t *testing.T) {
	parent := New("repo", "http://foo/repo/12")
	parent.Context.Qualifier = urn.URN("urn:repo:12")
	parent.Policy = policy.Policy{Transitivity: policy.DeepShallow, Freshness: policy.FreshMatch, Fetch: policy.FetchOriginStorage}

	child := parent.Child(policy.EdgeResource, "user", "http://user/45{/other}")
	assert.Equal(t, "user", child.Type)
	assert.Equal(t, "http://user/45", child.Url)
	assert.Equal(t, urn.URN("urn:repo:12"), child.Context.Qualifier)
	assert.Equal(t, policy.Shallow, child.Policy.Transitivity)
	assert.Nil(t, child.Context.Relation)
}

func TestChildWithQualifierOverrides(t *testing.T) {
	parent := New("repo", "http://foo/repo/12")
	parent.Context.Qualifier = urn.URN("urn:repo:12")

	child := parent.ChildWithQualifier(policy.EdgeCollectionPage, "issues", "http://issues", urn.URN("urn:repo:99"))
	assert.Equal(t, urn.URN("urn:repo:99"), child.Context.Qualifier)
	assert.Equal(t, parent.Policy.Transitivity, child.Policy.Transitivity)
}

func TestChildRelationCarriesDescriptor(t *testing.T) {
	parent := New("repo", "http://foo/repo/12")

	child := parent.ChildRelation("repo", "teams", "http://teams", urn.URN("urn:repo:12"))
	assert.Equal(t, "teams", child.Type)
	if assert.NotNil(t, child.Context.Relation) {
		assert.Equal(t, "repo", child.Context.Relation.Origin)
		assert.Equal(t, urn.URN("urn:repo:12"), child.Context.Relation.Qualifier)
		assert.Equal(t, "teams", child.Context.Relation.Type)
		assert.NotEmpty(t, child.Context.Relation.Guid)
	}
}

func TestChildRelationGuidsAreFresh(t *testing.T) {
	parent := New("repo", "http://foo/repo/12")
	first := parent.ChildRelation("repo", "teams", "http://teams", urn.URN("urn:repo:12"))
	second := parent.ChildRelation("repo", "teams", "http://teams", urn.URN("urn:repo:12"))
	assert.NotEqual(t, first.Context.Relation.Guid, second.Context.Relation.Guid)
}

package urn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntity(t *testing.T) {
	assert.Equal(t, URN("urn:repo:12"), Entity("repo", "12"))
	assert.Equal(t, URN("urn:user:45"), Entity("user", "45"))
}

func TestChild(t *testing.T) {
	repo := Entity("repo", "12")
	assert.Equal(t, URN("urn:repo:12:issue:27"), Child(repo, "issue", "27"))
	issue := Child(repo, "issue", "27")
	assert.Equal(t, URN("urn:repo:12:issue:27:issue_comment:3"), Child(issue, "issue_comment", "3"))
}

func TestCollection(t *testing.T) {
	assert.Equal(t, URN("urn:repo:12:issues"), Collection(Entity("repo", "12"), "issues"))
}

func TestRelation(t *testing.T) {
	assert.Equal(t, URN("urn:team:66:team_members:pages:*"), Relation(Entity("team", "66"), "team_members"))
}

func TestQualifiedLowercases(t *testing.T) {
	assert.Equal(t, URN("urn:repo:abc"), Qualified(URN("urn"), "Repo", "ABC"))
}

func TestJoinKeepsCase(t *testing.T) {
	scope := Entity("repo", "4")
	assert.Equal(t, URN("urn:repo:4:PullRequestEvent:12345"), Join(scope, "PullRequestEvent", "12345"))
}

func TestJoinNoParts(t *testing.T) {
	assert.Equal(t, URN("urn:repo:4"), Join(URN("urn:repo:4")))
}

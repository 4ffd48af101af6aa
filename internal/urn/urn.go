// Package urn builds the stable identifiers every crawled document is keyed by.
// A urn is a colon-delimited path into the GitHub object graph, for example
// urn:repo:12:issue:27:issue_comments.
package urn

import "strings"

type URN string

func (u URN) String() string {
	return string(u)
}

// Join appends raw segments without normalizing case. Event type segments
// keep GitHub's casing (PullRequestEvent), so their urns go through here.
func Join(prefix URN, parts ...string) URN {
	if len(parts) == 0 {
		return prefix
	}
	return URN(string(prefix) + ":" + strings.Join(parts, ":"))
}

// Qualified appends lowercased segments to a prefix.
func Qualified(prefix URN, parts ...string) URN {
	lowered := make([]string, 0, len(parts))
	for _, p := range parts {
		lowered = append(lowered, strings.ToLower(p))
	}
	return Join(prefix, lowered...)
}

// Entity returns the root urn of a top level entity, urn:<type>:<id>.
func Entity(entityType, id string) URN {
	return Qualified(URN("urn"), entityType, id)
}

// Child returns the urn of an entity subordinate to a qualifier.
func Child(qualifier URN, entityType, id string) URN {
	return Qualified(qualifier, entityType, id)
}

// Collection returns the urn of a child collection. Pluralization is the
// caller's choice; handlers pass the collection name they want.
func Collection(qualifier URN, name string) URN {
	return Qualified(qualifier, name)
}

// Relation returns the urn of a many-to-many collection with its page wildcard.
func Relation(qualifier URN, name string) URN {
	return Qualified(qualifier, name, "pages", "*")
}

package graph

import "github.com/thep200/github-graph-crawler/internal/urn"

type LinkType string

const (
	LinkResource   LinkType = "resource"
	LinkCollection LinkType = "collection"
	LinkRelation   LinkType = "relation"
)

// Link is one typed edge entry under _metadata.links.
type Link struct {
	Type  LinkType  `json:"type"`
	Href  urn.URN   `json:"href,omitempty"`
	Hrefs []urn.URN `json:"hrefs,omitempty"`
}

// Each Add* call is idempotent at the role level: a later write for the same
// role overwrites the earlier one.

func (d *Document) AddResource(role string, href urn.URN) {
	d.Meta.Links[role] = Link{Type: LinkResource, Href: href}
}

func (d *Document) AddResourceList(role string, hrefs []urn.URN) {
	d.Meta.Links[role] = Link{Type: LinkResource, Hrefs: hrefs}
}

func (d *Document) AddCollection(role string, href urn.URN) {
	d.Meta.Links[role] = Link{Type: LinkCollection, Href: href}
}

func (d *Document) AddRelation(role string, href urn.URN) {
	d.Meta.Links[role] = Link{Type: LinkRelation, Href: href}
}

// AddSelfAndSiblings is the conventional shorthand every handler opens with.
func (d *Document) AddSelfAndSiblings(self, siblings urn.URN) {
	d.AddResource("self", self)
	d.AddResource("siblings", siblings)
}

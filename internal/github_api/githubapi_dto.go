// Typed views of the GitHub REST v3 payloads the crawler canonicalizes.
// Handlers decode the raw document body into these; absent fields stay zero.

package githubapi

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ID tolerates GitHub's mixed id encodings: entities carry numbers, events
// carry strings.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

func (id ID) Empty() bool {
	return id == ""
}

// FormatID renders a numeric id the way urns expect it.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Account is a user or an organization reference.
type Account struct {
	ID       int64  `json:"id"`
	Login    string `json:"login"`
	Type     string `json:"type"`
	Url      string `json:"url"`
	ReposUrl string `json:"repos_url"`
}

type Org struct {
	ID         int64  `json:"id"`
	Login      string `json:"login"`
	Url        string `json:"url"`
	ReposUrl   string `json:"repos_url"`
	MembersUrl string `json:"members_url"`
	TeamsUrl   string `json:"teams_url"`
	EventsUrl  string `json:"events_url"`
}

type User struct {
	ID               int64  `json:"id"`
	Login            string `json:"login"`
	Url              string `json:"url"`
	ReposUrl         string `json:"repos_url"`
	OrganizationsUrl string `json:"organizations_url"`
	EventsUrl        string `json:"events_url"`
}

type Repo struct {
	ID               int64    `json:"id"`
	Name             string   `json:"name"`
	FullName         string   `json:"full_name"`
	Url              string   `json:"url"`
	Owner            *Account `json:"owner"`
	Organization     *Account `json:"organization"`
	TeamsUrl         string   `json:"teams_url"`
	CollaboratorsUrl string   `json:"collaborators_url"`
	ContributorsUrl  string   `json:"contributors_url"`
	SubscribersUrl   string   `json:"subscribers_url"`
	CommitsUrl       string   `json:"commits_url"`
	IssuesUrl        string   `json:"issues_url"`
	PullsUrl         string   `json:"pulls_url"`
	EventsUrl        string   `json:"events_url"`
	DeploymentsUrl   string   `json:"deployments_url"`
}

type Team struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Url          string   `json:"url"`
	MembersUrl   string   `json:"members_url"`
	ReposUrl     string   `json:"repositories_url"`
	Organization *Account `json:"organization"`
}

type Commit struct {
	Sha         string   `json:"sha"`
	Url         string   `json:"url"`
	Author      *Account `json:"author"`
	Committer   *Account `json:"committer"`
	CommentsUrl string   `json:"comments_url"`
}

type PullRequest struct {
	ID                int64      `json:"id"`
	Number            int64      `json:"number"`
	Url               string     `json:"url"`
	User              *Account   `json:"user"`
	MergedBy          *Account   `json:"merged_by"`
	IssueUrl          string     `json:"issue_url"`
	ReviewCommentsUrl string     `json:"review_comments_url"`
	CommitsUrl        string     `json:"commits_url"`
	StatusesUrl       string     `json:"statuses_url"`
	Head              *Ref       `json:"head"`
	Base              *Ref       `json:"base"`
	Links             *PrLinks   `json:"_links"`
	Milestone         *RefEntity `json:"milestone"`
}

type Ref struct {
	Repo *Repo `json:"repo"`
}

type PrLinks struct {
	Statuses *HrefLink `json:"statuses"`
}

type HrefLink struct {
	Href string `json:"href"`
}

// RefEntity covers the small id+url payload fragments (milestone, label,
// release) the crawler links but does not expand.
type RefEntity struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Url  string `json:"url"`
}

type Issue struct {
	ID            int64        `json:"id"`
	Number        int64        `json:"number"`
	Url           string       `json:"url"`
	RepositoryUrl string       `json:"repository_url"`
	User          *Account     `json:"user"`
	Assignee      *Account     `json:"assignee"`
	Assignees     []*Account   `json:"assignees"`
	Milestone     *RefEntity   `json:"milestone"`
	Labels        []*RefEntity `json:"labels"`
	CommentsUrl   string       `json:"comments_url"`
	PullRequest   *IssuePr     `json:"pull_request"`
}

type IssuePr struct {
	Url string `json:"url"`
}

type Comment struct {
	ID       int64    `json:"id"`
	Url      string   `json:"url"`
	User     *Account `json:"user"`
	CommitID string   `json:"commit_id"`
}

type Deployment struct {
	ID          int64    `json:"id"`
	Url         string   `json:"url"`
	Sha         string   `json:"sha"`
	Creator     *Account `json:"creator"`
	StatusesUrl string   `json:"statuses_url"`
}

type Status struct {
	ID      int64    `json:"id"`
	Url     string   `json:"url"`
	Creator *Account `json:"creator"`
}

// EventRepo is the compact repo reference events carry.
type EventRepo struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Url  string `json:"url"`
}

// Event is the envelope shared by every activity record. The payload varies
// per event family and is decoded by the family's handler.
type Event struct {
	ID      ID              `json:"id"`
	Type    string          `json:"type"`
	Actor   *Account        `json:"actor"`
	Repo    *EventRepo      `json:"repo"`
	Org     *Account        `json:"org"`
	Payload json.RawMessage `json:"payload"`
}

// Per-family payload shapes. Only the distinguishing entities appear; the
// envelope carries the rest.
type (
	CommitCommentPayload struct {
		Comment *Comment `json:"comment"`
	}

	DeploymentPayload struct {
		Deployment *Deployment `json:"deployment"`
	}

	DeploymentStatusPayload struct {
		Deployment       *Deployment `json:"deployment"`
		DeploymentStatus *Status     `json:"deployment_status"`
	}

	ForkPayload struct {
		Forkee *Repo `json:"forkee"`
	}

	IssueCommentPayload struct {
		Comment *Comment `json:"comment"`
		Issue   *Issue   `json:"issue"`
	}

	IssuesPayload struct {
		Issue    *Issue     `json:"issue"`
		Assignee *Account   `json:"assignee"`
		Label    *RefEntity `json:"label"`
	}

	LabelPayload struct {
		Label *RefEntity `json:"label"`
	}

	MemberPayload struct {
		Member *Account `json:"member"`
	}

	MembershipPayload struct {
		Member *Account `json:"member"`
		Team   *Team    `json:"team"`
	}

	MilestonePayload struct {
		Milestone *RefEntity `json:"milestone"`
	}

	OrganizationPayload struct {
		Membership *MembershipPayload `json:"membership"`
	}

	PullRequestPayload struct {
		PullRequest *PullRequest `json:"pull_request"`
	}

	PullRequestReviewPayload struct {
		Review      *RefEntity   `json:"review"`
		PullRequest *PullRequest `json:"pull_request"`
	}

	PullRequestReviewCommentPayload struct {
		Comment     *Comment     `json:"comment"`
		PullRequest *PullRequest `json:"pull_request"`
	}

	PushPayload struct {
		Commits []*PushCommit `json:"commits"`
	}

	PushCommit struct {
		Sha string `json:"sha"`
		Url string `json:"url"`
	}

	ReleasePayload struct {
		Release *RefEntity `json:"release"`
	}

	RepositoryPayload struct {
		Repository *Repo `json:"repository"`
	}

	StatusPayload struct {
		Sha string `json:"sha"`
	}

	TeamPayload struct {
		Team       *Team `json:"team"`
		Repository *Repo `json:"repository"`
	}
)

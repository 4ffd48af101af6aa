package processor

import (
	"context"
	"encoding/json"

	githubapi "github.com/thep200/github-graph-crawler/internal/github_api"
	"github.com/thep200/github-graph-crawler/internal/policy"
	"github.com/thep200/github-graph-crawler/internal/request"
	"github.com/thep200/github-graph-crawler/internal/urn"
)

// eventLinker links the distinguishing payload entities of one event family.
// A nil linker means the family has nothing beyond the shared envelope.
type eventLinker func(p *Processor, ctx context.Context, req *request.Request, scope urn.URN, env *githubapi.Event) error

var eventLinkers = map[string]eventLinker{
	"CommitCommentEvent":            linkCommitCommentEvent,
	"CreateEvent":                   nil,
	"DeleteEvent":                   nil,
	"DeploymentEvent":               linkDeploymentEvent,
	"DeploymentStatusEvent":         linkDeploymentStatusEvent,
	"ForkEvent":                     linkForkEvent,
	"GollumEvent":                   nil,
	"IssueCommentEvent":             linkIssueCommentEvent,
	"IssuesEvent":                   linkIssuesEvent,
	"LabelEvent":                    linkLabelEvent,
	"MemberEvent":                   linkMemberEvent,
	"MembershipEvent":               linkMembershipEvent,
	"MilestoneEvent":                linkMilestoneEvent,
	"OrgBlockEvent":                 nil,
	"OrganizationEvent":             nil,
	"PageBuildEvent":                nil,
	"ProjectCardEvent":              nil,
	"ProjectColumnEvent":            nil,
	"ProjectEvent":                  nil,
	"PublicEvent":                   nil,
	"PullRequestEvent":              linkPullRequestEvent,
	"PullRequestReviewEvent":        linkPullRequestReviewEvent,
	"PullRequestReviewCommentEvent": linkPullRequestReviewCommentEvent,
	"PushEvent":                     linkPushEvent,
	"ReleaseEvent":                  linkReleaseEvent,
	"RepositoryEvent":               linkRepositoryEvent,
	"StatusEvent":                   linkStatusEvent,
	"TeamEvent":                     linkTeamEvent,
	"TeamAddEvent":                  linkTeamEvent,
	"WatchEvent":                    nil,
}

// event is the shared scaffold of every *Event handler: resolve the scope,
// link actor/repo/org, then let the family linker decode the payload.
func (p *Processor) event(ctx context.Context, req *request.Request) error {
	var env githubapi.Event
	if err := req.Document.Decode(&env); err != nil || env.ID.Empty() {
		return p.malformed(ctx, req, "id")
	}

	scope, ok := p.eventScope(&env)
	if !ok {
		// No repo, team, or org to hang the event on. Terminal state: the
		// document is returned untouched and nothing is queued.
		return p.malformed(ctx, req, "repo and org")
	}

	self := urn.Join(scope, req.Type, env.ID.String())
	req.Document.AddSelfAndSiblings(self, urn.Collection(scope, "events"))

	if env.Actor != nil && env.Actor.ID != 0 {
		req.Document.AddResource("actor", urn.Entity("user", formatID(env.Actor.ID)))
		p.enqueue(ctx, req, req.Child(policy.EdgeResource, "user", env.Actor.Url))
	}
	if env.Repo != nil && env.Repo.ID != 0 {
		req.Document.AddResource("repo", urn.Entity("repo", formatID(env.Repo.ID)))
		p.enqueue(ctx, req, req.Child(policy.EdgeResource, "repo", env.Repo.Url))
	}
	if env.Org != nil && env.Org.ID != 0 {
		req.Document.AddResource("org", urn.Entity("org", formatID(env.Org.ID)))
		p.enqueue(ctx, req, req.Child(policy.EdgeResource, "org", env.Org.Url))
	}

	if linker := eventLinkers[req.Type]; linker != nil {
		return linker(p, ctx, req, scope, &env)
	}
	return nil
}

// eventScope picks the urn the event id nests under: repo, then team (for
// team-scoped events without a repo), then org.
func (p *Processor) eventScope(env *githubapi.Event) (urn.URN, bool) {
	if env.Repo != nil && env.Repo.ID != 0 {
		return urn.Entity("repo", formatID(env.Repo.ID)), true
	}
	var payload githubapi.TeamPayload
	if decodeEventPayload(env, &payload) && payload.Team != nil && payload.Team.ID != 0 {
		return urn.Entity("team", formatID(payload.Team.ID)), true
	}
	if env.Org != nil && env.Org.ID != 0 {
		return urn.Entity("org", formatID(env.Org.ID)), true
	}
	return "", false
}

func decodeEventPayload(env *githubapi.Event, v any) bool {
	if len(env.Payload) == 0 {
		return false
	}
	return json.Unmarshal(env.Payload, v) == nil
}

func linkCommitCommentEvent(p *Processor, ctx context.Context, req *request.Request, scope urn.URN, env *githubapi.Event) error {
	var payload githubapi.CommitCommentPayload
	if !decodeEventPayload(env, &payload) || payload.Comment == nil || payload.Comment.ID == 0 {
		return p.malformed(ctx, req, "comment")
	}

	req.Document.AddResource("comment", urn.Child(scope, "commit_comment", formatID(payload.Comment.ID)))
	p.enqueue(ctx, req, req.ChildWithQualifier(policy.EdgeResource, "commit_comment", payload.Comment.Url, scope))

	// The comment payload knows its commit only by sha, so the commit url is
	// synthesized from the repo url.
	if payload.Comment.CommitID != "" {
		req.Document.AddResource("commit", urn.Child(scope, "commit", payload.Comment.CommitID))
		if env.Repo != nil && env.Repo.Url != "" {
			commitUrl := env.Repo.Url + "/commits/" + payload.Comment.CommitID
			p.enqueue(ctx, req, req.ChildWithQualifier(policy.EdgeResource, "commit", commitUrl, scope))
		}
	}
	return nil
}

func linkDeploymentEvent(p *Processor, ctx context.Context, req *request.Request, scope urn.URN, env *githubapi.Event) error {
	var payload githubapi.DeploymentPayload
	if !decodeEventPayload(env, &payload) || payload.Deployment == nil || payload.Deployment.ID == 0 {
		return p.malformed(ctx, req, "deployment")
	}
	req.Document.AddResource("deployment", urn.Child(scope, "deployment", formatID(payload.Deployment.ID)))
	p.enqueue(ctx, req, req.ChildWithQualifier(policy.EdgeResource, "deployment", payload.Deployment.Url, scope))
	return nil
}

func linkDeploymentStatusEvent(p *Processor, ctx context.Context, req *request.Request, scope urn.URN, env *githubapi.Event) error {
	var payload githubapi.DeploymentStatusPayload
	if !decodeEventPayload(env, &payload) || payload.Deployment == nil || payload.Deployment.ID == 0 {
		return p.malformed(ctx, req, "deployment")
	}
	req.Document.AddResource("deployment", urn.Child(scope, "deployment", formatID(payload.Deployment.ID)))
	if payload.DeploymentStatus != nil && payload.DeploymentStatus.ID != 0 {
		req.Document.AddResource("deployment_status", urn.Child(scope, "deployment_status", formatID(payload.DeploymentStatus.ID)))
	}
	p.enqueue(ctx, req, req.ChildWithQualifier(policy.EdgeResource, "deployment", payload.Deployment.Url, scope))
	return nil
}

func linkForkEvent(p *Processor, ctx context.Context, req *request.Request, scope urn.URN, env *githubapi.Event) error {
	var payload githubapi.ForkPayload
	if !decodeEventPayload(env, &payload) || payload.Forkee == nil || payload.Forkee.ID == 0 {
		return p.malformed(ctx, req, "forkee")
	}
	req.Document.AddResource("forkee", urn.Entity("repo", formatID(payload.Forkee.ID)))
	p.enqueue(ctx, req, req.Child(policy.EdgeResource, "repo", payload.Forkee.Url))
	return nil
}

func linkIssueCommentEvent(p *Processor, ctx context.Context, req *request.Request, scope urn.URN, env *githubapi.Event) error {
	var payload githubapi.IssueCommentPayload
	if !decodeEventPayload(env, &payload) || payload.Issue == nil || payload.Issue.ID == 0 {
		return p.malformed(ctx, req, "issue")
	}

	issueUrn := urn.Child(scope, "issue", formatID(payload.Issue.ID))
	if payload.Comment != nil && payload.Comment.ID != 0 {
		req.Document.AddResource("comment", urn.Child(issueUrn, "issue_comment", formatID(payload.Comment.ID)))
		p.enqueue(ctx, req, req.ChildWithQualifier(policy.EdgeResource, "issue_comment", payload.Comment.Url, issueUrn))
	}
	req.Document.AddResource("issue", issueUrn)
	p.enqueue(ctx, req, req.ChildWithQualifier(policy.EdgeResource, "issue", payload.Issue.Url, scope))
	return nil
}

func linkIssuesEvent(p *Processor, ctx context.Context, req *request.Request, scope urn.URN, env *githubapi.Event) error {
	var payload githubapi.IssuesPayload
	if !decodeEventPayload(env, &payload) || payload.Issue == nil || payload.Issue.ID == 0 {
		return p.malformed(ctx, req, "issue")
	}
	req.Document.AddResource("issue", urn.Child(scope, "issue", formatID(payload.Issue.ID)))
	p.enqueue(ctx, req, req.ChildWithQualifier(policy.EdgeResource, "issue", payload.Issue.Url, scope))

	if payload.Assignee != nil && payload.Assignee.ID != 0 {
		req.Document.AddResource("assignee", urn.Entity("user", formatID(payload.Assignee.ID)))
		p.enqueue(ctx, req, req.Child(policy.EdgeResource, "user", payload.Assignee.Url))
	}
	if payload.Label != nil && payload.Label.ID != 0 {
		req.Document.AddResource("label", urn.Child(scope, "label", formatID(payload.Label.ID)))
	}
	return nil
}

func linkLabelEvent(p *Processor, ctx context.Context, req *request.Request, scope urn.URN, env *githubapi.Event) error {
	var payload githubapi.LabelPayload
	if !decodeEventPayload(env, &payload) || payload.Label == nil || payload.Label.ID == 0 {
		return p.malformed(ctx, req, "label")
	}
	req.Document.AddResource("label", urn.Child(scope, "label", formatID(payload.Label.ID)))
	return nil
}

func linkMemberEvent(p *Processor, ctx context.Context, req *request.Request, scope urn.URN, env *githubapi.Event) error {
	var payload githubapi.MemberPayload
	if !decodeEventPayload(env, &payload) || payload.Member == nil || payload.Member.ID == 0 {
		return p.malformed(ctx, req, "member")
	}
	req.Document.AddResource("member", urn.Entity("user", formatID(payload.Member.ID)))
	p.enqueue(ctx, req, req.Child(policy.EdgeResource, "user", payload.Member.Url))
	return nil
}

func linkMembershipEvent(p *Processor, ctx context.Context, req *request.Request, scope urn.URN, env *githubapi.Event) error {
	var payload githubapi.MembershipPayload
	if !decodeEventPayload(env, &payload) || payload.Member == nil || payload.Member.ID == 0 {
		return p.malformed(ctx, req, "member")
	}
	req.Document.AddResource("member", urn.Entity("user", formatID(payload.Member.ID)))
	p.enqueue(ctx, req, req.Child(policy.EdgeResource, "user", payload.Member.Url))

	if payload.Team != nil && payload.Team.ID != 0 {
		req.Document.AddResource("team", urn.Entity("team", formatID(payload.Team.ID)))
		p.enqueue(ctx, req, req.Child(policy.EdgeResource, "team", payload.Team.Url))
	}
	return nil
}

func linkMilestoneEvent(p *Processor, ctx context.Context, req *request.Request, scope urn.URN, env *githubapi.Event) error {
	var payload githubapi.MilestonePayload
	if !decodeEventPayload(env, &payload) || payload.Milestone == nil || payload.Milestone.ID == 0 {
		return p.malformed(ctx, req, "milestone")
	}
	req.Document.AddResource("milestone", urn.Child(scope, "milestone", formatID(payload.Milestone.ID)))
	return nil
}

func linkPullRequestEvent(p *Processor, ctx context.Context, req *request.Request, scope urn.URN, env *githubapi.Event) error {
	var payload githubapi.PullRequestPayload
	if !decodeEventPayload(env, &payload) || payload.PullRequest == nil || payload.PullRequest.ID == 0 {
		return p.malformed(ctx, req, "pull_request")
	}
	req.Document.AddResource("pull_request", urn.Child(scope, "pull_request", formatID(payload.PullRequest.ID)))
	p.enqueue(ctx, req, req.ChildWithQualifier(policy.EdgeResource, "pull_request", payload.PullRequest.Url, scope))
	return nil
}

func linkPullRequestReviewEvent(p *Processor, ctx context.Context, req *request.Request, scope urn.URN, env *githubapi.Event) error {
	var payload githubapi.PullRequestReviewPayload
	if !decodeEventPayload(env, &payload) || payload.PullRequest == nil || payload.PullRequest.ID == 0 {
		return p.malformed(ctx, req, "pull_request")
	}
	req.Document.AddResource("pull_request", urn.Child(scope, "pull_request", formatID(payload.PullRequest.ID)))
	if payload.Review != nil && payload.Review.ID != 0 {
		req.Document.AddResource("review", urn.Child(scope, "review", formatID(payload.Review.ID)))
	}
	p.enqueue(ctx, req, req.ChildWithQualifier(policy.EdgeResource, "pull_request", payload.PullRequest.Url, scope))
	return nil
}

func linkPullRequestReviewCommentEvent(p *Processor, ctx context.Context, req *request.Request, scope urn.URN, env *githubapi.Event) error {
	var payload githubapi.PullRequestReviewCommentPayload
	if !decodeEventPayload(env, &payload) || payload.PullRequest == nil || payload.PullRequest.ID == 0 {
		return p.malformed(ctx, req, "pull_request")
	}

	prUrn := urn.Child(scope, "pull_request", formatID(payload.PullRequest.ID))
	if payload.Comment != nil && payload.Comment.ID != 0 {
		req.Document.AddResource("comment", urn.Child(prUrn, "review_comment", formatID(payload.Comment.ID)))
		p.enqueue(ctx, req, req.ChildWithQualifier(policy.EdgeResource, "review_comment", payload.Comment.Url, prUrn))
	}
	req.Document.AddResource("pull_request", prUrn)
	p.enqueue(ctx, req, req.ChildWithQualifier(policy.EdgeResource, "pull_request", payload.PullRequest.Url, scope))
	return nil
}

func linkPushEvent(p *Processor, ctx context.Context, req *request.Request, scope urn.URN, env *githubapi.Event) error {
	var payload githubapi.PushPayload
	if !decodeEventPayload(env, &payload) || len(payload.Commits) == 0 {
		return p.malformed(ctx, req, "commits")
	}

	hrefs := make([]urn.URN, 0, len(payload.Commits))
	for _, commit := range payload.Commits {
		if commit == nil || commit.Sha == "" {
			continue
		}
		hrefs = append(hrefs, urn.Child(scope, "commit", commit.Sha))
		if commit.Url != "" {
			p.enqueue(ctx, req, req.ChildWithQualifier(policy.EdgeResource, "commit", commit.Url, scope))
		}
	}
	req.Document.AddResourceList("commits", hrefs)
	return nil
}

func linkReleaseEvent(p *Processor, ctx context.Context, req *request.Request, scope urn.URN, env *githubapi.Event) error {
	var payload githubapi.ReleasePayload
	if !decodeEventPayload(env, &payload) || payload.Release == nil || payload.Release.ID == 0 {
		return p.malformed(ctx, req, "release")
	}
	req.Document.AddResource("release", urn.Child(scope, "release", formatID(payload.Release.ID)))
	return nil
}

func linkRepositoryEvent(p *Processor, ctx context.Context, req *request.Request, scope urn.URN, env *githubapi.Event) error {
	var payload githubapi.RepositoryPayload
	if !decodeEventPayload(env, &payload) || payload.Repository == nil || payload.Repository.ID == 0 {
		return p.malformed(ctx, req, "repository")
	}
	req.Document.AddResource("repository", urn.Entity("repo", formatID(payload.Repository.ID)))
	p.enqueue(ctx, req, req.Child(policy.EdgeResource, "repo", payload.Repository.Url))
	return nil
}

// linkStatusEvent synthesizes the commit link from the sha; no follow-up is
// queued because statuses carry no commit url.
func linkStatusEvent(p *Processor, ctx context.Context, req *request.Request, scope urn.URN, env *githubapi.Event) error {
	var payload githubapi.StatusPayload
	if !decodeEventPayload(env, &payload) || payload.Sha == "" {
		return p.malformed(ctx, req, "sha")
	}
	req.Document.AddResource("commit", urn.Child(scope, "commit", payload.Sha))
	return nil
}

// linkTeamEvent covers TeamEvent and TeamAddEvent: both carry a team, and a
// repository when the team touched one.
func linkTeamEvent(p *Processor, ctx context.Context, req *request.Request, scope urn.URN, env *githubapi.Event) error {
	var payload githubapi.TeamPayload
	if !decodeEventPayload(env, &payload) || payload.Team == nil || payload.Team.ID == 0 {
		return p.malformed(ctx, req, "team")
	}
	req.Document.AddResource("team", urn.Entity("team", formatID(payload.Team.ID)))
	p.enqueue(ctx, req, req.Child(policy.EdgeResource, "team", payload.Team.Url))

	if payload.Repository != nil && payload.Repository.ID != 0 {
		req.Document.AddResource("repository", urn.Entity("repo", formatID(payload.Repository.ID)))
		p.enqueue(ctx, req, req.Child(policy.EdgeResource, "repo", payload.Repository.Url))
	}
	return nil
}

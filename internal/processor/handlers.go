package processor

import (
	"context"
	"strconv"

	githubapi "github.com/thep200/github-graph-crawler/internal/github_api"
	"github.com/thep200/github-graph-crawler/internal/policy"
	"github.com/thep200/github-graph-crawler/internal/request"
	"github.com/thep200/github-graph-crawler/internal/urn"
)

// collectionSpec ties a collection request type to the type its elements are
// queued as. Root collections decay their element policy one step further.
type collectionSpec struct {
	elementType string
	root        bool
}

var collectionSpecs = map[string]collectionSpec{
	"orgs":            {elementType: "org", root: true},
	"users":           {elementType: "user", root: true},
	"repos":           {elementType: "repo"},
	"teams":           {elementType: "team"},
	"team_members":    {elementType: "user"},
	"team_repos":      {elementType: "repo"},
	"members":         {elementType: "user"},
	"collaborators":   {elementType: "user"},
	"contributors":    {elementType: "user"},
	"subscribers":     {elementType: "user"},
	"commits":         {elementType: "commit"},
	"issues":          {elementType: "issue"},
	"pull_requests":   {elementType: "pull_request"},
	"issue_comments":  {elementType: "issue_comment"},
	"review_comments": {elementType: "review_comment"},
	"commit_comments": {elementType: "commit_comment"},
	"deployments":     {elementType: "deployment"},
	"statuses":        {elementType: "status"},
	"events":          {elementType: ""},
}

func (p *Processor) registerHandlers() {
	p.handlers = map[string]Handler{
		"org":            p.org,
		"user":           p.user,
		"repo":           p.repo,
		"team":           p.team,
		"commit":         p.commit,
		"pull_request":   p.pullRequest,
		"issue":          p.issue,
		"issue_comment":  p.issueComment,
		"review_comment": p.reviewComment,
		"commit_comment": p.commitComment,
		"deployment":     p.deployment,
		"status":         p.status,
	}
	for name := range collectionSpecs {
		p.handlers[name] = p.collection
	}
	for name := range eventLinkers {
		p.handlers[name] = p.event
	}
}

// malformed logs the missing field and leaves the document untouched. The
// unmodified document is still returned to the host for audit persistence.
func (p *Processor) malformed(ctx context.Context, req *request.Request, what string) error {
	p.Logger.Warn(ctx, "Malformed %s payload at %s: missing %s", req.Type, req.Url, what)
	return nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (p *Processor) org(ctx context.Context, req *request.Request) error {
	var org githubapi.Org
	if err := req.Document.Decode(&org); err != nil || org.ID == 0 {
		return p.malformed(ctx, req, "id")
	}

	self := urn.Entity("org", formatID(org.ID))
	req.Document.AddSelfAndSiblings(self, urn.URN("urn:orgs"))

	if org.ReposUrl != "" {
		req.Document.AddCollection("repos", urn.Collection(self, "repos"))
		p.enqueue(ctx, req, req.ChildWithQualifier(policy.EdgeCollectionPage, "repos", org.ReposUrl, self))
	}
	if org.TeamsUrl != "" {
		req.Document.AddCollection("teams", urn.Collection(self, "teams"))
		p.enqueue(ctx, req, req.ChildWithQualifier(policy.EdgeCollectionPage, "teams", org.TeamsUrl, self))
	}
	if org.MembersUrl != "" {
		req.Document.AddRelation("members", urn.Relation(self, "members"))
		p.enqueue(ctx, req, req.ChildRelation("org", "members", org.MembersUrl, self))
	}
	if org.EventsUrl != "" {
		req.Document.AddCollection("events", urn.Collection(self, "events"))
		p.enqueue(ctx, req, req.ChildWithQualifier(policy.EdgeCollectionPage, "events", org.EventsUrl, self))
	}

	return nil
}

func (p *Processor) user(ctx context.Context, req *request.Request) error {
	var user githubapi.User
	if err := req.Document.Decode(&user); err != nil || user.ID == 0 {
		return p.malformed(ctx, req, "id")
	}

	self := urn.Entity("user", formatID(user.ID))
	req.Document.AddSelfAndSiblings(self, urn.URN("urn:users"))

	if user.ReposUrl != "" {
		req.Document.AddCollection("repos", urn.Collection(self, "repos"))
		p.enqueue(ctx, req, req.ChildWithQualifier(policy.EdgeCollectionPage, "repos", user.ReposUrl, self))
	}
	if user.EventsUrl != "" {
		req.Document.AddCollection("events", urn.Collection(self, "events"))
		p.enqueue(ctx, req, req.ChildWithQualifier(policy.EdgeCollectionPage, "events", user.EventsUrl, self))
	}

	return nil
}

func (p *Processor) repo(ctx context.Context, req *request.Request) error {
	var repo githubapi.Repo
	if err := req.Document.Decode(&repo); err != nil || repo.ID == 0 {
		return p.malformed(ctx, req, "id")
	}

	self := urn.Entity("repo", formatID(repo.ID))
	siblings := urn.URN("urn:repos")
	if repo.Owner != nil && repo.Owner.ID != 0 {
		siblings = urn.Collection(urn.Entity("user", formatID(repo.Owner.ID)), "repos")
	}
	req.Document.AddSelfAndSiblings(self, siblings)

	if repo.Owner != nil && repo.Owner.ID != 0 {
		req.Document.AddResource("owner", urn.Entity("user", formatID(repo.Owner.ID)))
		p.enqueue(ctx, req, req.Child(policy.EdgeResource, "user", repo.Owner.Url))
	}
	if repo.Organization != nil && repo.Organization.ID != 0 {
		req.Document.AddResource("organization", urn.Entity("org", formatID(repo.Organization.ID)))
		p.enqueue(ctx, req, req.Child(policy.EdgeResource, "org", repo.Organization.Url))
	}

	// Many-to-many edges live in their own relation collections.
	relations := []struct {
		name string
		url  string
	}{
		{"teams", repo.TeamsUrl},
		{"collaborators", repo.CollaboratorsUrl},
		{"contributors", repo.ContributorsUrl},
		{"subscribers", repo.SubscribersUrl},
	}
	for _, rel := range relations {
		if rel.url == "" {
			continue
		}
		req.Document.AddRelation(rel.name, urn.Relation(self, rel.name))
		p.enqueue(ctx, req, req.ChildRelation("repo", rel.name, rel.url, self))
	}

	collections := []struct {
		name string
		url  string
	}{
		{"issues", repo.IssuesUrl},
		{"commits", repo.CommitsUrl},
		{"deployments", repo.DeploymentsUrl},
		{"events", repo.EventsUrl},
	}
	for _, col := range collections {
		if col.url == "" {
			continue
		}
		req.Document.AddCollection(col.name, urn.Collection(self, col.name))
		p.enqueue(ctx, req, req.ChildWithQualifier(policy.EdgeCollectionPage, col.name, col.url, self))
	}

	return nil
}

func (p *Processor) team(ctx context.Context, req *request.Request) error {
	var team githubapi.Team
	if err := req.Document.Decode(&team); err != nil || team.ID == 0 {
		return p.malformed(ctx, req, "id")
	}

	self := urn.Entity("team", formatID(team.ID))
	siblings := urn.URN("urn:teams")
	if team.Organization != nil && team.Organization.ID != 0 {
		orgUrn := urn.Entity("org", formatID(team.Organization.ID))
		siblings = urn.Collection(orgUrn, "teams")
		req.Document.AddResource("organization", orgUrn)
		p.enqueue(ctx, req, req.Child(policy.EdgeResource, "org", team.Organization.Url))
	}
	req.Document.AddSelfAndSiblings(self, siblings)

	if team.MembersUrl != "" {
		req.Document.AddRelation("team_members", urn.Relation(self, "team_members"))
		p.enqueue(ctx, req, req.ChildRelation("team", "team_members", team.MembersUrl, self))
	}
	if team.ReposUrl != "" {
		req.Document.AddRelation("team_repos", urn.Relation(self, "team_repos"))
		p.enqueue(ctx, req, req.ChildRelation("team", "team_repos", team.ReposUrl, self))
	}

	return nil
}

func (p *Processor) commit(ctx context.Context, req *request.Request) error {
	var commit githubapi.Commit
	if err := req.Document.Decode(&commit); err != nil || commit.Sha == "" {
		return p.malformed(ctx, req, "sha")
	}
	qualifier := req.Context.Qualifier
	if qualifier == "" {
		return p.malformed(ctx, req, "qualifier")
	}

	self := urn.Child(qualifier, "commit", commit.Sha)
	req.Document.AddSelfAndSiblings(self, urn.Collection(qualifier, "commits"))
	req.Document.AddResource("repo", qualifier)

	if commit.Author != nil && commit.Author.ID != 0 {
		req.Document.AddResource("author", urn.Entity("user", formatID(commit.Author.ID)))
		p.enqueue(ctx, req, req.Child(policy.EdgeResource, "user", commit.Author.Url))
	}
	if commit.Committer != nil && commit.Committer.ID != 0 {
		req.Document.AddResource("committer", urn.Entity("user", formatID(commit.Committer.ID)))
		p.enqueue(ctx, req, req.Child(policy.EdgeResource, "user", commit.Committer.Url))
	}
	if commit.CommentsUrl != "" {
		req.Document.AddCollection("commit_comments", urn.Collection(self, "commit_comments"))
		p.enqueue(ctx, req, req.ChildWithQualifier(policy.EdgeCollectionPage, "commit_comments", commit.CommentsUrl, self))
	}

	return nil
}

func (p *Processor) pullRequest(ctx context.Context, req *request.Request) error {
	var pr githubapi.PullRequest
	if err := req.Document.Decode(&pr); err != nil || pr.ID == 0 {
		return p.malformed(ctx, req, "id")
	}
	qualifier := req.Context.Qualifier
	if qualifier == "" {
		return p.malformed(ctx, req, "qualifier")
	}

	self := urn.Child(qualifier, "pull_request", formatID(pr.ID))
	req.Document.AddSelfAndSiblings(self, urn.Collection(qualifier, "pull_requests"))

	if pr.User != nil && pr.User.ID != 0 {
		req.Document.AddResource("user", urn.Entity("user", formatID(pr.User.ID)))
		p.enqueue(ctx, req, req.Child(policy.EdgeResource, "user", pr.User.Url))
	}
	if pr.MergedBy != nil && pr.MergedBy.ID != 0 {
		req.Document.AddResource("merged_by", urn.Entity("user", formatID(pr.MergedBy.ID)))
		p.enqueue(ctx, req, req.Child(policy.EdgeResource, "user", pr.MergedBy.Url))
	}
	if pr.Base != nil && pr.Base.Repo != nil && pr.Base.Repo.ID != 0 {
		req.Document.AddResource("base_repo", urn.Entity("repo", formatID(pr.Base.Repo.ID)))
	}
	if pr.Head != nil && pr.Head.Repo != nil && pr.Head.Repo.ID != 0 {
		req.Document.AddResource("head_repo", urn.Entity("repo", formatID(pr.Head.Repo.ID)))
	}
	if pr.IssueUrl != "" {
		p.enqueue(ctx, req, req.ChildWithQualifier(policy.EdgeResource, "issue", pr.IssueUrl, qualifier))
	}
	if pr.ReviewCommentsUrl != "" {
		req.Document.AddCollection("review_comments", urn.Collection(self, "review_comments"))
		p.enqueue(ctx, req, req.ChildWithQualifier(policy.EdgeCollectionPage, "review_comments", pr.ReviewCommentsUrl, self))
	}
	if pr.CommitsUrl != "" {
		req.Document.AddCollection("commits", urn.Collection(qualifier, "commits"))
		p.enqueue(ctx, req, req.ChildWithQualifier(policy.EdgeCollectionPage, "commits", pr.CommitsUrl, qualifier))
	}
	if pr.StatusesUrl != "" {
		req.Document.AddCollection("statuses", urn.Collection(self, "statuses"))
		p.enqueue(ctx, req, req.ChildWithQualifier(policy.EdgeCollectionPage, "statuses", pr.StatusesUrl, qualifier))
	}

	return nil
}

func (p *Processor) issue(ctx context.Context, req *request.Request) error {
	var issue githubapi.Issue
	if err := req.Document.Decode(&issue); err != nil || issue.ID == 0 {
		return p.malformed(ctx, req, "id")
	}
	qualifier := req.Context.Qualifier
	if qualifier == "" {
		return p.malformed(ctx, req, "qualifier")
	}

	self := urn.Child(qualifier, "issue", formatID(issue.ID))
	req.Document.AddSelfAndSiblings(self, urn.Collection(qualifier, "issues"))
	req.Document.AddResource("repo", qualifier)

	if issue.User != nil && issue.User.ID != 0 {
		req.Document.AddResource("user", urn.Entity("user", formatID(issue.User.ID)))
		p.enqueue(ctx, req, req.Child(policy.EdgeResource, "user", issue.User.Url))
	}
	if issue.Assignee != nil && issue.Assignee.ID != 0 {
		req.Document.AddResource("assignee", urn.Entity("user", formatID(issue.Assignee.ID)))
		p.enqueue(ctx, req, req.Child(policy.EdgeResource, "user", issue.Assignee.Url))
	}
	if len(issue.Assignees) > 0 {
		hrefs := make([]urn.URN, 0, len(issue.Assignees))
		for _, assignee := range issue.Assignees {
			if assignee != nil && assignee.ID != 0 {
				hrefs = append(hrefs, urn.Entity("user", formatID(assignee.ID)))
			}
		}
		req.Document.AddResourceList("assignees", hrefs)
	}
	if len(issue.Labels) > 0 {
		hrefs := make([]urn.URN, 0, len(issue.Labels))
		for _, label := range issue.Labels {
			if label != nil && label.ID != 0 {
				hrefs = append(hrefs, urn.Child(qualifier, "label", formatID(label.ID)))
			}
		}
		req.Document.AddResourceList("labels", hrefs)
	}
	if issue.Milestone != nil && issue.Milestone.ID != 0 {
		req.Document.AddResource("milestone", urn.Child(qualifier, "milestone", formatID(issue.Milestone.ID)))
	}
	if issue.CommentsUrl != "" {
		req.Document.AddCollection("issue_comments", urn.Collection(self, "issue_comments"))
		p.enqueue(ctx, req, req.ChildWithQualifier(policy.EdgeCollectionPage, "issue_comments", issue.CommentsUrl, self))
	}
	if issue.PullRequest != nil && issue.PullRequest.Url != "" {
		p.enqueue(ctx, req, req.ChildWithQualifier(policy.EdgeResource, "pull_request", issue.PullRequest.Url, qualifier))
	}

	return nil
}

// comment is the shared shape of the three comment handlers.
func (p *Processor) comment(ctx context.Context, req *request.Request, entityType, siblingName string) error {
	var comment githubapi.Comment
	if err := req.Document.Decode(&comment); err != nil || comment.ID == 0 {
		return p.malformed(ctx, req, "id")
	}
	qualifier := req.Context.Qualifier
	if qualifier == "" {
		return p.malformed(ctx, req, "qualifier")
	}

	self := urn.Child(qualifier, entityType, formatID(comment.ID))
	req.Document.AddSelfAndSiblings(self, urn.Collection(qualifier, siblingName))

	if comment.User != nil && comment.User.ID != 0 {
		req.Document.AddResource("user", urn.Entity("user", formatID(comment.User.ID)))
		p.enqueue(ctx, req, req.Child(policy.EdgeResource, "user", comment.User.Url))
	}

	return nil
}

func (p *Processor) issueComment(ctx context.Context, req *request.Request) error {
	return p.comment(ctx, req, "issue_comment", "issue_comments")
}

func (p *Processor) reviewComment(ctx context.Context, req *request.Request) error {
	return p.comment(ctx, req, "review_comment", "review_comments")
}

func (p *Processor) commitComment(ctx context.Context, req *request.Request) error {
	return p.comment(ctx, req, "commit_comment", "commit_comments")
}

func (p *Processor) deployment(ctx context.Context, req *request.Request) error {
	var deployment githubapi.Deployment
	if err := req.Document.Decode(&deployment); err != nil || deployment.ID == 0 {
		return p.malformed(ctx, req, "id")
	}
	qualifier := req.Context.Qualifier
	if qualifier == "" {
		return p.malformed(ctx, req, "qualifier")
	}

	self := urn.Child(qualifier, "deployment", formatID(deployment.ID))
	req.Document.AddSelfAndSiblings(self, urn.Collection(qualifier, "deployments"))

	if deployment.Sha != "" {
		req.Document.AddResource("commit", urn.Child(qualifier, "commit", deployment.Sha))
	}
	if deployment.Creator != nil && deployment.Creator.ID != 0 {
		req.Document.AddResource("creator", urn.Entity("user", formatID(deployment.Creator.ID)))
		p.enqueue(ctx, req, req.Child(policy.EdgeResource, "user", deployment.Creator.Url))
	}
	if deployment.StatusesUrl != "" {
		req.Document.AddCollection("statuses", urn.Collection(self, "statuses"))
		p.enqueue(ctx, req, req.ChildWithQualifier(policy.EdgeCollectionPage, "statuses", deployment.StatusesUrl, self))
	}

	return nil
}

func (p *Processor) status(ctx context.Context, req *request.Request) error {
	var status githubapi.Status
	if err := req.Document.Decode(&status); err != nil || status.ID == 0 {
		return p.malformed(ctx, req, "id")
	}
	qualifier := req.Context.Qualifier
	if qualifier == "" {
		return p.malformed(ctx, req, "qualifier")
	}

	self := urn.Child(qualifier, "status", formatID(status.ID))
	req.Document.AddSelfAndSiblings(self, urn.Collection(qualifier, "statuses"))

	if status.Creator != nil && status.Creator.ID != 0 {
		req.Document.AddResource("creator", urn.Entity("user", formatID(status.Creator.ID)))
		p.enqueue(ctx, req, req.Child(policy.EdgeResource, "user", status.Creator.Url))
	}

	return nil
}

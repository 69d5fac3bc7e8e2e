package domain

// Alias maps an informal game name to the canonical catalog name.
type Alias struct {
	Alias         string
	CanonicalName string
}

// Comment is the subset of a platform comment the bot reads.
type Comment struct {
	ID        string // base36 id without the kind prefix
	Fullname  string // t1_<id>
	Body      string
	Author    string
	Subreddit string
	ParentID  string // fullname of the parent thing (t1_ or t3_)
	LinkID    string
	IsRoot    bool
}

// ParentCommentID returns the parent comment id, or "" when the parent is the submission.
func (c *Comment) ParentCommentID() string {
	if c == nil || c.IsRoot || len(c.ParentID) < 4 || c.ParentID[:3] != "t1_" {
		return ""
	}
	return c.ParentID[3:]
}

package mediawiki

import (
	"context"
	"fmt"
	"time"

	"github.com/Riamse/ceterach/metrics"
)

// Revision is a lazily populated view of one page revision, identified by
// revision id.
type Revision struct {
	client *Client
	revID  int

	state loadState

	page      *Page
	summary   string
	timestamp time.Time
	editor    *User
	minor     bool
	content   string
	deleted   bool
	prev      *Revision
	rollback  string
}

// Revision returns a lazy handle on the revision with the given id.
func (c *Client) Revision(revID int) *Revision {
	return &Revision{client: c, revID: revID}
}

// ID returns the revision id. Costs no network call.
func (r *Revision) ID() int { return r.revID }

// Load fetches the revision's derived fields in one API call.
func (r *Revision) Load(ctx context.Context) error {
	q := r.client.NewQuery(Params{
		"prop":    "revisions",
		"revids":  r.revID,
		"rvprop":  []string{"ids", "flags", "timestamp", "user", "comment", "content"},
		"rvtoken": "rollback",
	}, WithLimit(1))
	if !q.Next(ctx) {
		if err := q.Err(); err != nil {
			return err
		}
		r.state = stateMissing
		return nil
	}
	rec := q.Item()
	revs := getList(rec, "revisions")
	if len(revs) == 0 {
		r.state = stateMissing
		return nil
	}
	rev, ok := revs[0].(map[string]any)
	if !ok {
		r.state = stateMissing
		return nil
	}
	r.applyRevision(r.client, getInt(rec, "pageid"), rev)
	return nil
}

// applyRevision populates the derived fields from one revision record.
// Used both by Load and by page history, where many records arrive in one
// response.
func (r *Revision) applyRevision(c *Client, pageID int, rev map[string]any) {
	r.state = stateLoaded
	r.summary = getString(rev, "comment")
	_, r.minor = rev["minor"]
	r.rollback = getString(rev, "rollbacktoken")
	if raw := getString(rev, "timestamp"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			r.timestamp = t
		}
	}
	if user := getString(rev, "user"); user != "" {
		r.editor = c.User(user)
	}
	// Admin-deleted revision text arrives with no content key at all.
	if _, ok := rev["*"]; ok {
		r.content = getString(rev, "*")
		r.deleted = false
	} else {
		r.content = ""
		r.deleted = true
	}
	if pageID > 0 {
		if p, err := c.Page(PageRef{ID: pageID}); err == nil {
			r.page = p
		}
	}
	if parent := getInt(rev, "parentid"); parent > 0 {
		r.prev = c.Revision(parent)
	} else {
		r.prev = nil
	}
}

func (r *Revision) ensure(ctx context.Context) error {
	if r.state == stateUnloaded {
		if err := r.Load(ctx); err != nil {
			return err
		}
	}
	if r.state == stateMissing {
		return &NotFoundError{Entity: "revision", Identity: fmt.Sprintf("#%d", r.revID)}
	}
	return nil
}

// Page returns a handle on the page this revision belongs to.
func (r *Revision) Page(ctx context.Context) (*Page, error) {
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	return r.page, nil
}

// Summary returns the edit summary.
func (r *Revision) Summary(ctx context.Context) (string, error) {
	if err := r.ensure(ctx); err != nil {
		return "", err
	}
	return r.summary, nil
}

// Timestamp returns when the revision was made.
func (r *Revision) Timestamp(ctx context.Context) (time.Time, error) {
	if err := r.ensure(ctx); err != nil {
		return time.Time{}, err
	}
	return r.timestamp, nil
}

// Editor returns the user who made the revision.
func (r *Revision) Editor(ctx context.Context) (*User, error) {
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	return r.editor, nil
}

// IsMinor reports whether the revision was marked minor.
func (r *Revision) IsMinor(ctx context.Context) (bool, error) {
	if err := r.ensure(ctx); err != nil {
		return false, err
	}
	return r.minor, nil
}

// Content returns the revision's wikitext. Admin-deleted content comes
// back empty; IsDeleted distinguishes that from a genuinely empty page.
func (r *Revision) Content(ctx context.Context) (string, error) {
	if err := r.ensure(ctx); err != nil {
		return "", err
	}
	return r.content, nil
}

// IsDeleted reports whether the revision's content was admin-deleted.
func (r *Revision) IsDeleted(ctx context.Context) (bool, error) {
	if err := r.ensure(ctx); err != nil {
		return false, err
	}
	return r.deleted, nil
}

// Prev returns a handle on the revision's parent, or nil for a page's
// first revision.
func (r *Revision) Prev(ctx context.Context) (*Revision, error) {
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	return r.prev, nil
}

// Rollback reverts all consecutive edits by this revision's editor,
// stopping at the first edit by someone else. Requires the rollback
// right.
func (r *Revision) Rollback(ctx context.Context, summary string, bot bool) error {
	if err := r.ensure(ctx); err != nil {
		return err
	}
	if r.rollback == "" {
		return &APIError{
			Kind:    KindPermission,
			Code:    internalErrorCode,
			Message: "you do not have the rollback permission",
		}
	}
	page, err := r.Page(ctx)
	if err != nil {
		return err
	}
	title, err := page.mutableTitle(ctx)
	if err != nil {
		return err
	}
	editor, err := r.Editor(ctx)
	if err != nil {
		return err
	}
	params := Params{
		"action": "rollback",
		"title":  title,
		"user":   editor.Name(),
		"token":  r.rollback,
	}
	if summary != "" {
		params["summary"] = summary
	}
	if bot {
		params["markbot"] = 1
	}
	_, err = r.client.Call(ctx, params)
	metrics.RecordEdit("rollback", err == nil)
	if err != nil {
		return err
	}
	page.invalidate()
	return nil
}

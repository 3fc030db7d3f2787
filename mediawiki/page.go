package mediawiki

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"

	"github.com/Riamse/ceterach/metrics"
)

// loadState tracks where an entity is in its lifecycle. Derived fields are
// only valid in stateLoaded; stateMissing and stateInvalid are terminal
// classifications made from a successful response.
type loadState int

const (
	stateUnloaded loadState = iota
	stateLoaded
	stateMissing
	stateInvalid
)

// categoryNamespace is the namespace id MediaWiki reserves for categories.
const categoryNamespace = 14

// neverExpires marks protection restrictions the wiki reports as lasting
// forever ("infinity").
var neverExpires = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)

// PageRef identifies a page by exactly one of Title or ID. Supplying both
// or neither is a usage error reported before any network call.
type PageRef struct {
	Title string
	ID    int

	// FollowRedirects rewrites the page's identity to the redirect target
	// and reloads once when the loaded page turns out to be a redirect.
	FollowRedirects bool
}

func (r PageRef) validate() error {
	if r.Title == "" && r.ID == 0 {
		return usageErrorf("a page needs either a title or a page id")
	}
	if r.Title != "" && r.ID != 0 {
		return usageErrorf("a page cannot have both a title and a page id")
	}
	return nil
}

// Protection is one protection restriction on a page. The zero value means
// the action is unrestricted.
type Protection struct {
	Level  string
	Expiry time.Time
}

// Page is a lazily populated view of one wiki page. Identity (title or page
// id) is set at construction; every derived field is fetched on first
// access through a single load call and cached until a mutating operation
// invalidates it. Derived accessors return NotFoundError for a page the
// wiki reports missing and InvalidError for a rejected identity.
type Page struct {
	client          *Client
	title           string
	pageID          int
	followRedirects bool

	// kind names the concrete entity ("page", "category", "file") in
	// errors. Set at construction; embedding does not dispatch methods.
	kind string

	state   loadState
	loadErr error

	// load points at the owning entity's fetch-and-apply step so that
	// Category and File can extend what one load retrieves.
	load func(ctx context.Context) error

	exists     bool
	redirect   bool
	namespace  int
	talk       bool
	content    string
	protection map[string]Protection
	revID      int
	lastEditor *User
	categories []*Category
}

// Page returns a lazy handle on the page identified by ref. No request is
// made and no title validation happens until the page is loaded.
func (c *Client) Page(ref PageRef) (*Page, error) {
	if err := ref.validate(); err != nil {
		return nil, err
	}
	p := &Page{
		client:          c,
		kind:            "page",
		title:           ref.Title,
		pageID:          ref.ID,
		followRedirects: ref.FollowRedirects,
	}
	p.load = p.loadPage
	return p, nil
}

// Title returns the page's title as currently known: the constructor
// argument before the first load, the wiki's normalized form after.
func (p *Page) Title() string { return p.title }

// ID returns the page id as currently known; zero until loaded for pages
// constructed by title.
func (p *Page) ID() int { return p.pageID }

// Load fetches the page's derived fields in one API call (two when
// redirect following kicks in), replacing any previously loaded state
// wholesale.
func (p *Page) Load(ctx context.Context) error {
	return p.load(ctx)
}

func (p *Page) loadPage(ctx context.Context) error {
	res, err := p.fetch(ctx, nil)
	if err != nil {
		return err
	}
	if err := p.apply(res); err != nil {
		return err
	}
	return p.resolveRedirect(ctx, nil)
}

// resolveRedirect rewrites the identity to the redirect target and reloads
// once. reload defaults to the plain page fetch-and-apply; File substitutes
// its own so the second load keeps the extra properties.
func (p *Page) resolveRedirect(ctx context.Context, reload func(ctx context.Context) error) error {
	if !p.followRedirects || p.state != stateLoaded || !p.redirect {
		return nil
	}
	target := redirectTargetTitle(p.content)
	if target == "" {
		return nil
	}
	p.title = target
	p.pageID = 0
	if reload != nil {
		return reload(ctx)
	}
	res, err := p.fetch(ctx, nil)
	if err != nil {
		return err
	}
	return p.apply(res)
}

var redirectRegexp = regexp.MustCompile(`(?i)#redirect\s*\[\[(.+?)\]\]`)

func redirectTargetTitle(content string) string {
	m := redirectRegexp.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	return m[1]
}

// fetch performs the single info query a load is built on. extraProps
// extends the property selection (File adds imageinfo this way).
func (p *Page) fetch(ctx context.Context, extra Params) (map[string]any, error) {
	params := Params{
		"prop":    []string{"info", "revisions", "categories"},
		"inprop":  "protection",
		"rvprop":  []string{"ids", "flags", "timestamp", "user", "comment", "content"},
		"rvlimit": 1,
		"rvdir":   "older",
	}
	for k, v := range extra {
		params[k] = v
	}
	if p.title != "" {
		params["titles"] = p.title
	} else {
		params["pageids"] = p.pageID
	}
	q := p.client.NewQuery(params, WithLimit(1))
	if !q.Next(ctx) {
		if err := q.Err(); err != nil {
			return nil, err
		}
		return nil, &APIError{
			Kind:    KindAPI,
			Code:    internalErrorCode,
			Message: fmt.Sprintf("empty query result for page %q", p.identity()),
		}
	}
	return q.Item(), nil
}

// apply populates the derived fields from one page record and settles the
// load state. The record must come from an info+revisions+categories query.
func (p *Page) apply(res map[string]any) error {
	if t := getString(res, "title"); t != "" {
		// The wiki normalizes titles entered oddly.
		p.title = t
	}
	_, p.redirect = res["redirect"]

	pageID := -1
	if has(res, "pageid") {
		pageID = getInt(res, "pageid")
	}
	if pageID < 0 {
		p.exists = false
		p.content = ""
		if has(res, "missing") {
			// The namespace is still known for a missing page...
			p.state = stateMissing
			p.loadErr = nil
		} else {
			// ...but not for an invalid title.
			p.state = stateInvalid
			p.loadErr = &InvalidError{Entity: p.entityKind(), Identity: p.identity()}
			return p.loadErr
		}
	} else {
		p.pageID = pageID
		p.exists = true
		p.state = stateLoaded
		p.loadErr = nil
		if revs := getList(res, "revisions"); len(revs) > 0 {
			if rev, ok := revs[0].(map[string]any); ok {
				p.content = getString(rev, "*")
				if user := getString(rev, "user"); user != "" {
					p.lastEditor = p.client.User(user)
				}
			}
		}
		p.revID = getInt(res, "lastrevid")
	}

	p.namespace = getInt(res, "ns")
	p.talk = p.namespace > 0 && p.namespace%2 == 1

	p.protection = map[string]Protection{
		"edit":   {},
		"move":   {},
		"create": {},
	}
	for _, pr := range getList(res, "protection") {
		info, ok := pr.(map[string]any)
		if !ok {
			continue
		}
		expiry := neverExpires
		if raw := getString(info, "expiry"); raw != "" && raw != "infinity" {
			if t, err := time.Parse(time.RFC3339, raw); err == nil {
				expiry = t
			}
		}
		p.protection[getString(info, "type")] = Protection{
			Level:  getString(info, "level"),
			Expiry: expiry,
		}
	}

	p.categories = nil
	for _, cat := range getList(res, "categories") {
		rec, ok := cat.(map[string]any)
		if !ok {
			continue
		}
		if c, err := p.client.Category(PageRef{Title: getString(rec, "title")}); err == nil {
			p.categories = append(p.categories, c)
		}
	}
	return nil
}

func (p *Page) entityKind() string {
	if p.kind == "" {
		return "page"
	}
	return p.kind
}

func (p *Page) identity() string {
	if p.title != "" {
		return p.title
	}
	return fmt.Sprintf("#%d", p.pageID)
}

// ensure runs the load path once and caches the classification. Transient
// call failures are not cached; the next access tries again.
func (p *Page) ensure(ctx context.Context) error {
	if p.state == stateUnloaded {
		if err := p.load(ctx); err != nil {
			return err
		}
	}
	if p.state == stateInvalid {
		return p.loadErr
	}
	return nil
}

// derived is ensure plus the existence check shared by every accessor that
// only makes sense on an existing page.
func (p *Page) derived(ctx context.Context) error {
	if err := p.ensure(ctx); err != nil {
		return err
	}
	if p.state == stateMissing {
		return &NotFoundError{Entity: p.entityKind(), Identity: p.identity()}
	}
	return nil
}

// Exists reports whether the page exists, loading on first access. Unlike
// the other accessors it does not error for a missing page.
func (p *Page) Exists(ctx context.Context) (bool, error) {
	if err := p.ensure(ctx); err != nil {
		return false, err
	}
	return p.exists, nil
}

// Content returns the page's wikitext as of the most recent load.
func (p *Page) Content(ctx context.Context) (string, error) {
	if err := p.derived(ctx); err != nil {
		return "", err
	}
	return p.content, nil
}

// IsRedirect reports whether the page is a redirect.
func (p *Page) IsRedirect(ctx context.Context) (bool, error) {
	if err := p.derived(ctx); err != nil {
		return false, err
	}
	return p.redirect, nil
}

// Namespace returns the page's namespace id.
func (p *Page) Namespace(ctx context.Context) (int, error) {
	if err := p.derived(ctx); err != nil {
		return 0, err
	}
	return p.namespace, nil
}

// IsTalkPage reports whether the page lives in a talk namespace.
func (p *Page) IsTalkPage(ctx context.Context) (bool, error) {
	if err := p.derived(ctx); err != nil {
		return false, err
	}
	return p.talk, nil
}

// Protection returns the page's protection restrictions keyed by action
// ("edit", "move", "create", plus whatever the wiki is configured with).
func (p *Page) Protection(ctx context.Context) (map[string]Protection, error) {
	if err := p.derived(ctx); err != nil {
		return nil, err
	}
	return p.protection, nil
}

// RevID returns the page's current revision id.
func (p *Page) RevID(ctx context.Context) (int, error) {
	if err := p.derived(ctx); err != nil {
		return 0, err
	}
	return p.revID, nil
}

// LastEditor returns the user who made the page's most recent edit.
func (p *Page) LastEditor(ctx context.Context) (*User, error) {
	if err := p.derived(ctx); err != nil {
		return nil, err
	}
	return p.lastEditor, nil
}

// Categories returns the categories the page belongs to, as lazy handles.
func (p *Page) Categories(ctx context.Context) ([]*Category, error) {
	if err := p.derived(ctx); err != nil {
		return nil, err
	}
	return p.categories, nil
}

// RedirectTarget returns a handle on the page this page redirects to, or
// nil when the page is not a redirect.
func (p *Page) RedirectTarget(ctx context.Context) (*Page, error) {
	redirect, err := p.IsRedirect(ctx)
	if err != nil {
		return nil, err
	}
	if !redirect {
		return nil, nil
	}
	target := redirectTargetTitle(p.content)
	if target == "" {
		return nil, nil
	}
	return p.client.Page(PageRef{Title: target})
}

// ToggleTalk returns the page on the other side of the content/talk
// namespace pair. Virtual namespaces have no talk pages.
func (p *Page) ToggleTalk(ctx context.Context) (*Page, error) {
	namespace, err := p.Namespace(ctx)
	if err != nil {
		return nil, err
	}
	namespaces, err := p.client.Namespaces(ctx)
	if err != nil {
		return nil, err
	}
	if namespace < 0 {
		return nil, &InvalidError{Entity: "page", Identity: p.identity()}
	}

	var newNS int
	var rest string
	if p.talk {
		newNS = namespace - 1
	} else {
		newNS = namespace + 1
	}
	if namespace == 0 {
		rest = p.title
	} else {
		rest = partitionAfter(p.title, ":")
	}
	prefix := namespaces[newNS]
	if prefix == "" {
		return p.client.Page(PageRef{Title: rest, FollowRedirects: p.followRedirects})
	}
	return p.client.Page(PageRef{Title: prefix + ":" + rest, FollowRedirects: p.followRedirects})
}

func partitionAfter(s, sep string) string {
	for i := 0; i+len(sep) <= len(s); i++ {
		if s[i:i+len(sep)] == sep {
			return s[i+len(sep):]
		}
	}
	return s
}

// FromRevID returns a loaded page built from the given revision id. Calling
// this always costs one API query.
func (c *Client) FromRevID(ctx context.Context, revID int) (*Page, error) {
	params := Params{
		"prop":   []string{"info", "revisions", "categories"},
		"inprop": "protection",
		"rvprop": []string{"ids", "flags", "timestamp", "user", "comment", "content"},
		"revids": revID,
	}
	q := c.NewQuery(params, WithLimit(1))
	if !q.Next(ctx) {
		if err := q.Err(); err != nil {
			return nil, err
		}
		return nil, &NotFoundError{Entity: "revision", Identity: fmt.Sprintf("#%d", revID)}
	}
	rec := q.Item()
	p := &Page{client: c, kind: "page", title: getString(rec, "title")}
	p.load = p.loadPage
	if err := p.apply(rec); err != nil {
		return nil, err
	}
	return p, nil
}

// History returns up to limit revisions of the page, newest first, each
// pre-seeded from the history response so accessing them costs no further
// queries. Zero means the wiki's per-request maximum.
func (p *Page) History(ctx context.Context, limit int) ([]*Revision, error) {
	if err := p.derived(ctx); err != nil {
		return nil, err
	}
	params := Params{
		"prop":      "revisions",
		"rvprop":    []string{"ids", "flags", "timestamp", "user", "comment", "content"},
		"rvdir":     "older",
		"rvstartid": p.revID,
		"titles":    p.title,
	}
	if limit > 0 {
		params["rvlimit"] = limit
	} else {
		params["rvlimit"] = "max"
	}
	q := p.client.NewQuery(params, WithLimit(1))
	if !q.Next(ctx) {
		return nil, q.Err()
	}
	rec := q.Item()

	var revisions []*Revision
	for _, rv := range getList(rec, "revisions") {
		rev, ok := rv.(map[string]any)
		if !ok {
			continue
		}
		r := p.client.Revision(getInt(rev, "revid"))
		r.applyRevision(p.client, getInt(rec, "pageid"), rev)
		revisions = append(revisions, r)
	}
	return revisions, nil
}

// ---- mutations ----

// EditOptions controls the write operations. Force skips the edit-conflict
// and existence checks.
type EditOptions struct {
	Summary string
	Minor   bool
	Bot     bool
	Force   bool
}

type editKind int

const (
	editStandard editKind = iota
	editCreate
	editAppend
	editPrepend
)

// Edit replaces the page's content.
func (p *Page) Edit(ctx context.Context, content string, opts EditOptions) error {
	return p.edit(ctx, content, opts, editStandard)
}

// Create creates the page with the given content.
func (p *Page) Create(ctx context.Context, content string, opts EditOptions) error {
	return p.edit(ctx, content, opts, editCreate)
}

// Append adds content to the bottom of the page.
func (p *Page) Append(ctx context.Context, content string, opts EditOptions) error {
	return p.edit(ctx, content, opts, editAppend)
}

// Prepend adds content to the top of the page.
func (p *Page) Prepend(ctx context.Context, content string, opts EditOptions) error {
	return p.edit(ctx, content, opts, editPrepend)
}

func (p *Page) edit(ctx context.Context, content string, opts EditOptions, kind editKind) error {
	title, err := p.mutableTitle(ctx)
	if err != nil {
		return err
	}
	token, err := p.client.actionToken(ctx, "edit")
	if err != nil {
		return err
	}

	params := Params{
		"action":  "edit",
		"title":   title,
		"text":    content,
		"token":   token,
		"summary": opts.Summary,
	}
	if opts.Minor {
		params["minor"] = 1
	} else {
		params["notminor"] = 1
	}
	if opts.Bot {
		params["bot"] = 1
	} else {
		params["notbot"] = 1
	}
	if kind == editCreate {
		params["createonly"] = 1
	} else {
		params["nocreate"] = 1
	}

	if !opts.Force {
		probe := p.client.NewQuery(Params{
			"prop":   "revisions",
			"rvprop": "timestamp",
			"titles": title,
		}, WithLimit(1))
		if !probe.Next(ctx) {
			if err := probe.Err(); err != nil {
				return err
			}
			return &NotFoundError{Entity: "page", Identity: title}
		}
		rec := probe.Item()
		if kind != editCreate && has(rec, "missing") {
			return &NotFoundError{Entity: "page", Identity: title}
		}
		if getInt(rec, "ns") == -1 {
			return &InvalidError{Entity: "page", Identity: title}
		}
		if kind != editCreate {
			if revs := getList(rec, "revisions"); len(revs) > 0 {
				if rev, ok := revs[0].(map[string]any); ok {
					params["basetimestamp"] = getString(rev, "timestamp")
					params["starttimestamp"] = p.client.now().UTC().Format("2006-01-02T15:04:05Z")
				}
			}
		}
		// Checksum guards against the text being corrupted in transit.
		sum := md5.Sum([]byte(content))
		params["md5"] = hex.EncodeToString(sum[:])
	}

	switch kind {
	case editAppend:
		params["appendtext"] = params["text"]
		delete(params, "text")
	case editPrepend:
		params["prependtext"] = params["text"]
		delete(params, "text")
	}

	res, err := p.client.Call(ctx, params)
	metrics.RecordEdit("edit", err == nil)
	if err != nil {
		return err
	}
	edit := getMap(res, "edit")
	if getString(edit, "result") == "Success" {
		p.invalidate()
		p.exists = true
		if rid := getInt(edit, "newrevid"); rid != 0 {
			p.revID = rid
		}
		if t := getString(edit, "title"); t != "" {
			p.title = t
		}
	}
	return nil
}

// invalidate clears the loaded snapshot so stale fields are refetched on
// next access. Fields the mutation response supplies directly are set back
// by the caller afterwards.
func (p *Page) invalidate() {
	p.state = stateUnloaded
	p.loadErr = nil
	p.content = ""
}

// mutableTitle returns the title to address mutations at, loading the page
// first when it was constructed by id.
func (p *Page) mutableTitle(ctx context.Context) (string, error) {
	if p.title != "" {
		return p.title, nil
	}
	if err := p.ensure(ctx); err != nil {
		return "", err
	}
	return p.title, nil
}

// MoveOptions controls Move. LeaveRedirect defaults to true through
// Move's parameter, not here.
type MoveOptions struct {
	MoveTalk     bool
	MoveSubpages bool
	NoRedirect   bool
}

// Move renames the page to target.
func (p *Page) Move(ctx context.Context, target, reason string, opts MoveOptions) error {
	title, err := p.mutableTitle(ctx)
	if err != nil {
		return err
	}
	token, err := p.client.actionToken(ctx, "move")
	if err != nil {
		return err
	}
	params := Params{
		"action": "move",
		"from":   title,
		"to":     target,
		"reason": reason,
		"token":  token,
	}
	if opts.MoveTalk {
		params["movetalk"] = 1
	}
	if opts.MoveSubpages {
		params["movesubpages"] = 1
	}
	if opts.NoRedirect {
		params["noredirect"] = 1
	}
	res, err := p.client.Call(ctx, params)
	metrics.RecordEdit("move", err == nil)
	if err != nil {
		return err
	}
	move := getMap(res, "move")
	p.invalidate()
	if t := getString(move, "to"); t != "" {
		p.title = t
	} else {
		p.title = target
	}
	p.pageID = 0
	return nil
}

// Delete deletes the page.
func (p *Page) Delete(ctx context.Context, reason string) error {
	return p.deleteOrUndelete(ctx, "delete", reason)
}

// Undelete restores the page.
func (p *Page) Undelete(ctx context.Context, reason string) error {
	return p.deleteOrUndelete(ctx, "undelete", reason)
}

func (p *Page) deleteOrUndelete(ctx context.Context, action, reason string) error {
	title, err := p.mutableTitle(ctx)
	if err != nil {
		return err
	}
	token, err := p.client.actionToken(ctx, action)
	if err != nil {
		return err
	}
	params := Params{
		"action": action,
		"title":  title,
		"token":  token,
	}
	if reason != "" {
		params["reason"] = reason
	}
	_, err = p.client.Call(ctx, params)
	metrics.RecordEdit(action, err == nil)
	if err != nil {
		return err
	}
	p.invalidate()
	return nil
}

package mediawiki

import (
	"context"
	"strings"
)

// Category is a page in the category namespace plus lazily fetched
// membership. Member lists are fetched wholesale by Populate, so member
// pages come back pre-loaded from the same response and accessing them
// costs no further queries.
type Category struct {
	Page

	members   []*Page
	subcats   []*Category
	populated bool
}

// Category returns a lazy handle on the category identified by ref. Titles
// missing the namespace prefix get it added.
func (c *Client) Category(ref PageRef) (*Category, error) {
	if ref.Title != "" && !strings.HasPrefix(ref.Title, "Category:") {
		ref.Title = "Category:" + ref.Title
	}
	if err := ref.validate(); err != nil {
		return nil, err
	}
	cat := &Category{Page: Page{
		client:          c,
		kind:            "category",
		title:           ref.Title,
		pageID:          ref.ID,
		followRedirects: ref.FollowRedirects,
	}}
	cat.load = cat.loadPage
	return cat, nil
}

// Populate fetches the category's members and subcategories, following
// continuation until either the whole category or limit members have been
// seen. Zero means no cap.
func (cat *Category) Populate(ctx context.Context, limit int) error {
	params := Params{
		"generator": "categorymembers",
		"gcmtitle":  cat.title,
		"prop":      []string{"revisions", "info"},
		"rvprop":    "content",
	}
	opts := []QueryOption{}
	if limit > 0 {
		opts = append(opts, WithLimit(limit))
	}
	q := cat.client.NewQuery(params, opts...)

	cat.members = nil
	cat.subcats = nil
	for q.Next(ctx) {
		rec := q.Item()
		title := getString(rec, "title")
		if getInt(rec, "ns") == categoryNamespace {
			sub, err := cat.client.Category(PageRef{Title: title})
			if err != nil {
				continue
			}
			if err := sub.apply(rec); err == nil {
				cat.subcats = append(cat.subcats, sub)
			}
			continue
		}
		member, err := cat.client.Page(PageRef{Title: title})
		if err != nil {
			continue
		}
		if err := member.apply(rec); err == nil {
			cat.members = append(cat.members, member)
		}
	}
	if err := q.Err(); err != nil {
		return err
	}
	cat.populated = true
	return nil
}

// Members returns the category's member pages, populating on first access.
func (cat *Category) Members(ctx context.Context) ([]*Page, error) {
	if !cat.populated {
		if err := cat.Populate(ctx, 0); err != nil {
			return nil, err
		}
	}
	return cat.members, nil
}

// Subcategories returns the category's subcategories, populating on first
// access.
func (cat *Category) Subcategories(ctx context.Context) ([]*Category, error) {
	if !cat.populated {
		if err := cat.Populate(ctx, 0); err != nil {
			return nil, err
		}
	}
	return cat.subcats, nil
}

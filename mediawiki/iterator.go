package mediawiki

import (
	"context"
	"sort"
	"strings"
)

// Query is a lazy cursor over a paginated API query. It drives repeated
// gateway calls through the continuation token, unwraps the nested query
// envelope, and yields flat records one at a time:
//
//	q := client.NewQuery(mediawiki.Params{"list": "allpages"}, mediawiki.WithLimit(10))
//	for q.Next(ctx) {
//		record := q.Item()
//		...
//	}
//	if err := q.Err(); err != nil { ... }
//
// A Query is forward-only and not restartable, and must not be advanced
// from more than one goroutine.
type Query struct {
	c           *Client
	params      Params
	limit       int
	useDefaults bool

	items []any
	item  map[string]any
	count int
	done  bool
	err   error
}

// QueryOption customizes a Query.
type QueryOption func(*Query)

// WithLimit caps the number of records the query yields. The cap applies
// even mid-page: once reached, no further request is sent. Zero or negative
// means unbounded.
func WithLimit(n int) QueryOption {
	return func(q *Query) { q.limit = n }
}

// WithoutDefaults sends the query without the configured default
// parameters.
func WithoutDefaults() QueryOption {
	return func(q *Query) { q.useDefaults = false }
}

// NewQuery prepares an iterator over the query described by params. The
// action is always "query"; params holds the list/prop/meta selection. No
// request is made until the first call to Next.
func (c *Client) NewQuery(params Params, opts ...QueryOption) *Query {
	q := &Query{
		c:           c,
		params:      params.clone(),
		useDefaults: true,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Next advances to the next record, fetching further pages through the
// continuation token as needed. It returns false when the sequence is
// exhausted, the item cap is reached, or an error occurred; check Err to
// tell the cases apart.
func (q *Query) Next(ctx context.Context) bool {
	if q.err != nil {
		return false
	}
	for {
		for len(q.items) > 0 {
			rec, ok := q.items[0].(map[string]any)
			q.items = q.items[1:]
			if !ok {
				continue
			}
			q.item = rec
			q.count++
			if q.limit > 0 && q.count >= q.limit {
				// Cap reached mid-page: drop the remainder so no further
				// request is made.
				q.items = nil
				q.done = true
			}
			return true
		}
		if q.done {
			return false
		}
		if !q.fetch(ctx) {
			return false
		}
	}
}

// Item returns the record Next positioned on.
func (q *Query) Item() map[string]any { return q.item }

// Err returns the first error encountered while iterating, if any.
func (q *Query) Err() error { return q.err }

// fetch issues one gateway call and refills the item buffer. It returns
// false when the sequence terminated (cleanly or with an error).
func (q *Query) fetch(ctx context.Context) bool {
	res, err := q.c.call(ctx, q.params, nil, q.useDefaults, nil)
	if err != nil {
		q.err = err
		return false
	}

	query, ok := res["query"].(map[string]any)
	if !ok {
		// An empty or malformed envelope (some wikis return a bare list)
		// ends the sequence without error.
		q.done = true
		return false
	}

	// Metadata notices are not data.
	delete(query, "normalized")
	delete(query, "redirects")
	delete(query, "interwiki")

	if len(query) > 1 {
		keys := make([]string, 0, len(query))
		for k := range query {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		q.err = usageErrorf("too many nodes under the query node: %s", strings.Join(keys, ", "))
		return false
	}
	if len(query) == 0 {
		q.done = true
		return false
	}

	for _, node := range query {
		switch n := node.(type) {
		case []any:
			q.items = n
		case map[string]any:
			// A mapping of records, e.g. pages keyed by page id.
			vals := make([]any, 0, len(n))
			for _, v := range n {
				vals = append(vals, v)
			}
			q.items = vals
		}
	}

	q.mergeContinuation(res)
	if len(q.items) == 0 && q.done {
		return false
	}
	return true
}

// mergeContinuation folds the continuation token into the next request's
// parameters. Modern wikis send a flat "continue" object; older ones nest
// per-property objects under "query-continue", which are flattened into one
// mapping.
func (q *Query) mergeContinuation(res map[string]any) {
	if cont, ok := res["continue"].(map[string]any); ok {
		for k, v := range cont {
			q.params[k] = v
		}
		return
	}
	if qc, ok := res["query-continue"].(map[string]any); ok {
		merged := false
		for _, sub := range qc {
			if m, ok := sub.(map[string]any); ok {
				for k, v := range m {
					q.params[k] = v
					merged = true
				}
			}
		}
		if merged {
			return
		}
	}
	q.done = true
}

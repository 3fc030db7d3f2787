package mediawiki

import (
	"context"
	"strings"
)

// Login authenticates the session with the given username and password.
// Wikis that demand a login token get the NeedToken second round-trip
// automatically. It returns true when the wiki reports success; the
// authenticated session lives in the client's cookie jar.
func (c *Client) Login(ctx context.Context, username, password string) (bool, error) {
	params := Params{
		"action":     "login",
		"lgname":     username,
		"lgpassword": password,
	}
	res, err := c.CallNoDefaults(ctx, params)
	if err != nil {
		return false, err
	}
	login := getMap(res, "login")
	switch getString(login, "result") {
	case "Success":
		c.logger.Info("logged in", "username", username)
		return true, nil
	case "NeedToken":
		params["lgtoken"] = getString(login, "token")
		res, err = c.CallNoDefaults(ctx, params)
		if err != nil {
			return false, err
		}
		if getString(getMap(res, "login"), "result") == "Success" {
			c.logger.Info("logged in", "username", username)
			return true, nil
		}
	}
	return false, nil
}

// Logout invalidates the authenticated session. Success is judged by the
// absence of an error envelope; a logged-out wiki replies with an empty
// object.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.CallNoDefaults(ctx, Params{"action": "logout"})
	return err
}

// RefreshTokens fetches fresh action tokens of the given kinds ("edit",
// "delete", "csrf", ...) into the token cache, replacing any stale values.
// With no arguments it refreshes the edit token. Wikis too old for
// action=tokens are probed through the legacy per-page intoken form.
func (c *Client) RefreshTokens(ctx context.Context, kinds ...string) error {
	if len(kinds) == 0 {
		kinds = []string{"edit"}
	}

	res, err := c.Call(ctx, Params{"action": "tokens", "type": kinds})
	if err == nil {
		for name, value := range getMap(res, "tokens") {
			if s, ok := value.(string); ok {
				c.tokens[trimTokenSuffix(name)] = s
			}
		}
		return nil
	}

	// The wiki does not support action=tokens; fall back to requesting
	// intoken on an info query and harvesting the per-page token fields.
	legacy := Params{
		"prop":    "info",
		"titles":  "some random title",
		"intoken": kinds,
	}
	res, lerr := c.Call(ctx, legacy)
	if lerr != nil {
		return err
	}
	pages := getMap(getMap(res, "query"), "pages")
	for _, pv := range pages {
		page, ok := pv.(map[string]any)
		if !ok {
			continue
		}
		for field, value := range page {
			if s, ok := value.(string); ok && strings.HasSuffix(field, "token") {
				c.tokens[trimTokenSuffix(field)] = s
			}
		}
	}
	return nil
}

func trimTokenSuffix(name string) string {
	return strings.TrimSuffix(name, "token")
}

// Token returns the cached action token of the given kind.
func (c *Client) Token(kind string) (string, bool) {
	t, ok := c.tokens[kind]
	return t, ok
}

// actionToken returns the token for an action, refreshing the cache once if
// it is absent. A token still missing after the refresh means the logged-in
// user lacks the corresponding permission.
func (c *Client) actionToken(ctx context.Context, kind string) (string, error) {
	if t, ok := c.tokens[kind]; ok && t != "" {
		return t, nil
	}
	if err := c.RefreshTokens(ctx, kind); err != nil {
		return "", err
	}
	t, ok := c.tokens[kind]
	if !ok || t == "" {
		return "", &APIError{
			Kind:    KindPermission,
			Code:    internalErrorCode,
			Message: "you do not have the " + kind + " permission",
		}
	}
	return t, nil
}

// Namespaces returns the wiki's namespace id to name mapping, fetching it
// on first use and caching it for the client's lifetime.
func (c *Client) Namespaces(ctx context.Context) (map[int]string, error) {
	if c.namespaces != nil {
		return c.namespaces, nil
	}
	namespaces := make(map[int]string)
	q := c.NewQuery(Params{"meta": "siteinfo", "siprop": "namespaces"}, WithoutDefaults())
	for q.Next(ctx) {
		ns := q.Item()
		namespaces[getInt(ns, "id")] = getString(ns, "*")
	}
	if err := q.Err(); err != nil {
		return nil, err
	}
	c.namespaces = namespaces
	return namespaces, nil
}

// ExpandTemplates asks the wiki to evaluate the templates in text as if it
// lived on the page named title, returning the processed wikitext.
func (c *Client) ExpandTemplates(ctx context.Context, title, text string, includeComments bool) (string, error) {
	params := Params{
		"action": "expandtemplates",
		"title":  title,
		"text":   text,
	}
	if includeComments {
		params["includecomments"] = true
	}
	res, err := c.CallNoDefaults(ctx, params)
	if err != nil {
		return "", err
	}
	return getString(getMap(res, "expandtemplates"), "*"), nil
}

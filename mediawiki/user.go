package mediawiki

import (
	"context"
	"net/netip"
	"time"
)

// BlockInfo describes an active block on a user. A nil BlockInfo on a
// loaded user means the user is not blocked.
type BlockInfo struct {
	By     string
	Reason string
	Expiry time.Time
}

// User is a lazily populated view of one wiki account or anonymous IP
// editor. Derived fields are fetched on first access and cached.
type User struct {
	client *Client
	name   string

	state loadState

	isIP         bool
	userID       int
	block        *BlockInfo
	groups       []string
	rights       []string
	editCount    int
	registration time.Time
	emailable    bool
	gender       string
}

// User returns a lazy handle on the user with the given name. IP addresses
// identify anonymous editors.
func (c *Client) User(name string) *User {
	u := &User{client: c, name: name}
	_, err := netip.ParseAddr(name)
	u.isIP = err == nil
	return u
}

// Name returns the user's name as given at construction.
func (u *User) Name() string { return u.name }

// IsIP reports whether the name parses as an IP address, marking an
// anonymous editor. Costs no network call.
func (u *User) IsIP() bool { return u.isIP }

// Load fetches the user's derived fields in one API call.
func (u *User) Load(ctx context.Context) error {
	q := u.client.NewQuery(Params{
		"list":    "users",
		"ususers": u.name,
		"usprop": []string{
			"blockinfo", "groups", "rights", "editcount",
			"registration", "emailable", "gender",
		},
	}, WithLimit(1), WithoutDefaults())
	if !q.Next(ctx) {
		if err := q.Err(); err != nil {
			return err
		}
		u.state = stateMissing
		return nil
	}
	u.apply(q.Item())
	return nil
}

func (u *User) apply(res map[string]any) {
	if has(res, "missing") || has(res, "invalid") {
		u.state = stateMissing
		return
	}
	u.state = stateLoaded
	u.userID = getInt(res, "userid")
	u.groups = getStrings(res, "groups")
	u.rights = getStrings(res, "rights")
	u.editCount = getInt(res, "editcount")
	_, u.emailable = res["emailable"]
	u.gender = getString(res, "gender")
	if raw := getString(res, "registration"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			u.registration = t
		}
	}
	u.block = nil
	if has(res, "blockedby") {
		expiry := neverExpires
		if raw := getString(res, "blockexpiry"); raw != "" && raw != "infinity" {
			if t, err := time.Parse(time.RFC3339, raw); err == nil {
				expiry = t
			}
		}
		u.block = &BlockInfo{
			By:     getString(res, "blockedby"),
			Reason: getString(res, "blockreason"),
			Expiry: expiry,
		}
	}
}

func (u *User) ensure(ctx context.Context) error {
	if u.state == stateUnloaded {
		if err := u.Load(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (u *User) derived(ctx context.Context) error {
	if err := u.ensure(ctx); err != nil {
		return err
	}
	if u.state == stateMissing {
		return &NotFoundError{Entity: "user", Identity: u.name}
	}
	return nil
}

// Exists reports whether the account is registered, loading on first
// access.
func (u *User) Exists(ctx context.Context) (bool, error) {
	if err := u.ensure(ctx); err != nil {
		return false, err
	}
	return u.state == stateLoaded, nil
}

// ID returns the user's numeric id.
func (u *User) ID(ctx context.Context) (int, error) {
	if err := u.derived(ctx); err != nil {
		return 0, err
	}
	return u.userID, nil
}

// Block returns the user's active block, or nil when the user is not
// blocked.
func (u *User) Block(ctx context.Context) (*BlockInfo, error) {
	if err := u.derived(ctx); err != nil {
		return nil, err
	}
	return u.block, nil
}

// Groups returns the groups the user belongs to.
func (u *User) Groups(ctx context.Context) ([]string, error) {
	if err := u.derived(ctx); err != nil {
		return nil, err
	}
	return u.groups, nil
}

// Rights returns the rights the user holds.
func (u *User) Rights(ctx context.Context) ([]string, error) {
	if err := u.derived(ctx); err != nil {
		return nil, err
	}
	return u.rights, nil
}

// EditCount returns the user's edit count.
func (u *User) EditCount(ctx context.Context) (int, error) {
	if err := u.derived(ctx); err != nil {
		return 0, err
	}
	return u.editCount, nil
}

// Registration returns when the account was registered; the zero time for
// accounts predating registration logs.
func (u *User) Registration(ctx context.Context) (time.Time, error) {
	if err := u.derived(ctx); err != nil {
		return time.Time{}, err
	}
	return u.registration, nil
}

// Emailable reports whether the user accepts email through the wiki.
func (u *User) Emailable(ctx context.Context) (bool, error) {
	if err := u.derived(ctx); err != nil {
		return false, err
	}
	return u.emailable, nil
}

// Gender returns the gender the user set in their preferences.
func (u *User) Gender(ctx context.Context) (string, error) {
	if err := u.derived(ctx); err != nil {
		return "", err
	}
	return u.gender, nil
}

// UserPage returns a handle on the user's user page. Costs no network
// call.
func (u *User) UserPage() (*Page, error) {
	return u.client.Page(PageRef{Title: "User:" + u.name})
}

// Email sends an email to the user through the wiki. The user must accept
// email; ccMe sends a copy to the logged-in sender.
func (u *User) Email(ctx context.Context, subject, text string, ccMe bool) error {
	emailable, err := u.Emailable(ctx)
	if err != nil {
		return err
	}
	if !emailable {
		return &APIError{
			Kind:    KindPermission,
			Code:    internalErrorCode,
			Message: "user " + u.name + " does not accept email",
		}
	}
	token, err := u.client.actionToken(ctx, "email")
	if err != nil {
		return err
	}
	params := Params{
		"action":  "emailuser",
		"target":  u.name,
		"subject": subject,
		"text":    text,
		"token":   token,
	}
	if ccMe {
		params["ccme"] = 1
	}
	_, err = u.client.Call(ctx, params)
	return err
}

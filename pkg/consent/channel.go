// Package consent abstracts the asynchronous boundary where the host asks the
// user for permission.
//
// The host raises the prompt and later reports back through a Table, either
// with a per-capability dialog result (Table.Deliver) or with a bare "user
// returned from settings" signal (Table.Resume). Each Open call gets a fresh
// Token so concurrent prompts never receive each other's results.
package consent

import (
	"github.com/go-drift/permissions/pkg/capability"
	"github.com/go-drift/permissions/pkg/errors"
	"github.com/go-drift/permissions/pkg/grant"
)

// Host is the platform surface that owns capability state and raises
// consent prompts.
type Host interface {
	grant.StateQuery
	grant.PermanentQuery

	// RequestPermissions shows the grant dialog for caps. The result must
	// later be delivered to the Table under token.
	RequestPermissions(token Token, caps []capability.Capability) error

	// OpenSettings sends the user to the settings screen for c. The host
	// must call Table.Resume with token once control returns.
	OpenSettings(token Token, c capability.Capability) error
}

// Channel opens consent prompts on a Host and tracks them in a Table.
type Channel struct {
	host   Host
	table  *Table
	tokens TokenSource
}

// NewChannel creates a channel. A nil tokens source means NewToken.
func NewChannel(host Host, table *Table, tokens TokenSource) *Channel {
	if tokens == nil {
		tokens = NewToken
	}
	return &Channel{host: host, table: table, tokens: tokens}
}

// Host returns the host the channel opens prompts on.
func (c *Channel) Host() Host {
	return c.host
}

// Table returns the table results are delivered to.
func (c *Channel) Table() *Table {
	return c.table
}

// Open asks the host to solicit consent for set and returns the future that
// resolves with the result. For settings redirects the result is the switch
// state re-queried when the user returns.
func (c *Channel) Open(set capability.Set) (*Future, Token, error) {
	caps := set.Capabilities()
	if len(caps) == 0 {
		return nil, "", errors.Configuration("consent.Open", errors.ErrEmptySet)
	}

	token := c.tokens()
	e := &entry{future: newFuture(), pathway: set.Pathway()}
	if set.Pathway() == capability.PathwaySettingsRedirect {
		target := caps[0]
		e.recheck = func() grant.Result {
			return grant.Result{Grants: map[capability.Capability]bool{
				target: c.host.SwitchEnabled(target),
			}}
		}
	}

	// Register BEFORE opening the prompt so a fast host cannot deliver
	// to an unknown token.
	if err := c.table.register(token, e); err != nil {
		return nil, "", err
	}

	var err error
	if set.Pathway() == capability.PathwaySettingsRedirect {
		err = c.host.OpenSettings(token, caps[0])
	} else {
		err = c.host.RequestPermissions(token, caps)
	}
	if err != nil {
		c.table.withdraw(token)
		return nil, "", &errors.Error{
			Op:    "consent.Open",
			Kind:  errors.KindPlatform,
			Token: string(token),
			Err:   err,
		}
	}
	return e.future, token, nil
}

// Abandon withdraws a pending token so that a late result is ignored and
// its future never resolves. It reports whether the token was pending.
func (c *Channel) Abandon(token Token) bool {
	return c.table.withdraw(token)
}

package consent

import (
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/go-drift/permissions/pkg/capability"
	"github.com/go-drift/permissions/pkg/errors"
	"github.com/go-drift/permissions/pkg/grant"
)

// Token correlates a consent prompt with the result the host delivers for it.
type Token string

// TokenSource produces a fresh token per Open call.
type TokenSource func() Token

// NewToken returns a random (version 4) UUID token. Collisions within the
// lifetime of a Table are not expected; the Table still rejects them.
func NewToken() Token {
	return Token(uuid.NewString())
}

// entry is one pending prompt.
type entry struct {
	future  *Future
	pathway capability.Pathway
	// recheck produces the result for a settings redirect once the user
	// returns. Nil for ordinary prompts.
	recheck func() grant.Result
}

// Table maps pending tokens to their futures. The host owns it and routes
// every consent result and settings resume signal through it. All methods
// are safe for concurrent use.
type Table struct {
	mu      sync.Mutex
	pending map[Token]*entry
	logger  *slog.Logger
}

// NewTable creates an empty table. A nil logger means slog.Default().
func NewTable(logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}
	return &Table{
		pending: make(map[Token]*entry),
		logger:  logger,
	}
}

func (t *Table) register(token Token, e *entry) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.pending[token]; exists {
		return &errors.Error{
			Op:    "consent.register",
			Kind:  errors.KindDuplicateToken,
			Token: string(token),
			Err:   errors.ErrDuplicateToken,
		}
	}
	t.pending[token] = e
	return nil
}

// take removes and returns the entry for token if accept approves it.
func (t *Table) take(token Token, accept func(*entry) bool) (*entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.pending[token]
	if !ok || !accept(e) {
		return nil, false
	}
	delete(t.pending, token)
	return e, true
}

// Deliver resolves the ordinary prompt identified by token with the
// per-capability dialog result. It returns false, and does nothing, if the
// token is unknown, already resolved, or was withdrawn. A delivery addressed
// to a settings redirect is treated as a resume signal: its payload is not
// trusted and the switch is re-checked instead.
func (t *Table) Deliver(token Token, grants map[capability.Capability]bool) bool {
	e, ok := t.take(token, func(*entry) bool { return true })
	if !ok {
		t.logger.Debug("consent result ignored", slog.String("token", string(token)))
		return false
	}
	if e.recheck != nil {
		return e.future.resolve(e.recheck())
	}
	return e.future.resolve(grant.Result{Grants: maps.Clone(grants)})
}

// Resume signals that control returned from the settings screen opened for
// token. The switch is re-checked and the future resolved. Resume ignores
// unknown tokens and tokens that belong to ordinary prompts.
func (t *Table) Resume(token Token) bool {
	e, ok := t.take(token, func(e *entry) bool { return e.recheck != nil })
	if !ok {
		t.logger.Debug("resume signal ignored", slog.String("token", string(token)))
		return false
	}
	return e.future.resolve(e.recheck())
}

// withdraw drops a pending token without resolving its future.
func (t *Table) withdraw(token Token) bool {
	_, ok := t.take(token, func(*entry) bool { return true })
	return ok
}

// Pending returns the tokens still awaiting a result, sorted.
func (t *Table) Pending() []Token {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Sorted(maps.Keys(t.pending))
}

// PendingRedirects returns the pending settings-redirect tokens, sorted.
func (t *Table) PendingRedirects() []Token {
	t.mu.Lock()
	defer t.mu.Unlock()
	var tokens []Token
	for token, e := range t.pending {
		if e.pathway == capability.PathwaySettingsRedirect {
			tokens = append(tokens, token)
		}
	}
	slices.Sort(tokens)
	return tokens
}

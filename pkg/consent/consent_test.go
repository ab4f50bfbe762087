package consent

import (
	stderrors "errors"
	"slices"
	"sync"
	"testing"

	"github.com/go-drift/permissions/pkg/capability"
	"github.com/go-drift/permissions/pkg/errors"
	"github.com/go-drift/permissions/pkg/grant"
)

// recordingHost remembers what it was asked to open.
type recordingHost struct {
	mu       sync.Mutex
	switches map[capability.Capability]bool
	opened   []Token
	openErr  error
	// onOpen runs inside RequestPermissions, before it returns.
	onOpen func(Token)
}

func (h *recordingHost) Granted(capability.Capability) bool             { return false }
func (h *recordingHost) ShouldShowRationale(capability.Capability) bool { return false }
func (h *recordingHost) PermanentlyDenied(capability.Capability) bool   { return false }

func (h *recordingHost) SwitchEnabled(c capability.Capability) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.switches[c]
}

func (h *recordingHost) RequestPermissions(token Token, caps []capability.Capability) error {
	if h.openErr != nil {
		return h.openErr
	}
	h.mu.Lock()
	h.opened = append(h.opened, token)
	h.mu.Unlock()
	if h.onOpen != nil {
		h.onOpen(token)
	}
	return nil
}

func (h *recordingHost) OpenSettings(token Token, c capability.Capability) error {
	if h.openErr != nil {
		return h.openErr
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.opened = append(h.opened, token)
	return nil
}

func camera(t *testing.T) capability.Set {
	t.Helper()
	set, err := capability.Ordinary(capability.Camera, capability.RecordAudio)
	if err != nil {
		t.Fatalf("capability.Ordinary: %v", err)
	}
	return set
}

func TestOpenOrdinaryDeliversOnce(t *testing.T) {
	table := NewTable(nil)
	host := &recordingHost{}
	ch := NewChannel(host, table, nil)

	future, token, err := ch.Open(camera(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if token == "" || !slices.Equal(host.opened, []Token{token}) {
		t.Fatalf("host opened %v, want [%s]", host.opened, token)
	}

	var calls int
	var got grant.Result
	future.Then(func(r grant.Result) {
		calls++
		got = r
	})

	grants := map[capability.Capability]bool{capability.Camera: true}
	if !table.Deliver(token, grants) {
		t.Fatal("first delivery should be accepted")
	}
	grants[capability.RecordAudio] = true // mutating after delivery must not leak in
	if table.Deliver(token, map[capability.Capability]bool{capability.Camera: false}) {
		t.Error("second delivery should be ignored")
	}

	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
	if !got.Grants[capability.Camera] || got.Grants[capability.RecordAudio] {
		t.Errorf("unexpected result %v", got.Grants)
	}
	select {
	case <-future.Done():
	default:
		t.Error("Done should be closed after resolution")
	}
	if len(table.Pending()) != 0 {
		t.Errorf("Pending() = %v, want empty", table.Pending())
	}
}

func TestThenAfterResolveRunsImmediately(t *testing.T) {
	table := NewTable(nil)
	host := &recordingHost{}
	// The host answers synchronously, before Open returns.
	host.onOpen = func(token Token) {
		table.Deliver(token, map[capability.Capability]bool{capability.Camera: true, capability.RecordAudio: true})
	}
	ch := NewChannel(host, table, nil)

	future, _, err := ch.Open(camera(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := future.Result(); !ok {
		t.Fatal("future should already be resolved")
	}
	ran := false
	future.Then(func(grant.Result) { ran = true })
	if !ran {
		t.Error("Then on a resolved future should run immediately")
	}
}

func TestConcurrentOpensAreCorrelatedByToken(t *testing.T) {
	table := NewTable(nil)
	host := &recordingHost{}
	ch := NewChannel(host, table, nil)

	first, t1, err := ch.Open(camera(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	second, t2, err := ch.Open(camera(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if t1 == t2 {
		t.Fatal("tokens must be distinct")
	}

	table.Deliver(t2, map[capability.Capability]bool{capability.Camera: true})
	if _, ok := first.Result(); ok {
		t.Fatal("first future resolved with the second request's result")
	}
	table.Deliver(t1, map[capability.Capability]bool{capability.RecordAudio: true})

	r1, _ := first.Result()
	r2, _ := second.Result()
	if !r1.Grants[capability.RecordAudio] || r1.Grants[capability.Camera] {
		t.Errorf("first result = %v", r1.Grants)
	}
	if !r2.Grants[capability.Camera] || r2.Grants[capability.RecordAudio] {
		t.Errorf("second result = %v", r2.Grants)
	}
}

func TestSettingsRedirectRechecksSwitch(t *testing.T) {
	table := NewTable(nil)
	host := &recordingHost{switches: map[capability.Capability]bool{}}
	ch := NewChannel(host, table, nil)

	future, token, err := ch.Open(capability.SystemAlertWindow())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := table.PendingRedirects(); !slices.Equal(got, []Token{token}) {
		t.Errorf("PendingRedirects() = %v, want [%s]", got, token)
	}

	host.mu.Lock()
	host.switches[capability.OverlayAction] = true
	host.mu.Unlock()

	// A payload addressed to a redirect is not trusted.
	if !table.Deliver(token, map[capability.Capability]bool{capability.OverlayAction: false}) {
		t.Fatal("delivery to a pending redirect should resolve it")
	}
	r, ok := future.Result()
	if !ok || !r.Grants[capability.OverlayAction] {
		t.Errorf("result = %v, want re-checked switch state", r.Grants)
	}
	if table.Resume(token) {
		t.Error("resume after resolution should be ignored")
	}
}

func TestResumeIgnoresOrdinaryTokens(t *testing.T) {
	table := NewTable(nil)
	ch := NewChannel(&recordingHost{}, table, nil)

	future, token, err := ch.Open(camera(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if table.Resume(token) {
		t.Error("resume must not resolve an ordinary prompt")
	}
	if _, ok := future.Result(); ok {
		t.Error("future should still be pending")
	}
	if len(table.Pending()) != 1 {
		t.Error("token should remain pending")
	}
}

func TestDuplicateToken(t *testing.T) {
	table := NewTable(nil)
	fixed := func() Token { return "fixed" }
	ch := NewChannel(&recordingHost{}, table, fixed)

	if _, _, err := ch.Open(camera(t)); err != nil {
		t.Fatalf("first Open: %v", err)
	}
	_, _, err := ch.Open(camera(t))
	if errors.KindOf(err) != errors.KindDuplicateToken {
		t.Fatalf("expected duplicate token error, got %v", err)
	}
	if !errors.Is(err, errors.ErrDuplicateToken) {
		t.Error("expected ErrDuplicateToken cause")
	}
}

func TestOpenFailureWithdrawsToken(t *testing.T) {
	table := NewTable(nil)
	host := &recordingHost{openErr: stderrors.New("no activity")}
	ch := NewChannel(host, table, nil)

	_, _, err := ch.Open(camera(t))
	if errors.KindOf(err) != errors.KindPlatform {
		t.Fatalf("expected platform error, got %v", err)
	}
	if len(table.Pending()) != 0 {
		t.Errorf("failed open left tokens pending: %v", table.Pending())
	}
}

func TestAbandon(t *testing.T) {
	table := NewTable(nil)
	ch := NewChannel(&recordingHost{}, table, nil)

	future, token, err := ch.Open(camera(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !ch.Abandon(token) {
		t.Fatal("Abandon should report the token was pending")
	}
	if table.Deliver(token, map[capability.Capability]bool{capability.Camera: true}) {
		t.Error("late delivery after abandon should be ignored")
	}
	if _, ok := future.Result(); ok {
		t.Error("abandoned future must never resolve")
	}
	if ch.Abandon(token) {
		t.Error("second Abandon should report nothing pending")
	}
}

func TestOpenRejectsZeroSet(t *testing.T) {
	ch := NewChannel(&recordingHost{}, NewTable(nil), nil)
	if _, _, err := ch.Open(capability.Set{}); !errors.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

// Package sim drives one permission request through the dispatcher against a
// scripted host and reports what happened.
package sim

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-drift/permissions/cmd/permsim/internal/config"
	"github.com/go-drift/permissions/pkg/capability"
	"github.com/go-drift/permissions/pkg/consent"
	"github.com/go-drift/permissions/pkg/dispatcher"
	"github.com/go-drift/permissions/pkg/grant"
	permtest "github.com/go-drift/permissions/pkg/testing"
)

// Callback names reported by Run.
const (
	CallbackGranted       = "granted"
	CallbackDenied        = "denied"
	CallbackNeverAskAgain = "never_ask_again"
	CallbackNone          = "none"
)

// Report is the result of one simulated request.
type Report struct {
	Scenario      string
	Capabilities  []capability.Capability
	Pathway       capability.Pathway
	RationaleSeen bool
	Prompts       int
	Redirects     int
	Callback      string
	State         dispatcher.State
	Outcome       grant.Outcome
}

// Run plays sc and waits for the request to finish.
func Run(ctx context.Context, sc *config.Scenario, logger *slog.Logger) (*Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	set, err := sc.Set()
	if err != nil {
		return nil, err
	}

	table := consent.NewTable(logger)
	host := permtest.NewFakeHost(table)
	seed(host, sc, set)

	d := dispatcher.New(consent.NewChannel(host, table, nil), dispatcher.Config{Logger: logger})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	report := &Report{
		Scenario:     sc.Name,
		Capabilities: set.Capabilities(),
		Pathway:      set.Pathway(),
		Callback:     CallbackNone,
	}
	var proceeded *dispatcher.Handle
	var proceedErr error
	cb := dispatcher.Callbacks{
		OnGranted:          func() { report.Callback = CallbackGranted },
		OnPermissionDenied: func() { report.Callback = CallbackDenied },
		OnNeverAskAgain:    func() { report.Callback = CallbackNeverAskAgain },
		OnShowRationale: func(req *dispatcher.RationaleRequest) {
			report.RationaleSeen = true
			if sc.Rationale == config.RationaleCancel {
				req.Cancel()
				return
			}
			proceeded, proceedErr = req.Proceed()
		},
	}

	h, err := d.Start(ctx, set, cb)
	if err != nil {
		return nil, err
	}
	if proceedErr != nil {
		return nil, fmt.Errorf("proceeding after rationale: %w", proceedErr)
	}
	if proceeded != nil {
		h = proceeded
	}

	if h.State() == dispatcher.StateAwaitingConsent {
		if sc.Abandon {
			cancel()
		} else {
			answer(host, sc, set, h.Token())
		}
	}

	select {
	case <-h.Done():
	case <-ctx.Done():
		if !sc.Abandon {
			return nil, ctx.Err()
		}
		<-h.Done()
	}

	report.Prompts = len(host.Prompts())
	report.Redirects = len(host.Redirects())
	report.State = h.State()
	report.Outcome = h.Outcome()
	return report, nil
}

func seed(host *permtest.FakeHost, sc *config.Scenario, set capability.Set) {
	host.Grant(config.ToCapabilities(sc.Host.Granted)...)
	for _, c := range config.ToCapabilities(sc.Host.Rationale) {
		host.SetRationale(c, true)
	}
	for _, c := range config.ToCapabilities(sc.Host.PermanentlyDenied) {
		host.SetPermanentlyDenied(c, true)
	}
	if set.Pathway() == capability.PathwaySettingsRedirect {
		host.SetSwitch(set.Capabilities()[0], sc.Host.SwitchEnabled)
	}
}

func answer(host *permtest.FakeHost, sc *config.Scenario, set capability.Set, token consent.Token) {
	caps := set.Capabilities()
	if set.Pathway() == capability.PathwaySettingsRedirect {
		host.ReturnFromSettings(token, caps[0], sc.SwitchOnReturn)
		return
	}
	grants := make(map[capability.Capability]bool, len(caps))
	for _, c := range caps {
		grants[c] = sc.Consent[string(c)]
	}
	host.Answer(token, grants)
}

// Package grant classifies the grant state of a capability set.
//
// Classify runs before any consent is solicited and decides whether a request
// can complete synchronously. Resolve runs after a consent result arrives and
// decides which terminal outcome the result represents. Both are pure: they
// read host state through the query interfaces and never suspend.
package grant

import (
	"github.com/go-drift/permissions/pkg/capability"
)

// Outcome is the classified state of a request.
type Outcome int

const (
	// AlreadyGranted means every capability was granted before any prompt.
	AlreadyGranted Outcome = iota + 1
	// NeedsRationale means an explanation should be shown before prompting.
	NeedsRationale
	// Denied means the user refused this time; asking again is allowed.
	Denied
	// PermanentlyDenied means the host suppresses further prompts.
	PermanentlyDenied
	// GrantedAfterPrompt means the user granted every capability when asked.
	GrantedAfterPrompt
)

func (o Outcome) String() string {
	switch o {
	case AlreadyGranted:
		return "already_granted"
	case NeedsRationale:
		return "needs_rationale"
	case Denied:
		return "denied"
	case PermanentlyDenied:
		return "permanently_denied"
	case GrantedAfterPrompt:
		return "granted_after_prompt"
	default:
		return "none"
	}
}

// Granted reports whether the outcome lets the guarded action run.
func (o Outcome) Granted() bool {
	return o == AlreadyGranted || o == GrantedAfterPrompt
}

// StateQuery reads pre-request grant state from the host.
type StateQuery interface {
	// Granted reports whether an ordinary capability is currently granted.
	Granted(c capability.Capability) bool
	// ShouldShowRationale reports the host's rationale heuristic. It is only
	// meaningful before a request is opened.
	ShouldShowRationale(c capability.Capability) bool
	// SwitchEnabled reports whether a settings-redirect switch is on.
	SwitchEnabled(c capability.Capability) bool
}

// PermanentQuery reads the host's post-result refusal heuristic.
type PermanentQuery interface {
	// PermanentlyDenied reports whether the host will suppress further
	// prompts for c. It is only meaningful after a result was delivered.
	PermanentlyDenied(c capability.Capability) bool
}

// Classify inspects set before consent is solicited. When ok is false no
// synchronous outcome exists and the caller must open a consent channel.
func Classify(set capability.Set, state StateQuery) (outcome Outcome, ok bool) {
	caps := set.Capabilities()

	if set.Pathway() == capability.PathwaySettingsRedirect {
		if state.SwitchEnabled(caps[0]) {
			return AlreadyGranted, true
		}
		return 0, false
	}

	var ungranted []capability.Capability
	for _, c := range caps {
		if !state.Granted(c) {
			ungranted = append(ungranted, c)
		}
	}
	if len(ungranted) == 0 {
		return AlreadyGranted, true
	}
	for _, c := range ungranted {
		if state.ShouldShowRationale(c) {
			return NeedsRationale, true
		}
	}
	return 0, false
}

// Result is the raw answer a consent channel produced for one request.
// For ordinary sets it holds the per-capability dialog result. For settings
// sets it holds the single re-checked switch state. Capabilities absent from
// Grants count as denied.
type Result struct {
	Grants map[capability.Capability]bool
}

// Resolve classifies a consent result for set. It returns GrantedAfterPrompt,
// PermanentlyDenied or Denied.
func Resolve(set capability.Set, result Result, permanent PermanentQuery) Outcome {
	var denied []capability.Capability
	for _, c := range set.Capabilities() {
		if !result.Grants[c] {
			denied = append(denied, c)
		}
	}
	if len(denied) == 0 {
		return GrantedAfterPrompt
	}
	// The user can always revisit a settings screen.
	if set.Pathway() == capability.PathwaySettingsRedirect {
		return Denied
	}
	for _, c := range denied {
		if permanent.PermanentlyDenied(c) {
			return PermanentlyDenied
		}
	}
	return Denied
}

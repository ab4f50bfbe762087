// Package capability describes the permissions a guarded action requires and
// the consent pathway that governs them.
//
// A Set is built once, validated at construction, and never mutated:
//
//	set, err := capability.Ordinary(capability.Camera, capability.RecordAudio)
//	if err != nil {
//	    // empty or mixed sets are rejected here, before any dialog opens
//	}
package capability

import (
	"slices"

	"github.com/go-drift/permissions/pkg/errors"
)

// Capability identifies one grantable permission.
type Capability string

// Well-known ordinary capabilities.
const (
	Camera              Capability = "android.permission.CAMERA"
	RecordAudio         Capability = "android.permission.RECORD_AUDIO"
	ReadContacts        Capability = "android.permission.READ_CONTACTS"
	ReadCalendar        Capability = "android.permission.READ_CALENDAR"
	PostNotifications   Capability = "android.permission.POST_NOTIFICATIONS"
	AccessCoarse        Capability = "android.permission.ACCESS_COARSE_LOCATION"
	AccessFine          Capability = "android.permission.ACCESS_FINE_LOCATION"
	AccessBackground    Capability = "android.permission.ACCESS_BACKGROUND_LOCATION"
	ReadExternalStorage Capability = "android.permission.READ_EXTERNAL_STORAGE"
)

// Settings-redirect capabilities. These are granted from a system settings
// screen rather than a grant dialog.
const (
	// WriteSettingsAction is the "modify system settings" switch.
	WriteSettingsAction Capability = "android.settings.action.MANAGE_WRITE_SETTINGS"
	// OverlayAction is the "draw over other apps" switch.
	OverlayAction Capability = "android.settings.action.MANAGE_OVERLAY_PERMISSION"
)

// Pathway identifies how consent for a capability is obtained.
type Pathway int

const (
	// PathwayOrdinary resolves consent through a multi-item grant dialog.
	PathwayOrdinary Pathway = iota
	// PathwaySettingsRedirect resolves consent by sending the user to a
	// settings screen and re-checking the switch when they return.
	PathwaySettingsRedirect
)

func (p Pathway) String() string {
	switch p {
	case PathwaySettingsRedirect:
		return "settings_redirect"
	default:
		return "ordinary"
	}
}

// Pathway returns the consent pathway that governs c.
func (c Capability) Pathway() Pathway {
	switch c {
	case WriteSettingsAction, OverlayAction:
		return PathwaySettingsRedirect
	default:
		return PathwayOrdinary
	}
}

// Set is an ordered, non-empty group of capabilities sharing one pathway.
// The zero Set is invalid and is rejected by the dispatcher.
type Set struct {
	caps    []Capability
	pathway Pathway
}

// Capabilities returns a copy of the members in request order.
func (s Set) Capabilities() []Capability {
	return slices.Clone(s.caps)
}

// Pathway returns the consent pathway shared by every member.
func (s Set) Pathway() Pathway {
	return s.pathway
}

// Len returns the number of capabilities in the set.
func (s Set) Len() int {
	return len(s.caps)
}

// IsZero reports whether s was not produced by a constructor.
func (s Set) IsZero() bool {
	return len(s.caps) == 0
}

// Contains reports whether c is a member of s.
func (s Set) Contains(c Capability) bool {
	return slices.Contains(s.caps, c)
}

// NewSet builds a set from caps, inferring the pathway from its members.
// Duplicates are dropped, keeping first-occurrence order. It fails with a
// configuration error when caps is empty, mixes pathways, or names more than
// one settings-redirect capability.
func NewSet(caps ...Capability) (Set, error) {
	return newSet("capability.NewSet", caps)
}

// Ordinary builds a set of capabilities resolved through the grant dialog.
func Ordinary(caps ...Capability) (Set, error) {
	set, err := newSet("capability.Ordinary", caps)
	if err != nil {
		return Set{}, err
	}
	if set.pathway != PathwayOrdinary {
		return Set{}, errors.Configuration("capability.Ordinary", errors.ErrMixedPathways)
	}
	return set, nil
}

// WriteSettings returns the set for the "modify system settings" switch.
func WriteSettings() Set {
	return Set{caps: []Capability{WriteSettingsAction}, pathway: PathwaySettingsRedirect}
}

// SystemAlertWindow returns the set for the "draw over other apps" switch.
func SystemAlertWindow() Set {
	return Set{caps: []Capability{OverlayAction}, pathway: PathwaySettingsRedirect}
}

func newSet(op string, caps []Capability) (Set, error) {
	if len(caps) == 0 {
		return Set{}, errors.Configuration(op, errors.ErrEmptySet)
	}
	out := make([]Capability, 0, len(caps))
	pathway := caps[0].Pathway()
	for _, c := range caps {
		if c == "" {
			return Set{}, errors.Configuration(op, errors.ErrBlankCapability)
		}
		if c.Pathway() != pathway {
			return Set{}, errors.Configuration(op, errors.ErrMixedPathways)
		}
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	if pathway == PathwaySettingsRedirect && len(out) > 1 {
		return Set{}, errors.Configuration(op, errors.ErrMixedPathways)
	}
	return Set{caps: out, pathway: pathway}, nil
}

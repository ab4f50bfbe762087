package grant

import (
	"testing"

	"github.com/go-drift/permissions/pkg/capability"
)

// stubState answers host queries from fixed maps.
type stubState struct {
	granted   map[capability.Capability]bool
	rationale map[capability.Capability]bool
	switches  map[capability.Capability]bool
	permanent map[capability.Capability]bool
}

func (s stubState) Granted(c capability.Capability) bool             { return s.granted[c] }
func (s stubState) ShouldShowRationale(c capability.Capability) bool { return s.rationale[c] }
func (s stubState) SwitchEnabled(c capability.Capability) bool       { return s.switches[c] }
func (s stubState) PermanentlyDenied(c capability.Capability) bool   { return s.permanent[c] }

func mustOrdinary(t *testing.T, caps ...capability.Capability) capability.Set {
	t.Helper()
	set, err := capability.Ordinary(caps...)
	if err != nil {
		t.Fatalf("capability.Ordinary: %v", err)
	}
	return set
}

func TestClassifyOrdinary(t *testing.T) {
	set := mustOrdinary(t, capability.Camera, capability.RecordAudio)

	tests := []struct {
		name   string
		state  stubState
		want   Outcome
		wantOK bool
	}{
		{
			name: "all granted",
			state: stubState{granted: map[capability.Capability]bool{
				capability.Camera: true, capability.RecordAudio: true,
			}},
			want:   AlreadyGranted,
			wantOK: true,
		},
		{
			name: "ungranted with rationale",
			state: stubState{
				granted:   map[capability.Capability]bool{capability.Camera: true},
				rationale: map[capability.Capability]bool{capability.RecordAudio: true},
			},
			want:   NeedsRationale,
			wantOK: true,
		},
		{
			name: "rationale on a granted capability is ignored",
			state: stubState{
				granted:   map[capability.Capability]bool{capability.Camera: true},
				rationale: map[capability.Capability]bool{capability.Camera: true},
			},
			wantOK: false,
		},
		{
			name:   "nothing granted, no rationale",
			state:  stubState{},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(set, tt.state)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifySettingsRedirect(t *testing.T) {
	set := capability.SystemAlertWindow()

	got, ok := Classify(set, stubState{switches: map[capability.Capability]bool{capability.OverlayAction: true}})
	if !ok || got != AlreadyGranted {
		t.Errorf("enabled switch: got (%v, %v), want (already_granted, true)", got, ok)
	}

	// Rationale never applies to the settings pathway.
	_, ok = Classify(set, stubState{rationale: map[capability.Capability]bool{capability.OverlayAction: true}})
	if ok {
		t.Error("disabled switch must require a redirect")
	}
}

func TestResolve(t *testing.T) {
	ordinary := mustOrdinary(t, capability.Camera, capability.RecordAudio)

	tests := []struct {
		name      string
		set       capability.Set
		grants    map[capability.Capability]bool
		permanent map[capability.Capability]bool
		want      Outcome
	}{
		{
			name:   "all granted",
			set:    ordinary,
			grants: map[capability.Capability]bool{capability.Camera: true, capability.RecordAudio: true},
			// Prior permanent denial does not matter once granted.
			permanent: map[capability.Capability]bool{capability.Camera: true},
			want:      GrantedAfterPrompt,
		},
		{
			name:   "partial grant",
			set:    ordinary,
			grants: map[capability.Capability]bool{capability.Camera: true, capability.RecordAudio: false},
			want:   Denied,
		},
		{
			name:   "missing entry counts as denied",
			set:    ordinary,
			grants: map[capability.Capability]bool{capability.Camera: true},
			want:   Denied,
		},
		{
			name:      "denied and permanently denied",
			set:       ordinary,
			grants:    map[capability.Capability]bool{capability.Camera: true},
			permanent: map[capability.Capability]bool{capability.RecordAudio: true},
			want:      PermanentlyDenied,
		},
		{
			name:      "permanent flag on a granted capability is ignored",
			set:       ordinary,
			grants:    map[capability.Capability]bool{capability.Camera: true},
			permanent: map[capability.Capability]bool{capability.Camera: true},
			want:      Denied,
		},
		{
			name:   "settings switch enabled on return",
			set:    capability.WriteSettings(),
			grants: map[capability.Capability]bool{capability.WriteSettingsAction: true},
			want:   GrantedAfterPrompt,
		},
		{
			name:      "settings switch still off",
			set:       capability.WriteSettings(),
			permanent: map[capability.Capability]bool{capability.WriteSettingsAction: true},
			want:      Denied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.set, Result{Grants: tt.grants}, stubState{permanent: tt.permanent})
			if got != tt.want {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOutcomeGranted(t *testing.T) {
	for _, o := range []Outcome{AlreadyGranted, GrantedAfterPrompt} {
		if !o.Granted() {
			t.Errorf("%v.Granted() = false, want true", o)
		}
	}
	for _, o := range []Outcome{NeedsRationale, Denied, PermanentlyDenied} {
		if o.Granted() {
			t.Errorf("%v.Granted() = true, want false", o)
		}
	}
}

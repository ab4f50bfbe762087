package capability

import (
	"slices"
	"testing"

	"github.com/go-drift/permissions/pkg/errors"
)

func TestOrdinary(t *testing.T) {
	set, err := Ordinary(Camera, RecordAudio, Camera)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.Pathway() != PathwayOrdinary {
		t.Errorf("Pathway() = %v, want ordinary", set.Pathway())
	}
	want := []Capability{Camera, RecordAudio}
	if got := set.Capabilities(); !slices.Equal(got, want) {
		t.Errorf("Capabilities() = %v, want %v", got, want)
	}
}

func TestSetIsImmutable(t *testing.T) {
	set, err := Ordinary(Camera)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	caps := set.Capabilities()
	caps[0] = RecordAudio
	if !set.Contains(Camera) || set.Contains(RecordAudio) {
		t.Error("mutating the returned slice must not change the set")
	}
}

func TestConstructionErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func() (Set, error)
		cause error
	}{
		{
			name:  "ordinary empty",
			build: func() (Set, error) { return Ordinary() },
			cause: errors.ErrEmptySet,
		},
		{
			name:  "new set empty",
			build: func() (Set, error) { return NewSet() },
			cause: errors.ErrEmptySet,
		},
		{
			name:  "blank capability",
			build: func() (Set, error) { return Ordinary(Camera, "") },
			cause: errors.ErrBlankCapability,
		},
		{
			name:  "mixed pathways",
			build: func() (Set, error) { return NewSet(Camera, OverlayAction) },
			cause: errors.ErrMixedPathways,
		},
		{
			name:  "two settings capabilities",
			build: func() (Set, error) { return NewSet(OverlayAction, WriteSettingsAction) },
			cause: errors.ErrMixedPathways,
		},
		{
			name:  "settings capability through ordinary builder",
			build: func() (Set, error) { return Ordinary(WriteSettingsAction) },
			cause: errors.ErrMixedPathways,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := tt.build()
			if err == nil {
				t.Fatalf("expected error, got set %v", set.Capabilities())
			}
			if !errors.IsConfiguration(err) {
				t.Errorf("expected configuration error, got %v", err)
			}
			if !errors.Is(err, tt.cause) {
				t.Errorf("expected cause %v, got %v", tt.cause, err)
			}
			if !set.IsZero() {
				t.Error("failed construction must return the zero Set")
			}
		})
	}
}

func TestSettingsSets(t *testing.T) {
	tests := []struct {
		name string
		set  Set
		want Capability
	}{
		{"write settings", WriteSettings(), WriteSettingsAction},
		{"system alert window", SystemAlertWindow(), OverlayAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.set.Pathway() != PathwaySettingsRedirect {
				t.Errorf("Pathway() = %v, want settings_redirect", tt.set.Pathway())
			}
			if tt.set.Len() != 1 || !tt.set.Contains(tt.want) {
				t.Errorf("Capabilities() = %v, want [%s]", tt.set.Capabilities(), tt.want)
			}
		})
	}

	set, err := NewSet(OverlayAction)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.Pathway() != PathwaySettingsRedirect {
		t.Error("NewSet should infer the settings pathway")
	}
}

func TestLocation(t *testing.T) {
	tests := []struct {
		name    string
		version string
		perms   []LocationPermission
		want    []Capability
		wantErr bool
	}{
		{
			name:    "old platform is coarse only",
			version: "28",
			want:    []Capability{AccessCoarse},
		},
		{
			name:    "new platform adds fine",
			version: "31",
			want:    []Capability{AccessCoarse, AccessFine},
		},
		{
			name:    "prefixed minor version",
			version: "v33.1",
			want:    []Capability{AccessCoarse, AccessFine},
		},
		{
			name:    "background from v29",
			version: "29",
			perms:   []LocationPermission{LocationCoarse, LocationBackground},
			want:    []Capability{AccessCoarse, AccessBackground},
		},
		{
			name:    "background filtered before v29",
			version: "26",
			perms:   []LocationPermission{LocationCoarse, LocationBackground},
			want:    []Capability{AccessCoarse},
		},
		{
			name:    "nothing survives the filter",
			version: "28",
			perms:   []LocationPermission{LocationFine},
			wantErr: true,
		},
		{
			name:    "invalid version",
			version: "pie",
			wantErr: true,
		},
		{
			name:    "missing version",
			version: " ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := Location(tt.version, tt.perms...)
			if tt.wantErr {
				if !errors.IsConfiguration(err) {
					t.Fatalf("expected configuration error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := set.Capabilities(); !slices.Equal(got, tt.want) {
				t.Errorf("Capabilities() = %v, want %v", got, tt.want)
			}
		})
	}
}

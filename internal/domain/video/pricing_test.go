package video

import "testing"

func TestCreditsFor(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		want     int64
	}{
		{"defaults", Settings{}, 1},
		{"hd 10s", Settings{Resolution: "hd", Duration: 10}, 1},
		{"fhd 10s", Settings{Resolution: "fhd", Duration: 10}, 2},
		{"4k 10s", Settings{Resolution: "4k", Duration: 10}, 4},
		{"hd 11s rounds up", Settings{Resolution: "hd", Duration: 11}, 2},
		{"hd 20s", Settings{Resolution: "hd", Duration: 20}, 2},
		{"fhd 30s", Settings{Resolution: "fhd", Duration: 30}, 6},
		{"4k 25s", Settings{Resolution: "4k", Duration: 25}, 12},
		{"zero duration defaults to one block", Settings{Resolution: "4k"}, 4},
		{"one second", Settings{Duration: 1}, 1},
	}

	for _, tt := range tests {
		if got := CreditsFor(tt.settings); got != tt.want {
			t.Errorf("%s: CreditsFor = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestSettingsAspectRatio(t *testing.T) {
	tests := []struct {
		orientation string
		ratio       string
		want        string
	}{
		{"landscape", "", "16:9"},
		{"portrait", "", "9:16"},
		{"square", "", "1:1"},
		{"", "", ""},
		{"landscape", "4:3", "4:3"},
	}

	for _, tt := range tests {
		s := Settings{Orientation: tt.orientation, Ratio: tt.ratio}
		if got := s.AspectRatio(); got != tt.want {
			t.Errorf("AspectRatio(%q, %q) = %q, want %q", tt.orientation, tt.ratio, got, tt.want)
		}
	}
}

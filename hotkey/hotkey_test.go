package hotkey

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	tests := []struct {
		combo   string
		want    []string
		wantErr bool
	}{
		{combo: "ctrl+shift+c", want: []string{"ctrl", "shift", "c"}},
		{combo: "Cmd + Option + Space", want: []string{"cmd", "alt", "space"}},
		{combo: "control+ctrl+return", want: []string{"ctrl", "enter"}},
		{combo: "f5", want: []string{"f5"}},
		{combo: "ctrl+shift", wantErr: true},
		{combo: "ctrl+a+b", wantErr: true},
		{combo: "ctrl++a", wantErr: true},
		{combo: "hyper+a", wantErr: true},
		{combo: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.combo, func(t *testing.T) {
			got, err := Parse(tt.combo)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) = %v, want error", tt.combo, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.combo, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.combo, diff)
			}
		})
	}
}

func TestBindings(t *testing.T) {
	got, err := Bindings(map[string]string{"back": "esc"})
	if err != nil {
		t.Fatalf("Bindings() error = %v", err)
	}
	if diff := cmp.Diff([]string{"esc"}, got[ActionBack]); diff != "" {
		t.Errorf("back mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"ctrl", "shift", "c"}, got[ActionCapture]); diff != "" {
		t.Errorf("capture default mismatch (-want +got):\n%s", diff)
	}
	if len(got) != len(Actions) {
		t.Errorf("bindings = %d, want %d", len(got), len(Actions))
	}

	if _, err := Bindings(map[string]string{"launch": "ctrl+l"}); err == nil {
		t.Error("Bindings() should reject an unknown action")
	}
	if _, err := Bindings(map[string]string{"capture": "ctrl+"}); err == nil {
		t.Error("Bindings() should reject a bad combo")
	}
}

package langdetect

import "testing"

func TestDisplayName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"English", "English"},
		{"Spanish", "Spanish"},
		{"es", "Spanish"},
		{"fr", "French"},
		{"de", "German"},
		{"", ""},
		{"  Italian ", "Italian"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.in); got != tt.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		text     string
		wantCode string
	}{
		{"The quick brown fox jumps over the lazy dog and runs into the forest.", "en"},
		{"El rápido zorro marrón salta sobre el perro perezoso y corre hacia el bosque.", "es"},
		{"Le renard brun rapide saute par-dessus le chien paresseux et court dans la forêt.", "fr"},
	}
	for _, tt := range tests {
		code, name, ok := Detect(tt.text)
		if !ok || code != tt.wantCode || name == "" {
			t.Errorf("Detect(%q) = %q, %q, %v; want %q", tt.text, code, name, ok, tt.wantCode)
		}
	}
}

func TestDetectEmpty(t *testing.T) {
	if _, _, ok := Detect("   "); ok {
		t.Error("Detect on blank text should fail")
	}
}

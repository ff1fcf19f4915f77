package util

import "testing"

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "nda.pdf", want: "nda.pdf"},
		{in: " a/b\\c.pdf ", want: "a_b_c.pdf"},
		{in: "../etc/passwd", want: "_etc_passwd"},
		{in: "Lease-v1..2-1777887000000.pdf", want: "Lease-v1.2-1777887000000.pdf"},
		{in: "..", wantErr: true},
		{in: "   ", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			got, err := SanitizeFileName(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("got %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestDashSpaces(t *testing.T) {
	tests := map[string]string{
		"NDA Agreement":         "NDA-Agreement",
		"  Lease \t  Contract ": "Lease-Contract",
		"a/b \"c\"":             "ab-c",
		"Lease v1..2":           "Lease-v1.2",
		"":                      "",
	}
	for in, want := range tests {
		if got := DashSpaces(in); got != want {
			t.Fatalf("DashSpaces(%q) = %q, want %q", in, got, want)
		}
	}
}

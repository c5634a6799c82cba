package handlers

import "testing"

func TestSlugifyBasic(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Electronics", "electronics"},
		{"Home & Garden", "home-garden"},
		{"  Mobile Phones  ", "mobile-phones"},
		{"USB-C Cables 2m", "usb-c-cables-2m"},
		{"---", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Fatalf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSlugifyCollapsesSeparators(t *testing.T) {
	if got := Slugify("a  &&  b"); got != "a-b" {
		t.Fatalf("expected consecutive separators to collapse, got %q", got)
	}
}

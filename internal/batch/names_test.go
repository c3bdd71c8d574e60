package batch

import "testing"

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"House Photos", "House Photos"},
		{"Café Listing", "Cafe Listing"},
		{"12 Main St. #4B", "12 Main St_ _4B"},
		{"a/b\\c:d", "a_b_c_d"},
		{"keep-this_name", "keep-this_name"},
	}
	for _, c := range cases {
		if got := SanitizeFilename(c.in); got != c.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestValidOrderID(t *testing.T) {
	valid := []string{
		"0194b2f1-6f2c-7b3a-9d4e-5f6a7b8c9d0e",
		"0194B2F1-6F2C-7B3A-9D4E-5F6A7B8C9D0E",
	}
	for _, id := range valid {
		if !ValidOrderID(id) {
			t.Errorf("ValidOrderID(%q) = false", id)
		}
	}
	invalid := []string{
		"",
		"not-a-uuid",
		"0194b2f16f2c7b3a9d4e5f6a7b8c9d0e",
		"{0194b2f1-6f2c-7b3a-9d4e-5f6a7b8c9d0e}",
		"urn:uuid:0194b2f1-6f2c-7b3a-9d4e-5f6a7b8c9d0e",
		"0194b2f1-6f2c-7b3a-9d4e-5f6a7b8c9d0e'; DROP TABLE orders",
	}
	for _, id := range invalid {
		if ValidOrderID(id) {
			t.Errorf("ValidOrderID(%q) = true", id)
		}
	}
}

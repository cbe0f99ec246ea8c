package chainutil

import "testing"

func TestNormalizeAddress(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"already canonical", "0x1234567890abcdef1234567890abcdef12345678", "0x1234567890abcdef1234567890abcdef12345678"},
		{"checksummed mixed case", "0x1234567890ABCDEF1234567890abcdef12345678", "0x1234567890abcdef1234567890abcdef12345678"},
		{"missing prefix", "1234567890abcdef1234567890abcdef12345678", "0x1234567890abcdef1234567890abcdef12345678"},
		{"short value left-padded", "0x1", "0x0000000000000000000000000000000000000001"},
		{"wrapped in debug string", "Address(0x1234567890abcdef1234567890abcdef12345678)", "0x1234567890abcdef1234567890abcdef12345678"},
		{"nil literal", "nil", ""},
		{"null literal", "null", ""},
		{"empty", "", ""},
		{"too long", "0x1234567890abcdef1234567890abcdef1234567890", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeAddress(tc.input)
			if got != tc.want {
				t.Errorf("NormalizeAddress(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestIsValidAddress(t *testing.T) {
	if !IsValidAddress("0x1234567890abcdef1234567890abcdef12345678") {
		t.Error("expected canonical address to be valid")
	}
	if IsValidAddress("0x123") {
		t.Error("expected short address to be invalid")
	}
	if IsValidAddress("1234567890abcdef1234567890abcdef12345678") {
		t.Error("expected unprefixed address to be invalid")
	}
}

func TestPadAddressTopic(t *testing.T) {
	got := PadAddressTopic("0xAbCabcabcabcabcabcabcabcabcabcabcabcabca")
	want := "0x000000000000000000000000abcabcabcabcabcabcabcabcabcabcabcabcabca"
	if len(got) != 66 {
		t.Fatalf("expected 66-char topic, got %d chars: %q", len(got), got)
	}
	if got != want {
		t.Errorf("PadAddressTopic = %q, want %q", got, want)
	}

	if PadAddressTopic("not-an-address") != "" {
		t.Error("expected empty string for invalid address")
	}
}

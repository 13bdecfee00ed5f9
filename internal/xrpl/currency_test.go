package xrpl

import "testing"

func TestNormalizeCurrency(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"USD", "USD"},
		{" usd ", "usd"},
		{"534f4c4f00000000000000000000000000000000", "534F4C4F00000000000000000000000000000000"},
		{"not-hex-but-forty-chars-long-xxxxxxxxxxx", "not-hex-but-forty-chars-long-xxxxxxxxxxx"},
	}
	for _, tt := range tests {
		if got := NormalizeCurrency(tt.in); got != tt.want {
			t.Errorf("NormalizeCurrency(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDecodeCurrency(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"534F4C4F00000000000000000000000000000000", "SOLO"},
		{"534f4c4f00000000000000000000000000000000", "SOLO"},
		{"XRP", "XRP"},
		// leading zero byte: non-text format, keep hex
		{"0158415500000000C1F76FF6ECB0BAC600000000", "0158415500000000C1F76FF6ECB0BAC600000000"},
		// non printable payload
		{"FF01020300000000000000000000000000000000", "FF01020300000000000000000000000000000000"},
	}
	for _, tt := range tests {
		if got := DecodeCurrency(tt.in); got != tt.want {
			t.Errorf("DecodeCurrency(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTokenIDNormalisesHex(t *testing.T) {
	a := TokenID("534f4c4f00000000000000000000000000000000", "rsoLo2S1kiGeCcn6hCUXVrCpGMWLrRrLZz")
	b := TokenID("534F4C4F00000000000000000000000000000000", " rsoLo2S1kiGeCcn6hCUXVrCpGMWLrRrLZz")
	if a != b {
		t.Errorf("TokenID not normalised: %q vs %q", a, b)
	}
	if a != "534F4C4F00000000000000000000000000000000.rsoLo2S1kiGeCcn6hCUXVrCpGMWLrRrLZz" {
		t.Errorf("TokenID = %q", a)
	}
}

func TestIsValidAddress(t *testing.T) {
	valid := []string{
		"rsoLo2S1kiGeCcn6hCUXVrCpGMWLrRrLZz",
		"rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh",
	}
	invalid := []string{
		"",
		"xsoLo2S1kiGeCcn6hCUXVrCpGMWLrRrLZz",
		"rshort",
		"r0OIl2S1kiGeCcn6hCUXVrCpGMWLrRrLZz",
	}
	for _, a := range valid {
		if !IsValidAddress(a) {
			t.Errorf("IsValidAddress(%q) = false", a)
		}
	}
	for _, a := range invalid {
		if IsValidAddress(a) {
			t.Errorf("IsValidAddress(%q) = true", a)
		}
	}
}

func TestShortAddress(t *testing.T) {
	if got := ShortAddress("rsoLo2S1kiGeCcn6hCUXVrCpGMWLrRrLZz"); got != "rsoLo2...rLZz" {
		t.Errorf("ShortAddress = %q", got)
	}
	if got := ShortAddress("rABC"); got != "rABC" {
		t.Errorf("ShortAddress short = %q", got)
	}
}

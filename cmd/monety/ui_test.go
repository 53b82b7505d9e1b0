package main

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"35", "35", true},
		{" 38,50 ", "38.5", true},
		{"0", "", false},
		{"-5", "", false},
		{"abc", "", false},
	}
	for _, tc := range tests {
		got, err := parseAmount(tc.in)
		if tc.ok != (err == nil) {
			t.Fatalf("%q: unexpected err %v", tc.in, err)
		}
		if tc.ok && !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("%q: got %s want %s", tc.in, got, tc.want)
		}
	}
}

func TestMoneyAndTruncate(t *testing.T) {
	if got := money(decimal.RequireFromString("3.5")); got != "R$ 3.50" {
		t.Fatalf("money got %q", got)
	}
	if got := truncate("Saque via PIX (email: someone@example.com)", 12); got != "Saque via..." {
		t.Fatalf("truncate got %q", got)
	}
}

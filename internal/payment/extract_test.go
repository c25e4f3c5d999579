package payment

import "testing"

func TestExtractTransactionCode(t *testing.T) {
	cases := []struct {
		name string
		memo string
		want string
		ok   bool
	}{
		{"labeled payment code", "PAYMENT CODE: A2BCDEF456 chuyen tien", "A2BCDEF456", true},
		{"labeled code with dash", "code - B3XYZQ789W", "B3XYZQ789W", true},
		{"vietnamese label with diacritics", "Mã thanh toán: C4DEFGH567", "C4DEFGH567", true},
		{"vietnamese label ascii", "MA THANH TOAN D5GHJKL234", "D5GHJKL234", true},
		{"bare run mixing letters and digits", "chuyen khoan E6MNPQR345 cam on", "E6MNPQR345", true},
		{"pure digits skipped", "so du 123456789 luc 10h30", "", false},
		{"labeled wins over earlier bare run", "ref Z9ABCDEF23 payment code: A2BCDEF456", "A2BCDEF456", true},
		{"too short", "ma A2B45", "", false},
		{"empty", "", "", false},
		{"lowercase memo", "payment code: a2bcdef456", "A2BCDEF456", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractTransactionCode(tc.memo)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("ExtractTransactionCode(%q) = %q, %v; want %q, %v", tc.memo, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestNormalizeMemo(t *testing.T) {
	if got := NormalizeMemo("Mã thanh toán đơn hàng"); got != "MA THANH TOAN DON HANG" {
		t.Fatalf("got %q", got)
	}
	if got := NormalizeMemo("  thanh toán  "); got != "THANH TOAN" {
		t.Fatalf("got %q", got)
	}
}

package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		s    string
		def  int
		want int
	}{
		// empty -> default
		{"", 10, 10},
		// valid ints
		{"42", 0, 42},
		{"-13", 1, -13},
		{"0012", 99, 12},
		// invalid -> default (no trim)
		{"x", 5, 5},
		{" 42", 7, 7},
		// overflow -> default
		{"999999999999999999999999", -1, -1},
	}

	for _, tc := range cases {
		if got := AtoiDefault(tc.s, tc.def); got != tc.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d; want %d", tc.s, tc.def, got, tc.want)
		}
	}
}

func TestParsePage(t *testing.T) {
	cases := []struct {
		name       string
		limit, off string
		wantL      int
		wantO      int
	}{
		{"defaults", "", "", 50, 0},
		{"explicit", "10", "20", 10, 20},
		{"zero limit", "0", "", 50, 0},
		{"negative limit", "-5", "", 50, 0},
		{"clamped", "5000", "", 500, 0},
		{"negative offset", "10", "-1", 10, 0},
		{"garbage", "ten", "x", 50, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l, o := ParsePage(tc.limit, tc.off, 50, 500)
			if l != tc.wantL || o != tc.wantO {
				t.Fatalf("ParsePage(%q,%q) = %d,%d; want %d,%d", tc.limit, tc.off, l, o, tc.wantL, tc.wantO)
			}
		})
	}
}

func TestWindow(t *testing.T) {
	cases := []struct {
		total, limit, offset int
		lo, hi               int
	}{
		{10, 3, 0, 0, 3},
		{10, 3, 8, 8, 10},
		{10, 3, 10, 10, 10},
		{10, 3, 99, 10, 10},
		{0, 5, 0, 0, 0},
	}
	for _, tc := range cases {
		lo, hi := Window(tc.total, tc.limit, tc.offset)
		if lo != tc.lo || hi != tc.hi {
			t.Fatalf("Window(%d,%d,%d) = [%d,%d); want [%d,%d)", tc.total, tc.limit, tc.offset, lo, hi, tc.lo, tc.hi)
		}
	}
}

// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest_test

import (
	"testing"

	"github.com/mdhender/texdigest"
)

func TestDimen_String(t *testing.T) {
	for _, tc := range []struct {
		d    texdigest.Dimen
		want string
	}{
		{0, "0.0pt"},
		{texdigest.Pt(1), "1.0pt"},
		{98304, "1.5pt"},
		{-65536, "-1.0pt"},
		{texdigest.Pt(12), "12.0pt"},
		{1, "0.00002pt"},
	} {
		if got := tc.d.String(); got != tc.want {
			t.Errorf("%d: got %q, want %q", int(tc.d), got, tc.want)
		}
	}
}

func TestGlue_String(t *testing.T) {
	g := texdigest.Glue{Width: texdigest.Pt(1), Stretch: texdigest.Pt(2), StretchOrder: texdigest.Fil, Shrink: 32768}
	if got, want := g.String(), "1.0pt plus 2.0fil minus 0.5pt"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDigest_Dimensions(t *testing.T) {
	for _, tc := range []struct {
		input string
		want  string
	}{
		{`\dimen0=1.5pt \the\dimen0`, "1.5pt"},
		{`\dimen0=1in \the\dimen0`, "72.26999pt"},
		{`\dimen0=-.5pt \the\dimen0`, "-0.5pt"},
		{`\dimen0=2pc \the\dimen0`, "24.0pt"},
		{`\dimen0=1pt \advance\dimen0 by 0.25pt \the\dimen0`, "1.25pt"},
	} {
		doc, _ := mustDigest(t, tc.input)
		if got := text(doc); got != tc.want {
			t.Errorf("%q: got %q, want %q", tc.input, got, tc.want)
		}
	}
}

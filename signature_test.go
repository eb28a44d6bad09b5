// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest_test

import (
	"testing"

	"github.com/mdhender/texdigest"
)

func TestParseSignature(t *testing.T) {
	sig, err := texdigest.ParseSignature("*star [toc] title:str")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := texdigest.Signature{
		{Name: "star", Star: true},
		{Name: "toc", Type: texdigest.ArgNox, Optional: true},
		{Name: "title", Type: texdigest.ArgStr},
	}
	if len(sig) != len(want) {
		t.Fatalf("len: got %d, want %d", len(sig), len(want))
	}
	for i := range want {
		if sig[i] != want[i] {
			t.Errorf("%d: got %+v, want %+v", i, sig[i], want[i])
		}
	}

	sig, err = texdigest.ParseSignature("char:Number = code:Number")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got, want := sig[1].Keyword, "="; got != want {
		t.Errorf("keyword: got %q, want %q", got, want)
	}
	if got, want := sig[2].Type, texdigest.ArgNumber; got != want {
		t.Errorf("type: got %s, want %s", got, want)
	}

	sig, err = texdigest.ParseSignature("")
	if err != nil || len(sig) != 0 {
		t.Errorf("empty: got %v %v, want no params", sig, err)
	}
}

func TestParseSignature_Errors(t *testing.T) {
	for _, sig := range []string{
		"x:Bogus",
		":str",
		"[]",
		"text:content more:str",
	} {
		if _, err := texdigest.ParseSignature(sig); err == nil {
			t.Errorf("%q: got nil error", sig)
		}
	}
}

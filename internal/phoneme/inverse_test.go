package phoneme

import (
	"slices"
	"testing"
)

func TestFromIPA_PrimarySpelling(t *testing.T) {
	tests := []struct {
		name string
		ipa  string
		want string
	}{
		{"ami", "ami", "আমি"},
		{"shuni", "ʃuni", "শুনি"},
		{"suni", "suni", "সুনি"},
		{"retroflex", "ɖal", "ডাল"},
		{"flap", "ɽal", "ড়াল"},
		{"sentence", "ami bʱal", "আমি ভাল"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromIPA(tt.ipa)
			if len(got) == 0 {
				t.Fatalf("FromIPA(%q) returned no spellings", tt.ipa)
			}
			if got[0] != tt.want {
				t.Errorf("FromIPA(%q)[0] = %q; want %q", tt.ipa, got[0], tt.want)
			}
		})
	}
}

func TestFromIPA_HomophoneAlternates(t *testing.T) {
	// dʒ spells as জ (preferred) and য; a word containing it must produce
	// both, preferred first.
	got := FromIPA("dʒal")
	if len(got) < 2 {
		t.Fatalf("FromIPA(dʒal) = %v; want at least 2 spellings", got)
	}
	if got[0] != "জাল" {
		t.Errorf("FromIPA(dʒal)[0] = %q; want জাল", got[0])
	}
	if !slices.Contains(got, "যাল") {
		t.Errorf("FromIPA(dʒal) = %v; want it to contain যাল", got)
	}
}

func TestFromIPA_SibilantFrequencyOrder(t *testing.T) {
	// Plain s prefers স over শ over ষ when no further signal is available.
	got := FromIPA("sat̪")
	want := []string{"সাত", "শাত", "ষাত"}
	if len(got) < 3 {
		t.Fatalf("FromIPA(sat̪) = %v; want at least 3 spellings", got)
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("FromIPA(sat̪)[%d] = %q; want %q", i, got[i], w)
		}
	}
}

func TestFromIPA_Bounded(t *testing.T) {
	// Every phoneme here has homophone spellings; the candidate list must
	// still respect the bound.
	got := FromIPA("sdʒn sdʒn sdʒn")
	if len(got) > maxSpellings {
		t.Errorf("FromIPA returned %d spellings; bound is %d", len(got), maxSpellings)
	}
}

func TestFromIPA_NoDuplicates(t *testing.T) {
	got := FromIPA("ʃuni")
	seen := make(map[string]struct{}, len(got))
	for _, sp := range got {
		if _, dup := seen[sp]; dup {
			t.Errorf("FromIPA(ʃuni) contains duplicate spelling %q", sp)
		}
		seen[sp] = struct{}{}
	}
}

func TestFromIPA_Empty(t *testing.T) {
	if got := FromIPA(""); got != nil {
		t.Errorf("FromIPA(\"\") = %v; want nil", got)
	}
}

func TestFromIPA_PassthroughSurvives(t *testing.T) {
	got := FromIPA("ami 123")
	if len(got) == 0 {
		t.Fatal("FromIPA(ami 123) returned no spellings")
	}
	if got[0] != "আমি 123" {
		t.Errorf("FromIPA(ami 123)[0] = %q; want %q", got[0], "আমি 123")
	}
}

func TestRoundTrip_BengaliIPABengali(t *testing.T) {
	// The round trip is lossy in general, but for words whose phonemes all
	// have a unique preferred spelling it must reproduce the input.
	for _, text := range []string{"আমি", "ভাল", "ডাল"} {
		form, err := ToIPA(text)
		if err != nil {
			t.Fatalf("ToIPA(%q) returned error: %v", text, err)
		}
		back := FromIPA(form.IPA)
		if len(back) == 0 || back[0] != text {
			t.Errorf("FromIPA(ToIPA(%q)) = %v; want first spelling %q", text, back, text)
		}
	}
}

package ir

import (
	"strings"
	"sync"
	"testing"
)

func TestCombiningKind_KeywordRoundTrip(t *testing.T) {
	for _, kind := range CombiningKinds() {
		parsed, ok := ParseCombiningKind(kind.String())
		if !ok {
			t.Errorf("keyword %q did not parse", kind.String())
			continue
		}
		if parsed != kind {
			t.Errorf("round trip of %q: got %v, want %v", kind.String(), parsed, kind)
		}
	}
}

func TestCombiningKind_UnknownKeyword(t *testing.T) {
	for _, keyword := range []string{"", "sub", "ADD", "add ", "minimum"} {
		if _, ok := ParseCombiningKind(keyword); ok {
			t.Errorf("keyword %q parsed but should not", keyword)
		}
	}
}

func TestCombiningKindAttr_Interning(t *testing.T) {
	ctx := NewContext()

	for _, kind := range CombiningKinds() {
		a := CombiningKindAttrOf(kind, ctx)
		b := CombiningKindAttrOf(kind, ctx)
		if a != b {
			t.Errorf("kind %v: two gets returned distinct instances", kind)
		}
		if a.Kind() != kind {
			t.Errorf("kind %v: accessor returned %v", kind, a.Kind())
		}
	}

	// A different context must produce different instances.
	other := NewContext()
	if CombiningKindAttrOf(CombiningAdd, ctx) == CombiningKindAttrOf(CombiningAdd, other) {
		t.Error("attributes interned across unrelated contexts")
	}
}

func TestCombiningKindAttr_ConcurrentInterning(t *testing.T) {
	ctx := NewContext()
	results := make([][]*CombiningKindAttr, 8)

	var wg sync.WaitGroup
	for g := range results {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			attrs := make([]*CombiningKindAttr, 0, numCombiningKinds)
			for _, kind := range CombiningKinds() {
				attrs = append(attrs, CombiningKindAttrOf(kind, ctx))
			}
			results[g] = attrs
		}(g)
	}
	wg.Wait()

	for g := 1; g < len(results); g++ {
		for i := range results[0] {
			if results[g][i] != results[0][i] {
				t.Fatalf("goroutine %d interned a distinct instance for kind %d", g, i)
			}
		}
	}
}

func TestCombiningKindAttr_Print(t *testing.T) {
	ctx := NewContext()

	var sb strings.Builder
	if err := CombiningKindAttrOf(CombiningMax, ctx).Print(&sb); err != nil {
		t.Fatalf("print failed: %v", err)
	}
	if sb.String() != "max" {
		t.Errorf("printed %q, want %q", sb.String(), "max")
	}
}

func TestCombiningKind_Bitwise(t *testing.T) {
	bitwise := map[CombiningKind]bool{
		CombiningAnd: true,
		CombiningOr:  true,
		CombiningXor: true,
	}
	for _, kind := range CombiningKinds() {
		if kind.Bitwise() != bitwise[kind] {
			t.Errorf("kind %v: Bitwise() = %v", kind, kind.Bitwise())
		}
	}
}

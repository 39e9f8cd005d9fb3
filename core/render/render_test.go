package render

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/FocuswithJustin/formations/core/cache"
	ferrors "github.com/FocuswithJustin/formations/core/errors"
	"github.com/FocuswithJustin/formations/core/formation"
)

func outer(pos int, letters string) formation.ResolvedSegment {
	return formation.ResolvedSegment{Segment: formation.Segment{Position: pos}, Letters: letters}
}

func inner(pos int, letters string) formation.ResolvedSegment {
	return formation.ResolvedSegment{Segment: formation.Segment{Position: pos, Inner: true}, Letters: letters}
}

// fakeSource serves fixed formations and counts loads.
type fakeSource struct {
	words map[string][]formation.Resolved
	loads int
	err   error
}

func (f *fakeSource) FormationsOf(_ context.Context, word string) ([]formation.Resolved, error) {
	f.loads++
	if f.err != nil {
		return nil, f.err
	}
	return f.words[word], nil
}

func abcSource() *fakeSource {
	return &fakeSource{words: map[string][]formation.Resolved{
		"ABC": {
			{Number: 1, Segments: []formation.ResolvedSegment{outer(0, "A"), outer(1, "BC")}},
			{Number: 2, Segments: []formation.ResolvedSegment{outer(0, "AB"), outer(2, "C")}},
			{Number: 3, Segments: []formation.ResolvedSegment{outer(0, "A"), outer(1, "B"), outer(2, "C")}},
			{Number: 4, Segments: []formation.ResolvedSegment{outer(0, "AC"), inner(1, "B")}},
		},
	}}
}

func TestRenderScenario(t *testing.T) {
	svc := NewService(abcSource())

	got, err := svc.Render(context.Background(), "ABC")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := map[int]string{1: "A-BC", 2: "AB-C", 3: "A-B-C", 4: "A(B)C"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Render(ABC) mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderUnknownWord(t *testing.T) {
	got, err := NewService(abcSource()).Render(context.Background(), "CAB")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Render(unknown) = %v, want empty", got)
	}
}

func TestDisplay(t *testing.T) {
	tests := []struct {
		name string
		segs []formation.ResolvedSegment
		want string
	}{
		{"linear", []formation.ResolvedSegment{outer(0, "בר"), outer(2, "אשית")}, "בר-אשית"},
		{"unsorted input", []formation.ResolvedSegment{outer(2, "C"), outer(0, "A"), outer(1, "B")}, "A-B-C"},
		{"nested hebrew", []formation.ResolvedSegment{outer(0, "בית"), inner(1, "ראש")}, "ב(ראש)ית"},
		{"inner last in input", []formation.ResolvedSegment{inner(2, "XY"), outer(0, "ABCD")}, "AB(XY)CD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Display("w", formation.Resolved{Number: 1, Segments: tt.segs})
			if err != nil {
				t.Fatalf("Display: %v", err)
			}
			if got != tt.want {
				t.Errorf("Display() = %q, want %q", got, tt.want)
			}
			open, closed := strings.Count(got, "("), strings.Count(got, ")")
			nested := formation.Resolved{Segments: tt.segs}.Nested()
			if nested && (open != 1 || closed != 1) || !nested && (open != 0 || closed != 0) {
				t.Errorf("Display() = %q has %d/%d parentheses for nested=%v", got, open, closed, nested)
			}
		})
	}
}

func TestDisplayCorrupt(t *testing.T) {
	tests := []struct {
		name string
		segs []formation.ResolvedSegment
	}{
		{"inner before outer text", []formation.ResolvedSegment{inner(0, "B")}},
		{"inner at offset zero", []formation.ResolvedSegment{outer(0, "AC"), inner(0, "B")}},
		{"inner past end", []formation.ResolvedSegment{outer(0, "AC"), inner(5, "B")}},
		{"inner at end", []formation.ResolvedSegment{outer(0, "AC"), inner(2, "B")}},
		{"two inner", []formation.ResolvedSegment{outer(0, "ACD"), inner(1, "B"), inner(2, "B")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Display("ABC", formation.Resolved{Number: 7, Segments: tt.segs})
			if !errors.Is(err, ferrors.ErrCorruptRender) {
				t.Fatalf("Display() error = %v, want ErrCorruptRender", err)
			}
			var cre *ferrors.CorruptRenderError
			if !errors.As(err, &cre) || cre.Word != "ABC" || cre.FormationNumber != 7 {
				t.Errorf("error detail = %+v", cre)
			}
		})
	}
}

func TestServiceCorruptPropagates(t *testing.T) {
	src := &fakeSource{words: map[string][]formation.Resolved{
		"ABC": {{Number: 1, Segments: []formation.ResolvedSegment{outer(0, "AC"), inner(9, "B")}}},
	}}
	if _, err := NewService(src).Render(context.Background(), "ABC"); !errors.Is(err, ferrors.ErrCorruptRender) {
		t.Errorf("Render() error = %v, want ErrCorruptRender", err)
	}
}

func TestServiceSourceError(t *testing.T) {
	boom := errors.New("disk on fire")
	_, err := NewService(&fakeSource{err: boom}).Ordered(context.Background(), "ABC")
	if !errors.Is(err, boom) {
		t.Errorf("Ordered() error = %v, want wrapped source error", err)
	}
}

func TestServiceOrderedAndCache(t *testing.T) {
	src := abcSource()
	// deliver out of order; Ordered must sort by number
	f := src.words["ABC"]
	f[0], f[3] = f[3], f[0]

	c := cache.NewLRU[string, []Rendered](16)
	svc := NewService(src, WithCache(c))

	for range 3 {
		got, err := svc.Ordered(context.Background(), "ABC")
		if err != nil {
			t.Fatalf("Ordered: %v", err)
		}
		want := []Rendered{
			{Number: 1, Display: "A-BC"},
			{Number: 2, Display: "AB-C"},
			{Number: 3, Display: "A-B-C"},
			{Number: 4, Display: "A(B)C", Nested: true},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("Ordered mismatch (-want +got):\n%s", diff)
		}
	}
	if src.loads != 1 {
		t.Errorf("source loaded %d times, want 1", src.loads)
	}
	if st := c.Stats(); st.Hits != 2 {
		t.Errorf("cache hits = %d, want 2", st.Hits)
	}
}

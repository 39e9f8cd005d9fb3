package corpus

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	ferrors "github.com/FocuswithJustin/formations/core/errors"
	"github.com/FocuswithJustin/formations/core/lexicon"
)

var hebrew = lexicon.MustAlphabet(lexicon.Hebrew)

const genesisFragment = `<?xml version="1.0" encoding="utf-8"?>
<osis xmlns="http://www.bibletechnologies.net/2003/OSIS/namespace">
  <osisText osisIDWork="WLC" xml:lang="he">
    <div type="book" osisID="Gen">
      <chapter osisID="Gen.1">
        <verse osisID="Gen.1.1">
          <w lemma="b/7225" morph="HR/Ncfsa" id="01xeN">בְּ/רֵאשִׁ֖ית</w>
          <w lemma="1254 a" morph="HVqp3ms" id="01Nvk">בָּרָ֣א</w>
          <w lemma="430" morph="HNcmpa" id="01TyA">אֱלֹהִ֑ים</w>
          <note type="variant"><rdg><w lemma="9999">זזז</w></rdg></note>
        </verse>
        <verse osisID="Gen.1.2">
          <w lemma="c/d/776" morph="HC/Td/Ncbsa">וְ/הָ/אָ֗רֶץ</w>
          <seg type="x-sof-pasuq">׃</seg>
        </verse>
      </chapter>
    </div>
  </osisText>
</osis>`

func TestNormalize(t *testing.T) {
	n := NewNormalizer(hebrew)
	tests := []struct {
		in, want string
	}{
		{"בְּ/רֵאשִׁ֖ית", "בראשית"},
		{"וְ/הָ/אָ֗רֶץ", "והארץ"},
		{"שָׁלוֹם", "שלום"},      // precomposed shin with shin dot
		{"מַה־טֹּבוּ", "מהטבו"}, // maqaf dropped
		{"׃", ""},
		{"abc", ""},
	}
	for _, tt := range tests {
		if got := n.Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStrongKey(t *testing.T) {
	tests := map[string]string{
		"b/7225":  "7225",
		"1254 a":  "1254a",
		"c/d/776": "776",
		"430":     "430",
		"":        "",
	}
	for in, want := range tests {
		if got := StrongKey(in); got != want {
			t.Errorf("StrongKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		in      string
		want    Ref
		wantErr bool
	}{
		{"Gen.1.1", Ref{Book: "Gen", Chapter: 1, Verse: 1}, false},
		{"1Sam.3.10", Ref{Book: "1Sam", Chapter: 3, Verse: 10}, false},
		{" Ps.119.176 ", Ref{Book: "Ps", Chapter: 119, Verse: 176}, false},
		{"Song.8.14", Ref{Book: "Song", Chapter: 8, Verse: 14}, false},
		{"", Ref{}, true},
		{"Gen", Ref{}, true},
		{"Gen.1", Ref{}, true},
		{"gen.1.1", Ref{}, true},
		{"Gen..1", Ref{}, true},
		{"Gen.0.1", Ref{}, true},
		{"Gen.1.1.1", Ref{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRef(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRef(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil {
				var pe *ferrors.ParseError
				if !errors.As(err, &pe) || pe.Format != "reference" {
					t.Errorf("ParseRef(%q) error %v is not a reference ParseError", tt.in, err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseRef(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
			if got.String() != strings.TrimSpace(tt.in) {
				t.Errorf("String() = %q, want %q", got.String(), strings.TrimSpace(tt.in))
			}
		})
	}
}

func TestReadBook(t *testing.T) {
	book, err := ReadBook(strings.NewReader(genesisFragment), NewNormalizer(hebrew))
	if err != nil {
		t.Fatalf("ReadBook: %v", err)
	}
	if book.OSIS != "Gen" {
		t.Errorf("OSIS = %q, want Gen", book.OSIS)
	}

	type tok struct {
		Ref      string
		Position int
		Letters  string
		Lemma    string
		Strong   string
	}
	var got []tok
	for _, tk := range book.Tokens {
		got = append(got, tok{tk.Ref.String(), tk.Position, tk.Letters, tk.Lemma, tk.Strong})
	}
	want := []tok{
		{"Gen.1.1", 1, "בראשית", "b/7225", "7225"},
		{"Gen.1.1", 2, "ברא", "1254a", "1254a"},
		{"Gen.1.1", 3, "אלהים", "430", "430"},
		{"Gen.1.2", 1, "והארץ", "c/d/776", "776"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestReadBookErrors(t *testing.T) {
	tests := []struct {
		name string
		xml  string
	}{
		{"malformed", `<osis><div type="book"`},
		{"no book", `<osis><div type="chapter" osisID="Gen.1"/></osis>`},
		{"no book id", `<osis><div type="book"><chapter/></div></osis>`},
		{"bad verse id", `<osis><div type="book" osisID="Gen"><chapter><verse osisID="one"/></chapter></div></osis>`},
		{"verse from another book", `<osis><div type="book" osisID="Gen"><chapter><verse osisID="Exod.1.1"/></chapter></div></osis>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadBook(strings.NewReader(tt.xml), NewNormalizer(hebrew))
			var pe *ferrors.ParseError
			if !errors.As(err, &pe) {
				t.Errorf("ReadBook() error = %v, want ParseError", err)
			}
		})
	}
}

func TestPermutations(t *testing.T) {
	abc := lexicon.MustAlphabet("ABC")
	var got []string
	for s := range Permutations(abc, 2) {
		got = append(got, s.Letters)
	}
	want := []string{"A", "B", "C", "AA", "AB", "AC", "BA", "BB", "BC", "CA", "CB", "CC"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Permutations mismatch (-want +got):\n%s", diff)
	}

	var last Seed
	count := 0
	for s := range Permutations(hebrew, 3) {
		count++
		last = s
	}
	if count != 27+27*27+27*27*27 {
		t.Errorf("Hebrew permutations = %d, want 20439", count)
	}
	if last != (Seed{Length: 3, Index: 19683, Letters: "תתת"}) {
		t.Errorf("last seed = %+v", last)
	}

	for range Permutations(abc, 0) {
		t.Fatal("maxLen 0 should yield nothing")
	}
	n := 0
	for range Permutations(abc, 5) {
		if n++; n == 4 {
			break
		}
	}
}

func TestSelectBooks(t *testing.T) {
	all, err := SelectBooks(nil)
	if err != nil || len(all) != 39 {
		t.Fatalf("SelectBooks(nil) = %d books, %v", len(all), err)
	}
	for i, b := range all {
		if b.ID != i+1 {
			t.Errorf("book %s has ordinal %d, want %d", b.OSIS, b.ID, i+1)
		}
	}

	got, err := SelectBooks([]string{"mal", "Gen"})
	if err != nil {
		t.Fatalf("SelectBooks: %v", err)
	}
	if len(got) != 2 || got[0].OSIS != "Gen" || got[1].OSIS != "Mal" {
		t.Errorf("SelectBooks = %+v, want canonical order Gen, Mal", got)
	}

	if _, err := SelectBooks([]string{"Gen", "Matt"}); err == nil || !strings.Contains(err.Error(), "matt") {
		t.Errorf("SelectBooks(Matt) error = %v", err)
	}
}

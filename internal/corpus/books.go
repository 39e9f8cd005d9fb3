package corpus

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Book is a corpus book. ID is the canonical ordinal; 0 is reserved for the
// seeded permutations.
type Book struct {
	ID    int
	OSIS  string
	Title string
}

// SeedBook holds the letter permutations interned before the corpus.
var SeedBook = Book{ID: 0, OSIS: "", Title: "Book0"}

// Tanakh lists the books of the Hebrew Bible in the order they are ingested.
var Tanakh = []Book{
	{1, "Gen", "Genesis"},
	{2, "Exod", "Exodus"},
	{3, "Lev", "Leviticus"},
	{4, "Num", "Numbers"},
	{5, "Deut", "Deuteronomy"},
	{6, "Josh", "Joshua"},
	{7, "Judg", "Judges"},
	{8, "Ruth", "Ruth"},
	{9, "1Sam", "Samuel_1"},
	{10, "2Sam", "Samuel_2"},
	{11, "1Kgs", "Kings_1"},
	{12, "2Kgs", "Kings_2"},
	{13, "1Chr", "Chronicles_1"},
	{14, "2Chr", "Chronicles_2"},
	{15, "Ezra", "Ezra"},
	{16, "Neh", "Nehemiah"},
	{17, "Esth", "Esther"},
	{18, "Job", "Job"},
	{19, "Ps", "Psalms"},
	{20, "Prov", "Proverbs"},
	{21, "Eccl", "Ecclesiastes"},
	{22, "Song", "Song_of_Songs"},
	{23, "Isa", "Isaiah"},
	{24, "Jer", "Jeremiah"},
	{25, "Lam", "Lamentations"},
	{26, "Ezek", "Ezekiel"},
	{27, "Dan", "Daniel"},
	{28, "Hos", "Hosea"},
	{29, "Joel", "Joel"},
	{30, "Amos", "Amos"},
	{31, "Obad", "Obadiah"},
	{32, "Jonah", "Jonah"},
	{33, "Mic", "Micah"},
	{34, "Nah", "Nahum"},
	{35, "Hab", "Habakkuk"},
	{36, "Zeph", "Zephaniah"},
	{37, "Hag", "Haggai"},
	{38, "Zech", "Zechariah"},
	{39, "Mal", "Malachi"},
}

// SelectBooks resolves OSIS ids (case-insensitive) against the Tanakh list,
// keeping canonical order. No ids selects every book.
func SelectBooks(osis []string) ([]Book, error) {
	if len(osis) == 0 {
		return Tanakh, nil
	}
	want := make(map[string]bool, len(osis))
	for _, id := range osis {
		want[strings.ToLower(strings.TrimSpace(id))] = true
	}
	var out []Book
	for _, b := range Tanakh {
		if want[strings.ToLower(b.OSIS)] {
			out = append(out, b)
			delete(want, strings.ToLower(b.OSIS))
		}
	}
	if len(want) > 0 {
		return nil, fmt.Errorf("unknown books: %s", strings.Join(slices.Sorted(maps.Keys(want)), ", "))
	}
	return out, nil
}

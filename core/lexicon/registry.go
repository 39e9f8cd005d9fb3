// Package lexicon holds the word registry: the closed set of distinct
// normalized words, each with a stable integer identity and gematria codes.
//
// A Registry is populated during ingest and then sealed. Sealing yields a
// Snapshot, an immutable view that decomposition reads from without locking.
package lexicon

import (
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/formations/core/errors"
)

// WordID is the stable identity of a word. IDs are allocated densely from 1
// in insertion order.
type WordID int64

// Word is a distinct normalized word.
type Word struct {
	ID           WordID `json:"id"`
	Letters      string `json:"letters"`
	GematriaMod9 int    `json:"gematria_mod9"`
	GematriaMod7 int    `json:"gematria_mod7"`
}

// Len returns the number of letters in the word.
func (w Word) Len() int {
	return len([]rune(w.Letters))
}

// Registry assigns identities to words. It is safe for concurrent use until
// sealed; after Seal every Intern of a new word fails with ErrRegistrySealed.
type Registry struct {
	alphabet *Alphabet

	mu     sync.RWMutex
	ids    map[string]WordID
	words  []Word // words[id-1]
	sealed bool
}

// NewRegistry creates an empty registry over the given alphabet.
func NewRegistry(alphabet *Alphabet) *Registry {
	return &Registry{
		alphabet: alphabet,
		ids:      make(map[string]WordID),
	}
}

// Alphabet returns the registry's alphabet.
func (r *Registry) Alphabet() *Alphabet {
	return r.alphabet
}

// Intern returns the id of letters, allocating a new one and computing its
// gematria codes on first sight. Interning known letters has no side effect,
// even on a sealed registry.
func (r *Registry) Intern(letters string) (WordID, error) {
	r.mu.RLock()
	id, ok := r.ids[letters]
	r.mu.RUnlock()
	if ok {
		return id, nil
	}

	if err := r.alphabet.Validate(letters); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Lost a race with another writer.
	if id, ok := r.ids[letters]; ok {
		return id, nil
	}
	if r.sealed {
		return 0, fmt.Errorf("intern %q: %w", letters, errors.ErrRegistrySealed)
	}

	mod9, mod7 := r.alphabet.Gematria(letters)
	id = WordID(len(r.words) + 1)
	r.words = append(r.words, Word{
		ID:           id,
		Letters:      letters,
		GematriaMod9: mod9,
		GematriaMod7: mod7,
	})
	r.ids[letters] = id
	return id, nil
}

// Restore appends a previously persisted word. Words must be restored in id
// order so that the registry stays dense.
func (r *Registry) Restore(w Word) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return errors.ErrRegistrySealed
	}
	if want := WordID(len(r.words) + 1); w.ID != want {
		return fmt.Errorf("restore word %q: id %d out of sequence, want %d", w.Letters, w.ID, want)
	}
	if _, dup := r.ids[w.Letters]; dup {
		return fmt.Errorf("restore word %q: letters already registered", w.Letters)
	}
	if err := r.alphabet.Validate(w.Letters); err != nil {
		return err
	}
	r.words = append(r.words, w)
	r.ids[w.Letters] = w.ID
	return nil
}

// Lookup returns the id of letters if it is registered.
func (r *Registry) Lookup(letters string) (WordID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.ids[letters]
	return id, ok
}

// Len returns the number of registered words.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.words)
}

// Since returns the words with ids greater than after, in id order.
func (r *Registry) Since(after WordID) []Word {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(after) >= len(r.words) {
		return nil
	}
	if after < 0 {
		after = 0
	}
	out := make([]Word, len(r.words)-int(after))
	copy(out, r.words[after:])
	return out
}

// Seal closes the registry to new words and returns an immutable snapshot.
// Sealing twice returns an equivalent snapshot.
func (r *Registry) Seal() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
	return &Snapshot{alphabet: r.alphabet, ids: r.ids, words: r.words}
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Snapshot is a read-only view of a sealed registry. It is safe for
// concurrent use without locking.
type Snapshot struct {
	alphabet *Alphabet
	ids      map[string]WordID
	words    []Word
}

// Alphabet returns the snapshot's alphabet.
func (s *Snapshot) Alphabet() *Alphabet {
	return s.alphabet
}

// Lookup returns the id of letters if it is registered.
func (s *Snapshot) Lookup(letters string) (WordID, bool) {
	id, ok := s.ids[letters]
	return id, ok
}

// Word returns the word with the given id.
func (s *Snapshot) Word(id WordID) (Word, bool) {
	if id < 1 || int(id) > len(s.words) {
		return Word{}, false
	}
	return s.words[id-1], true
}

// Letters returns the letters of id, or "" if id is unknown.
func (s *Snapshot) Letters(id WordID) string {
	w, _ := s.Word(id)
	return w.Letters
}

// Len returns the number of words.
func (s *Snapshot) Len() int {
	return len(s.words)
}

// Words returns all words in id order. The slice must not be modified.
func (s *Snapshot) Words() []Word {
	return s.words
}

// Digest returns a BLAKE3 fingerprint of the snapshot: the alphabet followed
// by every word's letters in id order. Two snapshots with the same digest
// decompose identically.
func (s *Snapshot) Digest() string {
	h := blake3.New()
	io.WriteString(h, s.alphabet.String())
	io.WriteString(h, "\n")
	for _, w := range s.words {
		io.WriteString(h, w.Letters)
		io.WriteString(h, "\n")
	}
	return hex.EncodeToString(h.Sum(nil))
}

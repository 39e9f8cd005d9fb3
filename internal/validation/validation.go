// Package validation checks untrusted input at the edges of the program:
// words arriving over HTTP or WebSocket and paths given on the command line.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Limits on untrusted input (CWE-400).
const (
	// MaxWordBytes bounds a query word before normalization. Stored words are
	// far shorter; anything longer cannot have formations.
	MaxWordBytes = 1024
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors.
var (
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrPathTooLong      = errors.New("path too long")
	ErrWordTooLong      = errors.New("word too long")
	ErrInvalidEncoding  = errors.New("invalid UTF-8")
	ErrInvalidCharacter = errors.New("invalid character")
)

// ValidateWord checks a query word as received, before normalization. An
// empty word is valid; it simply has no formations.
func ValidateWord(word string) error {
	if len(word) > MaxWordBytes {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrWordTooLong, len(word), MaxWordBytes)
	}
	if !utf8.ValidString(word) {
		return ErrInvalidEncoding
	}
	for _, r := range word {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character %U", ErrInvalidCharacter, r)
		}
	}
	return nil
}

// ValidatePath checks a path for length limits and characters no file name
// should hold. It does not touch the file system.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}
	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}
	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}
	return nil
}

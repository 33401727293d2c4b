package models

import (
	"errors"
	"regexp"
	"strings"
)

var ErrInvalidISBN = errors.New("isbn must be ISBN-10 or ISBN-13, hyphens and spaces allowed")

var (
	isbn10Re = regexp.MustCompile(`^\d{9}[\dX]$`)
	isbn13Re = regexp.MustCompile(`^\d{13}$`)
)

// NormalizeISBN strips hyphens and whitespace and validates the result
// against the ISBN-10 shape (nine digits plus a digit or X check character)
// or the ISBN-13 shape (thirteen digits).
func NormalizeISBN(raw string) (string, error) {
	s := strings.Map(func(r rune) rune {
		switch r {
		case '-', ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, raw)

	if len(s) > 20 {
		return "", ErrInvalidISBN
	}
	switch len(s) {
	case 10:
		if !isbn10Re.MatchString(s) {
			return "", ErrInvalidISBN
		}
	case 13:
		if !isbn13Re.MatchString(s) {
			return "", ErrInvalidISBN
		}
	default:
		return "", ErrInvalidISBN
	}
	return s, nil
}

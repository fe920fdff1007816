// Package shellparse splits editor command lines such as `code --wait` or
// `"/Applications/Sublime Text.app/sl" -w` into argv form, following POSIX
// shell quoting rules.
package shellparse

import (
	"errors"
	"strings"
	"unicode"
)

var (
	// ErrUnclosedQuote is returned when a quoted string is not properly closed
	ErrUnclosedQuote = errors.New("unclosed quote in command string")

	// ErrTrailingEscape is returned when a backslash appears at the end of input
	ErrTrailingEscape = errors.New("trailing escape character at end of command")
)

type quoteState int

const (
	unquoted quoteState = iota
	single
	double
)

// Split parses a command string into arguments. Single quotes are literal,
// double quotes honour \" \\ \$ and \` escapes, and an unquoted backslash
// escapes any character. "" and '' produce empty arguments.
func Split(input string) ([]string, error) {
	args := []string{}
	var word strings.Builder
	inWord := false
	state := unquoted

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		switch state {
		case single:
			if ch == '\'' {
				state = unquoted
			} else {
				word.WriteRune(ch)
			}
			continue

		case double:
			switch ch {
			case '"':
				state = unquoted
			case '\\':
				if i+1 >= len(runes) {
					return nil, ErrTrailingEscape
				}
				i++
				if !strings.ContainsRune("\"\\$`", runes[i]) {
					word.WriteRune('\\')
				}
				word.WriteRune(runes[i])
			default:
				word.WriteRune(ch)
			}
			continue
		}

		switch {
		case unicode.IsSpace(ch):
			if inWord {
				args = append(args, word.String())
				word.Reset()
				inWord = false
			}
		case ch == '\\':
			if i+1 >= len(runes) {
				return nil, ErrTrailingEscape
			}
			i++
			word.WriteRune(runes[i])
			inWord = true
		case ch == '\'':
			state = single
			inWord = true
		case ch == '"':
			state = double
			inWord = true
		default:
			word.WriteRune(ch)
			inWord = true
		}
	}

	if state != unquoted {
		return nil, ErrUnclosedQuote
	}
	if inWord {
		args = append(args, word.String())
	}
	return args, nil
}

// Join quotes args so that Split(Join(args)) returns args.
func Join(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = quote(arg)
	}
	return strings.Join(quoted, " ")
}

func quote(arg string) string {
	if arg == "" {
		return "''"
	}
	if !strings.ContainsFunc(arg, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune("'\"\\$`", r)
	}) {
		return arg
	}
	// close the quote, emit an escaped quote, reopen
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

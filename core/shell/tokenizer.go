// Package shell splits command lines into argument vectors and decides how
// each line is dispatched.
//
// The tokenizer is intentionally naive: it splits on whitespace and the bell
// character only. Quotes, escapes and variables are ordinary text. Lines that
// need those are handed unmodified to the passthrough interpreter instead.
package shell

import "strings"

// Delimiters separate tokens in a command line.
const Delimiters = " \t\r\n\a"

func isDelimiter(r rune) bool {
	return strings.ContainsRune(Delimiters, r)
}

// Split breaks the line into tokens on runs of Delimiters. Empty input
// yields an empty vector.
func Split(line string) []string {
	return strings.FieldsFunc(line, isDelimiter)
}

// Join rebuilds a command line from tokens separated by single spaces.
func Join(args []string) string {
	return strings.Join(args, " ")
}

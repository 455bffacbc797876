// Package minify implements lexical minification of C-family source code.
//
// DESIGN: A single left-to-right pass driven by an explicit scan state.
// Comments are dropped, whitespace runs collapse to at most one space, and
// string/char literals and preprocessor lines are copied verbatim. The
// scanner is purely lexical - it never parses the grammar, so malformed
// input is minified best effort and never fails.
package minify

import "strings"

// scanState identifies what the scanner is currently inside of.
// Exactly one state is active at any position.
type scanState int

const (
	stateNormal scanState = iota
	stateLineComment
	stateBlockComment
	stateString
	stateChar
	statePreprocessor
)

// operators holds operator lexemes ordered by descending length so that
// greedy longest-match tries ">>=" before ">>" before ">".
var operators = []string{
	">>=", "<<=",
	"++", "--", "->", "==", "!=", "<=", ">=",
	"&&", "||", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=",
	"<<", ">>",
	"+", "-", "*", "/", "%", "=",
	"<", ">", "!", "~",
	"&", "|", "^",
	"?", ":", ",", ";",
	"(", ")", "[", "]", "{", "}",
}

// isIdentChar reports whether c can appear in an identifier or number.
// Two such characters must never become adjacent across a removed
// whitespace run, or tokens would merge.
func isIdentChar(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

// Minify removes comments and collapses non-semantic whitespace from code.
// String and char literals, escape sequences, and preprocessor lines are
// preserved byte for byte. The operation is idempotent: minifying already
// minified output returns it unchanged.
func Minify(code string) string {
	var out strings.Builder
	out.Grow(len(code))

	n := len(code)
	state := stateNormal
	atLineStart := true
	i := 0

scan:
	for i < n {
		c := code[i]

		switch state {
		case stateNormal:
			// Preprocessor directives are copied verbatim through their newline.
			if atLineStart && c == '#' {
				state = statePreprocessor
				out.WriteByte(c)
				i++
				atLineStart = false
				continue
			}

			if c == '/' && i+1 < n {
				switch code[i+1] {
				case '/':
					state = stateLineComment
					i += 2
					continue
				case '*':
					state = stateBlockComment
					i += 2
					continue
				}
			}

			if c == '"' {
				state = stateString
				out.WriteByte(c)
				i++
				continue
			}
			if c == '\'' {
				state = stateChar
				out.WriteByte(c)
				i++
				continue
			}

			if isSpace(c) {
				// Emit a single separating space only when dropping the run
				// would merge two identifier tokens.
				if out.Len() > 0 {
					prev := out.String()[out.Len()-1]
					var next byte
					if i+1 < n {
						next = code[i+1]
					}
					if isIdentChar(prev) && isIdentChar(next) {
						out.WriteByte(' ')
					}
				}
				if c == '\n' {
					atLineStart = true
				}
				i++
				continue
			}

			// Greedy longest-match against the operator table.
			for _, op := range operators {
				if strings.HasPrefix(code[i:], op) {
					out.WriteString(op)
					i += len(op)
					atLineStart = false
					continue scan
				}
			}

			out.WriteByte(c)
			atLineStart = false
			i++

		case stateLineComment:
			// Discard through the newline; the newline itself is not copied.
			if c == '\n' {
				state = stateNormal
				atLineStart = true
			}
			i++

		case stateBlockComment:
			// No nesting: the first */ closes the comment.
			if c == '*' && i+1 < n && code[i+1] == '/' {
				state = stateNormal
				i += 2
			} else {
				i++
			}

		case stateString:
			out.WriteByte(c)
			if c == '\\' && i+1 < n {
				// Escape pair is copied atomically, uninterpreted.
				out.WriteByte(code[i+1])
				i += 2
			} else if c == '"' {
				state = stateNormal
				i++
			} else {
				i++
			}

		case stateChar:
			out.WriteByte(c)
			if c == '\\' && i+1 < n {
				out.WriteByte(code[i+1])
				i += 2
			} else if c == '\'' {
				state = stateNormal
				i++
			} else {
				i++
			}

		case statePreprocessor:
			out.WriteByte(c)
			if c == '\n' {
				state = stateNormal
				atLineStart = true
			}
			i++
		}
	}

	return out.String()
}

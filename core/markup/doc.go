// Package markup parses blueprint documents into a section tree.
//
// A blueprint is a plain-text document made of nested headings, one-line
// paragraphs and pipe tables:
//
//	# Authentication [@security, ?login]
//	Users sign in with a *password* or a /token/.
//
//	## Sessions [=login]
//	name | lifetime
//	---  | ---
//	web  | 12h
//
// # Grammar
//
// Rules are ordered choices; the first alternative that matches wins:
//
//	heading   := "#"{rank} WS words WS ("[" tag ("," tag)* "]")? EOC
//	tag       := ("?" | "=")? CHAR+           ; CHAR excludes "]" and ","
//	span      := "*" PLAIN "*" | "/" PLAIN "/" | "~" PLAIN "~" | PLAIN
//	table_row := cell ("|" cell)+ EOC
//	table_sep := sepcell ("|" sepcell)+ EOC  ; sepcell := ("-" | " ")+
//	table     := (table_row table_sep)? table_row+
//	paragraph := !"#" span+ EOC
//	body      := (table | paragraph)+
//	section   := heading(rank) body? section(rank+1)*
//	blueprint := section(1)* EOF
//
// A section only nests sections exactly one rank deeper, so ranks are never
// skipped. Tag lists are parsed with participle; everything else is a
// hand-written backtracking parser.
//
// # Tags
//
// A leading "?" makes a Requires tag and "=" a Satisfies tag; anything else
// is Simple. A Simple tag starting with "@" names the page that owns the
// section.
//
// # Errors
//
// Parsing is all-or-nothing. Failures are *errors.ParseError values that
// unwrap to ErrMismatchedDelimiters, ErrHeadingRank, ErrTableCells or
// ErrIncompleteParse.
package markup

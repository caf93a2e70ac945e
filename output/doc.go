// Package output renders result sets and listings.
//
// Result sets are written as one indented JSON array of
// {"Database": ..., "Rows": [...]} objects, to stdout or to a file. Tables for
// configured databases, users and fetch summaries are written with color when
// the terminal supports it.
package output

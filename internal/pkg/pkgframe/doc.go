// Package pkgframe converts between delimited text and row records.
//
// Parsing and writing go through gota dataframes so that column names are
// normalized the same way on both sides (missing names become X0, X1, ...,
// duplicates get a suffix). Values are kept as strings; no type detection is
// applied, so "007" stays "007".
package pkgframe

// Package textutil provides text processing helpers shared by grounding, the
// local fallback generator, and export naming.
//
// Tokenization lowercases text, splits on anything that is not a letter or
// digit, and drops tokens shorter than 3 runes.
package textutil

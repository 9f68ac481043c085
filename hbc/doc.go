// Package hbc reads and writes the binary bytecode file format.
//
// A file is a fixed 64-byte little-endian [FileHeader] followed by body
// sections, each starting on a 4-byte boundary:
//
//   - function table: one 32-byte entry per function
//   - string table: (offset, length) pairs followed by the string storage
//   - constant pools: 12-byte entries (kind, payload) per function
//   - instruction streams: 16-bit words per function
//   - debug info: file table, location tables and source-map sources
//
// The file ends with a SHA-1 digest of all preceding bytes. Serialization
// is deterministic: the same module and source hash always produce the
// same bytes.
//
// [Properties] describes the format constants as JSON for hosts that load
// the files.
package hbc

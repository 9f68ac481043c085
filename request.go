package scriptc

// Request is one compilation request. The buffers are borrowed for the
// duration of the call and never retained.
type Request struct {
	// Source is the script text followed by a zero byte.
	Source []byte

	// SourceURL is the display URL used in diagnostics and debug info.
	// Optional.
	SourceURL string

	// SourceMap is an optional version 3 source map followed by a zero
	// byte. A nil or empty buffer, or one starting with a zero byte, means
	// no source map.
	SourceMap []byte
}

const (
	msgSourceTerminator    = "Input source must be zero-terminated"
	msgSourceMapTerminator = "Input sourcemap must be zero-terminated"
)

func validateSource(src []byte) *Error {
	if len(src) == 0 || src[len(src)-1] != 0 {
		return &Error{Kind: InvalidInput, Message: msgSourceTerminator}
	}
	return nil
}

func validateSourceMap(sm []byte) *Error {
	if sm[len(sm)-1] != 0 {
		return &Error{Kind: InvalidInput, Message: msgSourceMapTerminator}
	}
	return nil
}

// hasSourceMap reports whether a source map was supplied.
func (r *Request) hasSourceMap() bool {
	return len(r.SourceMap) > 0 && r.SourceMap[0] != 0
}

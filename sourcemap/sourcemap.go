// Package sourcemap parses version 3 source maps and answers position
// queries against them.
package sourcemap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/deepnoodle-ai/scriptc/internal/diag"
)

// Segment is one decoded mapping. Indexes and positions are 0-based; Source
// and Name are -1 when the segment does not carry them.
type Segment struct {
	GeneratedColumn int
	Source          int
	OriginalLine    int
	OriginalColumn  int
	Name            int
}

// Position is an original source position. Line and Column are 1-based.
type Position struct {
	Source string
	Line   int
	Column int
	Name   string
}

// SourceMap is a parsed version 3 source map.
type SourceMap struct {
	Version        int
	File           string
	SourceRoot     string
	Sources        []string
	SourcesContent []string // parallel to Sources; "" when absent
	Names          []string

	lines [][]Segment
}

// Error is returned when a source map cannot be parsed. The same
// diagnostics are reported to the sink passed to Parse.
type Error struct {
	Diagnostics []diag.Diagnostic
}

func (e *Error) Error() string {
	lines := make([]string, 0, len(e.Diagnostics))
	for i := range e.Diagnostics {
		lines = append(lines, e.Diagnostics[i].Error())
	}
	return strings.Join(lines, "\n")
}

type rawSourceMap struct {
	Version        *int            `json:"version"`
	File           string          `json:"file"`
	SourceRoot     string          `json:"sourceRoot"`
	Sources        *[]*string      `json:"sources"`
	SourcesContent []*string       `json:"sourcesContent"`
	Names          []string        `json:"names"`
	Mappings       *string         `json:"mappings"`
	Sections       json.RawMessage `json:"sections"`
}

type parser struct {
	text  []byte
	sink  *diag.Sink
	start int // sink length before parsing
}

// Parse decodes a source map. Problems are reported to sink; on failure the
// returned error is an *Error holding the diagnostics of this call.
func Parse(text []byte, sink *diag.Sink) (*SourceMap, error) {
	p := &parser{text: text, sink: sink, start: sink.Len()}
	sm := p.parse()
	if sm == nil {
		return nil, p.err()
	}
	return sm, nil
}

func (p *parser) parse() *SourceMap {
	var raw rawSourceMap
	dec := json.NewDecoder(bytes.NewReader(p.text))
	if err := dec.Decode(&raw); err != nil {
		p.reportJSON(err)
		return nil
	}
	if dec.More() {
		p.errorAt(int(dec.InputOffset()), "unexpected data after source map object")
		return nil
	}
	if len(raw.Sections) > 0 {
		p.errorf("indexed source maps are not supported")
		return nil
	}
	if raw.Version == nil {
		p.errorf("missing \"version\" field")
		return nil
	}
	if *raw.Version != 3 {
		p.errorf("unsupported source map version %d", *raw.Version)
		return nil
	}
	if raw.Sources == nil {
		p.errorf("missing \"sources\" array")
		return nil
	}
	if raw.Mappings == nil {
		p.errorf("missing \"mappings\" string")
		return nil
	}

	sm := &SourceMap{
		Version:    *raw.Version,
		File:       raw.File,
		SourceRoot: raw.SourceRoot,
		Names:      raw.Names,
	}
	for i, src := range *raw.Sources {
		var name, content string
		if src != nil {
			name = *src
		}
		if i < len(raw.SourcesContent) && raw.SourcesContent[i] != nil {
			content = *raw.SourcesContent[i]
		}
		sm.Sources = append(sm.Sources, name)
		sm.SourcesContent = append(sm.SourcesContent, content)
	}
	lines, err := decodeMappings(*raw.Mappings, len(sm.Sources), len(sm.Names))
	if err != nil {
		p.errorf("invalid mappings: %s", err)
		return nil
	}
	sm.lines = lines
	return sm
}

// decodeMappings decodes the "mappings" field into per-line segments sorted
// by generated column.
func decodeMappings(mappings string, sourceCount, nameCount int) ([][]Segment, error) {
	var (
		lines   [][]Segment
		current []Segment
		pos     int
		lineNum = 1

		// Running values; all but the generated column persist across lines.
		genColumn, source, origLine, origColumn, nameIdx int
	)
	for pos <= len(mappings) {
		if pos == len(mappings) || mappings[pos] == ';' {
			sort.SliceStable(current, func(i, j int) bool {
				return current[i].GeneratedColumn < current[j].GeneratedColumn
			})
			lines = append(lines, current)
			current = nil
			genColumn = 0
			lineNum++
			pos++
			continue
		}
		if mappings[pos] == ',' {
			pos++
			continue
		}
		var fields [5]int
		n := 0
		for pos < len(mappings) && mappings[pos] != ',' && mappings[pos] != ';' {
			if n == len(fields) {
				return nil, fmt.Errorf("segment has too many fields on line %d", lineNum)
			}
			v, next, err := decodeVLQ(mappings, pos)
			if err != nil {
				return nil, fmt.Errorf("%s on line %d", err, lineNum)
			}
			fields[n] = v
			n++
			pos = next
		}
		if n != 1 && n != 4 && n != 5 {
			return nil, fmt.Errorf("segment has %d fields on line %d", n, lineNum)
		}
		genColumn += fields[0]
		if genColumn < 0 {
			return nil, fmt.Errorf("negative generated column on line %d", lineNum)
		}
		seg := Segment{GeneratedColumn: genColumn, Source: -1, Name: -1}
		if n >= 4 {
			source += fields[1]
			origLine += fields[2]
			origColumn += fields[3]
			if source < 0 || source >= sourceCount {
				return nil, fmt.Errorf("source index %d out of range on line %d", source, lineNum)
			}
			if origLine < 0 || origColumn < 0 {
				return nil, fmt.Errorf("negative original position on line %d", lineNum)
			}
			seg.Source, seg.OriginalLine, seg.OriginalColumn = source, origLine, origColumn
		}
		if n == 5 {
			nameIdx += fields[4]
			if nameIdx < 0 || nameIdx >= nameCount {
				return nil, fmt.Errorf("name index %d out of range on line %d", nameIdx, lineNum)
			}
			seg.Name = nameIdx
		}
		current = append(current, seg)
	}
	return lines, nil
}

// LineCount returns the number of generated lines covered by the mappings.
func (m *SourceMap) LineCount() int {
	return len(m.lines)
}

// Segments returns the segments of a 1-based generated line.
func (m *SourceMap) Segments(line int) []Segment {
	if line < 1 || line > len(m.lines) {
		return nil
	}
	out := make([]Segment, len(m.lines[line-1]))
	copy(out, m.lines[line-1])
	return out
}

// SourceURL returns the name of source i with the source root applied.
func (m *SourceMap) SourceURL(i int) string {
	if i < 0 || i >= len(m.Sources) {
		return ""
	}
	src := m.Sources[i]
	if m.SourceRoot == "" || strings.Contains(src, "://") || strings.HasPrefix(src, "/") {
		return src
	}
	if strings.HasSuffix(m.SourceRoot, "/") {
		return m.SourceRoot + src
	}
	return m.SourceRoot + "/" + src
}

// Lookup maps a 1-based generated position to the original position. The
// segment used is the last one on the line starting at or before the column.
func (m *SourceMap) Lookup(line, column int) (Position, bool) {
	if line < 1 || line > len(m.lines) {
		return Position{}, false
	}
	segs := m.lines[line-1]
	col := column - 1
	i := sort.Search(len(segs), func(i int) bool {
		return segs[i].GeneratedColumn > col
	})
	if i == 0 {
		return Position{}, false
	}
	seg := segs[i-1]
	if seg.Source < 0 {
		return Position{}, false
	}
	pos := Position{
		Source: m.SourceURL(seg.Source),
		Line:   seg.OriginalLine + 1,
		Column: seg.OriginalColumn + 1,
	}
	if seg.Name >= 0 {
		pos.Name = m.Names[seg.Name]
	}
	return pos, true
}

func (p *parser) reportJSON(err error) {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		p.errorAt(int(syntaxErr.Offset), "%s", syntaxErr.Error())
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "source map"
		}
		p.errorAt(int(typeErr.Offset), "invalid type for %q: expected %s, got %s", field, typeErr.Type, typeErr.Value)
	default:
		if errors.Is(err, io.EOF) {
			p.errorf("empty source map")
			return
		}
		p.errorf("%s", err)
	}
}

// errorAt reports an error at a byte offset into the source map text.
func (p *parser) errorAt(offset int, format string, args ...interface{}) {
	if offset > len(p.text) {
		offset = len(p.text)
	}
	line, col := 1, 1
	for _, b := range p.text[:offset] {
		if b == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	p.sink.Errorf(line, col, format, args...)
}

func (p *parser) errorf(format string, args ...interface{}) {
	p.sink.Errorf(0, 0, format, args...)
}

func (p *parser) err() error {
	diags := p.sink.Diagnostics()[p.start:]
	return &Error{Diagnostics: diags}
}

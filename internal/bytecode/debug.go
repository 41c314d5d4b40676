package bytecode

import "arrayviz/internal/lexer"

// DebugInfo stores the source location of one command.
type DebugInfo struct {
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Function string `json:"function,omitempty"`
}

// Region is a highlighted source range and its text.
type Region struct {
	Start lexer.Position `json:"start"`
	End   lexer.Position `json:"end"`
	Text  string         `json:"text"`
}

// Line returns the first line of the region.
func (r *Region) Line() int {
	if r == nil {
		return 0
	}
	return r.Start.Line
}

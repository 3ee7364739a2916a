package excel

// Table is a rectangular sheet of raw cell text with a header row
type Table struct {
	Headers []string   // Column headers
	Rows    [][]string // Data rows, padded to len(Headers)
}

// columnIndex returns the position of a header or -1
func (t *Table) columnIndex(name string) int {
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

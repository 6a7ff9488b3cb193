package models

// SourceDataset holds the parsed rows of one staged upload. Rows are
// addressed by integer index; the dataset is swapped wholesale when the user
// selects a different staged file. CSV text parsing happens before the
// payload reaches fern.
type SourceDataset struct {
	FileName string     `json:"file_name"`
	Headers  []string   `json:"headers"`
	Rows     [][]string `json:"rows"`
}

// Row returns the row at index, or nil when the index is out of range. A nil
// return is the "stale row reference" signal: a restored mapping may point at
// a row of a file that is no longer staged.
func (d *SourceDataset) Row(index int) []string {
	if d == nil || index < 0 || index >= len(d.Rows) {
		return nil
	}
	return d.Rows[index]
}

// HasColumn reports whether the header row contains the named column.
func (d *SourceDataset) HasColumn(name string) bool {
	if d == nil {
		return false
	}
	for _, h := range d.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// RowCount returns the number of data rows, zero for a nil dataset.
func (d *SourceDataset) RowCount() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

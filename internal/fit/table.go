package fit

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/banshee-data/channelfit/internal/model"
)

// RowNames label the rows of a parameter table.
var RowNames = [4]string{"plow", "pmid", "phigh", "popt"}

// WriteTable writes the low, mid, high and optimum rows, one per line,
// with every parameter in canonical order formatted as %.18e.
func WriteTable(w io.Writer, r *Result) error {
	bw := bufio.NewWriter(w)
	for _, row := range r.Rows() {
		v := row.Vector()
		for i, x := range v {
			if i > 0 {
				bw.WriteByte(' ')
			}
			fmt.Fprintf(bw, "%.18e", x)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteTableFile writes the table to path.
func WriteTableFile(path string, r *Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create parameter table: %w", err)
	}
	if err := WriteTable(f, r); err != nil {
		f.Close()
		return fmt.Errorf("write parameter table %s: %w", path, err)
	}
	return f.Close()
}

// ReadTable parses a table written by WriteTable.
func ReadTable(rd io.Reader) (*Result, error) {
	var rows []model.Params
	sc := bufio.NewScanner(rd)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		v := make([]float64, len(fields))
		for i, f := range fields {
			x, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("parameter table line %d: %w", line, err)
			}
			v[i] = x
		}
		p, err := model.FromVector(v)
		if err != nil {
			return nil, fmt.Errorf("parameter table line %d: %w", line, err)
		}
		rows = append(rows, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read parameter table: %w", err)
	}
	if len(rows) != len(RowNames) {
		return nil, fmt.Errorf("parameter table has %d rows, want %d", len(rows), len(RowNames))
	}
	return &Result{Low: rows[0], Mid: rows[1], High: rows[2], Opt: rows[3]}, nil
}

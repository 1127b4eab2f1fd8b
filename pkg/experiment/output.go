package experiment

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// OutputWriter handles writing results to files
type OutputWriter struct {
	dir string
}

func NewOutputWriter(dir string) *OutputWriter {
	return &OutputWriter{dir: dir}
}

// WriteJSON writes v as indented JSON to name inside the output directory
func (ow *OutputWriter) WriteJSON(name string, v interface{}) (string, error) {
	path, file, err := ow.create(name)
	if err != nil {
		return "", err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return path, nil
}

// WriteCSV writes an averaged series as t,undecided,influence_a,influence_b rows
func (ow *OutputWriter) WriteCSV(name string, series AveragedSeries) (string, error) {
	path, file, err := ow.create(name)
	if err != nil {
		return "", err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"t", "undecided", "influence_a", "influence_b"}); err != nil {
		return "", err
	}
	for t, s := range series {
		row := []string{
			strconv.Itoa(t),
			strconv.FormatFloat(s.Undecided, 'f', 4, 64),
			strconv.FormatFloat(s.A, 'f', 4, 64),
			strconv.FormatFloat(s.B, 'f', 4, 64),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// WriteComparison writes one file per cell in format ("json" or "csv") and a
// comparison.json summary. It returns the written paths.
func (ow *OutputWriter) WriteComparison(c *Comparison, format string) ([]string, error) {
	var paths []string
	for _, cell := range c.Cells {
		base := cellFileName(cell.Graph, string(cell.Strategy))

		var path string
		var err error
		switch format {
		case "csv":
			path, err = ow.WriteCSV(base+".csv", cell.Averaged)
		case "json":
			path, err = ow.WriteJSON(base+".json", cell)
		default:
			return nil, fmt.Errorf("unsupported output format: %s", format)
		}
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	summary, err := ow.WriteJSON("comparison.json", c)
	if err != nil {
		return nil, err
	}
	return append(paths, summary), nil
}

func (ow *OutputWriter) create(name string) (string, *os.File, error) {
	if err := os.MkdirAll(ow.dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(ow.dir, name)
	file, err := os.Create(path)
	if err != nil {
		return "", nil, err
	}
	return path, file, nil
}

func cellFileName(graphName, strategy string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, graphName)
	return fmt.Sprintf("%s_%s", clean, strategy)
}

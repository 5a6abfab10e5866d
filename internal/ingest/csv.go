package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrSourceRead marks failures reading or parsing the source file. Nothing has
// been written to the store when it is returned.
var ErrSourceRead = errors.New("read source")

// Source column names.
const (
	colID           = "id"
	colProgram      = "programa"
	colInstallDate  = "fecha_instalacion"
	colLatitude     = "latitud"
	colLongitude    = "longitud"
	colNeighborhood = "colonia"
	colDistrict     = "alcaldia"
)

var requiredColumns = []string{colID, colProgram, colLatitude, colLongitude}

// SourceRow is one data row as it appears in the file, untrimmed.
type SourceRow struct {
	Line             int
	ID               string
	Program          string
	InstallationDate string
	Latitude         string
	Longitude        string
	Neighborhood     string
	District         string
}

func ReadCSVFile(path string) ([]SourceRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceRead, err)
	}
	defer f.Close()

	rows, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// ReadCSV maps columns by header name. Missing optional columns read as empty
// cells; a missing required column or a malformed record fails the whole read.
func ReadCSV(src io.Reader) ([]SourceRow, error) {
	br := bufio.NewReader(src)
	// Drop a UTF-8 BOM before the csv reader sees it; a BOM ahead of a quoted
	// header cell is otherwise a bare-quote error.
	if bom, err := br.Peek(3); err == nil && string(bom) == "\ufeff" {
		_, _ = br.Discard(3)
	}

	r := csv.NewReader(br)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: csv is empty", ErrSourceRead)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrSourceRead, err)
	}

	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, k := range requiredColumns {
		if _, ok := col[k]; !ok {
			return nil, fmt.Errorf("%w: missing required column: %s", ErrSourceRead, k)
		}
	}

	var out []SourceRow
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSourceRead, err)
		}
		line, _ := r.FieldPos(0)

		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return rec[i]
		}

		out = append(out, SourceRow{
			Line:             line,
			ID:               get(colID),
			Program:          get(colProgram),
			InstallationDate: get(colInstallDate),
			Latitude:         get(colLatitude),
			Longitude:        get(colLongitude),
			Neighborhood:     get(colNeighborhood),
			District:         get(colDistrict),
		})
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: csv has no data rows", ErrSourceRead)
	}
	return out, nil
}

package table

import (
	"bytes"
	"encoding/csv"
	"io"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

var ErrEmptyFile = errors.New("file is empty")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse decodes an uploaded file. The format is chosen from the key extension:
// .xlsx files are read from their first sheet, everything else as CSV.
func Parse(key string, data []byte) (*Table, error) {
	switch strings.ToLower(path.Ext(key)) {
	case ".xlsx":
		return ParseXLSX(data)
	default:
		return ParseCSV(bytes.NewReader(data))
	}
}

func ParseCSV(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading csv")
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	reader := csv.NewReader(bytes.NewReader(data))

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading csv header")
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "reading csv rows")
	}

	t, err := New(header, rows)
	if err != nil {
		return nil, errors.Wrap(err, "malformed csv")
	}
	return t, nil
}

func ParseXLSX(data []byte) (*Table, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "opening xlsx")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("xlsx has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrapf(err, "reading sheet %q", sheets[0])
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	header := rows[0]
	body := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		// excelize drops trailing empty cells
		if len(row) < len(header) {
			padded := make([]string, len(header))
			copy(padded, row)
			row = padded
		}
		body = append(body, row)
	}

	t, err := New(header, body)
	if err != nil {
		return nil, errors.Wrapf(err, "malformed sheet %q", sheets[0])
	}
	return t, nil
}

// Package decoder turns an uploaded byte stream (CSV, XLS or XLSX) into a
// rectangular grid of raw string cells with a detected header row. It is a
// pure transformation: expected malformations come back as errors, never
// panics.
package decoder

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
)

var (
	ErrTooLarge  = errors.New("file exceeds maximum allowed size")
	ErrEmpty     = errors.New("file contains no data")
	ErrMalformed = errors.New("file structure could not be read")
)

// DefaultMaxFileSize is the upload ceiling applied when the decoder is
// built with a non-positive limit.
const DefaultMaxFileSize = 15 << 20 // 15 MiB

// Format identifies the decoded source file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

// RawGrid is the decoded spreadsheet: the header row plus every data row
// below it, all as raw strings. It is immutable once produced; a re-upload
// replaces it wholesale.
type RawGrid struct {
	Headers     []string
	Rows        [][]string
	HeaderIndex int    // zero-based index of the header row in the source
	Delimiter   rune   // CSV only; 0 for spreadsheet formats
	Fingerprint string // sha256 over normalized header names
	Format      Format
	SourceName  string
	SourceSize  int64
}

// Decoder decodes uploaded statement files into raw grids.
type Decoder struct {
	maxSize int64
}

// New creates a decoder with the given size ceiling in bytes.
func New(maxSize int64) *Decoder {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	return &Decoder{maxSize: maxSize}
}

// Decode sniffs the file format and produces a RawGrid.
func (d *Decoder) Decode(data []byte, filename string) (*RawGrid, error) {
	if int64(len(data)) > d.maxSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, len(data), d.maxSize)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmpty
	}

	var (
		grid *RawGrid
		err  error
	)
	switch sniffFormat(data, filename) {
	case FormatXLSX:
		grid, err = decodeXLSX(data)
	case FormatXLS:
		grid, err = decodeXLS(data)
	default:
		grid, err = decodeCSV(data)
	}
	if err != nil {
		return nil, err
	}

	grid.Fingerprint = fingerprint(grid.Headers)
	grid.SourceName = filename
	grid.SourceSize = int64(len(data))
	return grid, nil
}

// sniffFormat prefers content magic over the declared extension: browsers
// and exports routinely lie about file names.
func sniffFormat(data []byte, filename string) Format {
	if len(data) >= 4 && bytes.HasPrefix(data, []byte{0x50, 0x4B, 0x03, 0x04}) {
		return FormatXLSX // ZIP container
	}
	if len(data) >= 8 && bytes.HasPrefix(data, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}) {
		return FormatXLS // OLE compound file
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".xls":
		return FormatXLS
	}
	return FormatCSV
}

func decodeCSV(data []byte) (*RawGrid, error) {
	data = normalizeEncoding(data)

	lines := strings.Split(string(data), "\n")
	headerIdx := -1
	for i, line := range lines {
		if strings.TrimSpace(strings.TrimRight(line, "\r")) != "" {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, ErrEmpty
	}

	delimiter := detectDelimiter(lines, headerIdx)
	if delimiter == 0 {
		// Single-column file: still a valid grid.
		delimiter = ','
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		records = append(records, record)
	}

	// encoding/csv drops blank lines, so the header's record index can be
	// smaller than its line index.
	recHeaderIdx := -1
	for i, record := range records {
		if !rowIsEmpty(record) {
			recHeaderIdx = i
			break
		}
	}
	if recHeaderIdx < 0 {
		return nil, ErrEmpty
	}

	headers := make([]string, len(records[recHeaderIdx]))
	for i, h := range records[recHeaderIdx] {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([][]string, 0, len(records)-recHeaderIdx-1)
	for _, record := range records[recHeaderIdx+1:] {
		if rowIsEmpty(record) {
			continue
		}
		rows = append(rows, record)
	}

	return &RawGrid{
		Headers:     headers,
		Rows:        rows,
		HeaderIndex: headerIdx,
		Delimiter:   delimiter,
		Format:      FormatCSV,
	}, nil
}

func decodeXLSX(data []byte) (*RawGrid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmpty
	}

	// First sheet only; GetRows resolves formulas and dates to their
	// displayed values rather than serial numbers.
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return gridFromRows(rows, FormatXLSX)
}

func decodeXLS(data []byte) (*RawGrid, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	sheet, err := workbook.GetSheet(0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var rows [][]string
	for _, row := range sheet.GetRows() {
		var cells []string
		for _, cell := range row.GetCols() {
			cells = append(cells, cell.GetString())
		}
		rows = append(rows, cells)
	}
	return gridFromRows(rows, FormatXLS)
}

func gridFromRows(rows [][]string, format Format) (*RawGrid, error) {
	headerIdx := -1
	for i, row := range rows {
		if !rowIsEmpty(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, ErrEmpty
	}

	headers := make([]string, len(rows[headerIdx]))
	for i, h := range rows[headerIdx] {
		headers[i] = strings.TrimSpace(h)
	}

	var dataRows [][]string
	for _, row := range rows[headerIdx+1:] {
		if rowIsEmpty(row) {
			continue
		}
		dataRows = append(dataRows, row)
	}

	return &RawGrid{
		Headers:     headers,
		Rows:        dataRows,
		HeaderIndex: headerIdx,
		Format:      format,
	}, nil
}

// detectDelimiter samples up to 10 lines starting at the header and picks
// the delimiter with the highest consistent count per line.
func detectDelimiter(lines []string, headerIdx int) rune {
	candidates := []rune{';', '\t', ',', '|'}
	best := rune(0)
	bestCount := 0

	sample := lines[headerIdx:]
	if len(sample) > 10 {
		sample = sample[:10]
	}

	for _, d := range candidates {
		total := 0
		for _, line := range sample {
			line = strings.TrimRight(line, "\r")
			if strings.TrimSpace(line) == "" {
				continue
			}
			total += strings.Count(line, string(d))
		}
		if total > bestCount {
			bestCount = total
			best = d
		}
	}
	return best
}

func rowIsEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// normalizeEncoding strips a UTF-8 BOM and falls back to latin-1 when the
// payload is not valid UTF-8, which older bank exports still use.
func normalizeEncoding(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		data = data[3:]
	}
	if utf8.Valid(data) {
		return data
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return []byte(string(runes))
}

// fingerprint hashes the normalized header names so a confirmed mapping
// can be recognized when the same bank format is uploaded again.
func fingerprint(headers []string) string {
	var normalized []string
	for _, h := range headers {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, h)
		if clean != "" {
			normalized = append(normalized, clean)
		}
	}
	sum := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(sum[:])
}

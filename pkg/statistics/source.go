package statistics

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrNotFound          = errors.New("statistics row not found")
	ErrSourceUnavailable = errors.New("statistics source unavailable")
)

// Column headers of the case statistics workbook. The sheet ships from the
// clinical study team as-is; headers are matched exactly.
const (
	colPatientID    = "患者ID"
	colSex          = "性别 (Female=1, Male=2)"
	colAge          = "年龄 (years)"
	colHeight       = "身高 (m)"
	colWeight       = "体重 (kg)"
	colFasting      = "空腹胰岛素 (pmol/L)"
	colPostprandial = "餐后2小时胰岛素 (pmol/L)"
)

type Sex int

const (
	SexUnknown Sex = 0
	SexFemale  Sex = 1
	SexMale    Sex = 2
)

// Row is one patient's line in the tabular source. Insulin fields are
// explicitly optional: nil means the cell was empty or "/".
type Row struct {
	PatientID           string   `json:"patient_id"`
	Sex                 Sex      `json:"sex"`
	Age                 int      `json:"age"`
	HeightM             float64  `json:"height_m"`
	WeightKg            float64  `json:"weight_kg"`
	FastingInsulin      *float64 `json:"fasting_insulin"`
	PostprandialInsulin *float64 `json:"postprandial_insulin"`
}

// UsesInsulin is true unless both insulin fields are absent. One populated
// field is enough to count as use.
func (r Row) UsesInsulin() bool {
	return r.FastingInsulin != nil || r.PostprandialInsulin != nil
}

// Source reads the Excel workbook. Rows are re-read per call so edits to the
// file between requests are always visible; nothing is cached.
type Source struct {
	path  string
	sheet string
}

func NewSource(path string) *Source {
	return &Source{path: path}
}

func (s *Source) readAll() ([]Row, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer f.Close()

	sheet := s.sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty sheet %q", ErrSourceUnavailable, sheet)
	}

	index := make(map[string]int, len(rows[0]))
	for i, header := range rows[0] {
		index[strings.TrimSpace(header)] = i
	}
	for _, required := range []string{colPatientID, colSex, colFasting, colPostprandial} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrSourceUnavailable, required)
		}
	}

	out := make([]Row, 0, len(rows)-1)
	for _, cells := range rows[1:] {
		id := cellAt(cells, index[colPatientID])
		if id == "" {
			continue
		}
		out = append(out, Row{
			PatientID:           id,
			Sex:                 parseSex(cellAt(cells, index[colSex])),
			Age:                 int(parseNumber(cellAt(cells, index[colAge]))),
			HeightM:             parseNumber(cellAt(cells, index[colHeight])),
			WeightKg:            parseNumber(cellAt(cells, index[colWeight])),
			FastingInsulin:      parseOptional(cellAt(cells, index[colFasting])),
			PostprandialInsulin: parseOptional(cellAt(cells, index[colPostprandial])),
		})
	}

	return out, nil
}

func cellAt(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

// parseOptional maps empty cells and the sheet's "/" placeholder to absent.
func parseOptional(cell string) *float64 {
	if cell == "" || cell == "/" {
		return nil
	}
	value, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil
	}
	return &value
}

func parseNumber(cell string) float64 {
	value, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0
	}
	return value
}

func parseSex(cell string) Sex {
	switch cell {
	case "1":
		return SexFemale
	case "2":
		return SexMale
	default:
		return SexUnknown
	}
}

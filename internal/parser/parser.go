package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"

	"tourism-rag/internal/models"
)

// column keys after normalization, in blob order
const (
	colPlace        = "place"
	colDescription  = "description"
	colLocation     = "location"
	colOpeningHours = "openinghours"
	colPrice        = "price"
)

var requiredColumns = []string{colPlace, colDescription, colLocation, colOpeningHours, colPrice}

// ParsePlaces reads the tourism dataset and returns one Place per non-blank row.
func ParsePlaces(filePath string) ([]models.Place, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".csv":
		return parseCSV(filePath)
	case ".xlsx":
		return parseXLSX(filePath)
	case ".xlsm", ".xltx", ".xltm":
		return parseWorkbook(filePath)
	default:
		return nil, fmt.Errorf("%w: unsupported dataset format: %s", models.ErrDataFormat, ext)
	}
}

func parseCSV(filePath string) ([]models.Place, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open dataset: %w", models.ErrDataFormat, err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses CSV content with a header row.
func ReadCSV(r io.Reader) ([]models.Place, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: malformed csv: %w", models.ErrDataFormat, err)
		}
		rows = append(rows, record)
	}
	return placesFromRows(rows)
}

func parseXLSX(filePath string) ([]models.Place, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open workbook: %w", models.ErrDataFormat, err)
	}
	if len(f.Sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook %s has no sheets", models.ErrDataFormat, filePath)
	}

	// first sheet only
	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			cells = append(cells, cell.String())
		}
		rows = append(rows, cells)
	}
	return placesFromRows(rows)
}

func parseWorkbook(filePath string) ([]models.Place, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open workbook: %w", models.ErrDataFormat, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook %s has no sheets", models.ErrDataFormat, filePath)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read sheet %s: %w", models.ErrDataFormat, sheets[0], err)
	}
	return placesFromRows(rows)
}

// placesFromRows maps the header row onto the five dataset fields.
// Cells missing from short rows are rendered as empty text.
func placesFromRows(rows [][]string) ([]models.Place, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: dataset is empty", models.ErrDataFormat)
	}

	index := make(map[string]int)
	for i, name := range rows[0] {
		key := normalizeColumn(name)
		if _, ok := index[key]; !ok {
			index[key] = i
		}
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", models.ErrDataFormat, col)
		}
	}

	cell := func(row []string, col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var places []models.Place
	for n, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		places = append(places, models.Place{
			Place:        cell(row, colPlace),
			Description:  cell(row, colDescription),
			Location:     cell(row, colLocation),
			OpeningHours: cell(row, colOpeningHours),
			Price:        cell(row, colPrice),
			Row:          n + 1,
		})
	}
	return places, nil
}

func normalizeColumn(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(name)
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// RenderBlob flattens a place into the fixed natural-language template.
func RenderBlob(p models.Place) string {
	return fmt.Sprintf(models.BlobTemplate, p.Place, p.Description, p.Location, p.OpeningHours, p.Price)
}

// CreateMetadata returns the metadata stored next to each blob.
func CreateMetadata(p models.Place) map[string]string {
	return map[string]string{
		"place":    p.Place,
		"location": p.Location,
		"row":      fmt.Sprintf("%d", p.Row),
	}
}

// CreateBlobs renders every place. IDs are derived from the dataset row so
// re-indexing the same file yields the same IDs.
func CreateBlobs(places []models.Place) []models.Blob {
	blobs := make([]models.Blob, 0, len(places))
	for _, p := range places {
		blobs = append(blobs, models.Blob{
			ID:       fmt.Sprintf("place-%d", p.Row),
			Content:  RenderBlob(p),
			Metadata: CreateMetadata(p),
		})
	}
	return blobs
}

package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hydrotools/lfcoords/models"
)

// Required columns of the station table, after lower-casing
const (
	ColumnID   = "id"
	ColumnLat  = "lat"
	ColumnLon  = "lon"
	ColumnArea = "area"
)

// ErrMissingColumn is returned when the header lacks a required column
var ErrMissingColumn = errors.New("missing required column")

// CSVReader loads the station table
type CSVReader struct {
	filePath string
}

// NewCSVReader creates a new CSV reader
func NewCSVReader(filePath string) *CSVReader {
	return &CSVReader{filePath: filePath}
}

// ReadAll reads the whole table. Rows with an empty or unparseable value, or
// a repeated id, are dropped and counted.
func (cr *CSVReader) ReadAll() ([]models.Station, int, error) {
	file, err := os.Open(cr.filePath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	return Decode(file)
}

// Decode reads a station table from r
func Decode(r io.Reader) ([]models.Station, int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read CSV header: %w", err)
	}

	// Column indices
	colMap := make(map[string]int)
	for i, col := range header {
		colMap[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range []string{ColumnID, ColumnLat, ColumnLon, ColumnArea} {
		if _, ok := colMap[col]; !ok {
			return nil, 0, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	var stations []models.Station
	seen := make(map[string]bool)
	dropped := 0
	startTime := time.Now()

	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("⚠️  Error reading CSV row %d: %v", line, err)
			dropped++
			continue
		}

		station, err := parseRow(row, colMap)
		if err == nil && seen[station.ID] {
			err = fmt.Errorf("duplicate id %q", station.ID)
		}
		if err != nil {
			log.Printf("⚠️  Dropping row %d: %v", line, err)
			dropped++
			continue
		}
		seen[station.ID] = true
		stations = append(stations, *station)

		if len(stations)%10000 == 0 {
			log.Printf("📊 Read %d stations", len(stations))
		}
	}

	if dropped > 0 {
		log.Printf("⚠️  %d rows dropped because of missing or invalid values", dropped)
	}
	log.Printf("✅ Loaded %d stations from CSV in %v", len(stations), time.Since(startTime))
	return stations, dropped, nil
}

// parseRow converts a CSV row to a Station; every column must hold a value
func parseRow(row []string, colMap map[string]int) (*models.Station, error) {
	s := &models.Station{}
	for col, i := range colMap {
		if i >= len(row) || strings.TrimSpace(row[i]) == "" {
			return nil, fmt.Errorf("empty %s", col)
		}
		value := strings.TrimSpace(row[i])

		var err error
		switch col {
		case ColumnID:
			s.ID = value
		case ColumnLat:
			s.Lat, err = parseFloat(col, value)
		case ColumnLon:
			s.Lon, err = parseFloat(col, value)
		case ColumnArea:
			s.Area, err = parseFloat(col, value)
		default:
			if s.Extra == nil {
				s.Extra = make(map[string]string)
			}
			s.Extra[col] = value
		}
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func parseFloat(col, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", col, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("missing %s: %q", col, value)
	}
	return v, nil
}

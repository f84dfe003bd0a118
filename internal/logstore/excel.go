// Package logstore persists plate logs as Excel workbooks.
//
// Two stores exist: BasicStore holds timestamp/plate rows awaiting
// enrichment, FullStore holds fully enriched vehicle records. Both write
// to a "Vehicle Logs" sheet with a bold header row and create their
// workbook on first append.
package logstore

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"platewatch/internal/anpr"
)

const (
	sheetName  = "Vehicle Logs"
	timeLayout = "2006-01-02 15:04:05"
)

var (
	basicHeaders = []string{"Timestamp", "Plate Number"}
	fullHeaders  = []string{"Timestamp", "Plate Number", "Owner Name", "Vehicle Model", "Registration Date"}
)

// openOrCreate loads the workbook at path, creating it with a styled
// header row when absent. The caller owns the returned file and must
// close it.
func openOrCreate(path string, headers []string) (*excelize.File, error) {
	f, err := excelize.OpenFile(path)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("logstore: open %s: %w", path, err)
	}

	f = excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("logstore: name sheet: %w", err)
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("logstore: header style: %w", err)
	}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			f.Close()
			return nil, fmt.Errorf("logstore: write header: %w", err)
		}
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetCellStyle(sheetName, "A1", last, style); err != nil {
		f.Close()
		return nil, fmt.Errorf("logstore: style header: %w", err)
	}
	return f, nil
}

// appendRow writes values into the first free row and saves the workbook.
func appendRow(f *excelize.File, path string, values []any) error {
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return fmt.Errorf("logstore: read rows: %w", err)
	}
	row := len(rows) + 1
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return fmt.Errorf("logstore: write cell %s: %w", cell, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("logstore: save %s: %w", path, err)
	}
	return nil
}

// BasicStore is the plate-only log used in deferred-enrichment mode.
type BasicStore struct {
	mu   sync.Mutex
	path string
}

// NewBasicStore builds a store writing to path. The workbook is created
// lazily on the first append.
func NewBasicStore(path string) *BasicStore {
	return &BasicStore{path: path}
}

func (s *BasicStore) Append(ts time.Time, plate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := openOrCreate(s.path, basicHeaders)
	if err != nil {
		return err
	}
	defer f.Close()
	return appendRow(f, s.path, []any{ts.Format(timeLayout), plate})
}

// ReadAll returns every logged plate in insertion order. A missing
// workbook reads as empty.
func (s *BasicStore) ReadAll() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("logstore: open %s: %w", s.path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("logstore: read rows: %w", err)
	}
	var plates []string
	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			continue
		}
		plates = append(plates, row[1])
	}
	return plates, nil
}

// Delete removes the workbook. Deleting a store that was never written
// is not an error.
func (s *BasicStore) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("logstore: delete %s: %w", s.path, err)
	}
	return nil
}

// FullStore is the enriched vehicle-record log.
type FullStore struct {
	mu   sync.Mutex
	path string
}

// NewFullStore builds a store writing to path. The workbook is created
// lazily on the first append.
func NewFullStore(path string) *FullStore {
	return &FullStore{path: path}
}

func (s *FullStore) Append(rec anpr.VehicleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := openOrCreate(s.path, fullHeaders)
	if err != nil {
		return err
	}
	defer f.Close()

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return appendRow(f, s.path, []any{
		ts.Format(timeLayout),
		rec.PlateText,
		rec.OwnerName,
		rec.VehicleModel,
		rec.RegistrationDate,
	})
}

// ReadAll returns every enriched record in insertion order.
func (s *FullStore) ReadAll() ([]anpr.VehicleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("logstore: open %s: %w", s.path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("logstore: read rows: %w", err)
	}
	var recs []anpr.VehicleRecord
	for i, row := range rows {
		if i == 0 || len(row) < 5 {
			continue
		}
		ts, _ := time.ParseInLocation(timeLayout, row[0], time.Local)
		recs = append(recs, anpr.VehicleRecord{
			Timestamp:        ts,
			PlateText:        row[1],
			OwnerName:        row[2],
			VehicleModel:     row[3],
			RegistrationDate: row[4],
		})
	}
	return recs, nil
}

var (
	_ anpr.BasicLog    = (*BasicStore)(nil)
	_ anpr.EnrichedLog = (*FullStore)(nil)
)

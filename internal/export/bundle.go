package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kiranshivaraju/pixelflow/pkg/models"
)

const (
	sheetName    = "Review"
	workbookName = "review.xlsx"
	manifestName = "manifest.json"
)

// Manifest describes the contents of a bundle.
type Manifest struct {
	JobID       string           `json:"job_id"`
	Preset      string           `json:"preset"`
	Status      models.JobStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	GeneratedAt time.Time        `json:"generated_at"`
	Items       int              `json:"items"`
	Progress    int              `json:"progress"`
	Counts      map[string]int   `json:"counts"`
	Files       []string         `json:"files"`
}

// Bundle is a prepared download.
type Bundle struct {
	Filename string
	Data     []byte
	Manifest Manifest
}

type asset struct {
	filename string
	data     []byte
}

// BuildBundle archives the job's review report and manifest as a ZIP.
func BuildBundle(job *models.Job, generatedAt time.Time) (*Bundle, error) {
	workbook, err := buildWorkbook(job)
	if err != nil {
		return nil, err
	}

	m := Manifest{
		JobID:       job.ID,
		Preset:      job.Preset,
		Status:      job.Status,
		CreatedAt:   job.CreatedAt,
		GeneratedAt: generatedAt,
		Items:       len(job.Items),
		Progress:    job.Progress(),
		Counts:      make(map[string]int, 4),
		Files:       []string{workbookName, manifestName},
	}
	for _, s := range []models.ItemStatus{
		models.ItemStatusPending, models.ItemStatusAccept, models.ItemStatusReject, models.ItemStatusFlag,
	} {
		m.Counts[string(s)] = job.CountStatus(s)
	}
	manifest, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}

	data, err := archive([]asset{
		{filename: workbookName, data: workbook},
		{filename: manifestName, data: manifest},
	})
	if err != nil {
		return nil, err
	}
	return &Bundle{
		Filename: job.ID + "_export.zip",
		Data:     data,
		Manifest: m,
	}, nil
}

// buildWorkbook writes one row per item in upload order.
func buildWorkbook(job *models.Job) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(sheetName); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	index, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headers := []string{"Item ID", "File Name", "Status", "Feedback Reason", "Notes", "Source URL"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}

	for i, it := range job.Items {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}
		write(1, it.ID)
		write(2, it.Name)
		write(3, string(it.Status))
		if it.Feedback != nil {
			write(4, string(it.Feedback.Reason))
			write(5, it.Feedback.Notes)
		}
		write(6, it.URL)
	}

	_ = f.SetColWidth(sheetName, "A", "A", 24) // id
	_ = f.SetColWidth(sheetName, "B", "B", 32) // name
	_ = f.SetColWidth(sheetName, "C", "C", 10) // status
	_ = f.SetColWidth(sheetName, "D", "D", 24) // reason
	_ = f.SetColWidth(sheetName, "E", "E", 48) // notes
	_ = f.SetColWidth(sheetName, "F", "F", 48) // url

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func archive(assets []asset) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, a := range assets {
		w, err := zw.Create(a.filename)
		if err != nil {
			return nil, fmt.Errorf("zip %s: %w", a.filename, err)
		}
		if _, err := w.Write(a.data); err != nil {
			return nil, fmt.Errorf("zip %s: %w", a.filename, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip close: %w", err)
	}
	return buf.Bytes(), nil
}

package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/pixelflow/internal/api/response"
	"github.com/kiranshivaraju/pixelflow/internal/config"
	"github.com/kiranshivaraju/pixelflow/internal/upload"
	"github.com/kiranshivaraju/pixelflow/pkg/models"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type jobSummary struct {
	ID          string           `json:"id"`
	CreatedAt   time.Time        `json:"created_at"`
	Preset      string           `json:"preset"`
	Status      models.JobStatus `json:"status"`
	ItemCount   int              `json:"item_count"`
	Progress    int              `json:"progress"`
	FlagCount   int              `json:"flag_count"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

type jobDetail struct {
	jobSummary
	Items []models.ImageItem `json:"items"`
}

func summarize(j *models.Job) jobSummary {
	return jobSummary{
		ID:          j.ID,
		CreatedAt:   j.CreatedAt,
		Preset:      j.Preset,
		Status:      j.Status,
		ItemCount:   len(j.Items),
		Progress:    j.Progress(),
		FlagCount:   j.FlagCount(),
		CompletedAt: j.CompletedAt,
	}
}

func detail(j *models.Job) jobDetail {
	return jobDetail{jobSummary: summarize(j), Items: j.Items}
}

// NewListJobsHandler returns an http.HandlerFunc for GET /api/v1/jobs.
func NewListJobsHandler(svc Jobs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, limit, err := parsePagination(r)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}

		jobs, err := svc.ListJobs(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}

		start := min((page-1)*limit, len(jobs))
		end := min(start+limit, len(jobs))
		out := make([]jobSummary, 0, end-start)
		for _, j := range jobs[start:end] {
			out = append(out, summarize(j))
		}

		response.Collection(w, out, response.PaginationMeta{
			Page:    page,
			Limit:   limit,
			Total:   len(jobs),
			HasNext: end < len(jobs),
		})
	}
}

// NewGetJobHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}.
func NewGetJobHandler(svc Jobs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := svc.GetJob(r.Context(), chi.URLParam(r, "jobID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, detail(job))
	}
}

// NewCreateJobHandler returns an http.HandlerFunc for POST /api/v1/jobs.
// It takes either a JSON description of the files or a multipart upload.
func NewCreateJobHandler(svc Jobs, limits config.UploadConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			presetID string
			files    []upload.File
			err      error
		)
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			presetID, files, err = readMultipart(w, r, limits)
		} else {
			var req struct {
				PresetID string        `json:"preset_id"`
				Files    []upload.File `json:"files"`
			}
			err = decodeJSON(r, createJobSchema, &req)
			presetID, files = req.PresetID, req.Files
		}
		if err != nil {
			writeError(w, r, err)
			return
		}

		job, err := svc.CreateJob(r.Context(), presetID, files)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Created(w, detail(job))
	}
}

// readMultipart streams the form. Only the leading bytes of each file are
// kept, for type sniffing; the rest is counted and discarded.
func readMultipart(w http.ResponseWriter, r *http.Request, limits config.UploadConfig) (string, []upload.File, error) {
	if limits.MaxFiles > 0 && limits.MaxFileBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(limits.MaxFiles)*limits.MaxFileBytes+maxJSONBody)
	}
	mr, err := r.MultipartReader()
	if err != nil {
		return "", nil, &errInvalidBody{message: "Invalid multipart body"}
	}

	var (
		presetID string
		files    []upload.File
	)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				return "", nil, fmt.Errorf("%w: upload exceeds %d bytes", upload.ErrFileTooLarge, tooBig.Limit)
			}
			return "", nil, &errInvalidBody{message: "Invalid multipart body"}
		}

		switch part.FormName() {
		case "preset_id":
			b, err := io.ReadAll(io.LimitReader(part, 256))
			if err != nil {
				return "", nil, &errInvalidBody{message: "Invalid preset_id field"}
			}
			presetID = strings.TrimSpace(string(b))
		case "files":
			header := make([]byte, upload.SniffLen)
			n, err := io.ReadFull(part, header)
			if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
				return "", nil, &errInvalidBody{message: "Could not read uploaded file"}
			}
			rest, err := io.Copy(io.Discard, part)
			if err != nil {
				return "", nil, &errInvalidBody{message: "Could not read uploaded file"}
			}
			files = append(files, upload.File{
				Name:   part.FileName(),
				Size:   int64(n) + rest,
				Header: header[:n],
			})
		}
		part.Close()
	}
	return presetID, files, nil
}

func parsePagination(r *http.Request) (int, int, error) {
	page, limit := 1, defaultPageLimit
	if v := r.URL.Query().Get("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 1 {
			return 0, 0, errors.New("page must be a positive integer")
		}
		page = p
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 1 {
			return 0, 0, errors.New("limit must be a positive integer")
		}
		limit = min(l, maxPageLimit)
	}
	return page, limit, nil
}

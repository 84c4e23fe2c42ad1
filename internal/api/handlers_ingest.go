package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docinsight/internal/collector"
	"github.com/dgallion1/docinsight/internal/parser"
	"github.com/dgallion1/docinsight/internal/pipeline"
)

const maxCollectBody = 1 << 20

type collectRequest struct {
	Sources []string `json:"sources"`
	Title   string   `json:"title,omitempty"`
	Force   bool     `json:"force,omitempty"`
}

// jobResult reports the outcome of queueing one source or upload.
type jobResult struct {
	Source   string             `json:"source,omitempty"`
	Filename string             `json:"filename,omitempty"`
	JobID    string             `json:"job_id,omitempty"`
	DocID    string             `json:"doc_id,omitempty"`
	Status   pipeline.JobStatus `json:"status,omitempty"`
	PollURL  string             `json:"poll_url,omitempty"`
	Error    string             `json:"error,omitempty"`
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCollectBody)

	req, err := decodeCollectRequest(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var sources []string
	for _, src := range req.Sources {
		if src = strings.TrimSpace(src); src != "" {
			sources = append(sources, src)
		}
	}
	if len(sources) == 0 {
		jsonError(w, "at least one source is required", http.StatusBadRequest)
		return
	}

	results := make([]jobResult, 0, len(sources))
	queued := 0
	for _, src := range sources {
		res := s.submit(pipeline.NewJob(src, req.Title, req.Force))
		res.Source = src
		if res.Error == "" {
			queued++
		}
		results = append(results, res)
	}

	code := http.StatusAccepted
	if queued == 0 {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"jobs": results})
}

// decodeCollectRequest accepts a JSON body or a newline-separated list.
func decodeCollectRequest(r *http.Request) (collectRequest, error) {
	var req collectRequest
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, fmt.Errorf("invalid json body: %w", err)
		}
		return req, nil
	}

	sc := bufio.NewScanner(r.Body)
	for sc.Scan() {
		req.Sources = append(req.Sources, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return req, fmt.Errorf("read body: %w", err)
	}
	req.Title = r.URL.Query().Get("title")
	req.Force = r.URL.Query().Get("force") == "true"
	return req, nil
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Extra 1MB for form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1<<20)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	_, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}

	res, code := s.queueUpload(header, r.FormValue("title"), r.FormValue("force") == "true")
	if res.Error != "" {
		jsonError(w, res.Error, code)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

func (s *Server) handleBatchUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10<<20)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	force := r.FormValue("force") == "true"
	results := make([]jobResult, 0, len(files))
	for _, fh := range files {
		res, _ := s.queueUpload(fh, "", force)
		results = append(results, res)
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"jobs": results})
}

// queueUpload saves one uploaded file and queues a job for it. On failure
// the result carries the error and the returned status code.
func (s *Server) queueUpload(fh *multipart.FileHeader, title string, force bool) (jobResult, int) {
	filename := collector.SanitizeFilename(fh.Filename)
	res := jobResult{Filename: filename}
	if !parser.IsSupportedExtension(filename) {
		res.Error = fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename))
		return res, http.StatusBadRequest
	}
	if fh.Size > s.cfg.MaxUploadBytes {
		res.Error = fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
		return res, http.StatusRequestEntityTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		res.Error = "failed to open file"
		return res, http.StatusBadRequest
	}
	docID := pipeline.NewULID()
	saved, err := s.deps.Uploads.Save(docID, filename, f)
	f.Close()
	if err != nil {
		res.Error = err.Error()
		if errors.Is(err, collector.ErrTooLarge) {
			return res, http.StatusRequestEntityTooLarge
		}
		return res, http.StatusInternalServerError
	}

	job := pipeline.NewJob(saved.LocalPath, title, force)
	job.DocID = docID
	job.Filename = filename
	queued := s.submit(job)
	queued.Filename = filename
	if queued.Error != "" {
		return queued, http.StatusServiceUnavailable
	}
	return queued, http.StatusAccepted
}

func (s *Server) submit(job *pipeline.Job) jobResult {
	if err := s.deps.Pipeline.Submit(job); err != nil {
		return jobResult{JobID: job.ID, Error: err.Error()}
	}
	return jobResult{
		JobID:   job.ID,
		DocID:   job.DocID,
		Status:  pipeline.StatusQueued,
		PollURL: "/api/jobs/" + job.ID,
	}
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.deps.Pipeline.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/kartoza/deepfake-detection/internal/config"
	"github.com/kartoza/deepfake-detection/internal/detector"
	"github.com/kartoza/deepfake-detection/internal/history"
	"github.com/kartoza/deepfake-detection/internal/httputil"
	"github.com/kartoza/deepfake-detection/internal/jobs"
	"github.com/kartoza/deepfake-detection/internal/media"
	"github.com/kartoza/deepfake-detection/internal/models"
	"github.com/kartoza/deepfake-detection/internal/shares"
	"github.com/kartoza/deepfake-detection/internal/stats"
	"github.com/kartoza/deepfake-detection/internal/sysinfo"
	"github.com/kartoza/deepfake-detection/internal/uploads"
)

const serverName = "Go/DeepFake Detection API"

// request bodies carry boundaries, headers or JSON on top of the file itself
const bodyOverhead = 1 << 20

// Deps are the components the handler serves
type Deps struct {
	// Detector analyses uploads
	Detector detector.Detector
	// Demo answers /api/demo/predict; defaults to Detector
	Demo    detector.Detector
	Stats   *stats.Statistics
	History history.Store
	Jobs    *jobs.Store
	Uploads *uploads.Store
	Shares  *shares.Store
}

// Handler provides HTTP API endpoints
type Handler struct {
	deps    Deps
	cfg     config.Config
	started time.Time
}

// NewHandler creates a new API handler
func NewHandler(deps Deps, cfg config.Config) *Handler {
	if deps.Demo == nil {
		deps.Demo = deps.Detector
	}
	return &Handler{
		deps:    deps,
		cfg:     cfg,
		started: time.Now(),
	}
}

// RegisterRoutes sets up all API routes on a router mounted at /api
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.Use(corsMiddleware)

	// Health and info
	r.HandleFunc("/health", h.handleHealth).Methods("GET", "OPTIONS")
	r.HandleFunc("/models/status", h.handleModelsStatus).Methods("GET", "OPTIONS")
	r.HandleFunc("/statistics", h.handleStatistics).Methods("GET", "OPTIONS")

	// Demo
	r.HandleFunc("/demo/predict", h.handleDemoPredict).Methods("GET", "OPTIONS")
	r.HandleFunc("/demo/reset", h.handleDemoReset).Methods("GET", "POST", "OPTIONS")

	// Analysis
	r.HandleFunc("/analyze", h.handleAnalyze).Methods("POST", "OPTIONS")
	r.HandleFunc("/analyze/bulk", h.handleBulkUpload).Methods("POST", "OPTIONS")
	r.HandleFunc("/upload", h.handleUpload).Methods("POST", "OPTIONS")

	// Jobs and history
	r.HandleFunc("/jobs", h.handleListJobs).Methods("GET", "OPTIONS")
	r.HandleFunc("/jobs/{id}", h.handleGetJob).Methods("GET", "OPTIONS")
	r.HandleFunc("/jobs/{id}/analyze", h.handleAnalyzeJob).Methods("POST", "OPTIONS")
	r.HandleFunc("/history", h.handleHistory).Methods("GET", "OPTIONS")

	// Shares
	r.HandleFunc("/create-share", h.handleCreateShare).Methods("POST", "OPTIONS")
	r.HandleFunc("/shares/{id}", h.handleGetShare).Methods("GET", "OPTIONS")

	r.NotFoundHandler = http.HandlerFunc(handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(handleMethodNotAllowed)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	httputil.RespondError(w, http.StatusNotFound, "Endpoint not found")
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httputil.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// handleHealth returns server health status
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, models.HealthResponse{
		Status:          "healthy",
		Server:          serverName,
		Version:         h.cfg.Version,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds:   math.Round(time.Since(h.started).Seconds()*10) / 10,
		Detector:        h.deps.Detector.Name(),
		ModelsAvailable: h.learned(),
		System:          sysinfo.Collect(r.Context()),
	})
}

// handleModelsStatus returns the advertised model lineup
func (h *Handler) handleModelsStatus(w http.ResponseWriter, r *http.Request) {
	status := "simulated"
	if h.learned() {
		status = "active"
	}

	httputil.RespondJSON(w, http.StatusOK, models.ModelsStatusResponse{
		Mode:     h.modelMode(),
		Detector: h.deps.Detector.Name(),
		Models: map[string]models.ModelInfo{
			"image":    {Status: status, Accuracy: 0.942, Precision: 0.931, Recall: 0.948, Type: "Convolutional Neural Network", Specialization: "Image Analysis"},
			"video":    {Status: status, Accuracy: 0.928, Precision: 0.917, Recall: 0.936, Type: "3D CNN + Optical Flow", Specialization: "Temporal Analysis"},
			"audio":    {Status: status, Accuracy: 0.913, Precision: 0.902, Recall: 0.921, Type: "Spectral Transformer", Specialization: "Voice Analysis"},
			"ensemble": {Status: status, Accuracy: 0.961, Precision: 0.955, Recall: 0.963, Type: "Model Ensemble", Specialization: "Final Decision Making"},
		},
		SupportedFormats: media.SupportedFormats(),
		PredictionBalance: map[string]string{
			"authentic": "~60%",
			"deepfake":  "~40%",
		},
		MaxFileSizeMB: h.cfg.MaxUploadMB,
	})
}

// handleStatistics combines prediction counters with job counts
func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	counts := h.deps.Jobs.Counts()

	successRate := 0.0
	if finished := counts.Completed + counts.Failed; finished > 0 {
		successRate = math.Round(float64(counts.Completed)/float64(finished)*1000) / 10
	}

	httputil.RespondJSON(w, http.StatusOK, models.StatisticsResponse{
		Snapshot:      h.deps.Stats.Snapshot(),
		TotalJobs:     counts.Total,
		CompletedJobs: counts.Completed,
		PendingJobs:   counts.Pending + counts.Processing,
		FailedJobs:    counts.Failed,
		SuccessRate:   successRate,
		ModelMode:     h.modelMode(),
		ServerStatus:  "online",
	})
}

// handleDemoPredict returns one prediction without any upload
func (h *Handler) handleDemoPredict(w http.ResponseWriter, r *http.Request) {
	var kind media.Kind
	if t := r.URL.Query().Get("type"); t != "" {
		kind = media.ParseKind(t)
	}

	result, err := h.deps.Demo.Analyze(r.Context(), detector.Request{Kind: kind})
	if err != nil {
		h.respondAnalysisError(w, "", err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

// handleDemoReset zeroes counters and clears history and jobs
func (h *Handler) handleDemoReset(w http.ResponseWriter, r *http.Request) {
	h.deps.Stats.Reset()
	h.deps.Jobs.Reset()
	if err := h.deps.History.Reset(r.Context()); err != nil {
		log.Printf("Warning: failed to clear history: %v", err)
	}

	log.Printf("Demo statistics reset")
	httputil.RespondJSON(w, http.StatusOK, models.ResetResponse{
		Status:  "reset",
		Message: "Statistics reset successfully",
	})
}

// handleAnalyze stores one upload and analyses it immediately
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	stored, ok := h.receiveFile(w, r)
	if !ok {
		return
	}

	job := h.createJob(stored)
	if _, err := h.deps.Jobs.Start(job.ID); err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.runAnalysis(r.Context(), w, job, stored.Sample)
}

// handleUpload stores one upload as a pending job
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	stored, ok := h.receiveFile(w, r)
	if !ok {
		return
	}

	job := h.createJob(stored)
	httputil.RespondJSON(w, http.StatusCreated, models.UploadResponse{
		JobID:       job.ID,
		Filename:    job.Filename,
		FileType:    job.FileType,
		FileSize:    job.FileSize,
		SniffedKind: job.SniffedKind,
		Status:      "uploaded",
	})
}

// handleBulkUpload stores every allowed file as a pending job
func (h *Handler) handleBulkUpload(w http.ResponseWriter, r *http.Request) {
	if !h.parseMultipart(w, r) {
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "No files provided")
		return
	}

	resp := models.BulkUploadResponse{JobIDs: []string{}}
	for _, fh := range files {
		if fh.Filename == "" || !media.Allowed(fh.Filename) {
			resp.Skipped = append(resp.Skipped, fh.Filename)
			continue
		}
		stored, err := h.saveFileHeader(fh)
		if err != nil {
			log.Printf("Warning: skipping %s in bulk upload: %v", fh.Filename, err)
			resp.Skipped = append(resp.Skipped, fh.Filename)
			continue
		}
		job := h.createJob(stored)
		resp.JobIDs = append(resp.JobIDs, job.ID)
	}

	resp.Message = fmt.Sprintf("%d files uploaded for analysis", len(resp.JobIDs))
	httputil.RespondJSON(w, http.StatusCreated, resp)
}

// handleAnalyzeJob analyses a previously uploaded file
func (h *Handler) handleAnalyzeJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	job, err := h.deps.Jobs.Start(id)
	switch {
	case errors.Is(err, jobs.ErrJobNotFound):
		httputil.RespondError(w, http.StatusNotFound, "Job not found")
		return
	case errors.Is(err, jobs.ErrJobNotPending):
		msg := "Job is not pending"
		if current, err := h.deps.Jobs.Get(id); err == nil {
			msg = fmt.Sprintf("Job already %s", current.Status)
		}
		httputil.RespondError(w, http.StatusConflict, msg)
		return
	case err != nil:
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sample, err := uploads.ReadSample(job.Path)
	if err != nil {
		h.failJob(job.ID, err)
		httputil.RespondJSON(w, http.StatusGone, models.AnalysisErrorResponse{
			Prediction: "error",
			Error:      "Uploaded file is no longer available",
			JobID:      job.ID,
		})
		return
	}
	h.runAnalysis(r.Context(), w, job, sample)
}

// handleListJobs returns a filtered page of jobs
func (h *Handler) handleListJobs(w http.ResponseWriter, r *http.Request) {
	status, err := jobs.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, offset, err := pageParams(r)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, total := h.deps.Jobs.List(jobs.Filter{Status: status, Limit: limit, Offset: offset})
	httputil.RespondJSON(w, http.StatusOK, models.JobListResponse{
		Jobs:   page,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// handleGetJob returns one job
func (h *Handler) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.deps.Jobs.Get(mux.Vars(r)["id"])
	if err != nil {
		httputil.RespondError(w, http.StatusNotFound, "Job not found")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, job)
}

// handleHistory returns a page of past predictions, newest first
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	predictions, total, err := h.deps.History.List(r.Context(), limit, offset)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.HistoryResponse{
		Predictions: predictions,
		Total:       total,
		Limit:       limit,
		Offset:      offset,
	})
}

// handleCreateShare stores a report and returns its public link
func (h *Handler) handleCreateShare(w http.ResponseWriter, r *http.Request) {
	if max := h.deps.Uploads.MaxBytes(); max > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, max+bodyOverhead)
	}

	var req models.ShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.RespondError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	share, err := h.deps.Shares.Create(req.Filename, req.Result, req.Preview)
	if err != nil {
		if errors.Is(err, shares.ErrInvalidShare) {
			httputil.RespondError(w, http.StatusBadRequest, "filename and result are required")
			return
		}
		httputil.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to create share link: %v", err))
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, models.ShareResponse{
		ShareID:   share.ID,
		ShareURL:  h.baseURL(r) + "/share/" + share.ID,
		ExpiresAt: share.ExpiresAt,
		ExpiresIn: humanDuration(h.cfg.ShareTTLDuration()),
	})
}

// handleGetShare returns a stored share
func (h *Handler) handleGetShare(w http.ResponseWriter, r *http.Request) {
	share, err := h.deps.Shares.Get(mux.Vars(r)["id"])
	switch {
	case errors.Is(err, shares.ErrShareNotFound):
		httputil.RespondError(w, http.StatusNotFound, "Share not found")
	case errors.Is(err, shares.ErrShareExpired):
		httputil.RespondError(w, http.StatusGone, "Share has expired")
	case err != nil:
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
	default:
		httputil.RespondJSON(w, http.StatusOK, share)
	}
}

// receiveFile validates the "file" form field and stores it. It writes the
// error response itself and reports whether the caller should continue.
func (h *Handler) receiveFile(w http.ResponseWriter, r *http.Request) (*uploads.StoredFile, bool) {
	if !h.parseMultipart(w, r) {
		return nil, false
	}

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "No file provided")
		return nil, false
	}
	fh := files[0]
	if fh.Filename == "" {
		httputil.RespondError(w, http.StatusBadRequest, "No file selected")
		return nil, false
	}
	if !media.Allowed(fh.Filename) {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid file type")
		return nil, false
	}

	stored, err := h.saveFileHeader(fh)
	if err != nil {
		h.respondUploadError(w, err)
		return nil, false
	}
	return stored, true
}

func (h *Handler) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	if max := h.deps.Uploads.MaxBytes(); max > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, max+bodyOverhead)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondUploadError(w, uploads.ErrTooLarge)
			return false
		}
		httputil.RespondError(w, http.StatusBadRequest, "No file provided")
		return false
	}
	return true
}

func (h *Handler) saveFileHeader(fh *multipart.FileHeader) (*uploads.StoredFile, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return h.deps.Uploads.Save(fh.Filename, f)
}

func (h *Handler) respondUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, uploads.ErrTooLarge):
		httputil.RespondJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
			"error":    "File too large",
			"max_size": fmt.Sprintf("%dMB", h.cfg.MaxUploadMB),
		})
	case errors.Is(err, uploads.ErrInvalidName):
		httputil.RespondError(w, http.StatusBadRequest, "Invalid file type")
	default:
		log.Printf("Upload failed: %v", err)
		httputil.RespondError(w, http.StatusInternalServerError, "Upload failed")
	}
}

// runAnalysis analyses a processing job and writes the response
func (h *Handler) runAnalysis(ctx context.Context, w http.ResponseWriter, job *jobs.Job, sample []byte) {
	result, err := h.deps.Detector.Analyze(ctx, detector.Request{Kind: job.FileType, Data: sample})
	if err != nil {
		h.failJob(job.ID, err)
		log.Printf("Analysis failed for job %s: %v", job.ID, err)
		h.respondAnalysisError(w, job.ID, err)
		return
	}

	if _, err := h.deps.Jobs.Complete(job.ID, result); err != nil {
		log.Printf("Warning: could not record result of job %s: %v", job.ID, err)
	}
	log.Printf("Analysis completed for job %s: %s (%.3f)", job.ID, result.Prediction, result.Confidence)

	resp := models.AnalyzeResponse{
		PredictionResult: result,
		Filename:         job.Filename,
		FileSize:         job.FileSize,
		JobID:            job.ID,
		SniffedKind:      job.SniffedKind,
		SniffedMIME:      job.SniffedMIME,
	}
	if job.FileType == media.KindImage {
		if info, err := media.ProbeImage(bytes.NewReader(sample)); err == nil {
			resp.Image = &info
		}
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// createJob registers a stored upload, warning when its content does not
// match its extension
func (h *Handler) createJob(stored *uploads.StoredFile) *jobs.Job {
	if stored.SniffedKind != media.KindUnknown && stored.SniffedKind != stored.Kind {
		log.Printf("Warning: %s is named as %s but its content looks like %s (%s)",
			stored.OriginalName, stored.Kind, stored.SniffedKind, stored.MIME)
	}
	return h.deps.Jobs.Create(jobs.Upload{
		Filename:    stored.OriginalName,
		Path:        stored.Path,
		Kind:        stored.Kind,
		Size:        stored.Size,
		SniffedKind: stored.SniffedKind,
		SniffedMIME: stored.MIME,
	})
}

func (h *Handler) failJob(id string, cause error) {
	if _, err := h.deps.Jobs.Fail(id, cause); err != nil {
		log.Printf("Warning: could not mark job %s failed: %v", id, err)
	}
}

// respondAnalysisError maps detector failures onto status codes
func (h *Handler) respondAnalysisError(w http.ResponseWriter, jobID string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, detector.ErrUnsupportedKind), errors.Is(err, detector.ErrEmptyInput):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, detector.ErrModelUnavailable):
		status = http.StatusServiceUnavailable
	}
	httputil.RespondJSON(w, status, models.AnalysisErrorResponse{
		Prediction: "error",
		Error:      fmt.Sprintf("Analysis failed: %v", err),
		JobID:      jobID,
	})
}

func (h *Handler) learned() bool {
	return h.deps.Detector.Name() == "learned"
}

func (h *Handler) modelMode() string {
	if h.learned() {
		return "learned"
	}
	return "simulated"
}

// baseURL prefers the configured public URL, then the request's host
func (h *Handler) baseURL(r *http.Request) string {
	if h.cfg.PublicURL != "" {
		return strings.TrimRight(h.cfg.PublicURL, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

func pageParams(r *http.Request) (int, int, error) {
	q := r.URL.Query()
	limit, offset := 0, 0

	var err error
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			return 0, 0, fmt.Errorf("invalid limit %q", v)
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil {
			return 0, 0, fmt.Errorf("invalid offset %q", v)
		}
	}
	limit, offset = jobs.NormalizePage(limit, offset)
	return limit, offset, nil
}

func humanDuration(d time.Duration) string {
	day := 24 * time.Hour
	if d >= day && d%day == 0 {
		days := int(d / day)
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	return d.String()
}

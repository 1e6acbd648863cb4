package models

import (
	"encoding/json"

	"github.com/kartoza/deepfake-detection/internal/detector"
	"github.com/kartoza/deepfake-detection/internal/jobs"
	"github.com/kartoza/deepfake-detection/internal/media"
	"github.com/kartoza/deepfake-detection/internal/stats"
	"github.com/kartoza/deepfake-detection/internal/sysinfo"
)

// HealthResponse is returned by /api/health
type HealthResponse struct {
	Status          string       `json:"status"`
	Server          string       `json:"server"`
	Version         string       `json:"version"`
	Timestamp       string       `json:"timestamp"`
	UptimeSeconds   float64      `json:"uptime_seconds"`
	Detector        string       `json:"detector"`
	ModelsAvailable bool         `json:"models_available"`
	System          sysinfo.Info `json:"system"`
}

// ModelInfo describes one advertised detection model
type ModelInfo struct {
	Status         string  `json:"status"`
	Accuracy       float64 `json:"accuracy"`
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	Type           string  `json:"type"`
	Specialization string  `json:"specialization"`
}

// ModelsStatusResponse is returned by /api/models/status
type ModelsStatusResponse struct {
	Mode              string                  `json:"mode"`
	Detector          string                  `json:"detector"`
	Models            map[string]ModelInfo    `json:"models"`
	SupportedFormats  map[media.Kind][]string `json:"supported_formats"`
	PredictionBalance map[string]string       `json:"prediction_balance"`
	MaxFileSizeMB     int64                   `json:"max_file_size_mb"`
}

// StatisticsResponse is returned by /api/statistics
type StatisticsResponse struct {
	stats.Snapshot
	TotalJobs     int     `json:"total_jobs"`
	CompletedJobs int     `json:"completed_jobs"`
	PendingJobs   int     `json:"pending_jobs"`
	FailedJobs    int     `json:"failed_jobs"`
	SuccessRate   float64 `json:"success_rate"`
	ModelMode     string  `json:"model_mode"`
	ServerStatus  string  `json:"server_status"`
}

// AnalyzeResponse is a prediction enriched with upload details
type AnalyzeResponse struct {
	*detector.PredictionResult
	Filename    string           `json:"filename"`
	FileSize    int64            `json:"file_size"`
	JobID       string           `json:"job_id"`
	SniffedKind media.Kind       `json:"sniffed_kind,omitempty"`
	SniffedMIME string           `json:"sniffed_mime,omitempty"`
	Image       *media.ImageInfo `json:"image,omitempty"`
}

// AnalysisErrorResponse reports a failed analysis
type AnalysisErrorResponse struct {
	Prediction string `json:"prediction"`
	Error      string `json:"error"`
	JobID      string `json:"job_id,omitempty"`
}

// UploadResponse is returned when a file is stored for later analysis
type UploadResponse struct {
	JobID       string     `json:"job_id"`
	Filename    string     `json:"filename"`
	FileType    media.Kind `json:"file_type"`
	FileSize    int64      `json:"file_size"`
	SniffedKind media.Kind `json:"sniffed_kind,omitempty"`
	Status      string     `json:"status"`
}

// BulkUploadResponse lists the jobs created by a bulk upload
type BulkUploadResponse struct {
	Message string   `json:"message"`
	JobIDs  []string `json:"job_ids"`
	Skipped []string `json:"skipped,omitempty"`
}

// JobListResponse is one page of jobs
type JobListResponse struct {
	Jobs   []*jobs.Job `json:"jobs"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// HistoryResponse is one page of past predictions
type HistoryResponse struct {
	Predictions []*detector.PredictionResult `json:"predictions"`
	Total       int                          `json:"total"`
	Limit       int                          `json:"limit"`
	Offset      int                          `json:"offset"`
}

// ShareRequest creates a shareable report
type ShareRequest struct {
	Filename string          `json:"filename"`
	Result   json.RawMessage `json:"result"`
	Preview  *string         `json:"preview,omitempty"`
}

// ShareResponse points at a created share
type ShareResponse struct {
	ShareID   string `json:"share_id"`
	ShareURL  string `json:"share_url"`
	ExpiresAt string `json:"expires_at"`
	ExpiresIn string `json:"expires_in"`
}

// ResetResponse confirms a demo reset
type ResetResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

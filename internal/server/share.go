package server

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log"
	"net/http"
	"sort"

	"github.com/gorilla/mux"
	"github.com/kartoza/deepfake-detection/internal/detector"
	"github.com/kartoza/deepfake-detection/internal/shares"
)

//go:embed templates/*
var templateFS embed.FS

var shareTemplate = template.Must(template.ParseFS(templateFS, "templates/share.html.tmpl"))

type evidenceRow struct {
	Name    string
	Value   float64
	Percent int
}

type sharePage struct {
	ID        string
	Filename  string
	Expired   bool
	Missing   bool
	Result    *detector.PredictionResult
	Percent   int
	Evidence  []evidenceRow
	Preview   string
	CreatedAt string
	ExpiresAt string
}

// handleSharePage renders a stored report as HTML
func (s *Server) handleSharePage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	page := sharePage{ID: id}
	status := http.StatusOK

	share, err := s.shareStore.Get(id)
	switch {
	case errors.Is(err, shares.ErrShareNotFound):
		page.Missing = true
		status = http.StatusNotFound
	case errors.Is(err, shares.ErrShareExpired):
		page.Expired = true
		status = http.StatusGone
	case err != nil:
		http.Error(w, "Failed to load share", http.StatusInternalServerError)
		return
	default:
		fillSharePage(&page, share)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := shareTemplate.Execute(w, page); err != nil {
		log.Printf("Error rendering share page: %v", err)
	}
}

func fillSharePage(page *sharePage, share *shares.Share) {
	page.Filename = share.Filename
	page.CreatedAt = share.CreatedAt
	page.ExpiresAt = share.ExpiresAt
	if share.Preview != nil {
		page.Preview = *share.Preview
	}

	var result detector.PredictionResult
	if err := json.Unmarshal(share.Result, &result); err != nil || result.Prediction == "" {
		return
	}
	page.Result = &result
	page.Percent = int(result.Confidence*100 + 0.5)

	for name, v := range result.Evidence {
		page.Evidence = append(page.Evidence, evidenceRow{Name: name, Value: v, Percent: int(v*100 + 0.5)})
	}
	sort.Slice(page.Evidence, func(i, j int) bool {
		return page.Evidence[i].Name < page.Evidence[j].Name
	})
}

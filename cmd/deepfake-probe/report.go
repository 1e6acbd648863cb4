package main

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/kartoza/deepfake-detection/internal/detector"
	"github.com/kartoza/deepfake-detection/internal/media"
)

// rateTolerance is how far an observed authentic rate may drift from the
// profile before the kind is flagged
const rateTolerance = 0.06

// lowConfidence marks results drawn from the uncertain band
const lowConfidence = 0.65

type kindSummary struct {
	Kind          media.Kind
	Count         int
	Authentic     int
	Expected      float64
	ConfidenceSum float64
	LowConfidence int
	EvidenceSum   map[detector.Label]float64
	EvidenceCount map[detector.Label]int
}

func (s *kindSummary) AuthenticRate() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Authentic) / float64(s.Count)
}

func (s *kindSummary) MeanConfidence() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.ConfidenceSum / float64(s.Count)
}

func (s *kindSummary) MeanEvidence(label detector.Label) float64 {
	if s.EvidenceCount[label] == 0 {
		return 0
	}
	return s.EvidenceSum[label] / float64(s.EvidenceCount[label])
}

// Calibrated reports whether the authentic rate is within tolerance and
// deepfake evidence outweighs authentic evidence.
func (s *kindSummary) Calibrated() bool {
	if math.Abs(s.AuthenticRate()-s.Expected) > rateTolerance {
		return false
	}
	if s.EvidenceCount[detector.LabelAuthentic] > 0 && s.EvidenceCount[detector.LabelDeepfake] > 0 {
		return s.MeanEvidence(detector.LabelDeepfake) > s.MeanEvidence(detector.LabelAuthentic)
	}
	return true
}

// summarize groups results by file type
func summarize(results []*detector.PredictionResult) []*kindSummary {
	byKind := map[media.Kind]*kindSummary{}
	for _, r := range results {
		s, ok := byKind[r.FileType]
		if !ok {
			s = &kindSummary{
				Kind:          r.FileType,
				Expected:      detector.ProfileFor(r.FileType).BaseAuthentic,
				EvidenceSum:   map[detector.Label]float64{},
				EvidenceCount: map[detector.Label]int{},
			}
			byKind[r.FileType] = s
		}
		s.Count++
		if r.Prediction == detector.LabelAuthentic {
			s.Authentic++
		}
		s.ConfidenceSum += r.Confidence
		if r.Confidence < lowConfidence {
			s.LowConfidence++
		}
		s.EvidenceSum[r.Prediction] += r.MeanEvidence()
		s.EvidenceCount[r.Prediction]++
	}

	out := make([]*kindSummary, 0, len(byKind))
	for _, s := range byKind {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// printReport writes the summary table and returns the number of kinds
// outside tolerance
func printReport(w io.Writer, summaries []*kindSummary) int {
	separator := strings.Repeat("-", 78)
	colorCyan.Fprintf(w, "%-8s %7s %10s %10s %8s %9s %9s  %s\n",
		"kind", "n", "authentic", "expected", "conf", "ev(auth)", "ev(fake)", "status")
	fmt.Fprintln(w, separator)

	drifting := 0
	for _, s := range summaries {
		colorWhite.Fprintf(w, "%-8s %7d %9.1f%% %9.1f%% %8.3f %9.3f %9.3f  ",
			s.Kind, s.Count, s.AuthenticRate()*100, s.Expected*100, s.MeanConfidence(),
			s.MeanEvidence(detector.LabelAuthentic), s.MeanEvidence(detector.LabelDeepfake))
		if s.Calibrated() {
			colorGreen.Fprintln(w, "ok")
		} else {
			drifting++
			colorRed.Fprintln(w, "drift")
		}
	}
	fmt.Fprintln(w, separator)

	if drifting == 0 {
		colorGreen.Fprintln(w, "All kinds within tolerance")
	} else {
		colorYellow.Fprintf(w, "%d kind(s) outside tolerance (small samples drift; try a larger --count)\n", drifting)
	}
	return drifting
}

// checkReport prints the summaries and fails when any kind drifted
func checkReport(w io.Writer, summaries []*kindSummary) error {
	if drifting := printReport(w, summaries); drifting > 0 {
		return fmt.Errorf("%d of %d kind(s) outside calibration tolerance", drifting, len(summaries))
	}
	return nil
}

// kindsFor expands the --kind flag. "all" means every analysable kind.
func kindsFor(flag string) ([]media.Kind, error) {
	if flag == "" || flag == "all" {
		return media.Kinds, nil
	}
	kind := media.ParseKind(flag)
	if kind == media.KindUnknown {
		return nil, fmt.Errorf("unknown kind %q (want image, video, audio or all)", flag)
	}
	return []media.Kind{kind}, nil
}

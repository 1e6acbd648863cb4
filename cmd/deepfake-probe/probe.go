package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kartoza/deepfake-detection/internal/detector"
	"github.com/kartoza/deepfake-detection/internal/media"
	"github.com/kartoza/deepfake-detection/internal/models"
	"github.com/spf13/cobra"
)

type probeOptions struct {
	url     string
	count   int
	kind    string
	timeout time.Duration
	reset   bool
}

func newProbeCmd() *cobra.Command {
	opts := probeOptions{}
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check a running server and sample its demo endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.url, "url", "u", "http://localhost:5000", "server base URL")
	cmd.Flags().IntVarP(&opts.count, "count", "n", 200, "predictions to request per kind")
	cmd.Flags().StringVarP(&opts.kind, "kind", "k", "all", "media kind: image, video, audio or all")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "per-request timeout")
	cmd.Flags().BoolVar(&opts.reset, "reset", false, "reset server statistics afterwards")
	return cmd
}

type probeClient struct {
	base   string
	client *http.Client
}

func (c *probeClient) getJSON(ctx context.Context, method, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func runProbe(ctx context.Context, w io.Writer, opts probeOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.count <= 0 {
		return fmt.Errorf("count must be positive, got %d", opts.count)
	}
	kinds, err := kindsFor(opts.kind)
	if err != nil {
		return err
	}
	if _, err := url.ParseRequestURI(opts.url); err != nil {
		return fmt.Errorf("invalid url %q: %w", opts.url, err)
	}

	c := &probeClient{
		base:   strings.TrimRight(opts.url, "/"),
		client: &http.Client{Timeout: opts.timeout},
	}

	var health models.HealthResponse
	if err := c.getJSON(ctx, http.MethodGet, "/api/health", &health); err != nil {
		colorRed.Fprintf(w, "Server not healthy at %s\n", c.base)
		return err
	}
	colorGreen.Fprintf(w, "%s v%s is %s (detector: %s, up %.0fs)\n",
		health.Server, health.Version, health.Status, health.Detector, health.UptimeSeconds)

	start := time.Now()
	var results []*detector.PredictionResult
	for _, kind := range kinds {
		for i := 0; i < opts.count; i++ {
			var r detector.PredictionResult
			if err := c.getJSON(ctx, http.MethodGet, "/api/demo/predict?type="+string(kind), &r); err != nil {
				return err
			}
			if r.FileType == "" {
				r.FileType = media.KindUnknown
			}
			results = append(results, &r)
		}
	}
	elapsed := time.Since(start)
	colorWhite.Fprintf(w, "Fetched %d predictions in %v (%.1f req/s)\n\n",
		len(results), elapsed.Round(time.Millisecond), float64(len(results))/elapsed.Seconds())

	drift := checkReport(w, summarize(results))

	var snapshot models.StatisticsResponse
	if err := c.getJSON(ctx, http.MethodGet, "/api/statistics", &snapshot); err != nil {
		colorYellow.Fprintf(w, "Could not read statistics: %v\n", err)
	} else {
		colorCyan.Fprintf(w, "\nServer statistics: %d predictions, %.1f%% authentic, average confidence %.3f\n",
			snapshot.TotalPredictions, snapshot.AuthenticPercentage, snapshot.AverageConfidence)
	}

	if opts.reset {
		var reset models.ResetResponse
		if err := c.getJSON(ctx, http.MethodPost, "/api/demo/reset", &reset); err != nil {
			return err
		}
		colorYellow.Fprintln(w, reset.Message)
	}
	return drift
}

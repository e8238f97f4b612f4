package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jmallek/copycheck/internal/model"
)

// Renderer writes verification reports for the caller
type Renderer struct{}

// NewRenderer creates a new renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// RenderJSON writes the report as indented JSON. A path of "-" writes to
// stdout.
func (r *Renderer) RenderJSON(report *model.VerificationReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')

	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// RenderSummary writes a human-readable summary
func (r *Renderer) RenderSummary(report *model.VerificationReport, w io.Writer) {
	if report.Failed {
		fmt.Fprintf(w, "Verdict: FAILED (%s)\n", report.FailureStage)
		fmt.Fprintf(w, "Reason:  %s\n", report.FailureReason)
		r.renderDiagnostics(report, w)
		return
	}

	fmt.Fprintf(w, "Verdict: %s\n", report.Verdict)
	fmt.Fprintf(w, "Score:   %.2f\n", report.Score)
	fmt.Fprintf(w, "Latency: %v\n", report.Latency.Round(1e6))

	if len(report.Verdicts) == 0 {
		fmt.Fprintln(w, "No factual claims found in the ad copy.")
	}
	for i, v := range report.Verdicts {
		fmt.Fprintf(w, "%2d. [%s %.2f] %s\n", i+1, v.Status, v.Confidence, v.Claim.Text)
		if v.Evidence != "" {
			fmt.Fprintf(w, "      evidence: %q\n", v.Evidence)
		}
	}

	if report.ToneNotes != "" {
		fmt.Fprintf(w, "Tone:    %s\n", report.ToneNotes)
	}

	r.renderDiagnostics(report, w)
}

func (r *Renderer) renderDiagnostics(report *model.VerificationReport, w io.Writer) {
	for _, pf := range report.PageFailures {
		fmt.Fprintf(w, "warning: page %s failed (%s)\n", pf.URL, pf.Kind)
	}
	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
}

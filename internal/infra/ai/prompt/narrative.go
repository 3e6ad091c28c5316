package prompt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bryanwahyu/neuroscan/internal/domain/scans"
)

// GetSystemPrompt fixes the narrative schema the model must answer with.
func GetSystemPrompt() string {
	return `You explain brain MRI screening results to patients in plain language. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- Never state a diagnosis. The result is a screening aid, not a medical opinion.
- Keep summary under 60 words. next_steps is an array of short sentences.
- If no tumor was detected, do not speculate about tumor type, size or location.

Schema (example with empty values):
{
  "summary": "<string>",
  "details": "<string>",
  "next_steps": ["<string>"],
  "disclaimer": "<string>"
}`
}

// GetUserPrompt renders the record's bounded findings for the model.
func GetUserPrompt(rec *scans.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scan name: %s\n", rec.Name)
	fmt.Fprintf(&b, "Scan date: %s\n", rec.Timestamp.Format("2006-01-02"))
	if !rec.Result.HasTumor {
		b.WriteString("Result: no tumor detected\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Result: tumor detected, model confidence %.0f%%\n", rec.Result.Confidence*100)
	if rec.Result.TumorType != "" {
		fmt.Fprintf(&b, "Type: %s\n", rec.Result.TumorType)
	}
	if rec.Result.TumorSize != "" {
		fmt.Fprintf(&b, "Size: %s\n", rec.Result.TumorSize)
	}
	if rec.Result.TumorLocation != "" {
		fmt.Fprintf(&b, "Location: %s\n", rec.Result.TumorLocation)
	}
	return b.String()
}

// Narrative matches the schema in the system prompt.
type Narrative struct {
	Summary    string   `json:"summary"`
	Details    string   `json:"details"`
	NextSteps  []string `json:"next_steps"`
	Disclaimer string   `json:"disclaimer"`
}

const disclaimer = "This is an automated screening result and not a diagnosis. Discuss it with a qualified clinician."

// Template writes a fixed narrative without calling a model.
// Used when no provider key is configured.
type Template struct{}

func (Template) Explain(_ context.Context, rec *scans.Record) (string, error) {
	n := Narrative{Disclaimer: disclaimer}
	if rec.Result.HasTumor {
		n.Summary = fmt.Sprintf("The scan %q shows a possible tumor (confidence %.0f%%).", rec.Name, rec.Result.Confidence*100)
		var parts []string
		if rec.Result.TumorType != "" {
			parts = append(parts, "type "+rec.Result.TumorType)
		}
		if rec.Result.TumorSize != "" {
			parts = append(parts, "size "+rec.Result.TumorSize)
		}
		if rec.Result.TumorLocation != "" {
			parts = append(parts, "location "+rec.Result.TumorLocation)
		}
		if len(parts) > 0 {
			n.Details = "Reported " + strings.Join(parts, ", ") + "."
		}
		n.NextSteps = []string{
			"Share this result with your doctor.",
			"Ask whether further imaging is needed.",
		}
	} else {
		n.Summary = fmt.Sprintf("No tumor was detected in the scan %q.", rec.Name)
		n.NextSteps = []string{"Keep any follow-up appointments your doctor recommended."}
	}
	b, err := json.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("failed to marshal narrative: %w", err)
	}
	return string(b), nil
}

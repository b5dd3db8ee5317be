package advisor

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

func buildPrompt(req *Request, travel *travelNote) string {
	job := req.Job
	opening, closing := req.BusinessHours.window()

	var b strings.Builder
	b.WriteString("Suggest one change that would make this field-service appointment more efficient.\n\n")
	fmt.Fprintf(&b, "Business hours: %s to %s\n", opening, closing)

	switch {
	case travel == nil:
		b.WriteString("Travel: unknown\n")
	case travel.estimate.Precise():
		fmt.Fprintf(&b, "Travel: %s (routing provider)\n", travel.text)
	default:
		fmt.Fprintf(&b, "Travel: %s (straight-line estimate)\n", travel.text)
	}

	fmt.Fprintf(&b, "Job: %s\n", orDefault(job.Title, "Untitled job"))
	fmt.Fprintf(&b, "Customer: %s\n", orDefault(job.CustomerName, "Unknown"))
	fmt.Fprintf(&b, "Current technician: %s\n", orDefault(job.TechnicianID, "unassigned"))
	fmt.Fprintf(&b, "Window: %s to %s\n", job.StartTime.Format(time.RFC3339), job.EndTime.Format(time.RFC3339))
	if job.Revenue != nil {
		fmt.Fprintf(&b, "Revenue: $%.2f\n", *job.Revenue)
	} else {
		b.WriteString("Revenue: unknown\n")
	}
	if job.IsExistingCustomer != nil {
		fmt.Fprintf(&b, "Existing customer: %t\n", *job.IsExistingCustomer)
	}

	if len(req.TechniciansAvailable) > 0 {
		b.WriteString("Available technicians:\n")
		for _, t := range req.TechniciansAvailable {
			name := orDefault(t.Name, t.ID)
			if t.Utilization != nil {
				fmt.Fprintf(&b, "- %s: %d%% utilized\n", name, int(math.Round(*t.Utilization*100)))
			} else {
				fmt.Fprintf(&b, "- %s: utilization unknown\n", name)
			}
		}
	}

	b.WriteString("\nRespond with JSON only: {\"suggestion\": string, \"timeSavedMinutes\": number, \"confidence\": number between 0 and 1}")
	return b.String()
}

type reply struct {
	Suggestion       *string  `json:"suggestion"`
	TimeSavedMinutes *float64 `json:"timeSavedMinutes"`
	Confidence       *float64 `json:"confidence"`
}

// parseReply reads the structured reply, optionally fenced in Markdown.
// When the reply is not the expected JSON, the raw text becomes the
// suggestion and the fallback numbers are kept; parsed reports which case
// applied.
func parseReply(raw string, fallback Suggestion) (out Suggestion, parsed bool) {
	text := stripCodeFence(raw)

	var r reply
	if err := json.Unmarshal([]byte(text), &r); err != nil || r.Suggestion == nil {
		return Suggestion{
			Suggestion:       strings.TrimSpace(raw),
			TimeSavedMinutes: fallback.TimeSavedMinutes,
			Confidence:       fallback.Confidence,
		}, false
	}

	out = fallback
	if s := strings.TrimSpace(*r.Suggestion); s != "" {
		out.Suggestion = s
	}
	if r.TimeSavedMinutes != nil {
		out.TimeSavedMinutes = clampMinutes(*r.TimeSavedMinutes)
	}
	if r.Confidence != nil {
		out.Confidence = math.Min(1, math.Max(0, *r.Confidence))
	}
	return out, true
}

// clampMinutes bounds v to [0, MaxTimeSavedMinutes] before the int
// conversion, which is undefined for out-of-range floats.
func clampMinutes(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Round(math.Min(MaxTimeSavedMinutes, math.Max(0, v))))
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	// drop the opening fence line, which may carry a language tag
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}

package advisor

import (
	"math"
	"strings"
	"testing"
	"time"

	"fieldops-dispatch/internal/services/traveltime"
)

func TestParseReply(t *testing.T) {
	fallback := Suggestion{Suggestion: "fallback", TimeSavedMinutes: 15, Confidence: 0.35}

	tests := []struct {
		name       string
		raw        string
		want       Suggestion
		wantParsed bool
	}{
		{"plain json", `{"suggestion":"Do X","timeSavedMinutes":30,"confidence":0.9}`, Suggestion{"Do X", 30, 0.9}, true},
		{"fenced", "```\n{\"suggestion\":\"Do Y\",\"timeSavedMinutes\":5,\"confidence\":0.5}\n```", Suggestion{"Do Y", 5, 0.5}, true},
		{"clamps", `{"suggestion":"Do Z","timeSavedMinutes":-10,"confidence":3}`, Suggestion{"Do Z", 0, 1}, true},
		{"huge minutes capped", `{"suggestion":"Do Z","timeSavedMinutes":1e20,"confidence":0.9}`, Suggestion{"Do Z", MaxTimeSavedMinutes, 0.9}, true},
		{"minutes past int64 capped", `{"suggestion":"Do Z","timeSavedMinutes":9.3e18}`, Suggestion{"Do Z", MaxTimeSavedMinutes, 0.35}, true},
		{"negative confidence", `{"suggestion":"Do Z","confidence":-0.2}`, Suggestion{"Do Z", 15, 0}, true},
		{"empty suggestion keeps fallback text", `{"suggestion":"","timeSavedMinutes":10,"confidence":0.6}`, Suggestion{"fallback", 10, 0.6}, true},
		{"prose", "Try moving it later.", Suggestion{"Try moving it later.", 15, 0.35}, false},
		{"json without suggestion", `{"advice":"x"}`, Suggestion{`{"advice":"x"}`, 15, 0.35}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, parsed := parseReply(tt.raw, fallback)
			if got != tt.want || parsed != tt.wantParsed {
				t.Fatalf("parseReply() = %+v, %v; want %+v, %v", got, parsed, tt.want, tt.wantParsed)
			}
		})
	}
}

func TestClampMinutes(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{-1e20, 0},
		{0.4, 0},
		{12.6, 13},
		{MaxTimeSavedMinutes + 1, MaxTimeSavedMinutes},
		{math.Inf(1), MaxTimeSavedMinutes},
		{math.Inf(-1), 0},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := clampMinutes(tt.in); got != tt.want {
			t.Errorf("clampMinutes(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestBuildPrompt(t *testing.T) {
	revenue := 240.0
	existing := true
	util := 0.75
	req := &Request{
		Job: &JobInput{
			ID:                 "job-1",
			Title:              "Furnace tune-up",
			CustomerName:       "Alvarez",
			TechnicianID:       "t1",
			StartTime:          time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
			EndTime:            time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC),
			Revenue:            &revenue,
			IsExistingCustomer: &existing,
		},
		TechniciansAvailable: []CandidateTechnician{{ID: "t2", Name: "Sam", Utilization: &util}, {ID: "t3"}},
	}
	travel := &travelNote{
		estimate: traveltime.Estimate{DurationSeconds: 600, Source: traveltime.SourceDistanceMatrix},
		text:     "Travel to job: 10m, 3.0 mi",
	}

	prompt := buildPrompt(req, travel)

	for _, want := range []string{
		"Business hours: 8:00 AM to 6:00 PM",
		"Travel: Travel to job: 10m, 3.0 mi (routing provider)",
		"Job: Furnace tune-up",
		"Customer: Alvarez",
		"Current technician: t1",
		"Window: 2026-10-15T09:00:00Z to 2026-10-15T10:00:00Z",
		"Revenue: $240.00",
		"Existing customer: true",
		"- Sam: 75% utilized",
		"- t3: utilization unknown",
		`"timeSavedMinutes"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

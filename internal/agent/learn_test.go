package agent

import (
	"testing"

	"github.com/rohan/orbit/internal/store"
)

func TestCategorizeGoal(t *testing.T) {
	cases := []struct {
		goal string
		want string
	}{
		{"what is the weather in Tokyo tomorrow", "weather"},
		{"calculate the sum of 40 and 2", "math"},
		{"find the latest news about Go releases", "search"},
		{"write a haiku about autumn", "creation"},
		{"monitor my site and alert me when it goes down", "monitoring"},
		{"debug this python script", "coding"},
		{"save to notes.txt", "file-ops"},
		{"compare these two proposals", "analysis"},
		{"hello there", "general"},
	}
	for _, tc := range cases {
		if got := categorizeGoal(tc.goal); got != tc.want {
			t.Errorf("categorizeGoal(%q) = %q, want %q", tc.goal, got, tc.want)
		}
	}
}

func TestSuccessfulToolChain(t *testing.T) {
	task := &store.Task{
		Steps: []store.Step{
			{Tool: "search", Status: store.StepSuccess},
			{Tool: "broken", Status: store.StepFailed},
			{Tool: "", Status: store.StepSuccess},
			{Tool: "scrape", Status: store.StepSuccess},
		},
	}
	if got := successfulToolChain(task); got != "search -> scrape" {
		t.Errorf("unexpected tool chain %q", got)
	}
	if got := successfulStepCount(task); got != 3 {
		t.Errorf("expected 3 successful steps, got %d", got)
	}
}

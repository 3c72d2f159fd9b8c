package agent

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeSteps_WellFormed(t *testing.T) {
	raw := `[{"action":"check weather","tool":"get_weather","args":{"location":"Paris"}}]`
	steps, err := decodeSteps(raw)
	if err != nil {
		t.Fatalf("decodeSteps failed: %v", err)
	}
	if len(steps) != 1 {
		t.Fatalf("Expected 1 step, got %d", len(steps))
	}
	if steps[0].Action != "check weather" || steps[0].Tool != "get_weather" {
		t.Errorf("Step decoded wrong: %+v", steps[0])
	}
	if steps[0].Args["location"] != "Paris" {
		t.Errorf("Expected args.location=Paris, got %v", steps[0].Args)
	}

	// A well-formed array round-trips unchanged.
	reencoded, err := json.Marshal(steps)
	if err != nil {
		t.Fatal(err)
	}
	again, err := decodeSteps(string(reencoded))
	if err != nil {
		t.Fatalf("round-trip decode failed: %v", err)
	}
	if len(again) != 1 || again[0].Action != steps[0].Action {
		t.Errorf("Round trip changed the plan: %+v", again)
	}
}

func TestDecodeSteps_FencedBlock(t *testing.T) {
	raw := "Here is the plan:\n```json\n[{\"action\":\"search news\",\"tool\":\"search\",\"args\":{\"query\":\"golang\"}}]\n```\nLet me know."
	steps, err := decodeSteps(raw)
	if err != nil {
		t.Fatalf("decodeSteps failed: %v", err)
	}
	if len(steps) != 1 || steps[0].Tool != "search" {
		t.Errorf("Unexpected steps: %+v", steps)
	}
}

func TestDecodeSteps_BracketsInProse(t *testing.T) {
	raw := `Sure! The plan is [{"action":"compute total","tool":"calculator","args":{"expression":"1+1"}}] which should work.`
	steps, err := decodeSteps(raw)
	if err != nil {
		t.Fatalf("decodeSteps failed: %v", err)
	}
	if steps[0].Tool != "calculator" {
		t.Errorf("Unexpected steps: %+v", steps)
	}
}

func TestDecodeSteps_TrailingCommas(t *testing.T) {
	raw := `[{"action":"list files","tool":"filesystem","args":{"command":"list","filename":".",},},]`
	steps, err := decodeSteps(raw)
	if err != nil {
		t.Fatalf("decodeSteps failed: %v", err)
	}
	if steps[0].Args["command"] != "list" {
		t.Errorf("Unexpected steps: %+v", steps)
	}
}

func TestDecodeSteps_SingleQuotes(t *testing.T) {
	raw := `[{'action': 'fetch page', 'tool': 'scrape', 'args': {'url': 'https://example.com'}}]`
	steps, err := decodeSteps(raw)
	if err != nil {
		t.Fatalf("decodeSteps failed: %v", err)
	}
	if steps[0].Args["url"] != "https://example.com" {
		t.Errorf("Unexpected steps: %+v", steps)
	}
}

func TestDecodeSteps_BareKeys(t *testing.T) {
	raw := `[{action: "think it over", tool: "", args: {}}]`
	steps, err := decodeSteps(raw)
	if err != nil {
		t.Fatalf("decodeSteps failed: %v", err)
	}
	if steps[0].Action != "think it over" {
		t.Errorf("Unexpected steps: %+v", steps)
	}
}

func TestDecodeSteps_StepsWrapper(t *testing.T) {
	raw := `{"steps": [{"action":"do it","tool":"shell","args":{"command":"date"}}]}`
	steps, err := decodeSteps(raw)
	if err != nil {
		t.Fatalf("decodeSteps failed: %v", err)
	}
	if steps[0].Tool != "shell" {
		t.Errorf("Unexpected steps: %+v", steps)
	}
}

func TestDecodeSteps_DoubleQuoteInsideSingleQuotes(t *testing.T) {
	raw := `[{'action': 'say "hello" politely', 'tool': '', 'args': {'text': 'a "quoted" word'}}]`
	steps, err := decodeSteps(raw)
	if err != nil {
		t.Fatalf("decodeSteps failed: %v", err)
	}
	if steps[0].Action != `say "hello" politely` {
		t.Errorf("Embedded double quotes mangled: %q", steps[0].Action)
	}
	if steps[0].Args["text"] != `a "quoted" word` {
		t.Errorf("Embedded double quotes mangled in args: %+v", steps[0].Args)
	}
}

func TestDecodeSteps_ApostropheSurvives(t *testing.T) {
	raw := `[{"action":"summarize the day's news","tool":"search","args":{"query":"today's headlines"}}]`
	steps, err := decodeSteps(raw)
	if err != nil {
		t.Fatalf("decodeSteps failed: %v", err)
	}
	if steps[0].Args["query"] != "today's headlines" {
		t.Errorf("Apostrophe mangled: %+v", steps[0].Args)
	}
}

func TestDecodeSteps_Unparsable(t *testing.T) {
	for _, raw := range []string{"", "I cannot make a plan for that.", "[]", `[{"tool":"x","args":{}}]`} {
		_, err := decodeSteps(raw)
		if err == nil {
			t.Errorf("Expected parse failure for %q", raw)
			continue
		}
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Errorf("Expected ParseError for %q, got %T", raw, err)
		}
	}
}

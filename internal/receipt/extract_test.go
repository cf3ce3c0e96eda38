package receipt

import (
	"context"
	"errors"
	"testing"
)

// fakeRunner returns canned OCR output, or fails.
type fakeRunner struct {
	out   string
	err   error
	calls int
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls++
	if f.err != nil {
		return nil, []byte("engine exploded"), f.err
	}
	return []byte(f.out), nil, nil
}

func TestParseAmountKeywordWins(t *testing.T) {
	text := "Coffee 3.00\nBagel 5.00\nTotal: $42.50\nThank you"
	cents, ok := ParseAmount(text)
	if !ok || cents != 4250 {
		t.Fatalf("expected 4250, got %d (ok=%v)", cents, ok)
	}
}

func TestParseAmountLargestValueHeuristic(t *testing.T) {
	// No keyword anywhere; the biggest token is the best guess.
	text := "Coffee 3.00\nBagel 5.00\nSomething 42.50\n"
	cents, ok := ParseAmount(text)
	if !ok || cents != 4250 {
		t.Fatalf("expected 4250, got %d (ok=%v)", cents, ok)
	}
}

func TestParseAmountThousandsGrouping(t *testing.T) {
	cents, ok := ParseAmount("Balance 1,234.56")
	if !ok || cents != 123456 {
		t.Fatalf("expected 123456, got %d (ok=%v)", cents, ok)
	}
}

func TestParseAmountIgnoresUngroupedLongRuns(t *testing.T) {
	// 1234.56 has no thousands separator, so no slice of it may match;
	// matching 234.56 out of the middle would be wrong.
	if cents, ok := ParseAmount("ref 1234.56 item 9.99"); !ok || cents != 999 {
		t.Fatalf("expected 999, got %d (ok=%v)", cents, ok)
	}
}

func TestParseAmountNothingFound(t *testing.T) {
	for _, text := range []string{"", "no numbers here", "year 2024 qty 3"} {
		if _, ok := ParseAmount(text); ok {
			t.Fatalf("%q: expected no amount", text)
		}
	}
}

func TestDetectDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"printed on 2025-03-14 thanks", "2025-03-14", true},
		{"date 2025/03/14", "2025-03-14", true},
		{"03/14/2025 register 4", "2025-03-14", true},
		{"no date here", "", false},
	}
	for _, tc := range cases {
		d, ok := DetectDate(tc.in)
		if ok != tc.ok {
			t.Fatalf("%q: expected ok=%v", tc.in, tc.ok)
		}
		if ok && d.ISO() != tc.want {
			t.Fatalf("%q: expected %s, got %s", tc.in, tc.want, d.ISO())
		}
	}
}

func TestExtractorUnavailableSkipsEngine(t *testing.T) {
	runner := &fakeRunner{out: "Total: $42.50"}
	e := NewExtractor(ExtractorConfig{}, false, nil)
	e.runner = runner

	res := e.Extract(context.Background(), "/tmp/whatever.png")
	if res.Outcome != OutcomeUnavailable {
		t.Fatalf("expected Unavailable, got %v", res.Outcome)
	}
	if runner.calls != 0 {
		t.Fatalf("engine invoked despite capability flag false")
	}
}

func TestExtractorEngineFailureDegradesToNotFound(t *testing.T) {
	e := NewExtractor(ExtractorConfig{}, true, nil)
	e.runner = &fakeRunner{err: errors.New("exit status 1")}

	res := e.Extract(context.Background(), "/tmp/corrupt.png")
	if res.Outcome != OutcomeNotFound {
		t.Fatalf("expected NotFound on engine failure, got %v", res.Outcome)
	}
}

func TestExtractorAmountAndDate(t *testing.T) {
	e := NewExtractor(ExtractorConfig{}, true, nil)
	e.runner = &fakeRunner{out: "ACME MART\n2025-03-14\nMilk 3.00\nTotal: $42.50\n"}

	res := e.Extract(context.Background(), "/tmp/ok.png")
	if res.Outcome != OutcomeAmount {
		t.Fatalf("expected Amount, got %v", res.Outcome)
	}
	if res.Amount.Cents != 4250 {
		t.Fatalf("expected 4250 cents, got %d", res.Amount.Cents)
	}
	if res.Date.ISO() != "2025-03-14" {
		t.Fatalf("expected detected date, got %q", res.Date.ISO())
	}
	if res.Text == "" {
		t.Fatalf("expected raw text carried on result")
	}
}

func TestExtractorNoAmountInText(t *testing.T) {
	e := NewExtractor(ExtractorConfig{}, true, nil)
	e.runner = &fakeRunner{out: "THANK YOU FOR SHOPPING\nSEE YOU SOON\n"}

	res := e.Extract(context.Background(), "/tmp/blank.png")
	if res.Outcome != OutcomeNotFound {
		t.Fatalf("expected NotFound, got %v", res.Outcome)
	}
}

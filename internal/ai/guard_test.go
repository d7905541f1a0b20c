package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	genai "github.com/google/generative-ai-go/genai"
)

func TestGuardRecordsUsage(t *testing.T) {
	g := newGuard("test", "tier2")

	res, err := g.run(context.Background(), "prompt text", func(context.Context) (*GenerateResult, error) {
		return &GenerateResult{Text: "answer", Model: "m"}, nil
	})
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if res.TokensUsed <= 0 {
		t.Errorf("TokensUsed = %d, want an estimate when the provider reports none", res.TokensUsed)
	}
	if g.counter.minuteRequests != 1 {
		t.Errorf("minuteRequests = %d, want 1", g.counter.minuteRequests)
	}
}

func TestGuardOpensBreaker(t *testing.T) {
	g := newGuard("test", "tier2")
	boom := errors.New("upstream 500")

	for i := 0; i < 3; i++ {
		_, err := g.run(context.Background(), "p", func(context.Context) (*GenerateResult, error) {
			return nil, boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("call %d: error = %v, want upstream error", i, err)
		}
	}

	called := false
	_, err := g.run(context.Background(), "p", func(context.Context) (*GenerateResult, error) {
		called = true
		return &GenerateResult{Text: "ok"}, nil
	})
	if !errors.Is(err, ErrGeneratorUnavailable) {
		t.Fatalf("error = %v, want ErrGeneratorUnavailable once the breaker is open", err)
	}
	if called {
		t.Fatal("provider was called while the breaker was open")
	}
}

func TestTokenCounterWindows(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tc := &TokenCounter{
		limits: RateLimits{RPM: 2, TPM: 100, RPD: 3},
		now:    func() time.Time { return now },
	}

	if !tc.CanConsume(50, 1) {
		t.Fatal("first request rejected")
	}
	tc.RecordUsage(50, 1)
	tc.RecordUsage(10, 1)

	if tc.CanConsume(10, 1) {
		t.Fatal("request over the per-minute limit accepted")
	}

	now = now.Add(time.Minute)
	if !tc.CanConsume(10, 1) {
		t.Fatal("minute window did not reset")
	}
	tc.RecordUsage(10, 1)

	if tc.CanConsume(10, 1) {
		t.Fatal("request over the daily limit accepted")
	}

	now = now.Add(24 * time.Hour)
	if !tc.CanConsume(10, 1) {
		t.Fatal("day window did not reset")
	}
}

func TestGetRateLimits(t *testing.T) {
	if got := getRateLimits("unknown"); got != getRateLimits("free") {
		t.Errorf("unknown tier = %+v, want free tier limits", got)
	}
	if got := getRateLimits("tier1"); got.RPM != 1000 {
		t.Errorf("tier1 RPM = %d, want 1000", got.RPM)
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 1 {
		t.Errorf("EstimateTokens(\"\") = %d, want 1", got)
	}
	if got := EstimateTokens("abcdefgh"); got != 2 {
		t.Errorf("EstimateTokens(8 chars) = %d, want 2", got)
	}
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: nil},
			{Content: &genai.Content{Parts: []genai.Part{genai.Text(" first "), genai.Text("part ")}}},
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("ignored")}}},
		},
	}
	if got := responseText(resp); got != "first part" {
		t.Errorf("responseText() = %q, want %q", got, "first part")
	}
}

func TestQuotaExceeds(t *testing.T) {
	tests := []struct {
		used, estimated, limit int
		want                   bool
	}{
		{0, 100, 1000, false},
		{950, 50, 1000, false},
		{950, 51, 1000, true},
		{5000, 5000, 0, false},
	}
	for _, tt := range tests {
		if got := exceeds(tt.used, tt.estimated, tt.limit); got != tt.want {
			t.Errorf("exceeds(%d, %d, %d) = %v, want %v", tt.used, tt.estimated, tt.limit, got, tt.want)
		}
	}
}

func TestDayKeyUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	ts := time.Date(2025, 1, 2, 5, 0, 0, 0, loc)
	if got := dayKey(ts); got != "2025-01-01" {
		t.Errorf("dayKey() = %q, want 2025-01-01", got)
	}
}

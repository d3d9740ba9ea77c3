package gemini

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"google.golang.org/genai"
)

func TestCleanJSON(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  \n{\"a\":1}\n  ", `{"a":1}`},
	}
	for _, c := range cases {
		if got := cleanJSON(c.in); got != c.want {
			t.Errorf("cleanJSON(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestExtractToken(t *testing.T) {
	sig := []byte{0x01, 0x02, 0xfe}
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "answer"},
				{Text: "thinking", ThoughtSignature: sig},
			}},
		}},
	}

	got := extractToken(resp)
	want := base64.StdEncoding.EncodeToString(sig)
	if got != want {
		t.Errorf("extractToken = %q, want %q", got, want)
	}
}

func TestExtractToken_None(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "answer"}}},
		}},
	}
	if got := extractToken(resp); got != "" {
		t.Errorf("expected empty token, got %q", got)
	}
}

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(context.Background(), "", "gemini-2.0-flash", "", 30); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestNew_TimeoutConfig(t *testing.T) {
	c, err := New(context.Background(), "test-key", "gemini-2.0-flash", "", 45)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.timeout != 45*time.Second {
		t.Errorf("expected 45s timeout, got %s", c.timeout)
	}

	ctx, cancel := c.callContext(context.Background())
	defer cancel()
	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("expected call context to carry a deadline")
	}
	if until := time.Until(deadline); until > 45*time.Second || until < 40*time.Second {
		t.Errorf("deadline %s away, want about 45s", until)
	}
}

func TestNew_TimeoutDefault(t *testing.T) {
	c, err := New(context.Background(), "test-key", "gemini-2.0-flash", "", 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.timeout != defaultTimeout {
		t.Errorf("expected default timeout %s, got %s", defaultTimeout, c.timeout)
	}
}

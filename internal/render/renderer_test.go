package render

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeProvider struct {
	content string
	err     error
	calls   int
}

func (f *fakeProvider) UnitContent(ctx context.Context, courseRunID, unitID string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.content, nil
}

func TestRenderPromptWithUnitContent(t *testing.T) {
	provider := &fakeProvider{content: "Photosynthesis basics"}
	r := NewRenderer("You are a tutor. Unit: {{.UnitContent}}", provider, nil, time.Minute)

	got := r.RenderPrompt(context.Background(), 1, "course-v1:edx+test+23", "unit-1")
	want := "You are a tutor. Unit: Photosynthesis basics"
	if got != want {
		t.Fatalf("RenderPrompt = %q, want %q", got, want)
	}
}

func TestRenderPromptWithoutUnit(t *testing.T) {
	provider := &fakeProvider{content: "should not be fetched"}
	r := NewRenderer("Tutor.{{.UnitContent}}", provider, nil, time.Minute)

	got := r.RenderPrompt(context.Background(), 1, "course-v1:edx+test+23", "")
	if got != "Tutor." {
		t.Fatalf("RenderPrompt = %q", got)
	}
	if provider.calls != 0 {
		t.Fatalf("provider should not be called without a unit id")
	}
}

func TestRenderPromptSoftFailsOnBadUnit(t *testing.T) {
	provider := &fakeProvider{err: errors.New("unit not found")}
	r := NewRenderer("Tutor. Unit: {{.UnitContent}}", provider, nil, time.Minute)

	got := r.RenderPrompt(context.Background(), 1, "course-v1:edx+test+23", "bogus")
	if got != "Tutor. Unit: " {
		t.Fatalf("expected empty supplemental content, got %q", got)
	}
}

func TestRenderPromptBadTemplateFallsBack(t *testing.T) {
	provider := &fakeProvider{content: "x"}
	raw := "Tutor {{.Unclosed"
	r := NewRenderer(raw, provider, nil, time.Minute)

	if got := r.RenderPrompt(context.Background(), 1, "run", "unit"); got != raw {
		t.Fatalf("broken template should fall back to raw text, got %q", got)
	}
}

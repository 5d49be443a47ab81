package render

import (
	"context"
	"errors"
	"log"
	"strings"
	"text/template"
	"time"

	"learnassist/internal/cache"
	"learnassist/internal/platform"
)

// Renderer produces the system prompt for a chat turn. The prompt template
// is rendered with optional unit content; the course title and skill names
// are substituted downstream by the completion service and stay as-is.
//
// Rendering never fails a chat turn: an unknown unit or a broken template
// degrades to the best prompt that can still be produced.
type Renderer struct {
	template string
	provider platform.ContentProvider
	cache    *cache.Client
	ttl      time.Duration
}

// promptVars are the fields available to the prompt template.
type promptVars struct {
	UnitContent string
}

func NewRenderer(templateText string, provider platform.ContentProvider, cacheClient *cache.Client, ttl time.Duration) *Renderer {
	return &Renderer{
		template: templateText,
		provider: provider,
		cache:    cacheClient,
		ttl:      ttl,
	}
}

// RenderPrompt renders the system prompt for the user's current unit. The
// unit content is cached per (user, course run, unit); a cache miss is
// always safe to recompute.
func (r *Renderer) RenderPrompt(ctx context.Context, userID int64, courseRunID, unitID string) string {
	content := ""
	if unitID != "" {
		content = r.unitContent(ctx, userID, courseRunID, unitID)
	}

	tmpl, err := template.New("prompt").Parse(r.template)
	if err != nil {
		log.Printf("prompt template does not parse, using raw template: %v", err)
		return r.template
	}
	var out strings.Builder
	if err := tmpl.Execute(&out, promptVars{UnitContent: content}); err != nil {
		log.Printf("prompt template render failed, using raw template: %v", err)
		return r.template
	}
	return out.String()
}

func (r *Renderer) unitContent(ctx context.Context, userID int64, courseRunID, unitID string) string {
	key := cache.Key("unit_content", userID, courseRunID, unitID)
	if cached, err := r.cache.Get(ctx, key); err == nil {
		return cached
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		log.Printf("unit content cache read failed for course_id=%s: %v", courseRunID, err)
	}

	content, err := r.provider.UnitContent(ctx, courseRunID, unitID)
	if err != nil {
		// Invalid unit keys are expected; render without supplemental content.
		log.Printf("unit content unavailable for course_id=%s unit_id=%s: %v", courseRunID, unitID, err)
		return ""
	}

	if err := r.cache.Set(ctx, key, content, r.ttl); err != nil {
		log.Printf("unit content cache write failed for course_id=%s: %v", courseRunID, err)
	}
	return content
}

package hook

import (
	"context"
	"strings"

	"github.com/recurator/tram/internal/core"
	"github.com/recurator/tram/internal/model"
)

// AutoCaptureHook runs on agent_end: gated by
// sessions[type].autoCapture, emits candidate text through the Store insert
// path using the session's default tier when no explicit tier is supplied.
type AutoCaptureHook struct {
	Engine *core.Engine
}

// NewAutoCaptureHook wraps engine.
func NewAutoCaptureHook(engine *core.Engine) *AutoCaptureHook {
	return &AutoCaptureHook{Engine: engine}
}

// CaptureCandidate is one piece of text the host proposes to remember.
type CaptureCandidate struct {
	Text       string
	Tier       model.Tier
	MemoryType model.MemoryType
	Importance float64
	Category   string
	Source     string
}

// Run stores each candidate whose session type has autoCapture enabled,
// defaulting Tier to the session's configured DefaultTier when the
// candidate does not specify one. Candidates are skipped, not erred, when
// the gate is off, so a host may call Run unconditionally at agent_end.
func (h *AutoCaptureHook) Run(ctx context.Context, candidates []CaptureCandidate, rc RequestContext) ([]core.StoreResult, error) {
	sessionCfg := h.Engine.Cfg.SessionConfig(rc.SessionType)
	if !sessionCfg.AutoCapture {
		return nil, nil
	}

	results := make([]core.StoreResult, 0, len(candidates))
	for _, c := range candidates {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		tier := c.Tier
		if tier == "" {
			tier = model.Tier(sessionCfg.DefaultTier)
		}
		memType := c.MemoryType
		if memType == "" {
			memType = model.TypeEpisodic
		}

		res, err := h.Engine.Store(ctx, core.StoreOptions{
			Text:       c.Text,
			Tier:       tier,
			MemoryType: memType,
			Importance: c.Importance,
			Category:   c.Category,
			Source:     c.Source,
		})
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

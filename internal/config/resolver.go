package config

import "fmt"

// Source tags the origin of a resolved profile, for observability.
type Source string

const (
	SourceSession Source = "session"
	SourceAgent   Source = "agent"
	SourceGlobal  Source = "global"
	SourceBuiltin Source = "builtin"
)

// Resolved wraps a resolved profile value with its source tag.
type Resolved[T any] struct {
	Value  T
	Name   string
	Source Source
}

// Resolver resolves the active retrieval/decay/promotion profile by the
// priority chain session -> agent -> global -> builtin.
type Resolver struct {
	cfg *Config
}

// NewResolver wraps cfg for profile resolution.
func NewResolver(cfg *Config) *Resolver {
	return &Resolver{cfg: cfg}
}

// ErrSessionScopeForbidden is returned when a caller attempts to set a
// decay or promotion profile at session scope.
var ErrSessionScopeForbidden = fmt.Errorf("decay and promotion profiles must not be set at session scope")

// ResolveRetrieval resolves the active RetrievalProfile. sessionOverride and
// agentID may be empty to skip that tier of the chain.
func (r *Resolver) ResolveRetrieval(sessionOverride, agentID string) (Resolved[RetrievalProfile], error) {
	if sessionOverride != "" {
		p, err := r.lookupRetrieval(sessionOverride)
		if err != nil {
			return Resolved[RetrievalProfile]{}, err
		}
		return Resolved[RetrievalProfile]{Value: p, Name: sessionOverride, Source: SourceSession}, nil
	}
	if agentID != "" {
		if a, ok := r.cfg.Agents[agentID]; ok && a.Retrieval != "" {
			p, err := r.lookupRetrieval(a.Retrieval)
			if err != nil {
				return Resolved[RetrievalProfile]{}, err
			}
			return Resolved[RetrievalProfile]{Value: p, Name: a.Retrieval, Source: SourceAgent}, nil
		}
	}
	if r.cfg.GlobalRetrievalProfile != "" {
		p, err := r.lookupRetrieval(r.cfg.GlobalRetrievalProfile)
		if err != nil {
			return Resolved[RetrievalProfile]{}, err
		}
		return Resolved[RetrievalProfile]{Value: p, Name: r.cfg.GlobalRetrievalProfile, Source: SourceGlobal}, nil
	}
	p, err := r.lookupRetrieval(DefaultRetrievalProfile)
	if err != nil {
		return Resolved[RetrievalProfile]{}, err
	}
	return Resolved[RetrievalProfile]{Value: p, Name: DefaultRetrievalProfile, Source: SourceBuiltin}, nil
}

// ResolveDecay resolves the active DecayProfile. There is no session tier:
// callers must reject session-scoped decay overrides before calling this
// (see ErrSessionScopeForbidden).
func (r *Resolver) ResolveDecay(agentID string) (Resolved[DecayProfile], error) {
	if agentID != "" {
		if a, ok := r.cfg.Agents[agentID]; ok && a.Decay != "" {
			p, err := r.lookupDecay(a.Decay)
			if err != nil {
				return Resolved[DecayProfile]{}, err
			}
			return Resolved[DecayProfile]{Value: p, Name: a.Decay, Source: SourceAgent}, nil
		}
	}
	if r.cfg.GlobalDecayProfile != "" {
		p, err := r.lookupDecay(r.cfg.GlobalDecayProfile)
		if err != nil {
			return Resolved[DecayProfile]{}, err
		}
		return Resolved[DecayProfile]{Value: p, Name: r.cfg.GlobalDecayProfile, Source: SourceGlobal}, nil
	}
	p, err := r.lookupDecay(DefaultDecayProfile)
	if err != nil {
		return Resolved[DecayProfile]{}, err
	}
	return Resolved[DecayProfile]{Value: p, Name: DefaultDecayProfile, Source: SourceBuiltin}, nil
}

// ResolvePromotion resolves the active PromotionProfile. No session tier,
// same restriction as ResolveDecay.
func (r *Resolver) ResolvePromotion(agentID string) (Resolved[PromotionProfile], error) {
	if agentID != "" {
		if a, ok := r.cfg.Agents[agentID]; ok && a.Promotion != "" {
			p, err := r.lookupPromotion(a.Promotion)
			if err != nil {
				return Resolved[PromotionProfile]{}, err
			}
			return Resolved[PromotionProfile]{Value: p, Name: a.Promotion, Source: SourceAgent}, nil
		}
	}
	if r.cfg.GlobalPromotionProfile != "" {
		p, err := r.lookupPromotion(r.cfg.GlobalPromotionProfile)
		if err != nil {
			return Resolved[PromotionProfile]{}, err
		}
		return Resolved[PromotionProfile]{Value: p, Name: r.cfg.GlobalPromotionProfile, Source: SourceGlobal}, nil
	}
	p, err := r.lookupPromotion(DefaultPromotionProfile)
	if err != nil {
		return Resolved[PromotionProfile]{}, err
	}
	return Resolved[PromotionProfile]{Value: p, Name: DefaultPromotionProfile, Source: SourceBuiltin}, nil
}

// lookupRetrieval checks custom profiles before builtins, since custom
// profiles take precedence over a builtin of the same name.
func (r *Resolver) lookupRetrieval(name string) (RetrievalProfile, error) {
	if c, ok := r.cfg.RetrievalProfiles[name]; ok {
		return RetrievalProfile{Pinned: c.Pinned, Hot: c.Hot, Warm: c.Warm, Cold: c.Cold, Archive: c.Archive}, nil
	}
	if p, ok := BuiltinRetrievalProfiles[name]; ok {
		return p, nil
	}
	return RetrievalProfile{}, fmt.Errorf("unknown retrieval profile %q", name)
}

func (r *Resolver) lookupDecay(name string) (DecayProfile, error) {
	if c, ok := r.cfg.DecayProfiles[name]; ok {
		return DecayProfile{HotTTL: c.HotTTL, WarmTTL: c.WarmTTL, ColdTTL: c.ColdTTL}, nil
	}
	if p, ok := BuiltinDecayProfiles[name]; ok {
		return p, nil
	}
	return DecayProfile{}, fmt.Errorf("unknown decay profile %q", name)
}

func (r *Resolver) lookupPromotion(name string) (PromotionProfile, error) {
	if c, ok := r.cfg.PromotionProfiles[name]; ok {
		return PromotionProfile{Uses: c.Uses, Days: c.Days}, nil
	}
	if p, ok := BuiltinPromotionProfiles[name]; ok {
		return p, nil
	}
	return PromotionProfile{}, fmt.Errorf("unknown promotion profile %q", name)
}

package config

// RetrievalProfile is a named preset of Allocator tier budgets, expressed as
// percentages that sum to 100. Archive defaults to 0: archived items are
// only drawn into injection candidates when the operator explicitly sets
// archive > 0.
type RetrievalProfile struct {
	Pinned  int
	Hot     int
	Warm    int
	Cold    int
	Archive int
}

// Sum returns the total of all five buckets.
func (r RetrievalProfile) Sum() int {
	return r.Pinned + r.Hot + r.Warm + r.Cold + r.Archive
}

// DecayProfile holds the per-tier TTL strings (duration strings accepted by
// durationx.Parse) used by the DecayEngine when no per-type override applies.
type DecayProfile struct {
	HotTTL  string // unit: hours by convention
	WarmTTL string // unit: days by convention
	ColdTTL string // unit: days by convention
}

// PromotionProfile holds the COLD->WARM promotion thresholds.
type PromotionProfile struct {
	Uses int
	Days int
}

// Builtin retrieval presets, budgets summing to 100.
var BuiltinRetrievalProfiles = map[string]RetrievalProfile{
	"narrow":    {Pinned: 70, Hot: 20, Warm: 10, Cold: 0, Archive: 0},
	"focused":   {Pinned: 50, Hot: 30, Warm: 15, Cold: 5, Archive: 0},
	"balanced":  {Pinned: 30, Hot: 30, Warm: 30, Cold: 10, Archive: 0},
	"broad":     {Pinned: 5, Hot: 25, Warm: 25, Cold: 45, Archive: 0},
	"expansive": {Pinned: 0, Hot: 5, Warm: 15, Cold: 80, Archive: 0},
}

// Builtin decay presets.
var BuiltinDecayProfiles = map[string]DecayProfile{
	"forgetful": {HotTTL: "5m", WarmTTL: "15m", ColdTTL: "1h"},
	"casual":    {HotTTL: "15m", WarmTTL: "1h", ColdTTL: "4h"},
	"attentive": {HotTTL: "1h", WarmTTL: "4h", ColdTTL: "24h"},
	"thorough":  {HotTTL: "1d", WarmTTL: "7d", ColdTTL: "30d"},
	"retentive": {HotTTL: "7d", WarmTTL: "60d", ColdTTL: "180d"},
}

// Builtin promotion presets.
var BuiltinPromotionProfiles = map[string]PromotionProfile{
	"forgiving": {Uses: 1, Days: 1},
	"fair":      {Uses: 2, Days: 2},
	"selective": {Uses: 3, Days: 2},
	"demanding": {Uses: 5, Days: 3},
	"ruthless":  {Uses: 10, Days: 5},
}

const (
	DefaultRetrievalProfile = "focused"
	DefaultDecayProfile     = "thorough"
	DefaultPromotionProfile = "selective"
)

package tier

import "github.com/okian/crewscore/internal/domain/model"

// Decision is the tier outcome for one member in one run.
type Decision struct {
	TierName  string
	TierLevel int
	Promoted  bool
}

// Invariant decides a member's tier so that the persisted level never drops.
type Invariant struct {
	resolver Resolver
}

// NewInvariant wraps resolver.
func NewInvariant(resolver Resolver) *Invariant {
	return &Invariant{resolver: resolver}
}

// Decide returns the tier to persist for newScore given the previously persisted
// record (nil on first computation). The previous tier name is kept unless the
// candidate level is strictly above the previous level, even when the candidate
// name differs at the same level.
func (inv *Invariant) Decide(newScore int, prev *model.CrewScoreRecord, group model.Group) Decision {
	prevScore := 0
	if prev != nil {
		prevScore = prev.Score
	}
	_, oldLevel := inv.resolver.Resolve(prevScore, group.TierTheme, group.CustomTierNames)
	if prev != nil && prev.TierLevel > oldLevel {
		oldLevel = prev.TierLevel
	}

	name, level := inv.resolver.Resolve(newScore, group.TierTheme, group.CustomTierNames)
	if level > oldLevel {
		return Decision{TierName: name, TierLevel: level, Promoted: true}
	}
	if prev == nil {
		return Decision{TierName: name, TierLevel: level}
	}
	if prev.TierName != "" {
		return Decision{TierName: prev.TierName, TierLevel: oldLevel}
	}
	// A record without a name still keeps its level.
	return Decision{TierName: inv.resolver.Name(oldLevel, group.TierTheme, group.CustomTierNames), TierLevel: oldLevel}
}

// Event builds the promotion event for memberID, or false when d is not a promotion.
func (d Decision) Event(memberID string) (model.PromotionEvent, bool) {
	if !d.Promoted {
		return model.PromotionEvent{}, false
	}
	return model.PromotionEvent{MemberID: memberID, TierName: d.TierName, TierLevel: d.TierLevel}, true
}

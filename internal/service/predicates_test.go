package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/divinefavor/internal/domain"
	"github.com/alanyoungcy/divinefavor/internal/pricing"
)

func snap(tt domain.TargetType, fields map[string]float64, labels map[string]string) domain.Snapshot {
	return domain.Snapshot{TargetType: tt, TargetID: "x", Exists: true, Fields: fields, Labels: labels}
}

func TestPredicates(t *testing.T) {
	settlement := func(pop float64, status, typ string) domain.Snapshot {
		return snap(domain.TargetSettlement,
			map[string]float64{domain.FieldPopulation: pop, domain.FieldRegionLandmarks: 1},
			map[string]string{domain.LabelStatus: status, domain.LabelType: typ, domain.LabelRegionStatus: "peaceful"})
	}
	region := func(status string, prosperity, chaos, discovered, total float64) domain.Snapshot {
		return snap(domain.TargetRegion,
			map[string]float64{
				domain.FieldProsperity: prosperity, domain.FieldChaos: chaos,
				domain.FieldLandmarksDiscovered: discovered, domain.FieldLandmarksTotal: total,
			},
			map[string]string{domain.LabelStatus: status})
	}
	settlementLandmarks := func(discovered, total float64) domain.Snapshot {
		return snap(domain.TargetSettlement,
			map[string]float64{domain.FieldRegionLandmarks: discovered, domain.FieldRegionLandmarksTotal: total},
			map[string]string{domain.LabelRegionStatus: "peaceful"})
	}
	hero := func(status, bond string, visited float64) domain.Snapshot {
		return snap(domain.TargetHero,
			map[string]float64{domain.FieldVisitedRegions: visited},
			map[string]string{domain.LabelStatus: status, domain.LabelBondedSettlement: bond})
	}

	tests := []struct {
		name      string
		predicate string
		threshold float64
		baseline  domain.Snapshot
		current   domain.Snapshot
		want      Verdict
	}{
		{"growth reached", pricing.PredicatePopulationGrowth, 0.1, settlement(1000, "stable", "town"), settlement(1100, "stable", "town"), Won},
		{"growth short", pricing.PredicatePopulationGrowth, 0.1, settlement(1000, "stable", "town"), settlement(1099, "stable", "town"), Pending},
		{"growth abandoned", pricing.PredicatePopulationGrowth, 0.1, settlement(1000, "stable", "town"), settlement(0, "abandoned", "town"), Lost},
		{"landmark found", pricing.PredicateLandmarkDiscovered, 0, region("peaceful", 50, 10, 1, 3), region("peaceful", 50, 10, 2, 3), Won},
		{"landmarks exhausted", pricing.PredicateLandmarkDiscovered, 0, region("peaceful", 50, 10, 3, 3), region("peaceful", 50, 10, 3, 3), Lost},
		{"landmark region abandoned", pricing.PredicateLandmarkDiscovered, 0, region("peaceful", 50, 10, 1, 3), region("abandoned", 50, 10, 1, 3), Lost},
		{"landmark pending", pricing.PredicateLandmarkDiscovered, 0, region("peaceful", 50, 10, 1, 3), region("warring", 50, 10, 1, 3), Pending},
		{"settlement region landmark found", pricing.PredicateLandmarkDiscovered, 0, settlementLandmarks(1, 3), settlementLandmarks(2, 3), Won},
		{"settlement region landmarks exhausted", pricing.PredicateLandmarkDiscovered, 0, settlementLandmarks(1, 1), settlementLandmarks(1, 1), Lost},
		{"settlement region landmarks remain", pricing.PredicateLandmarkDiscovered, 0, settlementLandmarks(1, 3), settlementLandmarks(1, 3), Pending},
		{"culture status change", pricing.PredicateCultureShifted, 15, region("peaceful", 50, 10, 0, 0), region("warring", 50, 10, 0, 0), Won},
		{"culture drift", pricing.PredicateCultureShifted, 15, region("peaceful", 50, 10, 0, 0), region("peaceful", 58, 17, 0, 0), Won},
		{"culture small drift", pricing.PredicateCultureShifted, 15, region("peaceful", 50, 10, 0, 0), region("peaceful", 55, 12, 0, 0), Pending},
		{"hero bonds", pricing.PredicateHeroBonded, 0, hero("living", "", 1), hero("living", "settlement-002", 1), Won},
		{"hero keeps old bond", pricing.PredicateHeroBonded, 0, hero("living", "settlement-002", 1), hero("living", "settlement-002", 1), Pending},
		{"hero dies unbonded", pricing.PredicateHeroBonded, 0, hero("living", "", 1), hero("deceased", "", 1), Lost},
		{"hero travels", pricing.PredicateHeroVisited, 0, hero("living", "", 1), hero("living", "", 2), Won},
		{"undead hero still roams", pricing.PredicateHeroVisited, 0, hero("living", "", 1), hero("undead", "", 1), Pending},
		{"ascended hero stops", pricing.PredicateHeroVisited, 0, hero("living", "", 1), hero("ascended", "", 1), Lost},
		{"settlement grows a size", pricing.PredicateSettlementTransformed, 0, settlement(900, "stable", "village"), settlement(1000, "stable", "town"), Won},
		{"settlement ruined", pricing.PredicateSettlementTransformed, 0, settlement(900, "stable", "village"), settlement(0, "ruined", "village"), Lost},
		{"region corrupted", pricing.PredicateCorruptionSpread, 0, region("warring", 0, 0, 0, 0), region("corrupt", 0, 0, 0, 0), Won},
		{"already corrupt", pricing.PredicateCorruptionSpread, 0, region("corrupt", 0, 0, 0, 0), region("corrupt", 0, 0, 0, 0), Pending},
		{"corruption region abandoned", pricing.PredicateCorruptionSpread, 0, region("peaceful", 0, 0, 0, 0), region("abandoned", 0, 0, 0, 0), Lost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred, ok := LookupPredicate(tt.predicate)
			require.True(t, ok)
			got, notes := pred(tt.baseline, tt.current, tt.threshold)
			assert.Equal(t, tt.want, got, "got %s", got)
			if got != Pending {
				assert.NotEmpty(t, notes)
			}
		})
	}
}

func TestPredicates_CorruptionSpreadUsesParentRegion(t *testing.T) {
	base := snap(domain.TargetSettlement, nil, map[string]string{domain.LabelRegionStatus: "peaceful"})
	now := snap(domain.TargetSettlement, nil, map[string]string{domain.LabelRegionStatus: "corrupt"})

	pred, _ := LookupPredicate(pricing.PredicateCorruptionSpread)
	got, _ := pred(base, now, 0)
	assert.Equal(t, Won, got)
}

func TestPredicates_EveryDefaultBetTypeHasOne(t *testing.T) {
	for _, bt := range pricing.DefaultTables().BetTypes {
		_, ok := LookupPredicate(bt.ResolveCondition)
		assert.True(t, ok, bt.Code)
	}
}

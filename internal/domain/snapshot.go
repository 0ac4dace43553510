package domain

import "strconv"

// Snapshot is a flat, read-only view of one entity's attributes. It is what
// target modifiers are evaluated against and what a bet records as its
// baseline at placement.
type Snapshot struct {
	TargetType TargetType         `json:"target_type"`
	TargetID   string             `json:"target_id"`
	Exists     bool               `json:"exists"`
	Fields     map[string]float64 `json:"fields,omitempty"`
	Labels     map[string]string  `json:"labels,omitempty"`
}

// Number returns a numeric field.
func (s Snapshot) Number(name string) (float64, bool) {
	v, ok := s.Fields[name]
	return v, ok
}

// Label returns a string field.
func (s Snapshot) Label(name string) string {
	return s.Labels[name]
}

// Lookup returns the field as a string, numeric fields formatted without
// trailing zeros. The second value reports whether the field exists.
func (s Snapshot) Lookup(name string) (string, bool) {
	if v, ok := s.Fields[name]; ok {
		return strconv.FormatFloat(v, 'f', -1, 64), true
	}
	if v, ok := s.Labels[name]; ok {
		return v, true
	}
	return "", false
}

// Snapshot field names.
const (
	FieldProsperity           = "prosperity"
	FieldChaos                = "chaos"
	FieldMagicAffinity        = "magic_affinity"
	FieldDivineResonance      = "divine_resonance"
	FieldLandmarksDiscovered  = "landmarks_discovered"
	FieldLandmarksTotal       = "landmarks_total"
	FieldSettlements          = "settlements"
	FieldPopulation           = "population"
	FieldBuildings            = "buildings"
	FieldActiveResources      = "active_resources"
	FieldLevel                = "level"
	FieldGood                 = "good"
	FieldChaotic              = "chaotic"
	FieldVisitedRegions       = "visited_regions"
	FieldRegionChaos          = "region_chaos"
	FieldRegionLandmarks      = "region_landmarks_discovered"
	FieldRegionLandmarksTotal = "region_landmarks_total"

	LabelStatus           = "status"
	LabelType             = "type"
	LabelRegionID         = "region_id"
	LabelBondedSettlement = "bonded_settlement_id"
	LabelAlive            = "alive"
	LabelRegionStatus     = "region_status"
)

// Snapshot builds the attribute view of one entity. A missing entity yields a
// snapshot with Exists=false and no fields.
func (w World) Snapshot(tt TargetType, id string) Snapshot {
	snap := Snapshot{TargetType: tt, TargetID: id}
	switch tt {
	case TargetRegion:
		r, ok := w.Regions[id]
		if !ok {
			return snap
		}
		snap.Exists = true
		snap.Fields = map[string]float64{
			FieldProsperity:          r.Prosperity,
			FieldChaos:               r.Chaos,
			FieldMagicAffinity:       r.MagicAffinity,
			FieldDivineResonance:     r.DivineResonance,
			FieldLandmarksDiscovered: float64(r.DiscoveredLandmarks()),
			FieldLandmarksTotal:      float64(len(r.Landmarks)),
			FieldSettlements:         float64(len(w.SettlementsIn(id))),
		}
		snap.Labels = map[string]string{LabelStatus: string(r.Status)}
	case TargetSettlement:
		s, ok := w.Settlements[id]
		if !ok {
			return snap
		}
		snap.Exists = true
		snap.Fields = map[string]float64{
			FieldPopulation:      float64(s.Population),
			FieldProsperity:      s.Prosperity,
			FieldBuildings:       float64(len(s.Buildings)),
			FieldActiveResources: float64(s.ActiveResources()),
		}
		snap.Labels = map[string]string{
			LabelStatus:   string(s.Status),
			LabelType:     string(s.Type),
			LabelRegionID: s.RegionID,
		}
		if r, ok := w.Regions[s.RegionID]; ok {
			snap.Fields[FieldRegionChaos] = r.Chaos
			snap.Fields[FieldRegionLandmarks] = float64(r.DiscoveredLandmarks())
			snap.Fields[FieldRegionLandmarksTotal] = float64(len(r.Landmarks))
			snap.Labels[LabelRegionStatus] = string(r.Status)
		}
	case TargetHero:
		h, ok := w.Heroes[id]
		if !ok {
			return snap
		}
		snap.Exists = true
		snap.Fields = map[string]float64{
			FieldLevel:          float64(h.Level),
			FieldGood:           h.Alignment.Good,
			FieldChaotic:        h.Alignment.Chaotic,
			FieldVisitedRegions: float64(len(h.VisitedRegionIDs)),
		}
		snap.Labels = map[string]string{
			LabelStatus:           string(h.Status),
			LabelRegionID:         h.RegionID,
			LabelBondedSettlement: h.BondedSettlementID,
			LabelAlive:            strconv.FormatBool(h.IsAlive),
		}
		if r, ok := w.Regions[h.RegionID]; ok {
			snap.Fields[FieldRegionChaos] = r.Chaos
		}
	}
	return snap
}

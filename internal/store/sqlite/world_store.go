package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

// WorldStore saves the whole arena by full replace and keeps the seed, the
// evolved year and the clock year in world_meta.
type WorldStore struct {
	conn *sqlx.DB
}

type regionRow struct {
	ID              string  `db:"id"`
	Name            string  `db:"name"`
	Prosperity      float64 `db:"prosperity"`
	Chaos           float64 `db:"chaos"`
	MagicAffinity   float64 `db:"magic_affinity"`
	DivineResonance float64 `db:"divine_resonance"`
	Status          string  `db:"status"`
	NeighborIDs     string  `db:"neighbor_ids_json"`
	Landmarks       string  `db:"landmarks_json"`
}

type settlementRow struct {
	ID          string  `db:"id"`
	RegionID    string  `db:"region_id"`
	Name        string  `db:"name"`
	Population  int     `db:"population"`
	Prosperity  float64 `db:"prosperity"`
	Status      string  `db:"status"`
	Type        string  `db:"type"`
	FoundedYear int     `db:"founded_year"`
	Buildings   string  `db:"buildings_json"`
	Resources   string  `db:"resources_json"`
}

type heroRow struct {
	ID                 string  `db:"id"`
	Name               string  `db:"name"`
	RegionID           string  `db:"region_id"`
	BondedSettlementID string  `db:"bonded_settlement_id"`
	Level              int     `db:"level"`
	IsAlive            bool    `db:"is_alive"`
	Status             string  `db:"status"`
	Good               float64 `db:"alignment_good"`
	Chaotic            float64 `db:"alignment_chaotic"`
	VisitedRegionIDs   string  `db:"visited_region_ids_json"`
	BornYear           int     `db:"born_year"`
}

func mustJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// SaveWorld replaces every stored entity with w.
func (s *WorldStore) SaveWorld(ctx context.Context, w domain.World) error {
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: save world begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"regions", "settlements", "heroes"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("sqlite: clear %s: %w", table, err)
		}
	}

	for _, id := range w.RegionIDs() {
		r := w.Regions[id]
		row := regionRow{
			ID: r.ID, Name: r.Name, Prosperity: r.Prosperity, Chaos: r.Chaos,
			MagicAffinity: r.MagicAffinity, DivineResonance: r.DivineResonance,
			Status: string(r.Status), NeighborIDs: mustJSON(r.NeighborIDs), Landmarks: mustJSON(r.Landmarks),
		}
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO regions
			(id, name, prosperity, chaos, magic_affinity, divine_resonance, status, neighbor_ids_json, landmarks_json)
			VALUES (:id, :name, :prosperity, :chaos, :magic_affinity, :divine_resonance, :status, :neighbor_ids_json, :landmarks_json)`,
			row); err != nil {
			return fmt.Errorf("sqlite: insert region %s: %w", id, err)
		}
	}
	for _, id := range w.SettlementIDs() {
		st := w.Settlements[id]
		row := settlementRow{
			ID: st.ID, RegionID: st.RegionID, Name: st.Name, Population: st.Population,
			Prosperity: st.Prosperity, Status: string(st.Status), Type: string(st.Type),
			FoundedYear: st.FoundedYear, Buildings: mustJSON(st.Buildings), Resources: mustJSON(st.Resources),
		}
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO settlements
			(id, region_id, name, population, prosperity, status, type, founded_year, buildings_json, resources_json)
			VALUES (:id, :region_id, :name, :population, :prosperity, :status, :type, :founded_year, :buildings_json, :resources_json)`,
			row); err != nil {
			return fmt.Errorf("sqlite: insert settlement %s: %w", id, err)
		}
	}
	for _, id := range w.HeroIDs() {
		h := w.Heroes[id]
		row := heroRow{
			ID: h.ID, Name: h.Name, RegionID: h.RegionID, BondedSettlementID: h.BondedSettlementID,
			Level: h.Level, IsAlive: h.IsAlive, Status: string(h.Status),
			Good: h.Alignment.Good, Chaotic: h.Alignment.Chaotic,
			VisitedRegionIDs: mustJSON(h.VisitedRegionIDs), BornYear: h.BornYear,
		}
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO heroes
			(id, name, region_id, bonded_settlement_id, level, is_alive, status,
			 alignment_good, alignment_chaotic, visited_region_ids_json, born_year)
			VALUES (:id, :name, :region_id, :bonded_settlement_id, :level, :is_alive, :status,
			 :alignment_good, :alignment_chaotic, :visited_region_ids_json, :born_year)`,
			row); err != nil {
			return fmt.Errorf("sqlite: insert hero %s: %w", id, err)
		}
	}

	if err := putMeta(ctx, tx, "seed", strconv.FormatInt(w.Seed, 10)); err != nil {
		return err
	}
	if err := putMeta(ctx, tx, "evolved_year", strconv.Itoa(w.EvolvedYear)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: save world commit: %w", err)
	}
	return nil
}

// LoadWorld reads the arena back, or returns domain.ErrNotFound.
func (s *WorldStore) LoadWorld(ctx context.Context) (domain.World, error) {
	seedStr, err := getMeta(ctx, s.conn, "seed")
	if err != nil {
		return domain.World{}, err
	}
	seed, err := strconv.ParseInt(seedStr, 10, 64)
	if err != nil {
		return domain.World{}, fmt.Errorf("sqlite: parse seed %q: %w", seedStr, err)
	}
	w := domain.NewWorld(seed)
	if v, err := getMeta(ctx, s.conn, "evolved_year"); err == nil {
		w.EvolvedYear, _ = strconv.Atoi(v)
	}

	var regions []regionRow
	if err := s.conn.SelectContext(ctx, &regions, `SELECT * FROM regions`); err != nil {
		return domain.World{}, fmt.Errorf("sqlite: load regions: %w", err)
	}
	for _, row := range regions {
		r := domain.Region{
			ID: row.ID, Name: row.Name, Prosperity: row.Prosperity, Chaos: row.Chaos,
			MagicAffinity: row.MagicAffinity, DivineResonance: row.DivineResonance,
			Status: domain.RegionStatus(row.Status),
		}
		if err := errors.Join(decode(row.NeighborIDs, &r.NeighborIDs), decode(row.Landmarks, &r.Landmarks)); err != nil {
			return domain.World{}, fmt.Errorf("sqlite: decode region %s: %w", row.ID, err)
		}
		w.Regions[r.ID] = r
	}

	var settlements []settlementRow
	if err := s.conn.SelectContext(ctx, &settlements, `SELECT * FROM settlements`); err != nil {
		return domain.World{}, fmt.Errorf("sqlite: load settlements: %w", err)
	}
	for _, row := range settlements {
		st := domain.Settlement{
			ID: row.ID, RegionID: row.RegionID, Name: row.Name, Population: row.Population,
			Prosperity: row.Prosperity, Status: domain.SettlementStatus(row.Status),
			Type: domain.SettlementType(row.Type), FoundedYear: row.FoundedYear,
		}
		if err := errors.Join(decode(row.Buildings, &st.Buildings), decode(row.Resources, &st.Resources)); err != nil {
			return domain.World{}, fmt.Errorf("sqlite: decode settlement %s: %w", row.ID, err)
		}
		w.Settlements[st.ID] = st
	}

	var heroes []heroRow
	if err := s.conn.SelectContext(ctx, &heroes, `SELECT * FROM heroes`); err != nil {
		return domain.World{}, fmt.Errorf("sqlite: load heroes: %w", err)
	}
	for _, row := range heroes {
		h := domain.Hero{
			ID: row.ID, Name: row.Name, RegionID: row.RegionID, BondedSettlementID: row.BondedSettlementID,
			Level: row.Level, IsAlive: row.IsAlive, Status: domain.HeroStatus(row.Status),
			Alignment: domain.Alignment{Good: row.Good, Chaotic: row.Chaotic}, BornYear: row.BornYear,
		}
		if err := decode(row.VisitedRegionIDs, &h.VisitedRegionIDs); err != nil {
			return domain.World{}, fmt.Errorf("sqlite: decode hero %s: %w", row.ID, err)
		}
		w.Heroes[h.ID] = h
	}
	return w, nil
}

func decode(raw string, dest any) error {
	return json.Unmarshal([]byte(raw), dest)
}

// CurrentYear returns the stored clock year.
func (s *WorldStore) CurrentYear(ctx context.Context) (int, error) {
	v, err := getMeta(ctx, s.conn, "current_year")
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(v)
}

// SetYear stores the clock year.
func (s *WorldStore) SetYear(ctx context.Context, year int) error {
	return putMeta(ctx, s.conn, "current_year", strconv.Itoa(year))
}

func putMeta(ctx context.Context, db sqlx.ExecerContext, key, value string) error {
	if _, err := db.ExecContext(ctx,
		`INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)`, key, value); err != nil {
		return fmt.Errorf("sqlite: put meta %s: %w", key, err)
	}
	return nil
}

func getMeta(ctx context.Context, db sqlx.QueryerContext, key string) (string, error) {
	var v string
	err := sqlx.GetContext(ctx, db, &v, `SELECT value FROM world_meta WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.NotFound("world meta", key)
	}
	if err != nil {
		return "", fmt.Errorf("sqlite: get meta %s: %w", key, err)
	}
	return v, nil
}

var (
	_ domain.WorldStore = (*WorldStore)(nil)
	_ domain.ClockStore = (*WorldStore)(nil)
)

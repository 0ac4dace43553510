package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

// world_meta keys.
const (
	metaSeed        = "seed"
	metaEvolvedYear = "evolved_year"
	metaCurrentYear = "current_year"
)

// WorldStore persists the entity arena across the region, landmark,
// settlement, building, resource node and hero tables, plus the clock year in
// world_meta.
type WorldStore struct {
	pool *pgxpool.Pool
}

// NewWorldStore creates a WorldStore.
func NewWorldStore(pool *pgxpool.Pool) *WorldStore {
	return &WorldStore{pool: pool}
}

// SaveWorld replaces every stored entity with w in one transaction.
func (s *WorldStore) SaveWorld(ctx context.Context, w domain.World) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: save world begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Children cascade from regions and settlements.
	if _, err := tx.Exec(ctx, `TRUNCATE regions, landmarks, settlements, buildings, resource_nodes, heroes`); err != nil {
		return fmt.Errorf("postgres: save world truncate: %w", err)
	}
	for _, copyFn := range []func(context.Context, pgx.Tx, domain.World) error{
		copyRegions, copySettlements, copyHeroes,
	} {
		if err := copyFn(ctx, tx, w); err != nil {
			return err
		}
	}
	if err := putMeta(ctx, tx, metaSeed, strconv.FormatInt(w.Seed, 10)); err != nil {
		return err
	}
	if err := putMeta(ctx, tx, metaEvolvedYear, strconv.Itoa(w.EvolvedYear)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: save world commit: %w", err)
	}
	return nil
}

func copyRegions(ctx context.Context, tx pgx.Tx, w domain.World) error {
	var regions, landmarks [][]any
	for _, id := range w.RegionIDs() {
		r := w.Regions[id]
		regions = append(regions, []any{
			r.ID, r.Name, r.Prosperity, r.Chaos, r.MagicAffinity, r.DivineResonance,
			string(r.Status), nonNil(r.NeighborIDs),
		})
		for i, l := range r.Landmarks {
			landmarks = append(landmarks, []any{l.ID, r.ID, i, l.Name, l.Discovered, l.DiscoveredYear})
		}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"regions"},
		[]string{"id", "name", "prosperity", "chaos", "magic_affinity", "divine_resonance", "status", "neighbor_ids"},
		pgx.CopyFromRows(regions)); err != nil {
		return fmt.Errorf("postgres: copy regions: %w", err)
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"landmarks"},
		[]string{"id", "region_id", "position", "name", "discovered", "discovered_year"},
		pgx.CopyFromRows(landmarks)); err != nil {
		return fmt.Errorf("postgres: copy landmarks: %w", err)
	}
	return nil
}

func copySettlements(ctx context.Context, tx pgx.Tx, w domain.World) error {
	var settlements, buildings, resources [][]any
	for _, id := range w.SettlementIDs() {
		st := w.Settlements[id]
		settlements = append(settlements, []any{
			st.ID, st.RegionID, st.Name, st.Population, st.Prosperity,
			string(st.Status), string(st.Type), st.FoundedYear,
		})
		for i, b := range st.Buildings {
			buildings = append(buildings, []any{b.ID, st.ID, i, b.Kind, b.Condition})
		}
		for i, r := range st.Resources {
			resources = append(resources, []any{r.ID, st.ID, i, r.Resource, r.Richness, r.Depleted})
		}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"settlements"},
		[]string{"id", "region_id", "name", "population", "prosperity", "status", "type", "founded_year"},
		pgx.CopyFromRows(settlements)); err != nil {
		return fmt.Errorf("postgres: copy settlements: %w", err)
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"buildings"},
		[]string{"id", "settlement_id", "position", "kind", "condition"},
		pgx.CopyFromRows(buildings)); err != nil {
		return fmt.Errorf("postgres: copy buildings: %w", err)
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"resource_nodes"},
		[]string{"id", "settlement_id", "position", "resource", "richness", "depleted"},
		pgx.CopyFromRows(resources)); err != nil {
		return fmt.Errorf("postgres: copy resource nodes: %w", err)
	}
	return nil
}

func copyHeroes(ctx context.Context, tx pgx.Tx, w domain.World) error {
	var heroes [][]any
	for _, id := range w.HeroIDs() {
		h := w.Heroes[id]
		heroes = append(heroes, []any{
			h.ID, h.Name, h.RegionID, h.BondedSettlementID, h.Level, h.IsAlive, string(h.Status),
			h.Alignment.Good, h.Alignment.Chaotic, nonNil(h.VisitedRegionIDs), h.BornYear,
		})
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"heroes"},
		[]string{"id", "name", "region_id", "bonded_settlement_id", "level", "is_alive", "status",
			"alignment_good", "alignment_chaotic", "visited_region_ids", "born_year"},
		pgx.CopyFromRows(heroes)); err != nil {
		return fmt.Errorf("postgres: copy heroes: %w", err)
	}
	return nil
}

// LoadWorld reads the stored arena. It returns domain.ErrNotFound when no
// world was ever saved.
func (s *WorldStore) LoadWorld(ctx context.Context) (domain.World, error) {
	seedStr, err := getMeta(ctx, s.pool, metaSeed)
	if err != nil {
		return domain.World{}, err
	}
	seed, err := strconv.ParseInt(seedStr, 10, 64)
	if err != nil {
		return domain.World{}, fmt.Errorf("postgres: parse seed %q: %w", seedStr, err)
	}
	w := domain.NewWorld(seed)
	if v, err := getMeta(ctx, s.pool, metaEvolvedYear); err == nil {
		w.EvolvedYear, _ = strconv.Atoi(v)
	}

	if err := s.loadRegions(ctx, &w); err != nil {
		return domain.World{}, err
	}
	if err := s.loadSettlements(ctx, &w); err != nil {
		return domain.World{}, err
	}
	if err := s.loadHeroes(ctx, &w); err != nil {
		return domain.World{}, err
	}
	return w, nil
}

func (s *WorldStore) loadRegions(ctx context.Context, w *domain.World) error {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, prosperity, chaos, magic_affinity, divine_resonance, status, neighbor_ids
		FROM regions`)
	if err != nil {
		return fmt.Errorf("postgres: load regions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			r      domain.Region
			status string
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Prosperity, &r.Chaos, &r.MagicAffinity,
			&r.DivineResonance, &status, &r.NeighborIDs); err != nil {
			return fmt.Errorf("postgres: scan region: %w", err)
		}
		r.Status = domain.RegionStatus(status)
		w.Regions[r.ID] = r
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("postgres: load regions: %w", err)
	}

	lrows, err := s.pool.Query(ctx, `
		SELECT id, region_id, name, discovered, discovered_year
		FROM landmarks ORDER BY region_id, position`)
	if err != nil {
		return fmt.Errorf("postgres: load landmarks: %w", err)
	}
	defer lrows.Close()
	for lrows.Next() {
		var (
			l        domain.Landmark
			regionID string
		)
		if err := lrows.Scan(&l.ID, &regionID, &l.Name, &l.Discovered, &l.DiscoveredYear); err != nil {
			return fmt.Errorf("postgres: scan landmark: %w", err)
		}
		r := w.Regions[regionID]
		r.Landmarks = append(r.Landmarks, l)
		w.Regions[regionID] = r
	}
	return lrows.Err()
}

func (s *WorldStore) loadSettlements(ctx context.Context, w *domain.World) error {
	rows, err := s.pool.Query(ctx, `
		SELECT id, region_id, name, population, prosperity, status, type, founded_year
		FROM settlements`)
	if err != nil {
		return fmt.Errorf("postgres: load settlements: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			st           domain.Settlement
			status, kind string
		)
		if err := rows.Scan(&st.ID, &st.RegionID, &st.Name, &st.Population, &st.Prosperity,
			&status, &kind, &st.FoundedYear); err != nil {
			return fmt.Errorf("postgres: scan settlement: %w", err)
		}
		st.Status = domain.SettlementStatus(status)
		st.Type = domain.SettlementType(kind)
		w.Settlements[st.ID] = st
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("postgres: load settlements: %w", err)
	}

	brows, err := s.pool.Query(ctx, `
		SELECT id, settlement_id, kind, condition FROM buildings ORDER BY settlement_id, position`)
	if err != nil {
		return fmt.Errorf("postgres: load buildings: %w", err)
	}
	defer brows.Close()
	for brows.Next() {
		var (
			b   domain.Building
			sid string
		)
		if err := brows.Scan(&b.ID, &sid, &b.Kind, &b.Condition); err != nil {
			return fmt.Errorf("postgres: scan building: %w", err)
		}
		st := w.Settlements[sid]
		st.Buildings = append(st.Buildings, b)
		w.Settlements[sid] = st
	}
	if err := brows.Err(); err != nil {
		return fmt.Errorf("postgres: load buildings: %w", err)
	}

	rrows, err := s.pool.Query(ctx, `
		SELECT id, settlement_id, resource, richness, depleted FROM resource_nodes ORDER BY settlement_id, position`)
	if err != nil {
		return fmt.Errorf("postgres: load resource nodes: %w", err)
	}
	defer rrows.Close()
	for rrows.Next() {
		var (
			n   domain.ResourceNode
			sid string
		)
		if err := rrows.Scan(&n.ID, &sid, &n.Resource, &n.Richness, &n.Depleted); err != nil {
			return fmt.Errorf("postgres: scan resource node: %w", err)
		}
		st := w.Settlements[sid]
		st.Resources = append(st.Resources, n)
		w.Settlements[sid] = st
	}
	return rrows.Err()
}

func (s *WorldStore) loadHeroes(ctx context.Context, w *domain.World) error {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, region_id, bonded_settlement_id, level, is_alive, status,
		       alignment_good, alignment_chaotic, visited_region_ids, born_year
		FROM heroes`)
	if err != nil {
		return fmt.Errorf("postgres: load heroes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			h      domain.Hero
			status string
		)
		if err := rows.Scan(&h.ID, &h.Name, &h.RegionID, &h.BondedSettlementID, &h.Level, &h.IsAlive,
			&status, &h.Alignment.Good, &h.Alignment.Chaotic, &h.VisitedRegionIDs, &h.BornYear); err != nil {
			return fmt.Errorf("postgres: scan hero: %w", err)
		}
		h.Status = domain.HeroStatus(status)
		w.Heroes[h.ID] = h
	}
	return rows.Err()
}

// CurrentYear returns the persisted clock year.
func (s *WorldStore) CurrentYear(ctx context.Context) (int, error) {
	v, err := getMeta(ctx, s.pool, metaCurrentYear)
	if err != nil {
		return 0, err
	}
	year, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("postgres: parse current year %q: %w", v, err)
	}
	return year, nil
}

// SetYear persists the clock year.
func (s *WorldStore) SetYear(ctx context.Context, year int) error {
	return putMeta(ctx, s.pool, metaCurrentYear, strconv.Itoa(year))
}

// execQuerier is satisfied by both *pgxpool.Pool and pgx.Tx.
type execQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func putMeta(ctx context.Context, db execQuerier, key, value string) error {
	_, err := db.Exec(ctx, `
		INSERT INTO world_meta (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`, key, value)
	if err != nil {
		return fmt.Errorf("postgres: put meta %s: %w", key, err)
	}
	return nil
}

func getMeta(ctx context.Context, db execQuerier, key string) (string, error) {
	var v string
	err := db.QueryRow(ctx, `SELECT value FROM world_meta WHERE key = $1`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.NotFound("world meta", key)
	}
	if err != nil {
		return "", fmt.Errorf("postgres: get meta %s: %w", key, err)
	}
	return v, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

var (
	_ domain.WorldStore = (*WorldStore)(nil)
	_ domain.ClockStore = (*WorldStore)(nil)
)

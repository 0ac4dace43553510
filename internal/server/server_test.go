package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/divinefavor/internal/domain"
	"github.com/alanyoungcy/divinefavor/internal/evolution"
	"github.com/alanyoungcy/divinefavor/internal/pricing"
	"github.com/alanyoungcy/divinefavor/internal/server/handler"
	"github.com/alanyoungcy/divinefavor/internal/service"
	"github.com/alanyoungcy/divinefavor/internal/store/memory"
	"github.com/alanyoungcy/divinefavor/internal/world"
)

const testAPIKey = "s3cret"

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	stores := memory.New()

	w := world.Generate(world.GenesisConfig{Seed: 7, Regions: 3, SettlementsPerRegion: 2, Heroes: 3, StartYear: 1})
	require.NoError(t, stores.World.SaveWorld(ctx, w))
	state := world.NewState(w)
	clock, err := world.LoadClock(ctx, stores.Clock, 1)
	require.NoError(t, err)

	engine := pricing.NewEngine(pricing.MustRegistry(pricing.DefaultTables()))
	ledger := service.NewFavorLedger(stores.Favor, service.NewLocalLocker(time.Second), logger)
	_, err = ledger.Open(ctx, domain.DefaultPlayerID, 1000)
	require.NoError(t, err)

	journal := service.NewJournal(stores.Events, nil, logger)
	resolution := service.NewResolutionEngine(stores.Bets, state, engine.Registry(), ledger, journal, nil, logger)
	market := service.NewBettingMarket(state, clock, engine, ledger, stores.Bets, nil, "", logger)
	influence := service.NewInfluenceService(state, stores.World, clock, ledger, journal,
		service.InfluenceCosts{Bless: 50, Corrupt: 40, Ascend: 200, RaiseUndead: 150, Reveal: 30}, "", logger)
	scheduler := service.NewTickScheduler(state, clock, evolution.Default(evolution.DefaultRules()),
		stores.World, journal, resolution, time.Hour, logger)

	srv := NewServer(Config{APIKey: testAPIKey}, Handlers{
		Health:    handler.NewHealthHandler(nil, logger),
		Status:    handler.NewStatusHandler("server", clock, scheduler, nil, logger),
		Bets:      handler.NewBetHandler(market, logger),
		World:     handler.NewWorldHandler(state, clock, logger),
		Events:    handler.NewEventHandler(journal, logger),
		Favor:     handler.NewFavorHandler(ledger, "", logger),
		Influence: handler.NewInfluenceHandler(influence, logger),
		Admin:     handler.NewAdminHandler(scheduler, resolution, clock, logger),
	}, nil, nil, logger)
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, method, target string, body any, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	if auth {
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func growthBet(stake int64) map[string]any {
	return map[string]any{
		"bet_type":           "settlement_growth",
		"target_id":          "settlement-001",
		"description":        "It will grow",
		"timeframe":          5,
		"confidence":         "possible",
		"divine_favor_stake": stake,
	}
}

func TestServer_Health(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/api/health", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_PlaceGetAndListBets(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/bets", growthBet(100), false)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	bet := decode[domain.Bet](t, rec)
	assert.Equal(t, domain.BetActive, bet.Status)
	assert.GreaterOrEqual(t, bet.CurrentOdds, 1.0)

	rec = do(t, h, http.MethodGet, "/api/bets/"+bet.ID, nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, bet.ID, decode[domain.Bet](t, rec).ID)

	rec = do(t, h, http.MethodGet, "/api/bets?status=active", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Bets []domain.Bet `json:"bets"`
	}](t, rec)
	require.Len(t, list.Bets, 1)

	rec = do(t, h, http.MethodGet, "/api/favor", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	acct := decode[domain.FavorAccount](t, rec)
	assert.Equal(t, int64(900), acct.Balance)
	assert.Equal(t, int64(100), acct.Reserved)
}

func TestServer_ErrorMapping(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/bets", growthBet(5000), false)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available":1000`)

	bad := growthBet(100)
	bad["timeframe"] = 99
	rec = do(t, h, http.MethodPost, "/api/bets", bad, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"timeframe"`)

	rec = do(t, h, http.MethodPost, "/api/bets", map[string]any{"nonsense": true}, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/bets/no-such-bet", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/world/regions/region-999", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Odds(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/api/odds?bet_type=settlement_growth&target_id=settlement-001&confidence=likely&timeframe=10", nil, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	odds := decode[service.OddsResponse](t, rec)
	assert.GreaterOrEqual(t, odds.Odds, 1.0)
	assert.Equal(t, int64(15), odds.MinStake)
	assert.Equal(t, odds.MinStake, odds.Stake)
}

func TestServer_AdminRequiresKey(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/admin/tick", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/admin/tick", nil, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[service.TickResult](t, rec)
	assert.Equal(t, 1, res.Year)
	assert.Equal(t, 2, res.NextYear)

	rec = do(t, h, http.MethodGet, "/api/world", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"current_year":2`)

	rec = do(t, h, http.MethodGet, "/api/events?since=0&limit=500", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	events := decode[struct {
		Events  []domain.Event `json:"events"`
		LastSeq int64          `json:"last_seq"`
	}](t, rec)
	assert.Len(t, events.Events, len(res.Events))
	assert.Equal(t, int64(len(res.Events)), events.LastSeq)

	rec = do(t, h, http.MethodPost, "/api/admin/bets/expire", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"processed_count":0`)
}

func TestServer_Influence(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/influence", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"bless":50`)

	rec = do(t, h, http.MethodPost, "/api/influence/smite", map[string]any{"target_id": "settlement-001"}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/influence/bless", map[string]any{"target_id": "settlement-001"}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[service.InfluenceResult](t, rec)
	assert.Equal(t, int64(50), res.Cost)
	assert.Equal(t, int64(950), res.Account.Balance)
}

func TestServer_CORSPreflight(t *testing.T) {
	h := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/bets", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

package api

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-tag-service/ets-server/internal/auth"
	"github.com/ethereum-tag-service/ets-server/internal/domain"
	"github.com/ethereum-tag-service/ets-server/internal/logger"
	"github.com/ethereum-tag-service/ets-server/internal/service"
	"github.com/ethereum-tag-service/ets-server/internal/sse"
	"github.com/ethereum-tag-service/ets-server/internal/store"
	"github.com/ethereum-tag-service/ets-server/internal/tagging"
)

var (
	platform = domain.MustParseAddress("0x00000000000000000000000000000000000000f0")
	relayerA = domain.MustParseAddress("0x00000000000000000000000000000000000000a1")
	tagger   = domain.MustParseAddress("0x0000000000000000000000000000000000000001")
	stranger = domain.MustParseAddress("0x0000000000000000000000000000000000000002")
)

const targetURI = "https://example.com/nft/1"

// testServer wraps the API server for handler tests.
type testServer struct {
	*Server
	api humatest.TestAPI
}

func setupTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()

	dir := t.TempDir()
	log := logger.Discard().Logger

	st, err := store.New(filepath.Join(dir, "db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	key, err := auth.LoadOrGenerateKey(dir)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, 15*time.Minute)
	require.NoError(t, err)

	sseManager := sse.NewManager(log)

	params := tagging.DefaultParams()
	params.Platform = platform
	params.TaggingFee = big.NewInt(1000)

	relayers := service.NewRelayerService(st, sseManager, log)
	engine, err := tagging.NewEngine(params, relayers)
	require.NoError(t, err)
	taggingSvc := service.NewTaggingService(st, engine, sseManager, log)

	services := &Services{
		Tagging: taggingSvc,
		Accrual: service.NewAccrualService(st, sseManager, log),
		Relayer: relayers,
		Tag:     service.NewTagService(st, nil, taggingSvc, sseManager, log),
		Target:  service.NewTargetService(st, relayers, log),
		Auth:    service.NewAuthService(st, tokens, taggingSvc, log),
	}

	s := NewServer(st, services, sseManager, nil, opts, log)
	t.Cleanup(s.Close)

	return &testServer{Server: s, api: humatest.Wrap(t, s.api)}
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), "body: %s", body)
	return v
}

func bearerHeader(token string) string {
	return "Authorization: Bearer " + token
}

// setupAdmin runs initial setup and returns the admin token.
func (ts *testServer) setupAdmin(t *testing.T) string {
	t.Helper()
	resp := ts.api.Post("/api/v1/auth/setup", map[string]any{"address": platform.String()})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	return decode[AuthResponse](t, resp.Body.Bytes()).AccessToken
}

// setupRelayer registers relayerA and returns its token.
func (ts *testServer) setupRelayer(t *testing.T, adminToken string) string {
	t.Helper()
	resp := ts.api.Post("/api/v1/relayers", bearerHeader(adminToken), map[string]any{
		"address": relayerA.String(),
		"name":    "Hashtag Portal",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	reg := decode[RegisteredRelayerResponse](t, resp.Body.Bytes())

	resp = ts.api.Post("/api/v1/auth/token", map[string]any{
		"address": relayerA.String(),
		"api_key": reg.APIKey,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	return decode[AuthResponse](t, resp.Body.Bytes()).AccessToken
}

func applyBody(value string, tags ...string) map[string]any {
	return map[string]any{
		"target_uri": targetURI,
		"tags":       tags,
		"tagger":     tagger.String(),
		"value":      value,
	}
}

func TestServer_TaggingFlow(t *testing.T) {
	ts := setupTestServer(t, Options{})
	admin := ts.setupAdmin(t)
	relayer := ts.setupRelayer(t, admin)

	resp := ts.api.Post("/api/v1/tagging/apply", bearerHeader(relayer), applyBody("2000", "#love", "#Art"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	res := decode[MutationResponse](t, resp.Body.Bytes())
	assert.True(t, res.Created)
	assert.Equal(t, "2000", res.Fee)
	assert.Equal(t, 2, res.NewTagCount)
	assert.Len(t, res.Added, 2)
	assert.Empty(t, res.Removed)
	assert.Equal(t, relayerA.String(), res.Record.Relayer)

	recordID := res.Record.ID
	wantID := tagging.ComputeRecordID(tagging.ComputeTargetID(targetURI), "", relayerA, tagger)
	assert.Equal(t, wantID.String(), recordID)

	resp = ts.api.Get("/api/v1/tagging/records/" + recordID)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Len(t, decode[RecordResponse](t, resp.Body.Bytes()).TagIDs, 2)

	// Only the net-new tag is priced.
	resp = ts.api.Post("/api/v1/tagging/fee", map[string]any{
		"target_uri": targetURI,
		"tags":       []string{"#love", "#new"},
		"relayer":    relayerA.String(),
		"tagger":     tagger.String(),
		"action":     "append",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	quote := decode[FeeResponse](t, resp.Body.Bytes())
	assert.Equal(t, "1000", quote.Fee)
	assert.Equal(t, 1, quote.NewTagCount)

	resp = ts.api.Post("/api/v1/tagging/records/"+recordID+"/remove", bearerHeader(relayer), map[string]any{
		"tag_ids": []string{tagging.ComputeTagID("#love").String()},
		"tagger":  tagger.String(),
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	removed := decode[MutationResponse](t, resp.Body.Bytes())
	assert.Equal(t, "0", removed.Fee)
	assert.Equal(t, []string{tagging.ComputeTagID("#love").String()}, removed.Removed)

	resp = ts.api.Get("/api/v1/tagging/records?tagger=" + tagger.String())
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	page := decode[Page[RecordResponse]](t, resp.Body.Bytes())
	require.Len(t, page.Items, 1)
	assert.False(t, page.HasMore)
}

func TestServer_AccrualsAndDrawDown(t *testing.T) {
	ts := setupTestServer(t, Options{})
	admin := ts.setupAdmin(t)
	relayer := ts.setupRelayer(t, admin)

	resp := ts.api.Post("/api/v1/tagging/apply", bearerHeader(relayer), applyBody("2000", "#aa", "#bb"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	// 20% platform, 30% relayer, the rest to the creator while the platform owns the tag.
	for addr, want := range map[domain.Address]string{platform: "400", relayerA: "600", tagger: "1000"} {
		resp = ts.api.Get("/api/v1/accruals/" + addr.String())
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		assert.Equal(t, want, decode[AccrualResponse](t, resp.Body.Bytes()).Outstanding, addr.String())
	}

	// No authentication: anyone may draw down for anyone.
	resp = ts.api.Post("/api/v1/accruals/" + tagger.String() + "/drawdown")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	payout := decode[PayoutResponse](t, resp.Body.Bytes())
	assert.Equal(t, "1000", payout.Amount)
	assert.Equal(t, tagger.String(), payout.Beneficiary)

	resp = ts.api.Post("/api/v1/accruals/" + tagger.String() + "/drawdown")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "0", decode[PayoutResponse](t, resp.Body.Bytes()).Amount)

	resp = ts.api.Get("/api/v1/accruals/" + tagger.String() + "/payouts")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	payouts := decode[Page[PayoutResponse]](t, resp.Body.Bytes())
	require.Len(t, payouts.Items, 1)
	assert.Equal(t, payout.ID, payouts.Items[0].ID)
}

func TestServer_ErrorMapping(t *testing.T) {
	ts := setupTestServer(t, Options{})
	admin := ts.setupAdmin(t)
	relayer := ts.setupRelayer(t, admin)

	tests := []struct {
		name       string
		do         func() int
		wantStatus int
	}{
		{"unauthenticated mutation", func() int {
			return ts.api.Post("/api/v1/tagging/apply", applyBody("1000", "#aa")).Code
		}, http.StatusUnauthorized},
		{"payment mismatch", func() int {
			return ts.api.Post("/api/v1/tagging/apply", bearerHeader(relayer), applyBody("1", "#aa")).Code
		}, http.StatusPaymentRequired},
		{"not a relayer", func() int {
			return ts.api.Post("/api/v1/tagging/apply", bearerHeader(admin), applyBody("1000", "#aa")).Code
		}, http.StatusForbidden},
		{"invalid tag", func() int {
			return ts.api.Post("/api/v1/tagging/apply", bearerHeader(relayer), applyBody("1000", "nohash")).Code
		}, http.StatusBadRequest},
		{"missing record", func() int {
			return ts.api.Get("/api/v1/tagging/records/" + tagging.ComputeTagID("#zz").String()).Code
		}, http.StatusNotFound},
		{"malformed record id", func() int {
			return ts.api.Get("/api/v1/tagging/records/0x1234").Code
		}, http.StatusBadRequest},
		{"relayer cannot register relayers", func() int {
			return ts.api.Post("/api/v1/relayers", bearerHeader(relayer), map[string]any{
				"address": stranger.String(), "name": "x",
			}).Code
		}, http.StatusForbidden},
		{"setup twice", func() int {
			return ts.api.Post("/api/v1/auth/setup", map[string]any{"address": platform.String()}).Code
		}, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.do())
		})
	}

	resp := ts.api.Post("/api/v1/tagging/apply", bearerHeader(relayer), applyBody("1", "#aa"))
	body := decode[APIError](t, resp.Body.Bytes())
	assert.Equal(t, "PAYMENT_MISMATCH", body.Code)
}

func TestServer_Relayers(t *testing.T) {
	ts := setupTestServer(t, Options{})
	admin := ts.setupAdmin(t)
	relayer := ts.setupRelayer(t, admin)

	// Owned by the registering admin, so the relayer itself may not pause.
	resp := ts.api.Post("/api/v1/relayers/"+relayerA.String()+"/pause", bearerHeader(relayer))
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Post("/api/v1/relayers/"+relayerA.String()+"/pause", bearerHeader(admin))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.True(t, decode[RelayerResponse](t, resp.Body.Bytes()).Paused)

	resp = ts.api.Post("/api/v1/tagging/apply", bearerHeader(relayer), applyBody("1000", "#aa"))
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Post("/api/v1/relayers/"+relayerA.String()+"/unpause", bearerHeader(admin))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Post("/api/v1/relayers/"+relayerA.String()+"/lock", bearerHeader(relayer))
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Post("/api/v1/relayers/"+relayerA.String()+"/lock", bearerHeader(admin))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.True(t, decode[RelayerResponse](t, resp.Body.Bytes()).Locked)

	resp = ts.api.Get("/api/v1/relayers")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decode[Page[RelayerResponse]](t, resp.Body.Bytes()).Items, 1)
}

func TestServer_TagsAndTargets(t *testing.T) {
	ts := setupTestServer(t, Options{})
	admin := ts.setupAdmin(t)
	relayer := ts.setupRelayer(t, admin)

	resp := ts.api.Post("/api/v1/targets", bearerHeader(relayer), map[string]any{"uri": targetURI})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	target := decode[TargetResponse](t, resp.Body.Bytes())
	assert.Equal(t, tagging.ComputeTargetID(targetURI).String(), target.ID)

	resp = ts.api.Post("/api/v1/targets", bearerHeader(relayer), map[string]any{"uri": targetURI})
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Post("/api/v1/tagging/records/apply", bearerHeader(relayer), map[string]any{
		"target_id": target.ID,
		"tag_ids":   []string{tagging.ComputeTagID("#aa").String()},
		"tagger":    tagger.String(),
		"value":     "1000",
	})
	assert.Equal(t, http.StatusNotFound, resp.Code, "composite input never mints tags")

	resp = ts.api.Post("/api/v1/tagging/apply", bearerHeader(relayer), applyBody("1000", "#Aa"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Get("/api/v1/tags/lookup?tag=%23AA")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	tag := decode[TagResponse](t, resp.Body.Bytes())
	assert.Equal(t, "#Aa", tag.Display)
	assert.Equal(t, platform.String(), tag.Owner)

	resp = ts.api.Post("/api/v1/tags/"+tag.ID+"/transfer", bearerHeader(admin), map[string]any{"owner": stranger.String()})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, stranger.String(), decode[TagResponse](t, resp.Body.Bytes()).Owner)

	resp = ts.api.Patch("/api/v1/tags/"+tag.ID, bearerHeader(admin), map[string]any{"premium": true})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.True(t, decode[TagResponse](t, resp.Body.Bytes()).Premium)

	resp = ts.api.Get("/api/v1/tags/search?q=aa")
	assert.Equal(t, http.StatusInternalServerError, resp.Code, "search index not wired in tests")
}

func TestServer_RecordID(t *testing.T) {
	ts := setupTestServer(t, Options{})

	resp := ts.api.Get("/api/v1/tagging/record-id?target_uri=" + targetURI + "&record_type=bookmark&relayer=" + relayerA.String() + "&tagger=" + tagger.String())
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	got := decode[RecordIDResponse](t, resp.Body.Bytes())
	want := tagging.ComputeRecordID(tagging.ComputeTargetID(targetURI), "bookmark", relayerA, tagger)
	assert.Equal(t, want.String(), got.RecordID)

	resp = ts.api.Get("/api/v1/tagging/record-id?relayer=" + relayerA.String() + "&tagger=" + tagger.String())
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestServer_TokenRateLimited(t *testing.T) {
	ts := setupTestServer(t, Options{AuthRatePerMinute: 1, AuthBurst: 1})

	body := map[string]any{"address": stranger.String(), "api_key": "ets_wrong"}
	resp := ts.api.Post("/api/v1/auth/token", body)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = ts.api.Post("/api/v1/auth/token", body)
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
}

func TestServer_HealthAndFallbacks(t *testing.T) {
	ts := setupTestServer(t, Options{})

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)
	health := decode[HealthResponse](t, resp.Body.Bytes())
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "disabled", health.Components["search"].Status)

	resp = ts.api.Get("/api/v1/nope")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", decode[APIError](t, resp.Body.Bytes()).Code)

	resp = ts.api.Get("/api/v1/tagging/params")
	require.Equal(t, http.StatusOK, resp.Code)
	params := decode[ParamsResponse](t, resp.Body.Bytes())
	assert.Equal(t, "1000", params.TaggingFee)
	assert.Equal(t, platform.String(), params.PlatformAddress)
}

func TestServer_SetupStatus(t *testing.T) {
	ts := setupTestServer(t, Options{})

	resp := ts.api.Get("/api/v1/auth/setup")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, decode[SetupStatusResponse](t, resp.Body.Bytes()).SetupRequired)

	ts.setupAdmin(t)
	_, err := ts.services.Auth.IsSetupRequired(context.Background())
	require.NoError(t, err)

	resp = ts.api.Get("/api/v1/auth/setup")
	assert.False(t, decode[SetupStatusResponse](t, resp.Body.Bytes()).SetupRequired)
}

package service

import (
	"context"
	"log/slog"
	"math/big"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ethereum-tag-service/ets-server/internal/auth"
	"github.com/ethereum-tag-service/ets-server/internal/domain"
	"github.com/ethereum-tag-service/ets-server/internal/logger"
	"github.com/ethereum-tag-service/ets-server/internal/sse"
	"github.com/ethereum-tag-service/ets-server/internal/store"
	"github.com/ethereum-tag-service/ets-server/internal/tagging"
)

var (
	platform = addr(0xf0)
	relayerA = addr(0xa1)
	relayerB = addr(0xa2)
	tagger   = addr(0x01)
	stranger = addr(0x02)
)

func addr(b byte) domain.Address {
	var a domain.Address
	a[19] = b
	return a
}

func wei(v int64) *big.Int { return big.NewInt(v) }

// recordingEmitter captures emitted events in order.
type recordingEmitter struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recordingEmitter) Emit(events ...sse.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

func (r *recordingEmitter) types() []sse.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sse.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *recordingEmitter) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// testEnv wires every service against a temp-dir Badger store.
type testEnv struct {
	store    *store.Badger
	events   *recordingEmitter
	tagging  *TaggingService
	accruals *AccrualService
	relayers *RelayerService
	tags     *TagService
	targets  *TargetService
	auth     *AuthService
}

func testParams() tagging.Params {
	p := tagging.DefaultParams()
	p.Platform = platform
	p.TaggingFee = wei(1000)
	return p
}

func discardLogger() *slog.Logger {
	return logger.Discard().Logger
}

func setupServices(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	s, err := store.New(filepath.Join(dir, "db"), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	log := discardLogger()
	events := &recordingEmitter{}

	relayers := NewRelayerService(s, events, log)
	engine, err := tagging.NewEngine(testParams(), relayers)
	require.NoError(t, err)
	taggingSvc := NewTaggingService(s, engine, events, log)

	key, err := auth.LoadOrGenerateKey(dir)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, time.Hour)
	require.NoError(t, err)

	return &testEnv{
		store:    s,
		events:   events,
		tagging:  taggingSvc,
		accruals: NewAccrualService(s, events, log),
		relayers: relayers,
		tags:     NewTagService(s, nil, taggingSvc, events, log),
		targets:  NewTargetService(s, relayers, log),
		auth:     NewAuthService(s, tokens, taggingSvc, log),
	}
}

// addRelayer registers an active relayer straight in the store.
func (e *testEnv) addRelayer(t *testing.T, a, owner domain.Address) {
	t.Helper()
	now := time.Now()
	err := e.store.CreateRelayer(context.Background(),
		&domain.Relayer{Address: a, Name: "relayer", Owner: owner, CreatedAt: now, UpdatedAt: now},
		&domain.Account{Address: a, Role: domain.RoleRelayer, CreatedAt: now},
	)
	require.NoError(t, err)
}

// addAdmin creates the platform admin account straight in the store.
func (e *testEnv) addAdmin(t *testing.T) {
	t.Helper()
	err := e.store.CreateAccount(context.Background(),
		&domain.Account{Address: platform, Role: domain.RoleAdmin, CreatedAt: time.Now()})
	require.NoError(t, err)
}

func (e *testEnv) outstanding(t *testing.T, a domain.Address) *big.Int {
	t.Helper()
	acc, err := e.accruals.GetAccrual(context.Background(), a)
	require.NoError(t, err)
	return acc.Outstanding()
}

func rawRequest(uri string, value int64, tags ...string) RawTaggingRequest {
	return RawTaggingRequest{
		TargetURI:  uri,
		Tags:       tags,
		RecordType: "bookmark",
		Tagger:     tagger.String(),
		Value:      wei(value).String(),
	}
}

func hexIDs(tags ...string) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = tagging.ComputeTagID(t).String()
	}
	return out
}

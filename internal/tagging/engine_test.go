package tagging

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	"github.com/ethereum-tag-service/ets-server/internal/errors"
)

var (
	platform = addr(0xf0)
	relayerR = addr(0x01)
	relayerQ = addr(0x02)
	taggerT  = addr(0x10)
	taggerU  = addr(0x11)
)

// tenthEther is 0.1 ETH in wei.
var tenthEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(17), nil)

func newTestEngine(t *testing.T, fee *big.Int) *Engine {
	t.Helper()
	p := DefaultParams()
	p.Platform = platform
	p.TaggingFee = fee
	e, err := NewEngine(p, relayerSet{relayerR: true, relayerQ: true})
	require.NoError(t, err)
	return e
}

func times(v *big.Int, n int64) *big.Int {
	return new(big.Int).Mul(v, big.NewInt(n))
}

func TestEngine_EndToEndScenario(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, tenthEther)
	key := Key{TargetID: ComputeTargetID("https://example.com"), RecordType: "bookmark", Relayer: relayerR, Tagger: taggerT}

	// Apply creates the record.
	plan, err := e.Plan(ctx, Mutation{
		Action: ActionAppend, Key: key, Create: true,
		Caller: relayerR, Tagger: taggerT,
		TagIDs: ids("#love", "#hate"), Payment: times(tenthEther, 2),
	})
	require.NoError(t, err)
	assert.True(t, plan.Created)
	assert.Equal(t, key.ID(), plan.Record.ID)
	assert.Equal(t, times(tenthEther, 2), plan.Fee)
	assert.Equal(t, ids("#love", "#hate"), plan.Record.TagIDs)
	record := plan.Record

	// Append only pays for the new tag.
	plan, err = e.Plan(ctx, Mutation{
		Action: ActionAppend, Record: record, Key: key, Create: true,
		Caller: relayerR, Tagger: taggerT,
		TagIDs: ids("#love", "#new"), Payment: tenthEther,
	})
	require.NoError(t, err)
	assert.False(t, plan.Created)
	assert.Equal(t, tenthEther, plan.Fee)
	assert.Equal(t, ids("#new"), plan.Added)
	assert.Equal(t, ids("#love", "#hate", "#new"), plan.Record.TagIDs)
	assert.Equal(t, ids("#love", "#hate"), record.TagIDs, "planning must not mutate the stored record")
	record = plan.Record

	// Replace removes for free and pays for "#other".
	plan, err = e.Plan(ctx, Mutation{
		Action: ActionReplace, Record: record,
		Caller: relayerR, Tagger: taggerT,
		TagIDs: ids("#hate", "#other"), Payment: tenthEther,
	})
	require.NoError(t, err)
	assert.Equal(t, tenthEther, plan.Fee)
	assert.Equal(t, 1, plan.NewTagCount)
	assert.Equal(t, ids("#love", "#new"), plan.Removed)
	assert.Equal(t, ids("#other"), plan.Added)
	assert.Equal(t, ids("#hate", "#other"), plan.Record.TagIDs)
}

func TestEngine_ApplyTwiceIsFree(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, wei(7))
	key := Key{TargetID: ComputeTargetID("ipfs://x"), RecordType: "r", Relayer: relayerR, Tagger: taggerT}
	m := Mutation{Action: ActionAppend, Key: key, Create: true, Caller: relayerR, Tagger: taggerT, TagIDs: ids("#a", "#b"), Payment: wei(14)}

	first, err := e.Plan(ctx, m)
	require.NoError(t, err)

	m.Record = first.Record
	m.Payment = nil
	second, err := e.Plan(ctx, m)
	require.NoError(t, err)
	assert.Zero(t, second.NewTagCount)
	assert.Zero(t, second.Fee.Sign())
	assert.Equal(t, first.Record.TagIDs, second.Record.TagIDs)
}

func TestEngine_Authorization(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, wei(0))
	record := &domain.TaggingRecord{ID: domain.Hash{1}, Relayer: relayerR, Tagger: taggerT, TagIDs: ids("#a")}

	tests := []struct {
		name   string
		caller domain.Address
		tagger domain.Address
	}{
		{"not a relayer", addr(0x99), taggerT},
		{"different relayer", relayerQ, taggerT},
		{"different tagger", relayerR, taggerU},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Plan(ctx, Mutation{Action: ActionAppend, Record: record, Caller: tt.caller, Tagger: tt.tagger, TagIDs: ids("#b")})
			assert.ErrorIs(t, err, errors.ErrForbidden)
			assert.Equal(t, ids("#a"), record.TagIDs)
		})
	}
}

func TestEngine_PausedRelayerCannotCreate(t *testing.T) {
	p := DefaultParams()
	p.Platform = platform
	e, err := NewEngine(p, relayerSet{relayerR: false})
	require.NoError(t, err)

	key := Key{RecordType: "bookmark", Relayer: relayerR, Tagger: taggerT}
	_, err = e.Plan(context.Background(), Mutation{Action: ActionAppend, Key: key, Create: true, Caller: relayerR, Tagger: taggerT, TagIDs: ids("#a")})
	assert.ErrorIs(t, err, errors.ErrForbidden)
}

func TestEngine_MissingRecordWithoutCreate(t *testing.T) {
	e := newTestEngine(t, wei(0))
	for _, a := range []Action{ActionAppend, ActionRemove, ActionReplace} {
		_, err := e.Plan(context.Background(), Mutation{Action: a, Caller: relayerR, Tagger: taggerT, TagIDs: ids("#a")})
		assert.ErrorIs(t, err, errors.ErrNotFound, a.String())
	}
}

func TestEngine_ValidationBeforeAuthorization(t *testing.T) {
	e := newTestEngine(t, wei(0))
	stranger := addr(0x99)

	_, err := e.Plan(context.Background(), Mutation{Action: ActionAppend, Caller: stranger, Tagger: taggerT})
	assert.ErrorIs(t, err, errors.ErrValidation, "empty tag list")

	key := Key{RecordType: "this-record-type-is-definitely-too-long", Relayer: stranger, Tagger: taggerT}
	_, err = e.Plan(context.Background(), Mutation{Action: ActionAppend, Key: key, Create: true, Caller: stranger, Tagger: taggerT, TagIDs: ids("#a")})
	assert.ErrorIs(t, err, errors.ErrValidation, "record type too long")
}

func TestEngine_PaymentExactness(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, wei(50))
	key := Key{RecordType: "r", Relayer: relayerR, Tagger: taggerT}
	m := Mutation{Action: ActionAppend, Key: key, Create: true, Caller: relayerR, Tagger: taggerT, TagIDs: ids("#a", "#b")}

	m.Payment = wei(99)
	_, err := e.Plan(ctx, m)
	assert.ErrorIs(t, err, errors.ErrPaymentMismatch)

	m.Payment = wei(101)
	_, err = e.Plan(ctx, m)
	assert.ErrorIs(t, err, errors.ErrPaymentMismatch)

	m.Payment = wei(100)
	_, err = e.Plan(ctx, m)
	assert.NoError(t, err)
}

func TestEngine_ZeroFeeNeedsNoPayment(t *testing.T) {
	e := newTestEngine(t, wei(0))
	key := Key{RecordType: "r", Relayer: relayerR, Tagger: taggerT}
	plan, err := e.Plan(context.Background(), Mutation{Action: ActionAppend, Key: key, Create: true, Caller: relayerR, Tagger: taggerT, TagIDs: ids("#a", "#b", "#c")})
	require.NoError(t, err)
	assert.Equal(t, 3, plan.NewTagCount)
	assert.Zero(t, plan.Fee.Sign())
}

func TestEngine_RemoveDrainsRecord(t *testing.T) {
	e := newTestEngine(t, wei(50))
	record := &domain.TaggingRecord{Relayer: relayerR, Tagger: taggerT, TagIDs: ids("#a", "#b")}

	plan, err := e.Plan(context.Background(), Mutation{Action: ActionRemove, Record: record, Caller: relayerR, Tagger: taggerT, TagIDs: ids("#a", "#b", "#zzz")})
	require.NoError(t, err)
	assert.Empty(t, plan.Record.TagIDs)
	assert.Equal(t, 2, plan.NewTagCount)
	assert.Zero(t, plan.Fee.Sign())
}

func TestEngine_SetParams(t *testing.T) {
	e := newTestEngine(t, wei(1))

	bad := e.Params()
	bad.PlatformPercentage = 90
	assert.ErrorIs(t, e.SetParams(bad), errors.ErrValidation)
	assert.Equal(t, 20, e.Params().PlatformPercentage, "invalid params leave the previous set active")

	good := e.Params()
	good.TaggingFee = wei(9)
	require.NoError(t, e.SetParams(good))
	good.TaggingFee.SetInt64(1000)
	assert.Equal(t, wei(9), e.Params().TaggingFee, "engine keeps its own copy of the fee")

	fee, count, err := e.Quote(nil, ids("#a", "#b"), ActionAppend)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, wei(18), fee)
}

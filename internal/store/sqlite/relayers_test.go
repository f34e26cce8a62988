package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	"github.com/ethereum-tag-service/ets-server/internal/store"
)

func TestRelayerLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	addr := testAddr(0x01)
	r := &domain.Relayer{Address: addr, Name: "One", Owner: testAddr(0x0f), CreatedAt: now, UpdatedAt: now}
	acc := &domain.Account{Address: addr, Role: domain.RoleRelayer, APIKeyHash: "hash", CreatedAt: now}

	if err := s.CreateRelayer(ctx, r, acc); err != nil {
		t.Fatalf("CreateRelayer: %v", err)
	}
	if err := s.CreateRelayer(ctx, r, acc); !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("duplicate relayer: got %v", err)
	}

	gotAcc, err := s.GetAccount(ctx, addr)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if gotAcc.APIKeyHash != "hash" || gotAcc.Role != domain.RoleRelayer {
		t.Errorf("account did not round-trip: %+v", gotAcc)
	}

	r.Paused = true
	if err := s.UpdateRelayer(ctx, r); err != nil {
		t.Fatalf("UpdateRelayer: %v", err)
	}
	got, err := s.GetRelayer(ctx, addr)
	if err != nil {
		t.Fatalf("GetRelayer: %v", err)
	}
	if !got.Paused || got.Locked {
		t.Errorf("flags: paused=%v locked=%v", got.Paused, got.Locked)
	}

	if err := s.UpdateRelayer(ctx, &domain.Relayer{Address: testAddr(0x99)}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("update unknown relayer: got %v", err)
	}

	page, err := s.ListRelayers(ctx, store.DefaultPaginationParams())
	if err != nil {
		t.Fatalf("ListRelayers: %v", err)
	}
	if len(page.Items) != 1 {
		t.Errorf("expected 1 relayer, got %d", len(page.Items))
	}
}

func TestTags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tag := &domain.Tag{ID: testHash(0xa1), Display: "#Love", Owner: testAddr(0xf0), CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := s.CommitTagging(ctx, &store.TaggingCommit{
		Record: testRecord(1, 1, testAddr(1), testAddr(2), tag.ID), Created: true, NewTags: []*domain.Tag{tag},
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tag.Owner = testAddr(0xb2)
	tag.Premium = true
	tag.LeftPlatform = true
	if err := s.UpdateTag(ctx, tag); err != nil {
		t.Fatalf("UpdateTag: %v", err)
	}

	tags, err := s.GetTags(ctx, []domain.Hash{tag.ID, testHash(0xee)})
	if err != nil {
		t.Fatalf("GetTags: %v", err)
	}
	got, ok := tags[tag.ID]
	if !ok || len(tags) != 1 {
		t.Fatalf("GetTags: got %d tags", len(tags))
	}
	if got.Owner != testAddr(0xb2) || !got.Premium || !got.LeftPlatform || got.Display != "#Love" {
		t.Errorf("tag did not round-trip: %+v", got)
	}

	if _, err := s.GetTag(ctx, testHash(0xee)); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetTag unknown: got %v", err)
	}
}

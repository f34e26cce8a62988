// Package sse streams tagging, accrual and relayer events to subscribers
// as Server-Sent Events.
package sse

import (
	"time"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	EventRecordCreated     EventType = "record.created"
	EventRecordTagsRemoved EventType = "record.tags_removed"
	EventRecordTagsAdded   EventType = "record.tags_added"

	EventAccrualCredited  EventType = "accrual.credited"
	EventAccrualDrawnDown EventType = "accrual.drawn_down"

	EventTagCreated     EventType = "tag.created"
	EventTagTransferred EventType = "tag.transferred"

	EventRelayerRegistered EventType = "relayer.registered"
	EventRelayerPaused     EventType = "relayer.paused"
	EventRelayerUnpaused   EventType = "relayer.unpaused"
	EventRelayerLocked     EventType = "relayer.locked"

	// EventParamsUpdated fires after protocol parameters were hot reloaded.
	EventParamsUpdated EventType = "params.updated"

	// EventHeartbeat keeps idle connections open through proxies.
	EventHeartbeat EventType = "heartbeat"
)

// Event is one SSE message. Data is serialized as the JSON payload.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`

	// Addresses involved in the event; clients subscribed to an address
	// only receive events listing it.
	Addresses []domain.Address `json:"-"`
}

// RecordEventData describes a tagging record change.
type RecordEventData struct {
	RecordID   domain.Hash    `json:"record_id"`
	TargetID   domain.Hash    `json:"target_id"`
	RecordType string         `json:"record_type"`
	Relayer    domain.Address `json:"relayer"`
	Tagger     domain.Address `json:"tagger"`
	TagIDs     []domain.Hash  `json:"tag_ids"`
}

// AccrualEventData describes a credit or a drawdown.
type AccrualEventData struct {
	Address  domain.Address `json:"address"`
	Amount   string         `json:"amount"`
	TagID    *domain.Hash   `json:"tag_id,omitempty"`
	Role     string         `json:"role,omitempty"`
	PayoutID string         `json:"payout_id,omitempty"`
}

// TagEventData describes a created or transferred tag.
type TagEventData struct {
	TagID     domain.Hash     `json:"tag_id"`
	Display   string          `json:"display"`
	Owner     domain.Address  `json:"owner"`
	PrevOwner *domain.Address `json:"previous_owner,omitempty"`
	Creator   domain.Address  `json:"creator"`
	Relayer   domain.Address  `json:"relayer"`
}

// RelayerEventData describes a relayer lifecycle change.
type RelayerEventData struct {
	Address domain.Address `json:"address"`
	Name    string         `json:"name"`
	Owner   domain.Address `json:"owner"`
	Paused  bool           `json:"paused"`
	Locked  bool           `json:"locked"`
}

// ParamsEventData carries the protocol parameters now in force.
type ParamsEventData struct {
	TaggingFee         string `json:"tagging_fee"`
	PlatformPercentage int    `json:"platform_percentage"`
	RelayerPercentage  int    `json:"relayer_percentage"`
}

func newEvent(t EventType, data any, addrs ...domain.Address) Event {
	return Event{Type: t, Timestamp: time.Now(), Data: data, Addresses: addrs}
}

func recordData(r *domain.TaggingRecord, tagIDs []domain.Hash) RecordEventData {
	if tagIDs == nil {
		tagIDs = []domain.Hash{}
	}
	return RecordEventData{
		RecordID:   r.ID,
		TargetID:   r.TargetID,
		RecordType: r.RecordType,
		Relayer:    r.Relayer,
		Tagger:     r.Tagger,
		TagIDs:     tagIDs,
	}
}

// NewRecordCreatedEvent reports a new, still empty, tagging record.
func NewRecordCreatedEvent(r *domain.TaggingRecord) Event {
	return newEvent(EventRecordCreated, recordData(r, nil), r.Relayer, r.Tagger)
}

// NewTagsRemovedEvent lists the tags a mutation removed from r.
func NewTagsRemovedEvent(r *domain.TaggingRecord, removed []domain.Hash) Event {
	return newEvent(EventRecordTagsRemoved, recordData(r, removed), r.Relayer, r.Tagger)
}

// NewTagsAddedEvent lists the tags a mutation added to r.
func NewTagsAddedEvent(r *domain.TaggingRecord, added []domain.Hash) Event {
	return newEvent(EventRecordTagsAdded, recordData(r, added), r.Relayer, r.Tagger)
}

// NewAccrualCreditedEvent reports one fee share credited to c.Address.
func NewAccrualCreditedEvent(c domain.Credit) Event {
	tagID := c.TagID
	return newEvent(EventAccrualCredited, AccrualEventData{
		Address: c.Address,
		Amount:  c.Amount.String(),
		TagID:   &tagID,
		Role:    c.Role,
	}, c.Address)
}

// NewDrawnDownEvent reports a payout.
func NewDrawnDownEvent(p *domain.Payout) Event {
	return newEvent(EventAccrualDrawnDown, AccrualEventData{
		Address:  p.Beneficiary,
		Amount:   p.Amount.String(),
		PayoutID: p.ID,
	}, p.Beneficiary)
}

// NewTagCreatedEvent reports a tag minted by a tagging commit.
func NewTagCreatedEvent(t *domain.Tag) Event {
	return newEvent(EventTagCreated, TagEventData{
		TagID:   t.ID,
		Display: t.Display,
		Owner:   t.Owner,
		Creator: t.Creator,
		Relayer: t.Relayer,
	}, t.Creator, t.Relayer)
}

// NewTagTransferredEvent reports a change of tag owner.
func NewTagTransferredEvent(t *domain.Tag, prev domain.Address) Event {
	return newEvent(EventTagTransferred, TagEventData{
		TagID:     t.ID,
		Display:   t.Display,
		Owner:     t.Owner,
		PrevOwner: &prev,
		Creator:   t.Creator,
		Relayer:   t.Relayer,
	}, t.Owner, prev)
}

// NewRelayerEvent reports a relayer lifecycle change of type t.
func NewRelayerEvent(t EventType, r *domain.Relayer) Event {
	return newEvent(t, RelayerEventData{
		Address: r.Address,
		Name:    r.Name,
		Owner:   r.Owner,
		Paused:  r.Paused,
		Locked:  r.Locked,
	}, r.Address, r.Owner)
}

// NewParamsUpdatedEvent reports reloaded protocol parameters.
func NewParamsUpdatedEvent(data ParamsEventData) Event {
	return newEvent(EventParamsUpdated, data)
}

// NewHeartbeatEvent creates a keepalive event.
func NewHeartbeatEvent() Event {
	return Event{Type: EventHeartbeat, Timestamp: time.Now(), Data: map[string]any{}}
}

package sse

import (
	"bufio"
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	"github.com/ethereum-tag-service/ets-server/internal/logger"
)

func testRecord() *domain.TaggingRecord {
	return &domain.TaggingRecord{
		ID:         domain.Hash{1},
		TargetID:   domain.Hash{2},
		RecordType: "bookmark",
		Relayer:    domain.Address{0x01},
		Tagger:     domain.Address{0x10},
	}
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case e := <-c.EventChan:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func startManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(logger.Discard().Logger)
	ctx, cancel := context.WithCancel(context.Background())
	go m.Start(ctx)
	t.Cleanup(cancel)
	return m
}

func TestFilter_Match(t *testing.T) {
	rec := testRecord()
	added := NewTagsAddedEvent(rec, []domain.Hash{{9}})
	other := domain.Address{0x77}

	assert.True(t, Filter{}.Match(added))
	assert.True(t, Filter{Types: []EventType{EventRecordTagsAdded}}.Match(added))
	assert.False(t, Filter{Types: []EventType{EventAccrualCredited}}.Match(added))
	assert.True(t, Filter{Address: &rec.Tagger}.Match(added))
	assert.False(t, Filter{Address: &other}.Match(added))
	assert.True(t, Filter{Address: &other}.Match(NewHeartbeatEvent()))
}

func TestManager_PreservesEmitOrder(t *testing.T) {
	m := startManager(t)
	client, err := m.Connect(Filter{})
	require.NoError(t, err)

	rec := testRecord()
	m.Emit(
		NewRecordCreatedEvent(rec),
		NewTagsRemovedEvent(rec, []domain.Hash{{3}}),
		NewTagsAddedEvent(rec, []domain.Hash{{4}}),
	)

	assert.Equal(t, EventRecordCreated, receive(t, client).Type)
	assert.Equal(t, EventRecordTagsRemoved, receive(t, client).Type)
	assert.Equal(t, EventRecordTagsAdded, receive(t, client).Type)
}

func TestManager_FiltersPerClient(t *testing.T) {
	m := startManager(t)
	all, err := m.Connect(Filter{})
	require.NoError(t, err)
	accrualsOnly, err := m.Connect(Filter{Types: []EventType{EventAccrualCredited}})
	require.NoError(t, err)
	assert.Equal(t, 2, m.ClientCount())

	credit := domain.Credit{Address: domain.Address{0xaa}, Amount: big.NewInt(7), Role: "platform"}
	m.Emit(NewRecordCreatedEvent(testRecord()), NewAccrualCreditedEvent(credit))

	assert.Equal(t, EventRecordCreated, receive(t, all).Type)
	assert.Equal(t, EventAccrualCredited, receive(t, all).Type)
	assert.Equal(t, EventAccrualCredited, receive(t, accrualsOnly).Type)
}

func TestManager_ShutdownDropsLateEvents(t *testing.T) {
	m := startManager(t)
	client, err := m.Connect(Filter{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))
	require.NoError(t, m.Shutdown(ctx))

	assert.NotPanics(t, func() { m.Emit(NewRecordCreatedEvent(testRecord())) })
	assert.Equal(t, 0, m.ClientCount())

	_, open := <-client.Done
	assert.False(t, open)
}

func TestParseFilter(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/events?types=record.created,+accrual.credited&address=0x00000000000000000000000000000000000000AA", nil)
	f, err := ParseFilter(r)
	require.NoError(t, err)
	assert.Equal(t, []EventType{EventRecordCreated, EventAccrualCredited}, f.Types)
	require.NotNil(t, f.Address)
	assert.Equal(t, "0x00000000000000000000000000000000000000aa", f.Address.String())

	_, err = ParseFilter(httptest.NewRequest(http.MethodGet, "/api/v1/events?address=nope", nil))
	assert.Error(t, err)
}

func TestHandler_RejectsBadFilter(t *testing.T) {
	m := startManager(t)
	h := NewHandler(m, logger.Discard().Logger)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/events?address=nope", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"VALIDATION"`)
	assert.Equal(t, 0, m.ClientCount())
}

func TestHandler_StreamsEvents(t *testing.T) {
	m := startManager(t)
	srv := httptest.NewServer(NewHandler(m, logger.Discard().Logger))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"?types=record.created", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	next := func() string {
		for lines.Scan() {
			if l := lines.Text(); l != "" {
				return l
			}
		}
		return ""
	}

	assert.Equal(t, "event: connected", next())
	assert.True(t, strings.HasPrefix(next(), "data: "))

	m.Emit(NewTagsAddedEvent(testRecord(), nil), NewRecordCreatedEvent(testRecord()))

	assert.Equal(t, "event: record.created", next())
	data := next()
	assert.Contains(t, data, `"record_type":"bookmark"`)
	assert.Contains(t, data, `"tagger":"0x1000000000000000000000000000000000000000"`)
}

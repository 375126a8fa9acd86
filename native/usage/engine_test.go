package usage

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"testing"
)

type mockState struct {
	records      map[uint64]*Record
	total        uint64
	promptIndex  map[string]uint64
	promptCounts map[uint64]uint64
	callerCounts map[[20]byte]uint64
}

func newMockState() *mockState {
	return &mockState{
		records:      make(map[uint64]*Record),
		promptIndex:  make(map[string]uint64),
		promptCounts: make(map[uint64]uint64),
		callerCounts: make(map[[20]byte]uint64),
	}
}

func indexKey(promptID, seq uint64) string {
	return fmt.Sprintf("%d/%d", promptID, seq)
}

func (m *mockState) UsageRecordGet(pos uint64) (*Record, bool, error) {
	record, ok := m.records[pos]
	if !ok {
		return nil, false, nil
	}
	return record.Clone(), true, nil
}

func (m *mockState) UsageRecordPut(pos uint64, record *Record) error {
	m.records[pos] = record.Clone()
	return nil
}

func (m *mockState) UsageTotal() (uint64, error) { return m.total, nil }

func (m *mockState) UsageTotalPut(total uint64) error {
	m.total = total
	return nil
}

func (m *mockState) UsagePromptIndexGet(promptID uint64, seq uint64) (uint64, bool, error) {
	pos, ok := m.promptIndex[indexKey(promptID, seq)]
	return pos, ok, nil
}

func (m *mockState) UsagePromptIndexPut(promptID uint64, seq uint64, pos uint64) error {
	m.promptIndex[indexKey(promptID, seq)] = pos
	return nil
}

func (m *mockState) UsagePromptCount(promptID uint64) (uint64, error) {
	return m.promptCounts[promptID], nil
}

func (m *mockState) UsagePromptCountPut(promptID uint64, count uint64) error {
	m.promptCounts[promptID] = count
	return nil
}

func (m *mockState) UsageCallerCount(addr [20]byte) (uint64, error) {
	return m.callerCounts[addr], nil
}

func (m *mockState) UsageCallerCountPut(addr [20]byte, count uint64) error {
	m.callerCounts[addr] = count
	return nil
}

type staticAuthorizer map[[20]byte]bool

func (a staticAuthorizer) IsAuthorized(resource string, identity [20]byte) (bool, error) {
	if resource != RecordersResource {
		return false, nil
	}
	return a[identity], nil
}

var (
	recorder = [20]byte{0x01}
	consumer = [20]byte{0x42}
)

func newTestEngine(t *testing.T) (*Engine, *mockState) {
	t.Helper()
	state := newMockState()
	engine := NewEngine()
	engine.SetState(state)
	engine.SetAuthorizer(staticAuthorizer{recorder: true})
	engine.SetNowFunc(func() int64 { return 1_700_000_000 })
	return engine, state
}

func TestRecordRequiresAuthorizedInvoker(t *testing.T) {
	engine, _ := newTestEngine(t)
	stranger := [20]byte{0x09}
	if _, err := engine.Record(stranger, 1, consumer, big.NewInt(10), "s"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
}

func TestRecordValidation(t *testing.T) {
	engine, _ := newTestEngine(t)
	if _, err := engine.Record(recorder, 0, consumer, big.NewInt(10), "s"); !errors.Is(err, ErrInvalidPromptID) {
		t.Fatalf("error = %v, want ErrInvalidPromptID", err)
	}
	if _, err := engine.Record(recorder, 1, [20]byte{}, big.NewInt(10), "s"); !errors.Is(err, ErrInvalidCaller) {
		t.Fatalf("error = %v, want ErrInvalidCaller", err)
	}
	if _, err := engine.Record(recorder, 1, consumer, big.NewInt(-1), "s"); !errors.Is(err, ErrInvalidFee) {
		t.Fatalf("error = %v, want ErrInvalidFee", err)
	}
}

func TestRecordNilFeeBecomesZero(t *testing.T) {
	engine, _ := newTestEngine(t)
	record, err := engine.Record(recorder, 1, consumer, nil, "s")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if record.Fee == nil || record.Fee.Sign() != 0 {
		t.Fatalf("fee = %v, want 0", record.Fee)
	}
}

func TestRecordUpdatesAllCounters(t *testing.T) {
	engine, state := newTestEngine(t)
	other := [20]byte{0x43}
	if _, err := engine.Record(recorder, 7, consumer, big.NewInt(5), "a"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := engine.Record(recorder, 7, other, big.NewInt(5), "b"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := engine.Record(recorder, 8, consumer, big.NewInt(5), "c"); err != nil {
		t.Fatalf("record: %v", err)
	}

	if state.total != 3 {
		t.Fatalf("global total = %d, want 3", state.total)
	}
	if state.promptCounts[7] != 2 || state.promptCounts[8] != 1 {
		t.Fatalf("prompt counts = %d/%d, want 2/1", state.promptCounts[7], state.promptCounts[8])
	}
	if state.callerCounts[consumer] != 2 || state.callerCounts[other] != 1 {
		t.Fatalf("caller counts = %d/%d, want 2/1", state.callerCounts[consumer], state.callerCounts[other])
	}
}

func TestRecordsPagination(t *testing.T) {
	engine, _ := newTestEngine(t)
	for i := 0; i < 5; i++ {
		sessionID := fmt.Sprintf("session-%d", i)
		if _, err := engine.Record(recorder, 7, consumer, big.NewInt(int64(i)), sessionID); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	page, err := engine.Records(7, 0, 3)
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("page length = %d, want 3", len(page))
	}
	for i, record := range page {
		want := fmt.Sprintf("session-%d", i)
		if record.SessionID != want {
			t.Fatalf("record %d session = %q, want %q", i, record.SessionID, want)
		}
	}

	// Offset beyond the log yields an empty page rather than an error.
	page, err = engine.Records(7, 10, 5)
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(page) != 0 {
		t.Fatalf("page length = %d, want 0", len(page))
	}

	// Limit past the end truncates to the available tail.
	page, err = engine.Records(7, 3, 10)
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page length = %d, want 2", len(page))
	}
	if page[0].SessionID != "session-3" || page[1].SessionID != "session-4" {
		t.Fatalf("tail page out of order: %q, %q", page[0].SessionID, page[1].SessionID)
	}

	// Zero limit is an empty page.
	page, err = engine.Records(7, 0, 0)
	if err != nil || len(page) != 0 {
		t.Fatalf("zero limit: len=%d err=%v", len(page), err)
	}

	// The maximum limit truncates like any other oversized limit; the
	// offset+limit arithmetic must not wrap.
	page, err = engine.Records(7, 3, math.MaxUint64)
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page length = %d, want 2", len(page))
	}
	page, err = engine.Records(7, 0, math.MaxUint64)
	if err != nil || len(page) != 5 {
		t.Fatalf("max limit from start: len=%d err=%v", len(page), err)
	}
}

func TestRecordsUnknownPromptEmpty(t *testing.T) {
	engine, _ := newTestEngine(t)
	page, err := engine.Records(99, 0, 10)
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(page) != 0 {
		t.Fatalf("page length = %d, want 0", len(page))
	}
}

func TestQueryTotals(t *testing.T) {
	engine, _ := newTestEngine(t)
	if _, err := engine.Record(recorder, 7, consumer, big.NewInt(1), ""); err != nil {
		t.Fatalf("record: %v", err)
	}
	count, err := engine.PromptUsageCount(7)
	if err != nil || count != 1 {
		t.Fatalf("prompt count = %d err=%v", count, err)
	}
	calls, err := engine.CallerTotalCalls(consumer)
	if err != nil || calls != 1 {
		t.Fatalf("caller calls = %d err=%v", calls, err)
	}
	total, err := engine.TotalRecords()
	if err != nil || total != 1 {
		t.Fatalf("total = %d err=%v", total, err)
	}
}

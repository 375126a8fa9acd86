package usage

import (
	"encoding/hex"
	"errors"
	"math/big"
	"strconv"
	"strings"
	"time"

	"promptledger/core/events"
	"promptledger/core/types"
	nativecommon "promptledger/native/common"
)

var (
	// ErrNilState is returned when the engine has no state backend configured.
	ErrNilState = errors.New("usage ledger: state not configured")
	// ErrUnauthorized is returned when the invoking identity is not an authorized recorder.
	ErrUnauthorized = errors.New("usage ledger: caller not authorized")
	// ErrInvalidPromptID is returned when the prompt id is the zero sentinel.
	ErrInvalidPromptID = errors.New("usage ledger: invalid prompt ID")
	// ErrInvalidCaller is returned when the recorded caller is the zero identity.
	ErrInvalidCaller = errors.New("usage ledger: invalid caller address")
	// ErrInvalidFee is returned for negative fees.
	ErrInvalidFee = errors.New("usage ledger: negative fee")
)

const (
	moduleName = "usage"

	// RecordersResource names the allowlist gating ledger appends.
	RecordersResource = "usage.recorders"
)

type engineState interface {
	UsageRecordGet(pos uint64) (*Record, bool, error)
	UsageRecordPut(pos uint64, record *Record) error
	UsageTotal() (uint64, error)
	UsageTotalPut(total uint64) error
	UsagePromptIndexGet(promptID uint64, seq uint64) (uint64, bool, error)
	UsagePromptIndexPut(promptID uint64, seq uint64, pos uint64) error
	UsagePromptCount(promptID uint64) (uint64, error)
	UsagePromptCountPut(promptID uint64, count uint64) error
	UsageCallerCount(addr [20]byte) (uint64, error)
	UsageCallerCountPut(addr [20]byte, count uint64) error
}

type authorizer interface {
	IsAuthorized(resource string, identity [20]byte) (bool, error)
}

// Engine maintains the append-only usage log. It is deliberately decoupled
// from the prompt registry: records may reference ids the registry no longer
// (or never) tracks, as long as the id is non-zero.
type Engine struct {
	state   engineState
	auth    authorizer
	emitter events.Emitter
	nowFn   func() int64
	pauses  nativecommon.PauseView
}

// NewEngine constructs a usage ledger engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetAuthorizer configures the allowlist backend gating appends.
func (e *Engine) SetAuthorizer(auth authorizer) { e.auth = auth }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetPauses configures the pause switchboard consulted before mutations.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(WrapEvent(evt))
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}

// Record appends a usage entry. The invoking identity must be on the
// recorders allowlist; the recorded caller is the end user the invocation is
// attributed to.
func (e *Engine) Record(invoker [20]byte, promptID uint64, caller [20]byte, fee *big.Int, sessionID string) (*Record, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if e.auth == nil {
		return nil, ErrUnauthorized
	}
	if ok, err := e.auth.IsAuthorized(RecordersResource, invoker); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrUnauthorized
	}
	if promptID == 0 {
		return nil, ErrInvalidPromptID
	}
	if isZeroAddress(caller) {
		return nil, ErrInvalidCaller
	}
	if fee == nil {
		fee = big.NewInt(0)
	}
	if fee.Sign() < 0 {
		return nil, ErrInvalidFee
	}
	record := &Record{
		PromptID:  promptID,
		Caller:    caller,
		Fee:       new(big.Int).Set(fee),
		Timestamp: e.now(),
		SessionID: strings.TrimSpace(sessionID),
	}
	total, err := e.state.UsageTotal()
	if err != nil {
		return nil, err
	}
	if err := e.state.UsageRecordPut(total, record); err != nil {
		return nil, err
	}
	if err := e.state.UsageTotalPut(total + 1); err != nil {
		return nil, err
	}
	seq, err := e.state.UsagePromptCount(promptID)
	if err != nil {
		return nil, err
	}
	if err := e.state.UsagePromptIndexPut(promptID, seq, total); err != nil {
		return nil, err
	}
	if err := e.state.UsagePromptCountPut(promptID, seq+1); err != nil {
		return nil, err
	}
	callerTotal, err := e.state.UsageCallerCount(caller)
	if err != nil {
		return nil, err
	}
	if err := e.state.UsageCallerCountPut(caller, callerTotal+1); err != nil {
		return nil, err
	}
	e.emit(RecordedEvent(
		strconv.FormatUint(promptID, 10),
		hexAddr(caller),
		record.Fee.String(),
		strconv.FormatInt(record.Timestamp, 10),
		record.SessionID,
	))
	return record.Clone(), nil
}

// Records returns a page of the per-prompt log in insertion order. An offset
// beyond the log yields an empty page; a limit past the end is truncated to
// the available tail.
func (e *Engine) Records(promptID uint64, offset uint64, limit uint64) ([]*Record, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	count, err := e.state.UsagePromptCount(promptID)
	if err != nil {
		return nil, err
	}
	if offset >= count || limit == 0 {
		return []*Record{}, nil
	}
	// Clamp against the remaining tail before computing the end position so a
	// huge limit cannot wrap the addition.
	if remaining := count - offset; limit > remaining {
		limit = remaining
	}
	end := offset + limit
	out := make([]*Record, 0, limit)
	for seq := offset; seq < end; seq++ {
		pos, ok, err := e.state.UsagePromptIndexGet(promptID, seq)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		record, ok, err := e.state.UsageRecordGet(pos)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out = append(out, record.Clone())
	}
	return out, nil
}

// PromptUsageCount returns the number of records attributed to the prompt.
func (e *Engine) PromptUsageCount(promptID uint64) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, ErrNilState
	}
	return e.state.UsagePromptCount(promptID)
}

// CallerTotalCalls returns the number of records attributed to the caller.
func (e *Engine) CallerTotalCalls(addr [20]byte) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, ErrNilState
	}
	return e.state.UsageCallerCount(addr)
}

// TotalRecords returns the global length of the ledger.
func (e *Engine) TotalRecords() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, ErrNilState
	}
	return e.state.UsageTotal()
}

package prompt

import (
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"promptledger/core/events"
	"promptledger/core/types"
	nativecommon "promptledger/native/common"
	"promptledger/native/creator"
)

var (
	// ErrNilState is returned when the engine has no state backend configured.
	ErrNilState = errors.New("prompt registry: state not configured")
	// ErrDuplicatePrompt is returned when the content hash is already minted.
	ErrDuplicatePrompt = errors.New("prompt registry: prompt already exists")
	// ErrInvalidRoyalty is returned when the royalty exceeds 10000 basis points.
	ErrInvalidRoyalty = errors.New("prompt registry: invalid royalty ratio")
	// ErrEmptyMetadata is returned when the metadata URI is empty.
	ErrEmptyMetadata = errors.New("prompt registry: empty metadata URI")
	// ErrNotFound is returned when the asset id does not exist.
	ErrNotFound = errors.New("prompt registry: prompt does not exist")
)

const (
	moduleName = "prompt"

	maxRoyaltyBps = 10_000
)

type engineState interface {
	PromptGet(id uint64) (*Asset, bool, error)
	PromptPut(asset *Asset) error
	PromptHashLookup(hash [32]byte) (uint64, bool, error)
	PromptHashIndex(hash [32]byte, id uint64) error
	PromptCount() (uint64, error)
	PromptCountPut(count uint64) error
}

// creatorStats is the slice of the creator registry the prompt registry
// pushes aggregate counters into. Calls are made with the module identity,
// which the node enrolls as an authorized updater at genesis.
type creatorStats interface {
	IncrementPrompts(caller [20]byte, target [20]byte) error
	IncrementUsage(caller [20]byte, target [20]byte) error
}

// Engine owns the content-addressed asset catalogue: minting with hash
// deduplication, per-asset usage totals and metadata lookups.
type Engine struct {
	state      engineState
	stats      creatorStats
	emitter    events.Emitter
	nowFn      func() int64
	moduleAddr [20]byte
	pauses     nativecommon.PauseView
}

// NewEngine constructs a prompt registry engine with default dependencies.
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

// SetCreatorStats wires the creator registry counters updated on mint/usage.
func (e *Engine) SetCreatorStats(stats creatorStats) { e.stats = stats }

// SetModuleAddress configures the identity the engine uses when pushing
// counters into the creator registry.
func (e *Engine) SetModuleAddress(addr [20]byte) { e.moduleAddr = addr }

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

func hexHash(hash [32]byte) string {
	return "0x" + hex.EncodeToString(hash[:])
}

// Mint registers a new prompt asset and assigns the next sequential id.
// Registration with the creator registry is not a prerequisite: when the
// creator has no profile the stats push is skipped and the mint still
// succeeds.
func (e *Engine) Mint(caller [20]byte, contentHash [32]byte, modelType string, royaltyBps uint32, metadataURI string) (*Asset, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if royaltyBps > maxRoyaltyBps {
		return nil, ErrInvalidRoyalty
	}
	trimmedURI := strings.TrimSpace(metadataURI)
	if trimmedURI == "" {
		return nil, ErrEmptyMetadata
	}
	if _, ok, err := e.state.PromptHashLookup(contentHash); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrDuplicatePrompt
	}
	count, err := e.state.PromptCount()
	if err != nil {
		return nil, err
	}
	asset := &Asset{
		ID:          count + 1,
		ContentHash: contentHash,
		ModelType:   strings.TrimSpace(modelType),
		Creator:     caller,
		RoyaltyBps:  royaltyBps,
		MetadataURI: trimmedURI,
		CreatedAt:   e.now(),
	}
	if err := e.state.PromptPut(asset); err != nil {
		return nil, err
	}
	if err := e.state.PromptHashIndex(contentHash, asset.ID); err != nil {
		return nil, err
	}
	if err := e.state.PromptCountPut(asset.ID); err != nil {
		return nil, err
	}
	if e.stats != nil {
		if err := e.stats.IncrementPrompts(e.moduleAddr, caller); err != nil && !errors.Is(err, creator.ErrNotRegistered) {
			return nil, err
		}
	}
	e.emit(MintedEvent(strconv.FormatUint(asset.ID, 10), hexAddr(caller), hexHash(contentHash), asset.ModelType, trimmedURI))
	return asset.Clone(), nil
}

// RecordUsage bumps the running usage total of an asset. Full per-session
// detail lives in the usage ledger; the registry only keeps the counter.
func (e *Engine) RecordUsage(id uint64, caller [20]byte) (*Asset, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	asset, ok, err := e.state.PromptGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	asset.UsageCount++
	if err := e.state.PromptPut(asset); err != nil {
		return nil, err
	}
	if e.stats != nil {
		if err := e.stats.IncrementUsage(e.moduleAddr, asset.Creator); err != nil && !errors.Is(err, creator.ErrNotRegistered) {
			return nil, err
		}
	}
	e.emit(UsedEvent(strconv.FormatUint(id, 10), hexAddr(caller), strconv.FormatInt(e.now(), 10)))
	return asset.Clone(), nil
}

// Get returns the stored asset for the id without mutating state.
func (e *Engine) Get(id uint64) (*Asset, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, ErrNilState
	}
	asset, ok, err := e.state.PromptGet(id)
	if err != nil || !ok {
		return nil, false, err
	}
	return asset.Clone(), true, nil
}

// URI returns the metadata reference of the asset.
func (e *Engine) URI(id uint64) (string, error) {
	asset, ok, err := e.Get(id)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotFound
	}
	return asset.MetadataURI, nil
}

// TotalPrompts returns the number of minted assets.
func (e *Engine) TotalPrompts() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, ErrNilState
	}
	return e.state.PromptCount()
}

package creator

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
	ErrNilState = errors.New("creator registry: state not configured")
	// ErrAlreadyRegistered is returned when an identity registers twice.
	ErrAlreadyRegistered = errors.New("creator registry: already registered")
	// ErrUsernameTaken is returned when the username collides with an existing profile.
	ErrUsernameTaken = errors.New("creator registry: username taken")
	// ErrEmptyUsername is returned when the username is empty.
	ErrEmptyUsername = errors.New("creator registry: username cannot be empty")
	// ErrNotRegistered is returned when the target identity has no profile.
	ErrNotRegistered = errors.New("creator registry: not registered")
	// ErrUnauthorized is returned when the caller is not an authorized updater.
	ErrUnauthorized = errors.New("creator registry: caller not authorized")
	// ErrNotAdmin is returned when a non-admin invokes an admin-only operation.
	ErrNotAdmin = errors.New("creator registry: caller is not the registry admin")
	// ErrInvalidEarnings is returned for nil or negative earnings amounts.
	ErrInvalidEarnings = errors.New("creator registry: earnings amount invalid")
)

const (
	moduleName = "creator"

	// UpdatersResource names the allowlist gating the stats mutations.
	UpdatersResource = "creator.updaters"

	initialReputation = 100
)

type engineState interface {
	CreatorProfileGet(addr [20]byte) (*Profile, bool, error)
	CreatorProfilePut(profile *Profile) error
	CreatorUsernameLookup(username string) ([20]byte, bool, error)
	CreatorUsernameIndex(username string, addr [20]byte) error
	CreatorCount() (uint64, error)
	CreatorCountPut(count uint64) error
}

type authorizer interface {
	IsAuthorized(resource string, identity [20]byte) (bool, error)
}

// Engine owns creator profiles, their aggregate stats and reputation. The
// counter mutations are gated by the updaters allowlist; verification is
// reserved for the registry admin.
type Engine struct {
	state   engineState
	auth    authorizer
	emitter events.Emitter
	nowFn   func() int64
	admin   [20]byte
	pauses  nativecommon.PauseView
}

// NewEngine constructs a creator registry engine with default dependencies.
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

// SetAuthorizer configures the allowlist backend gating stats mutations.
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

// SetAdmin configures the registry admin identity.
func (e *Engine) SetAdmin(admin [20]byte) { e.admin = admin }

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

func formatInt(v int64) string { return strconv.FormatInt(v, 10) }

func formatUint(v uint64) string { return strconv.FormatUint(v, 10) }

func (e *Engine) requireUpdater(caller [20]byte) error {
	if caller == e.admin {
		return nil
	}
	if e.auth == nil {
		return ErrUnauthorized
	}
	ok, err := e.auth.IsAuthorized(UpdatersResource, caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

// Register creates a profile for the caller. The username must be unique
// (case-sensitive exact match) and non-empty; a given identity registers at
// most once.
func (e *Engine) Register(caller [20]byte, username string, profileURI string) (*Profile, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(username)
	if trimmed == "" {
		return nil, ErrEmptyUsername
	}
	if _, ok, err := e.state.CreatorProfileGet(caller); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAlreadyRegistered
	}
	if _, ok, err := e.state.CreatorUsernameLookup(trimmed); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrUsernameTaken
	}
	profile := &Profile{
		Address:         caller,
		Username:        trimmed,
		ProfileURI:      strings.TrimSpace(profileURI),
		TotalEarnings:   big.NewInt(0),
		ReputationScore: initialReputation,
		JoinedAt:        e.now(),
	}
	if err := e.state.CreatorProfilePut(profile); err != nil {
		return nil, err
	}
	if err := e.state.CreatorUsernameIndex(trimmed, caller); err != nil {
		return nil, err
	}
	count, err := e.state.CreatorCount()
	if err != nil {
		return nil, err
	}
	if err := e.state.CreatorCountPut(count + 1); err != nil {
		return nil, err
	}
	e.emit(RegisteredEvent(hexAddr(caller), trimmed, profile.JoinedAt))
	return profile.Clone(), nil
}

// UpdateProfile replaces the caller's profile URI.
func (e *Engine) UpdateProfile(caller [20]byte, profileURI string) (*Profile, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	profile, ok, err := e.state.CreatorProfileGet(caller)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotRegistered
	}
	profile.ProfileURI = strings.TrimSpace(profileURI)
	if err := e.state.CreatorProfilePut(profile); err != nil {
		return nil, err
	}
	e.emit(ProfileUpdatedEvent(hexAddr(caller), profile.ProfileURI))
	return profile.Clone(), nil
}

// IncrementPrompts bumps the target creator's minted-prompt counter. Gated by
// the updaters allowlist.
func (e *Engine) IncrementPrompts(caller [20]byte, target [20]byte) error {
	return e.mutateProfile(caller, target, func(p *Profile) {
		p.TotalPrompts++
	})
}

// IncrementUsage bumps the target creator's usage counter. Gated by the
// updaters allowlist.
func (e *Engine) IncrementUsage(caller [20]byte, target [20]byte) error {
	return e.mutateProfile(caller, target, func(p *Profile) {
		p.TotalUsage++
	})
}

// AddEarnings accumulates distributed revenue onto the target profile. Gated
// by the updaters allowlist; the accumulator never decreases.
func (e *Engine) AddEarnings(caller [20]byte, target [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidEarnings
	}
	return e.mutateProfile(caller, target, func(p *Profile) {
		if p.TotalEarnings == nil {
			p.TotalEarnings = big.NewInt(0)
		}
		p.TotalEarnings = new(big.Int).Add(p.TotalEarnings, amount)
	})
}

// UpdateReputation replaces the target creator's reputation score. Gated by
// the updaters allowlist.
func (e *Engine) UpdateReputation(caller [20]byte, target [20]byte, score uint64) error {
	if err := e.mutateProfile(caller, target, func(p *Profile) {
		p.ReputationScore = score
	}); err != nil {
		return err
	}
	e.emit(ReputationUpdatedEvent(hexAddr(target), score))
	return nil
}

func (e *Engine) mutateProfile(caller [20]byte, target [20]byte, mutate func(*Profile)) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.requireUpdater(caller); err != nil {
		return err
	}
	profile, ok, err := e.state.CreatorProfileGet(target)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotRegistered
	}
	mutate(profile)
	return e.state.CreatorProfilePut(profile)
}

// Verify marks the target creator as verified. Admin only.
func (e *Engine) Verify(caller [20]byte, target [20]byte) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if caller != e.admin {
		return ErrNotAdmin
	}
	profile, ok, err := e.state.CreatorProfileGet(target)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotRegistered
	}
	profile.Verified = true
	if err := e.state.CreatorProfilePut(profile); err != nil {
		return err
	}
	e.emit(VerifiedEvent(hexAddr(target)))
	return nil
}

// Profile returns the stored profile for the identity without mutating state.
func (e *Engine) Profile(addr [20]byte) (*Profile, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, ErrNilState
	}
	profile, ok, err := e.state.CreatorProfileGet(addr)
	if err != nil || !ok {
		return nil, false, err
	}
	return profile.Clone(), true, nil
}

// IsRegistered reports whether the identity has a profile.
func (e *Engine) IsRegistered(addr [20]byte) (bool, error) {
	_, ok, err := e.Profile(addr)
	return ok, err
}

// TotalCreators returns the number of registered creators.
func (e *Engine) TotalCreators() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, ErrNilState
	}
	return e.state.CreatorCount()
}

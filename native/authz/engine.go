package authz

import (
	"encoding/hex"
	"errors"

	"promptledger/core/events"
	"promptledger/core/types"
)

var (
	// ErrNilState is returned when the engine has no state backend configured.
	ErrNilState = errors.New("authz engine: state not configured")
	// ErrUnknownResource is returned when no allowlist exists for the resource.
	ErrUnknownResource = errors.New("authz engine: unknown resource")
	// ErrNotAdmin is returned when a non-admin attempts to mutate an allowlist.
	ErrNotAdmin = errors.New("authz engine: caller is not the resource admin")
	// ErrZeroAddress is returned when the zero identity is granted or revoked.
	ErrZeroAddress = errors.New("authz engine: zero address")
)

type engineState interface {
	AllowlistGet(resource string) (*Allowlist, bool, error)
	AllowlistPut(list *Allowlist) error
}

// Engine is the access-control primitive shared by the gated modules. It has
// no business semantics of its own: it only answers membership queries and
// lets each resource admin manage the member set.
type Engine struct {
	state   engineState
	emitter events.Emitter
}

// NewEngine constructs an authorization engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(WrapEvent(evt))
}

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

// Bootstrap creates the allowlist for a resource with the supplied admin. An
// existing allowlist is left untouched so restarts cannot reset membership.
func (e *Engine) Bootstrap(resource string, admin [20]byte) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if isZeroAddress(admin) {
		return ErrZeroAddress
	}
	if _, ok, err := e.state.AllowlistGet(resource); err != nil {
		return err
	} else if ok {
		return nil
	}
	return e.state.AllowlistPut(&Allowlist{Resource: resource, Admin: admin})
}

// Authorize grants privileged-caller status on the resource. Only the
// resource admin may grant.
func (e *Engine) Authorize(resource string, caller [20]byte, identity [20]byte) error {
	list, err := e.loadForAdmin(resource, caller)
	if err != nil {
		return err
	}
	if isZeroAddress(identity) {
		return ErrZeroAddress
	}
	list.Grant(identity)
	if err := e.state.AllowlistPut(list); err != nil {
		return err
	}
	e.emit(GrantedEvent(resource, hexAddr(identity)))
	return nil
}

// Revoke removes privileged-caller status on the resource. Only the resource
// admin may revoke.
func (e *Engine) Revoke(resource string, caller [20]byte, identity [20]byte) error {
	list, err := e.loadForAdmin(resource, caller)
	if err != nil {
		return err
	}
	list.Revoke(identity)
	if err := e.state.AllowlistPut(list); err != nil {
		return err
	}
	e.emit(RevokedEvent(resource, hexAddr(identity)))
	return nil
}

// IsAuthorized reports whether the identity may invoke privileged mutations
// on the resource. The resource admin is implicitly authorized. An unknown
// resource authorizes nobody.
func (e *Engine) IsAuthorized(resource string, identity [20]byte) (bool, error) {
	if e == nil || e.state == nil {
		return false, ErrNilState
	}
	list, ok, err := e.state.AllowlistGet(resource)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return list.Contains(identity), nil
}

// Admin returns the admin identity of the resource.
func (e *Engine) Admin(resource string) ([20]byte, error) {
	if e == nil || e.state == nil {
		return [20]byte{}, ErrNilState
	}
	list, ok, err := e.state.AllowlistGet(resource)
	if err != nil {
		return [20]byte{}, err
	}
	if !ok {
		return [20]byte{}, ErrUnknownResource
	}
	return list.Admin, nil
}

func (e *Engine) loadForAdmin(resource string, caller [20]byte) (*Allowlist, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	list, ok, err := e.state.AllowlistGet(resource)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnknownResource
	}
	if caller != list.Admin {
		return nil, ErrNotAdmin
	}
	return list, nil
}

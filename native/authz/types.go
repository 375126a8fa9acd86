package authz

import "encoding/hex"

// Allowlist is the per-resource set of identities permitted to invoke the
// privileged mutations of the module that owns the resource. The admin is
// implicitly a member and the only identity allowed to change the set.
type Allowlist struct {
	Resource string          `json:"resource"`
	Admin    [20]byte        `json:"admin"`
	Members  map[string]bool `json:"members,omitempty"`
}

func memberKey(addr [20]byte) string {
	return hex.EncodeToString(addr[:])
}

// Contains reports whether the identity may invoke privileged operations.
func (l *Allowlist) Contains(addr [20]byte) bool {
	if l == nil {
		return false
	}
	if addr == l.Admin {
		return true
	}
	return l.Members[memberKey(addr)]
}

// Grant marks the identity as an authorized member.
func (l *Allowlist) Grant(addr [20]byte) {
	if l.Members == nil {
		l.Members = make(map[string]bool)
	}
	l.Members[memberKey(addr)] = true
}

// Revoke removes the identity from the member set. The admin cannot be revoked.
func (l *Allowlist) Revoke(addr [20]byte) {
	delete(l.Members, memberKey(addr))
}

// Clone returns a deep copy of the allowlist.
func (l *Allowlist) Clone() *Allowlist {
	if l == nil {
		return nil
	}
	clone := &Allowlist{Resource: l.Resource, Admin: l.Admin}
	if len(l.Members) > 0 {
		clone.Members = make(map[string]bool, len(l.Members))
		for k, v := range l.Members {
			clone.Members[k] = v
		}
	}
	return clone
}

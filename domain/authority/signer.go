package authority

import (
	"github.com/x-xyz/cloutledger/domain"
)

// Signer is the capability to act for one derived identity.
type Signer struct {
	program domain.Address
	role    Role
	address domain.Address
}

func NewSigner(program domain.Address, role Role, seeds ...[]byte) Signer {
	return Signer{
		program: program,
		role:    role,
		address: Derive(program, role, seeds...),
	}
}

func (s Signer) Address() domain.Address {
	return s.address
}

func (s Signer) Program() domain.Address {
	return s.program
}

func (s Signer) Role() Role {
	return s.role
}

// Authorizes reports whether addr is the identity this capability acts for.
func (s Signer) Authorizes(addr domain.Address) bool {
	return !s.address.IsEmpty() && s.address.Equals(addr)
}

// Verify fails with onMismatch if supplied is not the derived identity.
func (s Signer) Verify(supplied domain.Address, onMismatch error) error {
	if !s.Authorizes(supplied) {
		return onMismatch
	}
	return nil
}

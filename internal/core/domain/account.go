package domain

import "fmt"

// AccountKind identifies one of the three accounts held by a wallet.
type AccountKind string

const (
	AccountKindMonetary AccountKind = "monetary"
	AccountKindSavings  AccountKind = "savings"
	AccountKindForeign  AccountKind = "foreign"
)

// AccountKinds lists every valid kind, in the order accounts appear on a wallet.
func AccountKinds() []AccountKind {
	return []AccountKind{AccountKindMonetary, AccountKindSavings, AccountKindForeign}
}

// ParseAccountKind validates a string against the closed kind enumeration.
func ParseAccountKind(s string) (AccountKind, error) {
	switch AccountKind(s) {
	case AccountKindMonetary:
		return AccountKindMonetary, nil
	case AccountKindSavings:
		return AccountKindSavings, nil
	case AccountKindForeign:
		return AccountKindForeign, nil
	default:
		return "", fmt.Errorf("unknown account kind %q", s)
	}
}

// Valid reports whether the kind is a member of the closed enumeration.
func (k AccountKind) Valid() bool {
	switch k {
	case AccountKindMonetary, AccountKindSavings, AccountKindForeign:
		return true
	}
	return false
}

// ChecksumTarget returns the rejection-sampling target used by the account
// number generator for this kind: digits x, y, z must satisfy (x+z)*y == target.
func (k AccountKind) ChecksumTarget() int {
	switch k {
	case AccountKindMonetary:
		return 30
	case AccountKindSavings:
		return 36
	case AccountKindForeign:
		return 42
	}
	return 0
}

// Currency maps the kind to an ISO currency code. Monetary and savings
// accounts are denominated in the home currency, the foreign account in the
// configured foreign currency.
func (k AccountKind) Currency(home, foreign string) string {
	if k == AccountKindForeign {
		return foreign
	}
	return home
}

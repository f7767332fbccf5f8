package ptr

import "github.com/x-xyz/cloutledger/domain"

// String return a pointer to the input value
func String(value string) *string {
	return &value
}

// Int32 return a pointer to the input value
func Int32(value int32) *int32 {
	return &value
}

// Int64 return a pointer to the input value
func Int64(value int64) *int64 {
	return &value
}

// Bool return a pointer to the input value
func Bool(value bool) *bool {
	return &value
}

// Address return a pointer to the lower-cased input value
func Address(value domain.Address) *domain.Address {
	value = value.ToLower()
	return &value
}

// Timestamp return a pointer to the input value
func Timestamp(value domain.Timestamp) *domain.Timestamp {
	return &value
}

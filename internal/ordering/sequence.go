// Package ordering names containers so that a plain lexicographic sort of
// their external names restores creation order.
package ordering

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/jaywantadh/PixelVault/internal/fault"
)

// Index is the position of a container within its group, starting at 0.
type Index uint64

// Digits is the fixed width of the decimal index in a name.
const Digits = 10

// MaxIndex is the largest index a name can carry.
const MaxIndex Index = 9_999_999_999

// Suffix follows the index in every container name.
const Suffix = ".docx"

var (
	errMissing   = errors.New("container missing from group")
	errDuplicate = errors.New("container listed more than once")
)

// NameFor returns the external name of the container at index i.
func NameFor(i Index) (string, error) {
	if i > MaxIndex {
		return "", fault.Configurationf("sequence index %d exceeds %d", uint64(i), uint64(MaxIndex))
	}
	return fmt.Sprintf("%0*d%s", Digits, uint64(i), Suffix), nil
}

// ParseIndex is the inverse of NameFor. Any name NameFor cannot produce is
// rejected.
func ParseIndex(name string) (Index, error) {
	if len(name) != Digits+len(Suffix) || name[Digits:] != Suffix {
		return 0, &fault.InvalidNameError{Name: name}
	}
	digits := name[:Digits]
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, &fault.InvalidNameError{Name: name}
		}
	}
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, &fault.InvalidNameError{Name: name}
	}
	return Index(n), nil
}

// Entry pairs a listed item with its parsed index.
type Entry[T any] struct {
	Index Index
	Name  string
	Item  T
}

// Sort parses every item's name and orders the items by index. Listing
// order is never trusted.
func Sort[T any](items []T, nameOf func(T) string) ([]Entry[T], error) {
	entries := make([]Entry[T], 0, len(items))
	for _, item := range items {
		name := nameOf(item)
		idx, err := ParseIndex(name)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry[T]{Index: idx, Name: name, Item: item})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Index < entries[j].Index
	})
	return entries, nil
}

// Contiguous checks that sorted entries hold exactly the indices 0..want-1.
func Contiguous[T any](entries []Entry[T], want int) error {
	for i, e := range entries {
		if i > 0 && entries[i-1].Index == e.Index {
			return fault.Corrupt(e.Name, errDuplicate)
		}
		if e.Index != Index(i) {
			missing, _ := NameFor(Index(i))
			return fault.Corrupt(missing, errMissing)
		}
	}
	if len(entries) < want {
		missing, _ := NameFor(Index(len(entries)))
		return fault.Corrupt(missing, errMissing)
	}
	if len(entries) > want {
		return fault.Corrupt(entries[want].Name, fmt.Errorf("group holds %d containers, expected %d", len(entries), want))
	}
	return nil
}

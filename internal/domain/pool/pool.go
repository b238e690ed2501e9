// Package pool enumerates the slot ids of a cohort.
//
// A slot id is the composite key (cohort, pool size, sequence) rendered as
// "<cohort>.<poolSize>.<seq>", e.g. "2.10.001". The universe of ids for a
// cohort is a pure function of the cohort and its pool size, so values from
// this package are immutable and safe to share.
package pool

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxPoolSize caps the number of slots a cohort may hold.
const MaxPoolSize = 10_000

// minSeqWidth is the zero-padding applied to sequence numbers.
const minSeqWidth = 3

// Sentinel kinds for pool errors.
var (
	ErrInvalidSlotID = errors.New("invalid slot id")
	ErrInvalidPool   = errors.New("invalid pool")
)

// Address is the parsed form of a slot id.
type Address struct {
	Cohort   int
	PoolSize int
	Seq      int
}

// String renders the address as a slot id.
func (a Address) String() string {
	return SlotID(a.Cohort, a.PoolSize, a.Seq)
}

// Validate checks that a cohort and pool size can form a pool.
func Validate(cohort, total int) error {
	switch {
	case cohort < 1:
		return fmt.Errorf("%w: cohort must be >= 1, got %d", ErrInvalidPool, cohort)
	case total < 1:
		return fmt.Errorf("%w: pool size must be >= 1, got %d", ErrInvalidPool, total)
	case total > MaxPoolSize:
		return fmt.Errorf("%w: pool size must be <= %d, got %d", ErrInvalidPool, MaxPoolSize, total)
	}
	return nil
}

// SlotID renders the id of slot seq in a cohort of poolSize slots.
func SlotID(cohort, poolSize, seq int) string {
	return fmt.Sprintf("%d.%d.%0*d", cohort, poolSize, seqWidth(poolSize), seq)
}

// IDs returns the ordered slot ids 1..total of a cohort.
func IDs(cohort, total int) []string {
	if total < 1 {
		return nil
	}
	ids := make([]string, total)
	for i := range ids {
		ids[i] = SlotID(cohort, total, i+1)
	}
	return ids
}

// Parse is the inverse of SlotID.
func Parse(id string) (Address, error) {
	parts := strings.Split(id, ".")
	if len(parts) != 3 {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidSlotID, id)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			return Address{}, fmt.Errorf("%w: %q", ErrInvalidSlotID, id)
		}
		nums[i] = n
	}
	a := Address{Cohort: nums[0], PoolSize: nums[1], Seq: nums[2]}
	if a.Seq > a.PoolSize || len(parts[2]) != seqWidth(a.PoolSize) {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidSlotID, id)
	}
	return a, nil
}

// Seq returns the sequence number of id, or 0 if id is malformed.
func Seq(id string) int {
	a, err := Parse(id)
	if err != nil {
		return 0
	}
	return a.Seq
}

func seqWidth(poolSize int) int {
	if w := len(strconv.Itoa(poolSize)); w > minSeqWidth {
		return w
	}
	return minSeqWidth
}

package scd

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jpurrutia/customer-analytics/internal/domain"
)

// ErrIntegrity marks a dimension state that violates the SCD2
// invariants. It is a correctness bug in the historian, so runs must
// abort before publishing anything.
var ErrIntegrity = errors.New("dimension integrity violation")

// Check validates the SCD2 invariants over a full dimension state:
// exactly one current version per customer, unique surrogate keys,
// and contiguous non-overlapping validity intervals (each closed
// version's valid_to equals the next version's valid_from; only the
// final version is open). Returns nil when the dimension is clean.
func Check(versions []domain.CustomerVersion) error {
	byCustomer := make(map[string][]domain.CustomerVersion)
	keys := make(map[string]string, len(versions))
	for _, v := range versions {
		if prev, dup := keys[v.CustomerKey]; dup {
			return fmt.Errorf("%w: surrogate key %s shared by customers %s and %s",
				ErrIntegrity, v.CustomerKey, prev, v.CustomerID)
		}
		keys[v.CustomerKey] = v.CustomerID
		byCustomer[v.CustomerID] = append(byCustomer[v.CustomerID], v)
	}

	for customerID, vs := range byCustomer {
		sort.Slice(vs, func(i, j int) bool { return vs[i].ValidFrom.Before(vs[j].ValidFrom) })

		currentCount := 0
		for _, v := range vs {
			if v.IsCurrent {
				currentCount++
			}
		}
		if currentCount != 1 {
			return fmt.Errorf("%w: customer %s has %d current versions, want exactly 1",
				ErrIntegrity, customerID, currentCount)
		}

		for i, v := range vs {
			last := i == len(vs)-1
			if last {
				if v.ValidTo != nil {
					return fmt.Errorf("%w: customer %s final version is closed (valid_to %s)",
						ErrIntegrity, customerID, v.ValidTo.Format("2006-01-02"))
				}
				if !v.IsCurrent {
					return fmt.Errorf("%w: customer %s open version is not flagged current", ErrIntegrity, customerID)
				}
				continue
			}
			if v.IsCurrent {
				return fmt.Errorf("%w: customer %s has a current version before the latest", ErrIntegrity, customerID)
			}
			if v.ValidTo == nil {
				return fmt.Errorf("%w: customer %s has an open version that is not the latest", ErrIntegrity, customerID)
			}
			next := vs[i+1]
			if !v.ValidTo.Equal(next.ValidFrom) {
				return fmt.Errorf("%w: customer %s has a gap or overlap between %s and %s",
					ErrIntegrity, customerID, v.ValidTo.Format("2006-01-02"), next.ValidFrom.Format("2006-01-02"))
			}
		}
	}
	return nil
}

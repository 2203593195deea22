// Package scd maintains the historized customer dimension (slowly
// changing dimension, type 2): one open version per customer plus a
// contiguous, non-overlapping version history.
package scd

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/jpurrutia/customer-analytics/internal/domain"
)

// Stats summarizes what a historian run changed.
type Stats struct {
	NewCustomers   int64
	VersionsOpened int64
	Type1Updates   int64
	Unchanged      int64
}

// Apply folds a load cycle's customer snapshots into the existing
// versioned dimension and returns the full next dimension state.
//
// Per snapshot: an unseen customer gets an initial open version; a
// change in a tracked attribute closes the current version at the
// snapshot's effective date and opens a new one at that same date;
// otherwise type-1 attributes are refreshed in place. Customers with
// no snapshot this cycle are carried over untouched. The input slices
// are not mutated.
func Apply(existing []domain.CustomerVersion, snapshots []domain.CustomerSnapshot, now time.Time) ([]domain.CustomerVersion, Stats) {
	byCustomer := make(map[string][]domain.CustomerVersion)
	order := make([]string, 0)
	for _, v := range existing {
		if _, seen := byCustomer[v.CustomerID]; !seen {
			order = append(order, v.CustomerID)
		}
		byCustomer[v.CustomerID] = append(byCustomer[v.CustomerID], v)
	}
	for id := range byCustomer {
		vs := byCustomer[id]
		sort.Slice(vs, func(i, j int) bool { return vs[i].ValidFrom.Before(vs[j].ValidFrom) })
	}

	var stats Stats
	for _, snap := range snapshots {
		versions, seen := byCustomer[snap.CustomerID]
		if !seen {
			byCustomer[snap.CustomerID] = []domain.CustomerVersion{openVersion(snap, snap.EffectiveDate, now)}
			order = append(order, snap.CustomerID)
			stats.NewCustomers++
			continue
		}

		cur := len(versions) - 1
		if versions[cur].TrackedAttributesEqual(snap) {
			if updated, changed := refreshType1(versions[cur], snap, now); changed {
				versions[cur] = updated
				stats.Type1Updates++
			} else {
				stats.Unchanged++
			}
			byCustomer[snap.CustomerID] = versions
			continue
		}

		// Tracked attribute changed: close the open version and open a
		// new one at the snapshot's effective date.
		effective := snap.EffectiveDate
		if !effective.After(versions[cur].ValidFrom) {
			// An effective date at or before the open version's start
			// would leave a zero-length interval. The open version is
			// superseded at its own start, so replace it in place.
			versions[cur] = openVersion(snap, versions[cur].ValidFrom, now)
			byCustomer[snap.CustomerID] = versions
			stats.VersionsOpened++
			continue
		}
		closed := versions[cur]
		closedAt := effective
		closed.ValidTo = &closedAt
		closed.IsCurrent = false
		closed.UpdatedAt = now
		versions[cur] = closed
		versions = append(versions, openVersion(snap, effective, now))
		byCustomer[snap.CustomerID] = versions
		stats.VersionsOpened++
	}

	sort.Strings(order)
	out := make([]domain.CustomerVersion, 0, len(existing)+len(snapshots))
	for _, id := range order {
		out = append(out, byCustomer[id]...)
	}
	return out, stats
}

func openVersion(snap domain.CustomerSnapshot, validFrom, now time.Time) domain.CustomerVersion {
	return domain.CustomerVersion{
		CustomerKey:      SurrogateKey(snap.CustomerID, validFrom),
		CustomerID:       snap.CustomerID,
		FirstName:        snap.FirstName,
		LastName:         snap.LastName,
		Email:            snap.Email,
		Age:              snap.Age,
		State:            snap.State,
		CardType:         snap.CardType,
		CreditLimit:      snap.CreditLimit,
		EmploymentStatus: snap.EmploymentStatus,
		AccountOpenDate:  snap.AccountOpenDate,
		ValidFrom:        validFrom.UTC(),
		ValidTo:          nil,
		IsCurrent:        true,
		UpdatedAt:        now,
	}
}

func refreshType1(v domain.CustomerVersion, snap domain.CustomerSnapshot, now time.Time) (domain.CustomerVersion, bool) {
	changed := v.FirstName != snap.FirstName ||
		v.LastName != snap.LastName ||
		v.Email != snap.Email ||
		v.Age != snap.Age ||
		!v.AccountOpenDate.Equal(snap.AccountOpenDate)
	if !changed {
		return v, false
	}
	v.FirstName = snap.FirstName
	v.LastName = snap.LastName
	v.Email = snap.Email
	v.Age = snap.Age
	v.AccountOpenDate = snap.AccountOpenDate
	v.UpdatedAt = now
	return v, true
}

// SurrogateKey derives the deterministic version key from the natural
// key and the validity start, so reruns over identical input produce
// identical keys.
func SurrogateKey(customerID string, validFrom time.Time) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s|%s", customerID, validFrom.UTC().Format(time.RFC3339))))
	return hex.EncodeToString(sum[:])
}

// CurrentVersions filters a dimension down to its open versions,
// keyed by customer id.
func CurrentVersions(versions []domain.CustomerVersion) map[string]domain.CustomerVersion {
	out := make(map[string]domain.CustomerVersion)
	for _, v := range versions {
		if v.IsCurrent {
			out[v.CustomerID] = v
		}
	}
	return out
}

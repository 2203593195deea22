package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/jpurrutia/customer-analytics/internal/domain"
)

type customerVersionRow struct {
	CustomerKey      string                 `bigquery:"customer_key"` // REQUIRED, surrogate
	CustomerID       string                 `bigquery:"customer_id"`  // REQUIRED
	FirstName        string                 `bigquery:"first_name"`
	LastName         string                 `bigquery:"last_name"`
	Email            string                 `bigquery:"email"`
	Age              int64                  `bigquery:"age"`
	State            string                 `bigquery:"state"`
	CardType         string                 `bigquery:"card_type"`
	CreditLimit      float64                `bigquery:"credit_limit"`
	EmploymentStatus string                 `bigquery:"employment_status"`
	AccountOpenDate  bigquery.NullDate      `bigquery:"account_open_date"` // DATE, NULLABLE
	ValidFrom        time.Time              `bigquery:"valid_from"`
	ValidTo          bigquery.NullTimestamp `bigquery:"valid_to"` // NULL for the open version
	IsCurrent        bool                   `bigquery:"is_current"`
	UpdatedAt        time.Time              `bigquery:"updated_at"`
}

func customerVersionFromDomain(v domain.CustomerVersion) *customerVersionRow {
	row := &customerVersionRow{
		CustomerKey:      v.CustomerKey,
		CustomerID:       v.CustomerID,
		FirstName:        v.FirstName,
		LastName:         v.LastName,
		Email:            v.Email,
		Age:              int64(v.Age),
		State:            v.State,
		CardType:         v.CardType,
		CreditLimit:      v.CreditLimit,
		EmploymentStatus: v.EmploymentStatus,
		AccountOpenDate:  nullDateOf(v.AccountOpenDate),
		ValidFrom:        v.ValidFrom,
		IsCurrent:        v.IsCurrent,
		UpdatedAt:        v.UpdatedAt,
	}
	if v.ValidTo != nil {
		row.ValidTo = bigquery.NullTimestamp{Timestamp: *v.ValidTo, Valid: true}
	}
	return row
}

func (r *customerVersionRow) toDomain() domain.CustomerVersion {
	v := domain.CustomerVersion{
		CustomerKey:      r.CustomerKey,
		CustomerID:       r.CustomerID,
		FirstName:        r.FirstName,
		LastName:         r.LastName,
		Email:            r.Email,
		Age:              int(r.Age),
		State:            r.State,
		CardType:         r.CardType,
		CreditLimit:      r.CreditLimit,
		EmploymentStatus: r.EmploymentStatus,
		AccountOpenDate:  timeOfNullDate(r.AccountOpenDate),
		ValidFrom:        r.ValidFrom,
		IsCurrent:        r.IsCurrent,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.ValidTo.Valid {
		t := r.ValidTo.Timestamp
		v.ValidTo = &t
	}
	return v
}

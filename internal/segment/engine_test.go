package segment

import (
	"testing"
	"time"

	"github.com/jpurrutia/customer-analytics/internal/domain"
)

var assignedAt = time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

// scored returns an aggregate that matches only the catch-all rule.
func scored() domain.CustomerAggregate {
	return domain.CustomerAggregate{
		CustomerID:       "c1",
		TransactionCount: 50,
		AvgMonthlySpend:  2500,
		SpendChangePct:   0,
		TenureMonths:     24,
	}
}

func TestAssignSegments(t *testing.T) {
	engine := NewEngine(Rules(DefaultThresholds()))

	tests := []struct {
		name   string
		mutate func(*domain.CustomerAggregate)
		want   string
	}{
		{
			name:   "below minimum transactions",
			mutate: func(a *domain.CustomerAggregate) { a.TransactionCount = 2 },
			want:   domain.SegmentNotYetScored,
		},
		{
			name: "high value traveler",
			mutate: func(a *domain.CustomerAggregate) {
				a.AvgMonthlySpend = 5000
				a.TravelSpendPct = 25
			},
			want: domain.SegmentHighValueTraveler,
		},
		{
			name: "declining",
			mutate: func(a *domain.CustomerAggregate) {
				a.SpendChangePct = -30
				a.SpendPrior90Days = 2000
			},
			want: domain.SegmentDeclining,
		},
		{
			name: "declining needs prior spend",
			mutate: func(a *domain.CustomerAggregate) {
				a.SpendChangePct = -80
				a.SpendPrior90Days = 100
			},
			want: domain.SegmentStableMidSpender,
		},
		{
			name: "new and growing",
			mutate: func(a *domain.CustomerAggregate) {
				a.TenureMonths = 6
				a.SpendChangePct = 50
			},
			want: domain.SegmentNewAndGrowing,
		},
		{
			name: "budget conscious",
			mutate: func(a *domain.CustomerAggregate) {
				a.AvgMonthlySpend = 1499
				a.NecessitiesSpendPct = 60
			},
			want: domain.SegmentBudgetConscious,
		},
		{
			name:   "default",
			mutate: func(a *domain.CustomerAggregate) {},
			want:   domain.SegmentStableMidSpender,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := scored()
			tt.mutate(&agg)

			got := engine.Assign(agg, assignedAt)
			if got.Segment != tt.want {
				t.Errorf("Assign() = %q, want %q", got.Segment, tt.want)
			}
		})
	}
}

func TestAssignOrderFirstMatchWins(t *testing.T) {
	engine := NewEngine(Rules(DefaultThresholds()))

	// Qualifies as both high-value traveler and declining; the rule
	// order decides.
	agg := scored()
	agg.AvgMonthlySpend = 8000
	agg.TravelSpendPct = 40
	agg.SpendChangePct = -50
	agg.SpendPrior90Days = 30000

	if got := engine.Assign(agg, assignedAt); got.Segment != domain.SegmentHighValueTraveler {
		t.Errorf("Assign() = %q, want %q (earlier rule wins)", got.Segment, domain.SegmentHighValueTraveler)
	}

	// Too few transactions trumps everything.
	agg.TransactionCount = 1
	if got := engine.Assign(agg, assignedAt); got.Segment != domain.SegmentNotYetScored {
		t.Errorf("Assign() = %q, want %q", got.Segment, domain.SegmentNotYetScored)
	}
}

func TestAssignCarriesDrivingMetrics(t *testing.T) {
	engine := NewEngine(Rules(DefaultThresholds()))
	agg := scored()
	agg.SpendLast90Days = 1200
	agg.LifetimeValue = 90000

	got := engine.Assign(agg, assignedAt)
	if got.CustomerID != "c1" || !got.AssignedAt.Equal(assignedAt) {
		t.Errorf("identity fields wrong: %+v", got)
	}
	if got.SpendLast90Days != 1200 || got.LifetimeValue != 90000 {
		t.Errorf("driving metrics not carried: %+v", got)
	}
}

func TestBuildProfiles(t *testing.T) {
	current := map[string]domain.CustomerVersion{
		"c1": {CustomerKey: "k1", CustomerID: "c1", FirstName: "Ada", LastName: "Smith", Email: "ada@example.com", State: "CA", CardType: "gold", IsCurrent: true},
		"c2": {CustomerKey: "k2", CustomerID: "c2", FirstName: "Ben", LastName: "Okafor", IsCurrent: true},
		"c3": {CustomerKey: "k3", CustomerID: "c3", FirstName: "Cam", LastName: "Lee", IsCurrent: true},
	}
	aggs := []domain.CustomerAggregate{
		{CustomerID: "c1", CustomerKey: "k1"},
		{CustomerID: "c2", CustomerKey: "k2"},
		{CustomerID: "c3", CustomerKey: "k3"},
	}
	assignments := []domain.SegmentAssignment{
		{CustomerID: "c1", Segment: domain.SegmentDeclining},
		{CustomerID: "c2", Segment: domain.SegmentNewAndGrowing},
		{CustomerID: "c3", Segment: domain.SegmentHighValueTraveler},
	}
	scores := []domain.ChurnScore{
		{CustomerID: "c2", Score: 85},
		{CustomerID: "c3", Score: 45},
	}

	profiles := BuildProfiles(current, aggs, assignments, scores)
	if len(profiles) != 3 {
		t.Fatalf("expected 3 profiles, got %d", len(profiles))
	}

	byID := make(map[string]domain.CustomerProfile)
	for _, p := range profiles {
		byID[p.CustomerID] = p
	}

	t.Run("declining without score", func(t *testing.T) {
		p := byID["c1"]
		if p.FullName != "Ada Smith" {
			t.Errorf("FullName = %q", p.FullName)
		}
		if p.ChurnRiskScore != nil || p.ChurnRiskCategory != domain.ChurnRiskUnknown {
			t.Errorf("missing score should be Unknown: %+v", p)
		}
		if !p.RetentionEligible {
			t.Errorf("declining customers are retention eligible")
		}
		if p.OnboardingEligible || p.PremiumEligible {
			t.Errorf("unexpected extra flags: %+v", p)
		}
	})

	t.Run("high churn new customer", func(t *testing.T) {
		p := byID["c2"]
		if p.ChurnRiskCategory != domain.ChurnRiskHigh {
			t.Errorf("category = %q, want High", p.ChurnRiskCategory)
		}
		if !p.RetentionEligible {
			t.Errorf("churn score >= threshold is retention eligible")
		}
		if !p.OnboardingEligible {
			t.Errorf("new & growing is onboarding eligible")
		}
	})

	t.Run("premium traveler", func(t *testing.T) {
		p := byID["c3"]
		if p.ChurnRiskCategory != domain.ChurnRiskMedium {
			t.Errorf("category = %q, want Medium", p.ChurnRiskCategory)
		}
		if !p.PremiumEligible || p.RetentionEligible {
			t.Errorf("flags wrong: %+v", p)
		}
	})
}

func TestDistribution(t *testing.T) {
	assignments := []domain.SegmentAssignment{
		{CustomerID: "c1", Segment: domain.SegmentDeclining},
		{CustomerID: "c2", Segment: domain.SegmentDeclining},
		{CustomerID: "c3", Segment: domain.SegmentNotYetScored},
	}
	dist := Distribution(assignments)
	if dist[domain.SegmentDeclining] != 2 || dist[domain.SegmentNotYetScored] != 1 {
		t.Errorf("Distribution() = %v", dist)
	}
}

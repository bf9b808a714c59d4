package service

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
)

const (
	defaultCategory    = "General"
	unnamedAccountName = "Unnamed Account"
)

// SpendTypeIndex resolves main accounts to their display name and spend type.
type SpendTypeIndex map[int64]domain.AccountSpendType

// BuildSpendTypeIndex indexes accounts by number. Missing names and spend
// types fall back to "Unnamed Account" and program.
func BuildSpendTypeIndex(accounts []domain.AccountSpendType) SpendTypeIndex {
	idx := make(SpendTypeIndex, len(accounts))
	for _, a := range accounts {
		if a.MainAccountName == "" {
			a.MainAccountName = unnamedAccountName
		}
		if a.SpendType == "" {
			a.SpendType = domain.SpendTypeProgram
		}
		idx[a.MainAccount] = a
	}
	return idx
}

// Lookup coerces raw to an account number. Unknown or non-numeric accounts
// resolve to "Not Found (<raw>)" with spend type program.
func (idx SpendTypeIndex) Lookup(raw string) (string, domain.SpendType) {
	if n, ok := accountNumber(raw); ok {
		if a, found := idx[n]; found {
			return a.MainAccountName, a.SpendType
		}
	}
	return fmt.Sprintf("Not Found (%s)", raw), domain.SpendTypeProgram
}

func accountNumber(raw string) (int64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(f), true
}

// spendBuckets sums amounts per account name, keeping first-seen order.
type spendBuckets struct {
	order  []string
	amount map[string]decimal.Decimal
	kind   map[string]domain.SpendType
}

func newSpendBuckets() *spendBuckets {
	return &spendBuckets{
		amount: make(map[string]decimal.Decimal),
		kind:   make(map[string]domain.SpendType),
	}
}

func (b *spendBuckets) add(name string, spend domain.SpendType, amount decimal.Decimal) {
	if _, ok := b.amount[name]; !ok {
		b.order = append(b.order, name)
		b.amount[name] = decimal.Zero
		b.kind[name] = spend
	}
	b.amount[name] = b.amount[name].Add(amount)
}

// split returns the people and program items.
func (b *spendBuckets) split() (people, programs []domain.SpendItem) {
	people = []domain.SpendItem{}
	programs = []domain.SpendItem{}
	for _, name := range b.order {
		item := domain.SpendItem{Name: name, Amount: b.amount[name]}
		if b.kind[name] == domain.SpendTypePeople {
			people = append(people, item)
		} else {
			programs = append(programs, item)
		}
	}
	return people, programs
}

// monthSeries merges actual and anticipated amounts keyed by month.
type monthSeries map[domain.Month]*domain.MonthSummary

func (s monthSeries) at(m domain.Month) *domain.MonthSummary {
	e, ok := s[m]
	if !ok {
		e = &domain.MonthSummary{Month: m, Actual: decimal.Zero, Anticipated: decimal.Zero, Category: defaultCategory}
		s[m] = e
	}
	return e
}

func (s monthSeries) sorted() []domain.MonthSummary {
	out := make([]domain.MonthSummary, 0, len(s))
	for _, e := range s {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// AggregateBudget builds the dashboard for every reference cost center.
// Records of cost centers missing from centers are not reported.
func AggregateBudget(
	centers []domain.CostCenter,
	accounts []domain.AccountSpendType,
	actuals []domain.ActualRecord,
	anticipateds []domain.AnticipatedRecord,
) domain.BudgetReport {
	idx := BuildSpendTypeIndex(accounts)

	actualsByCenter := make(map[int64][]domain.ActualRecord)
	for _, a := range actuals {
		actualsByCenter[a.CostCenter] = append(actualsByCenter[a.CostCenter], a)
	}
	anticipatedsByCenter := make(map[int64][]domain.AnticipatedRecord)
	for _, a := range anticipateds {
		anticipatedsByCenter[a.CostCenter] = append(anticipatedsByCenter[a.CostCenter], a)
	}

	report := make(domain.BudgetReport, len(centers))
	for _, cc := range centers {
		report[cc.CostCenter] = aggregateCostCenter(cc, idx, actualsByCenter[cc.CostCenter], anticipatedsByCenter[cc.CostCenter])
	}
	return report
}

func aggregateCostCenter(
	cc domain.CostCenter,
	idx SpendTypeIndex,
	actuals []domain.ActualRecord,
	anticipateds []domain.AnticipatedRecord,
) domain.CostCenterBudget {
	months := make(monthSeries)
	planned := newSpendBuckets()
	spent := newSpendBuckets()

	for _, a := range anticipateds {
		total := decimal.Zero
		for _, ma := range a.Months {
			if ma.Amount.IsZero() {
				continue
			}
			e := months.at(ma.Month)
			e.Anticipated = e.Anticipated.Add(ma.Amount)
			total = total.Add(ma.Amount)
		}
		if total.IsZero() {
			continue
		}
		name, spend := idx.Lookup(strconv.FormatInt(a.MainAccount, 10))
		planned.add(name, spend, total)
	}

	for _, a := range actuals {
		name, spend := idx.Lookup(a.MainAccount)
		spent.add(name, spend, a.Amount)

		if a.Date == nil {
			continue
		}
		e := months.at(domain.MonthOf(a.Date.UTC()))
		e.Actual = e.Actual.Add(a.Amount)
		e.Category = defaultCategory
		if a.Category != nil && *a.Category != "" {
			e.Category = *a.Category
		}
	}

	b := domain.CostCenterBudget{
		TeamName:    cc.CostCenterName,
		Months:      months.sorted(),
		ActualItems: actuals,
	}
	if b.ActualItems == nil {
		b.ActualItems = []domain.ActualRecord{}
	}
	b.People, b.Programs = planned.split()
	b.ActualPeople, b.ActualPrograms = spent.split()
	return b
}

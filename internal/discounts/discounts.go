// Package discounts resolves which single discount a client is entitled to
// on a given date.
package discounts

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RevisitBuckets is the number of "revisit within N weeks" tiers.
const RevisitBuckets = 6

// ErrInvalidSettings is returned by Settings.Validate.
var ErrInvalidSettings = errors.New("invalid discount settings")

// Type names the rule a discount came from.
type Type string

const (
	TypeWeekday            Type = "weekday"
	TypeFirstBooking       Type = "first_booking"
	TypeRevisitWithin1Week Type = "revisit_within_1_week"
	TypeRevisitWithin2Week Type = "revisit_within_2_week"
	TypeRevisitWithin3Week Type = "revisit_within_3_week"
	TypeRevisitWithin4Week Type = "revisit_within_4_week"
	TypeRevisitWithin5Week Type = "revisit_within_5_week"
	TypeRevisitWithin6Week Type = "revisit_within_6_week"
)

var revisitTypes = [RevisitBuckets]Type{
	TypeRevisitWithin1Week,
	TypeRevisitWithin2Week,
	TypeRevisitWithin3Week,
	TypeRevisitWithin4Week,
	TypeRevisitWithin5Week,
	TypeRevisitWithin6Week,
}

// RevisitType returns the discount type for the "within n weeks" bucket, n in 1..6.
func RevisitType(n int) Type {
	if n < 1 || n > RevisitBuckets {
		return ""
	}
	return revisitTypes[n-1]
}

// Settings is a stylist's discount configuration. It is read-only input to a
// price calculation; use Clone before mutating a shared value.
type Settings struct {
	// WeekdayPercents maps ISO weekday (1=Monday) to a percent. A missing key
	// means no weekday discount for that day; a zero value is still a candidate.
	WeekdayPercents   map[int]int `json:"weekday_discounts"`
	FirstVisitPercent int         `json:"first_visit_percent"`
	// RevisitPercents[i] applies when the last visit was within i+1 weeks.
	RevisitPercents          [RevisitBuckets]int `json:"revisit_within_week_percents"`
	MaximumDiscount          *decimal.Decimal    `json:"maximum_discount,omitempty"`
	IsMaximumDiscountEnabled bool                `json:"is_maximum_discount_enabled"`
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	out := s
	if s.WeekdayPercents != nil {
		out.WeekdayPercents = make(map[int]int, len(s.WeekdayPercents))
		for k, v := range s.WeekdayPercents {
			out.WeekdayPercents[k] = v
		}
	}
	if s.MaximumDiscount != nil {
		m := *s.MaximumDiscount
		out.MaximumDiscount = &m
	}
	return out
}

// Validate checks every percentage is within [0,100].
func (s Settings) Validate() error {
	for wd, pct := range s.WeekdayPercents {
		if wd < 1 || wd > 7 {
			return fmt.Errorf("%w: weekday %d outside 1..7", ErrInvalidSettings, wd)
		}
		if err := checkPercent(fmt.Sprintf("weekday %d", wd), pct); err != nil {
			return err
		}
	}
	if err := checkPercent("first visit", s.FirstVisitPercent); err != nil {
		return err
	}
	for i, pct := range s.RevisitPercents {
		if err := checkPercent(fmt.Sprintf("revisit within %d week", i+1), pct); err != nil {
			return err
		}
	}
	if s.MaximumDiscount != nil && s.MaximumDiscount.IsNegative() {
		return fmt.Errorf("%w: maximum discount %s is negative", ErrInvalidSettings, s.MaximumDiscount)
	}
	return nil
}

// MaximumDiscountCap returns the absolute cap when it is both set and enabled.
func (s Settings) MaximumDiscountCap() (decimal.Decimal, bool) {
	if !s.IsMaximumDiscountEnabled || s.MaximumDiscount == nil {
		return decimal.Zero, false
	}
	return *s.MaximumDiscount, true
}

func checkPercent(name string, pct int) error {
	if pct < 0 || pct > 100 {
		return fmt.Errorf("%w: %s percent %d outside [0,100]", ErrInvalidSettings, name, pct)
	}
	return nil
}

// Discount is a resolved discount candidate.
type Discount struct {
	Type       Type `json:"type"`
	Percentage int  `json:"percentage"`
}

// Resolve returns the highest-percentage discount applicable on forDate.
// lastVisit is nil for clients who never visited. Ties keep the earliest
// candidate: weekday, then first-booking or revisit.
func Resolve(s Settings, lastVisit *time.Time, forDate time.Time) (Discount, bool) {
	candidates := make([]Discount, 0, 2)

	iso := isoWeekday(forDate)
	if pct, ok := s.WeekdayPercents[iso]; ok {
		candidates = append(candidates, Discount{Type: TypeWeekday, Percentage: pct})
	}

	if lastVisit == nil {
		candidates = append(candidates, Discount{Type: TypeFirstBooking, Percentage: s.FirstVisitPercent})
	} else if bucket, ok := revisitBucket(*lastVisit, forDate); ok {
		candidates = append(candidates, Discount{Type: revisitTypes[bucket-1], Percentage: s.RevisitPercents[bucket-1]})
	}

	if len(candidates) == 0 {
		return Discount{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Percentage > best.Percentage {
			best = c
		}
	}
	return best, true
}

// revisitBucket picks the smallest n in 1..6 with lastVisit + n weeks >= forDate.
func revisitBucket(lastVisit, forDate time.Time) (int, bool) {
	last := dateOnly(lastVisit)
	target := dateOnly(forDate)
	for n := 1; n <= RevisitBuckets; n++ {
		if !last.AddDate(0, 0, 7*n).Before(target) {
			return n, true
		}
	}
	return 0, false
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

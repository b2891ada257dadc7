package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/receipt-processor/internal/points"
)

// DateTimeLayout is the combined purchase date and time format, minute precision.
const DateTimeLayout = "2006-01-02 15:04"

// Input is the raw submission as accepted by the HTTP boundary.
type Input struct {
	Retailer     string      `json:"retailer" validate:"required,receipt_retailer"`
	PurchaseDate string      `json:"purchaseDate" validate:"required,receipt_date"`
	PurchaseTime string      `json:"purchaseTime" validate:"required,receipt_time"`
	Total        string      `json:"total" validate:"required,receipt_money"`
	Items        []ItemInput `json:"items" validate:"required,min=1,dive"`
}

// ItemInput is a raw line item.
type ItemInput struct {
	ShortDescription string `json:"shortDescription" validate:"required,receipt_description"`
	Price            string `json:"price" validate:"required,receipt_money"`
}

// Item is a parsed line item.
type Item struct {
	ShortDescription string
	Price            decimal.Decimal
}

// IdentityKey is the business key used to detect duplicate submissions.
type IdentityKey struct {
	Retailer         string
	PurchaseDateTime string
}

func (k IdentityKey) String() string {
	return fmt.Sprintf("(%s, %s)", k.Retailer, k.PurchaseDateTime)
}

// Record is a validated receipt with its computed points. It is immutable once built.
type Record struct {
	id          string
	retailer    string
	purchasedAt time.Time
	total       decimal.Decimal
	items       []Item
	points      int
}

// New validates the input and builds a scored record with a fresh id.
// Records purchased strictly after now are rejected.
func New(in Input, now time.Time) (*Record, error) {
	return build(in, uuid.NewString, now, time.Local)
}

func build(in Input, newID func() string, now time.Time, loc *time.Location) (*Record, error) {
	retailer := strings.TrimSpace(in.Retailer)
	date := strings.TrimSpace(in.PurchaseDate)
	clock := strings.TrimSpace(in.PurchaseTime)
	total := strings.TrimSpace(in.Total)
	if retailer == "" || date == "" || clock == "" || total == "" || len(in.Items) == 0 {
		return nil, invalid("Invalid Receipt", nil)
	}
	if loc == nil {
		loc = time.Local
	}
	purchasedAt, err := time.ParseInLocation(DateTimeLayout, date+" "+clock, loc)
	if err != nil {
		return nil, invalid(fmt.Sprintf("purchase date/time %q must match YYYY-MM-DD HH:MM", date+" "+clock), err)
	}
	if purchasedAt.After(now) {
		return nil, invalid("Purchase date cannot be in the future", nil)
	}
	totalValue, err := parseMoney(total)
	if err != nil {
		return nil, invalid(fmt.Sprintf("total %q is not a valid amount", total), err)
	}

	items := make([]Item, 0, len(in.Items))
	for i, raw := range in.Items {
		desc := strings.TrimSpace(raw.ShortDescription)
		if desc == "" {
			return nil, invalid(fmt.Sprintf("items[%d].shortDescription is required", i), nil)
		}
		price, err := parseMoney(raw.Price)
		if err != nil {
			return nil, invalid(fmt.Sprintf("items[%d].price %q is not a valid amount", i, raw.Price), err)
		}
		items = append(items, Item{ShortDescription: desc, Price: price})
	}

	rec := &Record{
		id:          newID(),
		retailer:    retailer,
		purchasedAt: purchasedAt,
		total:       totalValue,
		items:       items,
	}
	rec.points = points.Score(rec.scoringInput())
	return rec, nil
}

var (
	errNegativeAmount  = errors.New("amount must not be negative")
	errAmountPrecision = errors.New("amount must have at most two decimal places")
)

func parseMoney(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Decimal{}, err
	}
	if d.IsNegative() {
		return decimal.Decimal{}, errNegativeAmount
	}
	if !d.Shift(2).IsInteger() {
		return decimal.Decimal{}, errAmountPrecision
	}
	return d, nil
}

func toCents(d decimal.Decimal) points.Cents {
	return d.Shift(2).IntPart()
}

func (r *Record) scoringInput() points.Input {
	items := make([]points.Item, len(r.items))
	for i, it := range r.items {
		items[i] = points.Item{Description: it.ShortDescription, Price: toCents(it.Price)}
	}
	return points.Input{
		Retailer:    r.retailer,
		Total:       toCents(r.total),
		Items:       items,
		PurchasedAt: r.purchasedAt,
	}
}

// ID returns the generated identifier.
func (r *Record) ID() string { return r.id }

// Retailer returns the normalised retailer name.
func (r *Record) Retailer() string { return r.retailer }

// PurchasedAt returns the combined purchase date and time.
func (r *Record) PurchasedAt() time.Time { return r.purchasedAt }

// Total returns the receipt total.
func (r *Record) Total() decimal.Decimal { return r.total }

// Items returns a copy of the line items.
func (r *Record) Items() []Item {
	out := make([]Item, len(r.items))
	copy(out, r.items)
	return out
}

// Points returns the score computed at construction.
func (r *Record) Points() int { return r.points }

// Breakdown recomputes the per-rule contributions behind Points.
func (r *Record) Breakdown() map[string]int {
	return points.Breakdown(r.scoringInput())
}

// IdentityKey returns the (retailer, purchase minute) business key.
func (r *Record) IdentityKey() IdentityKey {
	return IdentityKey{Retailer: r.retailer, PurchaseDateTime: r.purchasedAt.Format(DateTimeLayout)}
}

// View is the display projection of a record.
type View struct {
	ID               string      `json:"id"`
	Retailer         string      `json:"retailer"`
	PurchaseDateTime string      `json:"purchaseDateTime"`
	Total            json.Number `json:"total"`
	Items            []ItemView  `json:"items"`
	Points           int         `json:"points"`
}

// ItemView is the display projection of a line item.
type ItemView struct {
	ShortDescription string      `json:"shortDescription"`
	Price            json.Number `json:"price"`
}

// View renders the record with its purchase time formatted as text.
func (r *Record) View() View {
	items := make([]ItemView, len(r.items))
	for i, it := range r.items {
		items[i] = ItemView{ShortDescription: it.ShortDescription, Price: json.Number(it.Price.StringFixed(2))}
	}
	return View{
		ID:               r.id,
		Retailer:         r.retailer,
		PurchaseDateTime: r.purchasedAt.Format(DateTimeLayout),
		Total:            json.Number(r.total.StringFixed(2)),
		Items:            items,
		Points:           r.points,
	}
}

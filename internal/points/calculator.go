package points

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Cents represents a monetary value stored in minor units.
type Cents = int64

// Field names the receipt attribute a rule reads.
type Field string

const (
	FieldRetailer    Field = "retailer"
	FieldTotal       Field = "total"
	FieldItems       Field = "items"
	FieldPurchasedAt Field = "purchaseDateTime"
)

// Rule names, as reported by Breakdown.
const (
	RuleRetailerAlnum    = "retailer_alnum"
	RuleTotalRound       = "total_round_dollar"
	RuleTotalQuarters    = "total_in_quarters"
	RuleItemPairs        = "each_pair_of_items_5c"
	RuleItemNamesInThree = "items_names_in3"
	RuleOddDay           = "odd_day"
	RuleSpecialTime      = "special_time"
)

// Item describes a line item used for scoring.
type Item struct {
	Description string
	Price       Cents
}

// Input carries the normalised receipt fields the rules are evaluated against.
type Input struct {
	Retailer    string
	Total       Cents
	Items       []Item
	PurchasedAt time.Time
}

// Rule is a single scoring predicate. Eval must only read the fields it declares.
type Rule struct {
	Name   string
	Fields []Field
	Eval   func(Input) int
}

var rules = []Rule{
	{Name: RuleRetailerAlnum, Fields: []Field{FieldRetailer}, Eval: retailerAlnum},
	{Name: RuleTotalRound, Fields: []Field{FieldTotal}, Eval: totalRoundDollar},
	{Name: RuleTotalQuarters, Fields: []Field{FieldTotal}, Eval: totalInQuarters},
	{Name: RuleItemPairs, Fields: []Field{FieldItems}, Eval: itemPairs},
	{Name: RuleItemNamesInThree, Fields: []Field{FieldItems}, Eval: itemNamesInThree},
	{Name: RuleOddDay, Fields: []Field{FieldPurchasedAt}, Eval: oddDay},
	{Name: RuleSpecialTime, Fields: []Field{FieldPurchasedAt}, Eval: specialTime},
}

// Rules returns the fixed rule table in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Score sums every rule for the input.
func Score(in Input) int {
	total := 0
	for _, r := range rules {
		total += r.Eval(in)
	}
	return total
}

// Breakdown reports the contribution of each rule keyed by rule name.
func Breakdown(in Input) map[string]int {
	out := make(map[string]int, len(rules))
	for _, r := range rules {
		out[r.Name] = r.Eval(in)
	}
	return out
}

func retailerAlnum(in Input) int {
	count := 0
	for _, r := range in.Retailer {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			count++
		}
	}
	return count
}

func totalRoundDollar(in Input) int {
	if in.Total%100 == 0 {
		return 50
	}
	return 0
}

func totalInQuarters(in Input) int {
	if in.Total%25 == 0 {
		return 25
	}
	return 0
}

func itemPairs(in Input) int {
	return 5 * (len(in.Items) / 2)
}

// itemNamesInThree counts description length in characters and rounds each qualifying item up on its own: ceil(0.2 * price)
// in dollars is ceil(cents / 500).
func itemNamesInThree(in Input) int {
	total := 0
	for _, it := range in.Items {
		if utf8.RuneCountInString(strings.TrimSpace(it.Description))%3 != 0 {
			continue
		}
		if it.Price <= 0 {
			continue
		}
		total += int((it.Price + 499) / 500)
	}
	return total
}

func oddDay(in Input) int {
	if in.PurchasedAt.Day()%2 == 1 {
		return 6
	}
	return 0
}

func specialTime(in Input) int {
	if h := in.PurchasedAt.Hour(); h >= 14 && h < 16 {
		return 10
	}
	return 0
}

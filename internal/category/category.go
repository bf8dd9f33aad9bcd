package category

import "strings"

type Category string

const (
	Produce       Category = "produce"
	Dairy         Category = "dairy"
	Meat          Category = "meat"
	Pantry        Category = "pantry"
	Frozen        Category = "frozen"
	Beverages     Category = "beverages"
	Uncategorized Category = "uncategorized"
)

type Rule struct {
	Category Category
	Keywords []string
}

// Rules are evaluated top to bottom, the first rule with a keyword hit wins.
// "ice cream" therefore lands in dairy through "cream".
var Rules = []Rule{
	{Produce, []string{"apple", "banana", "orange", "lettuce", "tomato", "broccoli", "carrot", "spinach"}},
	{Dairy, []string{"milk", "cheese", "yogurt", "butter", "cream"}},
	{Meat, []string{"chicken", "fish", "egg"}},
	{Pantry, []string{"bread", "rice", "pasta", "cereal", "flour", "sugar"}},
	{Frozen, []string{"ice cream", "frozen", "peas"}},
	{Beverages, []string{"water", "juice", "soda", "coffee", "tea", "beer", "wine"}},
}

// Classify never returns an empty label.
func Classify(item string) Category {
	name := strings.ToLower(item)

	for _, r := range Rules {
		for _, kw := range r.Keywords {
			if strings.Contains(name, kw) {
				return r.Category
			}
		}
	}

	return Uncategorized
}

func All() []Category {
	out := make([]Category, 0, len(Rules)+1)
	for _, r := range Rules {
		out = append(out, r.Category)
	}
	return append(out, Uncategorized)
}

func (c Category) Valid() bool {
	for _, known := range All() {
		if c == known {
			return true
		}
	}
	return false
}

// Parse maps a stored label back to a Category. Unknown labels fall back to
// Uncategorized so a hand-edited snapshot still loads.
func Parse(label string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(label)))
	if c.Valid() {
		return c
	}
	return Uncategorized
}

func (c Category) String() string { return string(c) }

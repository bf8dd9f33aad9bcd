package inventory

import (
	"context"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"pantry/internal/category"
)

// Persister loads and saves whole inventory snapshots. Load must return an
// empty inventory, not an error, when nothing has been saved yet.
type Persister interface {
	Load(ctx context.Context) (*Inventory, error)
	Save(ctx context.Context, inv *Inventory) error
}

const DefaultExpiryWindow = 7

type Store struct {
	inv     *Inventory
	persist Persister
	now     func() time.Time
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open loads the current snapshot once. Later reads are served from memory.
func Open(ctx context.Context, p Persister, opts ...Option) (*Store, error) {
	inv, err := p.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}
	if inv == nil {
		inv = New()
	}
	dropEmpty(inv)

	s := &Store{inv: inv, persist: p, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// dropEmpty removes entries a snapshot may carry with a quantity below one.
func dropEmpty(inv *Inventory) {
	var empty []string
	for name, it := range inv.All() {
		if it.Quantity <= 0 {
			empty = append(empty, name)
			log.Warn("Dropping item without stock", "item", name, "quantity", it.Quantity)
		}
	}
	for _, name := range empty {
		inv.Delete(name)
	}
}

func (s *Store) save(ctx context.Context) error {
	if err := s.persist.Save(ctx, s.inv); err != nil {
		return fmt.Errorf("save inventory: %w", err)
	}
	return nil
}

// AddItem merges into an existing entry or creates a new one. Category and
// expiry only take effect on creation.
func (s *Store) AddItem(ctx context.Context, name string, quantity int, cat category.Category, expiry *Date) (string, error) {
	name = strings.TrimSpace(name)
	if quantity <= 0 {
		return fmt.Sprintf("Nothing added: quantity for %s must be at least 1.", name), nil
	}

	if it, ok := s.inv.Get(name); ok {
		it.Quantity += quantity
		s.inv.Put(name, it)
	} else {
		it := Item{
			Quantity:  quantity,
			Category:  cat,
			AddedDate: s.now(),
		}
		if expiry != nil {
			d := *expiry
			it.ExpiryDate = &d
		}
		s.inv.Put(name, it)
	}

	if err := s.save(ctx); err != nil {
		return "", err
	}
	return fmt.Sprintf("Added %d %s(s) to your inventory.", quantity, name), nil
}

// RemoveItem deletes the entry when quantity is nil or covers what is left,
// otherwise it decrements. A zero quantity changes nothing and is not saved.
// Unknown names are reported, not returned as errors.
func (s *Store) RemoveItem(ctx context.Context, name string, quantity *int) (string, error) {
	name = strings.TrimSpace(name)

	it, ok := s.inv.Get(name)
	if !ok {
		return fmt.Sprintf("%s not found in inventory.", name), nil
	}

	if quantity != nil && *quantity <= 0 {
		return fmt.Sprintf("Removed 0 %s(s). %d remaining.", name, it.Quantity), nil
	}

	var msg string
	if quantity == nil || *quantity >= it.Quantity {
		s.inv.Delete(name)
		msg = fmt.Sprintf("Removed all %s(s) from inventory.", name)
	} else {
		it.Quantity -= *quantity
		s.inv.Put(name, it)
		msg = fmt.Sprintf("Removed %d %s(s). %d remaining.", *quantity, name, it.Quantity)
	}

	if err := s.save(ctx); err != nil {
		return "", err
	}
	return msg, nil
}

func (s *Store) ListInventory() string {
	if s.inv.Len() == 0 {
		return "Your inventory is empty."
	}

	var (
		buckets = make(map[category.Category][]string)
		order   []category.Category
	)
	for name, it := range s.inv.All() {
		c := it.Category
		if c == "" {
			c = category.Uncategorized
		}
		if _, ok := buckets[c]; !ok {
			order = append(order, c)
		}
		buckets[c] = append(buckets[c], fmt.Sprintf("%s (%d)", name, it.Quantity))
	}

	title := cases.Title(language.English)

	var b strings.Builder
	b.WriteString("Current Inventory:\n")
	for _, c := range order {
		fmt.Fprintf(&b, "\n%s:\n", title.String(string(c)))
		for _, line := range buckets[c] {
			fmt.Fprintf(&b, "  - %s\n", line)
		}
	}
	return b.String()
}

// CheckExpiringSoon reports items expiring in [today, today+days].
func (s *Store) CheckExpiringSoon(days int) string {
	today := DateOf(s.now())
	threshold := today.AddDays(days)

	var lines []string
	for name, it := range s.inv.All() {
		if it.ExpiryDate == nil {
			continue
		}
		exp := *it.ExpiryDate
		if exp.Before(today) || exp.After(threshold) {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s expires on %s", name, exp))
	}

	if len(lines) == 0 {
		return fmt.Sprintf("No items expiring within the next %d days.", days)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Items expiring within %d days:\n", days)
	for _, l := range lines {
		fmt.Fprintf(&b, "- %s\n", l)
	}
	return b.String()
}

// Item returns a copy of the stored entry.
func (s *Store) Item(name string) (Item, bool) {
	return s.inv.Get(name)
}

func (s *Store) Snapshot() *Inventory {
	return s.inv.Clone()
}

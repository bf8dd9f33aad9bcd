package inventory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantry/internal/category"
)

type fakePersister struct {
	initial *Inventory
	saves   int
	last    *Inventory
	saveErr error
	loadErr error
}

func (f *fakePersister) Load(context.Context) (*Inventory, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.initial == nil {
		return New(), nil
	}
	return f.initial, nil
}

func (f *fakePersister) Save(_ context.Context, inv *Inventory) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.last = inv.Clone()
	return nil
}

var today = time.Date(2025, time.December, 20, 10, 0, 0, 0, time.UTC)

func newStore(t *testing.T, p *fakePersister) *Store {
	t.Helper()
	s, err := Open(context.Background(), p, WithClock(func() time.Time { return today }))
	require.NoError(t, err)
	return s
}

func ptr(n int) *int { return &n }

func date(s string) *Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func TestOpenLoadError(t *testing.T) {
	_, err := Open(context.Background(), &fakePersister{loadErr: errors.New("disk gone")})
	assert.ErrorContains(t, err, "disk gone")
}

func TestAddItemCreates(t *testing.T) {
	p := &fakePersister{}
	s := newStore(t, p)

	msg, err := s.AddItem(context.Background(), "apples", 3, category.Produce, nil)
	require.NoError(t, err)
	assert.Equal(t, "Added 3 apples(s) to your inventory.", msg)

	it, ok := s.Item("apples")
	require.True(t, ok)
	assert.Equal(t, 3, it.Quantity)
	assert.Equal(t, category.Produce, it.Category)
	assert.Equal(t, today, it.AddedDate)
	assert.Nil(t, it.ExpiryDate)
	assert.Equal(t, 1, p.saves)
}

func TestAddItemMergeKeepsFirstAttributes(t *testing.T) {
	p := &fakePersister{}
	s := newStore(t, p)
	ctx := context.Background()

	_, err := s.AddItem(ctx, "Milk", 1, category.Dairy, date("2025-12-25"))
	require.NoError(t, err)

	s.now = func() time.Time { return today.Add(48 * time.Hour) }
	_, err = s.AddItem(ctx, " milk ", 2, category.Frozen, date("2026-01-31"))
	require.NoError(t, err)

	it, ok := s.Item("MILK")
	require.True(t, ok)
	assert.Equal(t, 3, it.Quantity)
	assert.Equal(t, category.Dairy, it.Category)
	assert.Equal(t, today, it.AddedDate)
	require.NotNil(t, it.ExpiryDate)
	assert.Equal(t, "2025-12-25", it.ExpiryDate.String())
	assert.Equal(t, 2, p.saves)
	assert.Equal(t, 1, s.Snapshot().Len())
}

func TestAddItemSumsQuantities(t *testing.T) {
	s := newStore(t, &fakePersister{})
	ctx := context.Background()

	total := 0
	for _, q := range []int{1, 4, 2, 10} {
		total += q
		_, err := s.AddItem(ctx, "eggs", q, category.Meat, nil)
		require.NoError(t, err)
	}

	it, _ := s.Item("eggs")
	assert.Equal(t, total, it.Quantity)
}

func TestAddItemNonPositive(t *testing.T) {
	p := &fakePersister{}
	s := newStore(t, p)

	for _, q := range []int{0, -2} {
		msg, err := s.AddItem(context.Background(), "tea", q, category.Beverages, nil)
		require.NoError(t, err)
		assert.Contains(t, msg, "Nothing added")
	}

	_, ok := s.Item("tea")
	assert.False(t, ok)
	assert.Zero(t, p.saves)
}

func TestRemoveItem(t *testing.T) {
	tests := []struct {
		name     string
		quantity *int
		wantMsg  string
		wantLeft int
		wantGone bool
		// including the save from the initial add
		wantSaves int
	}{
		{"all by default", nil, "Removed all apples(s) from inventory.", 0, true, 2},
		{"exact quantity", ptr(3), "Removed all apples(s) from inventory.", 0, true, 2},
		{"more than stocked", ptr(5), "Removed all apples(s) from inventory.", 0, true, 2},
		{"partial", ptr(2), "Removed 2 apples(s). 1 remaining.", 1, false, 2},
		{"zero changes nothing", ptr(0), "Removed 0 apples(s). 3 remaining.", 3, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePersister{}
			s := newStore(t, p)
			ctx := context.Background()

			_, err := s.AddItem(ctx, "apples", 3, category.Produce, nil)
			require.NoError(t, err)

			msg, err := s.RemoveItem(ctx, "apples", tt.quantity)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMsg, msg)

			it, ok := s.Item("apples")
			assert.Equal(t, !tt.wantGone, ok)
			if !tt.wantGone {
				assert.Equal(t, tt.wantLeft, it.Quantity)
			}
			assert.Equal(t, tt.wantSaves, p.saves)
		})
	}
}

func TestOpenDropsItemsWithoutStock(t *testing.T) {
	added := today.Add(-time.Hour)
	initial := New()
	initial.Put("eggs", Item{Quantity: 0, Category: category.Meat, AddedDate: added})
	initial.Put("milk", Item{Quantity: 2, Category: category.Dairy, AddedDate: added})
	initial.Put("gum", Item{Quantity: -2, Category: category.Uncategorized, AddedDate: added})

	p := &fakePersister{initial: initial}
	s := newStore(t, p)

	assert.Equal(t, 1, s.Snapshot().Len())
	_, ok := s.Item("eggs")
	assert.False(t, ok)
	assert.NotContains(t, s.ListInventory(), "gum")
	assert.Zero(t, p.saves)

	_, err := s.AddItem(context.Background(), "gum", 1, category.Uncategorized, nil)
	require.NoError(t, err)
	it, ok := s.Item("gum")
	require.True(t, ok)
	assert.Equal(t, 1, it.Quantity)
}

func TestRemoveItemNotFound(t *testing.T) {
	p := &fakePersister{}
	s := newStore(t, p)
	ctx := context.Background()

	_, err := s.AddItem(ctx, "bread", 1, category.Pantry, nil)
	require.NoError(t, err)
	before := s.Snapshot()

	msg, err := s.RemoveItem(ctx, "caviar", ptr(1))
	require.NoError(t, err)
	assert.Equal(t, "caviar not found in inventory.", msg)
	assert.Equal(t, 1, p.saves)
	assert.Equal(t, before, s.Snapshot())
}

func TestSaveFailureSurfaces(t *testing.T) {
	p := &fakePersister{saveErr: errors.New("read-only fs")}
	s := newStore(t, p)

	_, err := s.AddItem(context.Background(), "apples", 1, category.Produce, nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, "read-only fs")

	// no rollback of the in-memory state
	_, ok := s.Item("apples")
	assert.True(t, ok)
}

func TestListInventory(t *testing.T) {
	s := newStore(t, &fakePersister{})
	ctx := context.Background()

	assert.Equal(t, "Your inventory is empty.", s.ListInventory())

	for _, a := range []struct {
		name string
		qty  int
		cat  category.Category
	}{
		{"milk", 1, category.Dairy},
		{"apples", 3, category.Produce},
		{"cheese", 2, category.Dairy},
		{"gum", 5, category.Uncategorized},
	} {
		_, err := s.AddItem(ctx, a.name, a.qty, a.cat, nil)
		require.NoError(t, err)
	}

	want := "Current Inventory:\n" +
		"\nDairy:\n  - milk (1)\n  - cheese (2)\n" +
		"\nProduce:\n  - apples (3)\n" +
		"\nUncategorized:\n  - gum (5)\n"
	assert.Equal(t, want, s.ListInventory())
}

func TestCheckExpiringSoon(t *testing.T) {
	s := newStore(t, &fakePersister{})
	ctx := context.Background()

	add := func(name string, exp *Date) {
		_, err := s.AddItem(ctx, name, 1, category.Classify(name), exp)
		require.NoError(t, err)
	}
	add("milk", date("2025-12-25"))
	add("yogurt", date("2025-12-20"))
	add("cream", date("2025-12-27"))
	add("butter", date("2025-12-28"))
	add("cheese", date("2025-12-19"))
	add("rice", nil)

	out := s.CheckExpiringSoon(7)
	assert.True(t, strings.HasPrefix(out, "Items expiring within 7 days:\n"))
	assert.Contains(t, out, "- milk expires on 2025-12-25\n")
	assert.Contains(t, out, "- yogurt expires on 2025-12-20\n")
	assert.Contains(t, out, "- cream expires on 2025-12-27\n")
	assert.NotContains(t, out, "butter")
	assert.NotContains(t, out, "cheese")
	assert.NotContains(t, out, "rice")

	out = s.CheckExpiringSoon(2)
	assert.Contains(t, out, "yogurt")
	assert.NotContains(t, out, "milk")

	out = s.CheckExpiringSoon(0)
	assert.Equal(t, "Items expiring within 0 days:\n- yogurt expires on 2025-12-20\n", out)
}

func TestCheckExpiringSoonNone(t *testing.T) {
	s := newStore(t, &fakePersister{})
	_, err := s.AddItem(context.Background(), "rice", 1, category.Pantry, nil)
	require.NoError(t, err)

	assert.Equal(t, "No items expiring within the next 7 days.", s.CheckExpiringSoon(7))
}

package nlu

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantry/internal/category"
	"pantry/internal/inventory"
	"pantry/internal/storage"
)

var today = time.Date(2025, time.December, 20, 10, 0, 0, 0, time.UTC)

func newDispatcher(t *testing.T, cfg DispatcherConfig) (*Dispatcher, *inventory.Store, *storage.Memory) {
	t.Helper()
	mem := storage.NewMemory(nil)
	store, err := inventory.Open(context.Background(), mem, inventory.WithClock(func() time.Time { return today }))
	require.NoError(t, err)
	return NewDispatcher(store, cfg), store, mem
}

func handle(t *testing.T, d *Dispatcher, text string) string {
	t.Helper()
	out, err := d.Handle(context.Background(), text)
	require.NoError(t, err)
	return out
}

func TestDispatcherAddNew(t *testing.T) {
	d, store, mem := newDispatcher(t, DispatcherConfig{})

	out := handle(t, d, "add 3 apples")
	assert.Equal(t, "Added 3 apples(s) to your inventory.", out)

	it, ok := store.Item("apples")
	require.True(t, ok)
	assert.Equal(t, 3, it.Quantity)
	assert.Equal(t, category.Produce, it.Category)
	assert.Nil(t, it.ExpiryDate)
	assert.Equal(t, today, it.AddedDate)
	assert.Equal(t, 1, mem.Saves())
}

func TestDispatcherAddKeepsFirstExpiry(t *testing.T) {
	d, store, _ := newDispatcher(t, DispatcherConfig{})

	handle(t, d, "add 1 milk expires 2025-12-25")
	handle(t, d, "add 2 milk")

	it, ok := store.Item("milk")
	require.True(t, ok)
	assert.Equal(t, 3, it.Quantity)
	assert.Equal(t, category.Dairy, it.Category)
	require.NotNil(t, it.ExpiryDate)
	assert.Equal(t, "2025-12-25", it.ExpiryDate.String())
}

func TestDispatcherRemoveMoreThanHeld(t *testing.T) {
	d, store, _ := newDispatcher(t, DispatcherConfig{})

	handle(t, d, "add 3 apples")
	out := handle(t, d, "remove 5 apples")
	assert.Equal(t, "Removed all apples(s) from inventory.", out)

	_, ok := store.Item("apples")
	assert.False(t, ok)
}

func TestDispatcherRemovePartialAndUnknown(t *testing.T) {
	d, store, mem := newDispatcher(t, DispatcherConfig{})

	handle(t, d, "add 4 bananas")
	assert.Equal(t, "Removed 1 bananas(s). 3 remaining.", handle(t, d, "delete 1 bananas"))
	assert.Equal(t, "pears not found in inventory.", handle(t, d, "remove pears"))

	it, _ := store.Item("bananas")
	assert.Equal(t, 3, it.Quantity)
	assert.Equal(t, 2, mem.Saves())
}

func TestDispatcherExpiringWindow(t *testing.T) {
	d, _, _ := newDispatcher(t, DispatcherConfig{Parser: NewParser(7)})
	handle(t, d, "add 1 milk expires 2025-12-25")

	out := handle(t, d, "check expiring")
	assert.Equal(t, "Items expiring within 7 days:\n- milk expires on 2025-12-25\n", out)

	out = handle(t, d, "check expiring 2")
	assert.Equal(t, "No items expiring within the next 2 days.", out)

	narrow := NewDispatcher(d.store, DispatcherConfig{Parser: NewParser(2)})
	assert.Equal(t, "No items expiring within the next 2 days.", handle(t, narrow, "what expires soon"))
}

func TestDispatcherUnknownLeavesInventory(t *testing.T) {
	d, store, mem := newDispatcher(t, DispatcherConfig{})

	assert.Equal(t, MsgUnknown, handle(t, d, "banana smoothie"))
	assert.Equal(t, 0, store.Snapshot().Len())
	assert.Equal(t, 0, mem.Saves())
}

func TestDispatcherVoiceMode(t *testing.T) {
	d, _, _ := newDispatcher(t, DispatcherConfig{})
	assert.Equal(t, MsgVoiceUnavailable, handle(t, d, "voice on"))
	assert.Equal(t, TextMode, d.Mode())
	assert.Equal(t, MsgVoiceOff, handle(t, d, "voice off"))
	assert.Equal(t, TextMode, d.Mode())

	d, _, _ = newDispatcher(t, DispatcherConfig{VoiceAvailable: true})
	assert.Equal(t, TextMode, d.Mode())
	assert.Equal(t, MsgVoiceOn, handle(t, d, "Voice ON"))
	assert.Equal(t, VoiceMode, d.Mode())
	assert.Equal(t, MsgVoiceOff, handle(t, d, "voice off"))
	assert.Equal(t, TextMode, d.Mode())
}

func TestDispatcherStartMode(t *testing.T) {
	d, _, _ := newDispatcher(t, DispatcherConfig{StartInVoice: true})
	assert.Equal(t, TextMode, d.Mode())

	d, _, _ = newDispatcher(t, DispatcherConfig{VoiceAvailable: true, StartInVoice: true})
	assert.Equal(t, VoiceMode, d.Mode())
	assert.True(t, d.VoiceAvailable())
}

func TestDispatcherListAndHelp(t *testing.T) {
	d, _, _ := newDispatcher(t, DispatcherConfig{})
	assert.Equal(t, "Your inventory is empty.", handle(t, d, "list inventory"))

	handle(t, d, "add 2 apples")
	handle(t, d, "add cheddar cheese")
	handle(t, d, "add 1 banana")

	want := "Current Inventory:\n" +
		"\nProduce:\n  - apples (2)\n  - banana (1)\n" +
		"\nDairy:\n  - cheddar cheese (1)\n"
	assert.Equal(t, want, handle(t, d, "show my inventory"))
	assert.Equal(t, HelpText, handle(t, d, "help"))
}

func TestDispatcherSaveFailure(t *testing.T) {
	d, store, mem := newDispatcher(t, DispatcherConfig{})
	mem.SaveErr = errors.New("disk full")

	_, err := d.Handle(context.Background(), "add 3 apples")
	require.Error(t, err)
	assert.ErrorIs(t, err, mem.SaveErr)

	// the in-memory state is not rolled back
	it, ok := store.Item("apples")
	require.True(t, ok)
	assert.Equal(t, 3, it.Quantity)
}

package nlu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantry/internal/inventory"
)

func n(v int) *int { return &v }

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Intent
	}{
		{"add with quantity", "add 3 apples", Add{Item: "apples", Quantity: 3}},
		{"add default quantity", "Add milk", Add{Item: "milk", Quantity: 1}},
		{"add zero", "add 0 pears", Add{Item: "pears", Quantity: 0}},
		{"add negative is not a quantity", "add -2 apples", Add{Item: "-2 apples", Quantity: 1}},
		{"add keeps inner whitespace", "add  2  green   beans ", Add{Item: "green   beans", Quantity: 2}},
		{"add verb not leading", "please add 3 apples", Add{Item: "please add 3 apples", Quantity: 1}},
		{"add alone", "add", Unknown{}},
		{"add only quantity", "add 4", Unknown{}},
		{"add only expiry", "add expires 2025-12-25", Unknown{}},
		{"add bad expiry dropped", "add 2 eggs expires tomorrow", Add{Item: "eggs", Quantity: 2}},
		{"add loose date dropped", "add 2 eggs expires 2025-1-5", Add{Item: "eggs", Quantity: 2}},

		{"remove with quantity", "remove 2 apples", Remove{Item: "apples", Quantity: n(2)}},
		{"remove all", "remove apples", Remove{Item: "apples"}},
		{"remove zero", "remove 0 apples", Remove{Item: "apples", Quantity: n(0)}},
		{"delete verb", "Delete 5 milk", Remove{Item: "milk", Quantity: n(5)}},
		{"remove alone", "remove", Unknown{}},

		{"list", "list", ListInventory{}},
		{"inventory", "show my INVENTORY", ListInventory{}},
		{"expiring default", "check expiring", CheckExpiring{Days: 7}},
		{"expiring explicit days", "what expires in 3 days", CheckExpiring{Days: 3}},
		{"help", "help", Help{}},
		{"voice on", "Voice On", SetVoiceMode{Enabled: true}},
		{"voice off", "voice off please", SetVoiceMode{Enabled: false}},
		{"unknown", "banana smoothie", Unknown{}},
		{"empty", "", Unknown{}},

		{"add beats list", "add milk to list", Add{Item: "milk to list", Quantity: 1}},
		{"remove beats inventory", "delete inventory", Remove{Item: "inventory"}},
		{"inventory beats help", "help with inventory", ListInventory{}},
		{"list beats expiring", "list expiring", ListInventory{}},
		{"substring add", "remove 2 ladders", Add{Item: "remove 2 ladders", Quantity: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.text))
		})
	}
}

func TestParseAddExpiry(t *testing.T) {
	got := Parse("add 1 milk expires 2025-12-25")

	add, ok := got.(Add)
	require.True(t, ok, "got %T", got)
	assert.Equal(t, "milk", add.Item)
	assert.Equal(t, 1, add.Quantity)
	require.NotNil(t, add.Expiry)
	assert.True(t, add.Expiry.Equal(inventory.NewDate(2025, 12, 25)))
}

func TestParseExpiresCaseInsensitive(t *testing.T) {
	add, ok := Parse("ADD 2 Yogurt EXPIRES 2026-01-03").(Add)
	require.True(t, ok)
	assert.Equal(t, "Yogurt", add.Item)
	require.NotNil(t, add.Expiry)
	assert.Equal(t, "2026-01-03", add.Expiry.String())
}

func TestParserWindow(t *testing.T) {
	p := NewParser(3)
	assert.Equal(t, CheckExpiring{Days: 3}, p.Parse("anything expiring?"))
	assert.Equal(t, CheckExpiring{Days: 10}, p.Parse("expiring within 10 days"))

	assert.Equal(t, inventory.DefaultExpiryWindow, NewParser(-1).ExpiryWindow)
}

func TestName(t *testing.T) {
	assert.Equal(t, "add", Name(Add{}))
	assert.Equal(t, "set_voice_mode", Name(SetVoiceMode{}))
	assert.Equal(t, "unknown", Name(Unknown{}))
}

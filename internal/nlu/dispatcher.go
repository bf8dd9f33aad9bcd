package nlu

import (
	"context"
	"fmt"
	log "log/slog"

	"pantry/internal/category"
	"pantry/internal/inventory"
)

// Inventory is the part of inventory.Store the dispatcher drives.
type Inventory interface {
	AddItem(ctx context.Context, name string, quantity int, cat category.Category, expiry *inventory.Date) (string, error)
	RemoveItem(ctx context.Context, name string, quantity *int) (string, error)
	ListInventory() string
	CheckExpiringSoon(days int) string
}

// Mode decides whether replies are also spoken and whether input comes from
// the microphone.
type Mode int

const (
	TextMode Mode = iota
	VoiceMode
)

func (m Mode) String() string {
	if m == VoiceMode {
		return "voice"
	}
	return "text"
}

const (
	MsgUnknown          = "I didn't understand that command. Type 'help' for assistance."
	MsgVoiceOn          = "Voice commands enabled."
	MsgVoiceOff         = "Voice commands disabled."
	MsgVoiceUnavailable = "Voice functionality is not available on this system."
)

const HelpText = `
Available commands:
- Add [quantity] [item] [expires YYYY-MM-DD] - Add items to inventory
- Remove [quantity] [item] - Remove items from inventory
- List inventory - Show all items
- Check expiring [days] - Show items expiring soon
- Voice on/off - Enable/disable voice commands
- Help - Show this help message
- Quit/Exit - Exit the program

Examples:
- Add 3 apples
- Add 1 milk expires 2025-12-25
- Remove 2 apples
- List inventory
- Voice on
`

type DispatcherConfig struct {
	Parser         *Parser
	VoiceAvailable bool
	// StartInVoice only takes effect when VoiceAvailable is set.
	StartInVoice bool
}

type Dispatcher struct {
	store          Inventory
	parser         *Parser
	voiceAvailable bool
	mode           Mode
}

func NewDispatcher(store Inventory, cfg DispatcherConfig) *Dispatcher {
	p := cfg.Parser
	if p == nil {
		p = defaultParser
	}

	d := &Dispatcher{
		store:          store,
		parser:         p,
		voiceAvailable: cfg.VoiceAvailable,
		mode:           TextMode,
	}
	if cfg.VoiceAvailable && cfg.StartInVoice {
		d.mode = VoiceMode
	}
	return d
}

func (d *Dispatcher) Mode() Mode { return d.mode }

func (d *Dispatcher) VoiceAvailable() bool { return d.voiceAvailable }

// Handle runs one command. The error is only set when a mutation could not be
// persisted.
func (d *Dispatcher) Handle(ctx context.Context, text string) (string, error) {
	in := d.parser.Parse(text)
	log.Debug("Parsed", "intent", Name(in), "text", text)

	switch cmd := in.(type) {
	case Add:
		cat := category.Classify(cmd.Item)
		return d.store.AddItem(ctx, cmd.Item, cmd.Quantity, cat, cmd.Expiry)

	case Remove:
		return d.store.RemoveItem(ctx, cmd.Item, cmd.Quantity)

	case ListInventory:
		return d.store.ListInventory(), nil

	case CheckExpiring:
		return d.store.CheckExpiringSoon(cmd.Days), nil

	case Help:
		return HelpText, nil

	case SetVoiceMode:
		return d.setVoice(cmd.Enabled), nil

	case Unknown:
		return MsgUnknown, nil

	default:
		return "", fmt.Errorf("unhandled intent %T", in)
	}
}

func (d *Dispatcher) setVoice(enabled bool) string {
	if !enabled {
		d.mode = TextMode
		return MsgVoiceOff
	}
	if !d.voiceAvailable {
		return MsgVoiceUnavailable
	}
	d.mode = VoiceMode
	return MsgVoiceOn
}

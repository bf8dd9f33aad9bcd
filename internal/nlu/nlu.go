package nlu

import (
	log "log/slog"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"pantry/internal/inventory"
)

// Intent is the structured reading of one line of input.
type Intent interface {
	intent() string
}

type Add struct {
	Item     string
	Quantity int
	Expiry   *inventory.Date
}

// Remove with a nil Quantity removes the whole entry.
type Remove struct {
	Item     string
	Quantity *int
}

type ListInventory struct{}

type CheckExpiring struct {
	Days int
}

type Help struct{}

type SetVoiceMode struct {
	Enabled bool
}

type Unknown struct{}

func (Add) intent() string           { return "add" }
func (Remove) intent() string        { return "remove" }
func (ListInventory) intent() string { return "list_inventory" }
func (CheckExpiring) intent() string { return "check_expiring" }
func (Help) intent() string          { return "help" }
func (SetVoiceMode) intent() string  { return "set_voice_mode" }
func (Unknown) intent() string       { return "unknown" }

// Name is the snake_case label of an intent, used in logs.
func Name(i Intent) string { return i.intent() }

type rule struct {
	keywords []string
	build    func(p *Parser, text string) Intent
}

// rules are checked in order and the first keyword hit wins, so
// "add to list" is an Add.
var rules = []rule{
	{[]string{"add"}, (*Parser).parseAdd},
	{[]string{"remove", "delete"}, (*Parser).parseRemove},
	{[]string{"inventory", "list"}, func(*Parser, string) Intent { return ListInventory{} }},
	{[]string{"expir"}, (*Parser).parseExpiring},
	{[]string{"help"}, func(*Parser, string) Intent { return Help{} }},
	{[]string{"voice on"}, func(*Parser, string) Intent { return SetVoiceMode{Enabled: true} }},
	{[]string{"voice off"}, func(*Parser, string) Intent { return SetVoiceMode{Enabled: false} }},
}

type Parser struct {
	ExpiryWindow int
}

func NewParser(expiryWindow int) *Parser {
	if expiryWindow < 0 {
		expiryWindow = inventory.DefaultExpiryWindow
	}
	return &Parser{ExpiryWindow: expiryWindow}
}

var defaultParser = NewParser(inventory.DefaultExpiryWindow)

// Parse reads text with the default expiry window.
func Parse(text string) Intent { return defaultParser.Parse(text) }

// Parse never fails; anything it cannot use becomes Unknown.
func (p *Parser) Parse(text string) Intent {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.build(p, text)
			}
		}
	}
	return Unknown{}
}

func (p *Parser) parseAdd(text string) Intent {
	rest := stripVerb(text, "add")

	quantity := 1
	if n, tail, ok := leadingCount(rest); ok {
		quantity = n
		rest = tail
	}

	var expiry *inventory.Date
	if i := indexFold(rest, "expires"); i >= 0 {
		raw := strings.TrimSpace(rest[i+len("expires"):])
		rest = rest[:i]

		d, err := inventory.ParseDate(raw)
		if err != nil {
			log.Debug("Dropping expiry", "raw", raw, "err", err)
		} else {
			expiry = &d
		}
	}

	item := strings.TrimSpace(rest)
	if item == "" {
		return Unknown{}
	}
	return Add{Item: item, Quantity: quantity, Expiry: expiry}
}

func (p *Parser) parseRemove(text string) Intent {
	rest := stripVerb(text, "remove", "delete")

	var quantity *int
	if n, tail, ok := leadingCount(rest); ok {
		quantity = &n
		rest = tail
	}

	item := strings.TrimSpace(rest)
	if item == "" {
		return Unknown{}
	}
	return Remove{Item: item, Quantity: quantity}
}

// parseExpiring takes the first bare number in the text as the window,
// "check expiring in 3 days".
func (p *Parser) parseExpiring(text string) Intent {
	for _, tok := range strings.Fields(text) {
		if n, ok := count(tok); ok {
			return CheckExpiring{Days: n}
		}
	}
	return CheckExpiring{Days: p.ExpiryWindow}
}

// stripVerb drops a leading verb when it stands as its own word.
func stripVerb(text string, verbs ...string) string {
	s := strings.TrimLeftFunc(text, unicode.IsSpace)
	for _, v := range verbs {
		if len(s) < len(v) || !strings.EqualFold(s[:len(v)], v) {
			continue
		}
		rest := s[len(v):]
		if rest == "" {
			return ""
		}
		if r, _ := utf8.DecodeRuneInString(rest); unicode.IsSpace(r) {
			return rest[utf8.RuneLen(r):]
		}
	}
	return s
}

func indexFold(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}

// leadingCount splits off the first whitespace delimited token when it is a
// non-negative integer.
func leadingCount(s string) (int, string, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := strings.IndexFunc(s, unicode.IsSpace)
	tok, tail := s, ""
	if end >= 0 {
		tok, tail = s[:end], s[end:]
	}

	n, ok := count(tok)
	if !ok {
		return 0, s, false
	}
	return n, tail, true
}

func count(tok string) (int, bool) {
	if tok == "" {
		return 0, false
	}
	for _, r := range tok {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, false
	}
	return n, true
}

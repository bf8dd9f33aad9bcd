package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pantry/internal/category"
)

type Item struct {
	Quantity   int               `json:"quantity" yaml:"quantity"`
	Category   category.Category `json:"category" yaml:"category"`
	AddedDate  time.Time         `json:"added_date" yaml:"added_date"`
	ExpiryDate *Date             `json:"expiry_date" yaml:"expiry_date"`
}

// naiveLayout is an ISO timestamp without a zone, read as local time.
const naiveLayout = "2006-01-02T15:04:05.999999999"

func (it *Item) UnmarshalJSON(data []byte) error {
	type plain Item
	var raw struct {
		plain
		AddedDate string `json:"added_date"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*it = Item(raw.plain)

	if raw.AddedDate == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw.AddedDate)
	if err != nil {
		if t, err = time.ParseInLocation(naiveLayout, raw.AddedDate, time.Local); err != nil {
			return fmt.Errorf("added_date: %w", err)
		}
	}
	it.AddedDate = t
	return nil
}

// Inventory maps normalized item names to items and remembers the order in
// which names were first inserted. The zero value is an empty inventory.
type Inventory struct {
	items map[string]Item
	order []string
}

func New() *Inventory {
	return &Inventory{items: make(map[string]Item)}
}

// Normalize turns a user supplied item name into its inventory key.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (inv *Inventory) Len() int { return len(inv.order) }

func (inv *Inventory) Get(name string) (Item, bool) {
	it, ok := inv.items[Normalize(name)]
	return it, ok
}

// Put stores it under the normalized name. A new name goes to the end of the
// order; an existing one keeps its position.
func (inv *Inventory) Put(name string, it Item) {
	key := Normalize(name)
	if inv.items == nil {
		inv.items = make(map[string]Item)
	}
	if _, ok := inv.items[key]; !ok {
		inv.order = append(inv.order, key)
	}
	inv.items[key] = it
}

func (inv *Inventory) Delete(name string) {
	key := Normalize(name)
	if _, ok := inv.items[key]; !ok {
		return
	}
	delete(inv.items, key)
	for i, k := range inv.order {
		if k == key {
			inv.order = append(inv.order[:i], inv.order[i+1:]...)
			break
		}
	}
}

// All yields entries in insertion order.
func (inv *Inventory) All() iter.Seq2[string, Item] {
	return func(yield func(string, Item) bool) {
		for _, k := range inv.order {
			if !yield(k, inv.items[k]) {
				return
			}
		}
	}
}

func (inv *Inventory) Clone() *Inventory {
	out := New()
	for k, it := range inv.All() {
		if it.ExpiryDate != nil {
			d := *it.ExpiryDate
			it.ExpiryDate = &d
		}
		out.Put(k, it)
	}
	return out
}

func (inv *Inventory) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	i := 0
	for k, it := range inv.All() {
		if i > 0 {
			buf.WriteByte(',')
		}
		i++

		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(it)
		if err != nil {
			return nil, fmt.Errorf("marshal item %q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (inv *Inventory) UnmarshalJSON(data []byte) error {
	*inv = Inventory{items: make(map[string]Item)}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("inventory: expected object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("inventory: expected item name, got %v", tok)
		}

		var it Item
		if err := dec.Decode(&it); err != nil {
			return fmt.Errorf("inventory: item %q: %w", key, err)
		}
		it.Category = category.Parse(string(it.Category))
		inv.Put(key, it)
	}

	_, err = dec.Token()
	return err
}

func (inv *Inventory) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for k, it := range inv.All() {
		var val yaml.Node
		if err := val.Encode(it); err != nil {
			return nil, fmt.Errorf("encode item %q: %w", k, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&val,
		)
	}
	return node, nil
}

func (inv *Inventory) UnmarshalYAML(node *yaml.Node) error {
	*inv = Inventory{items: make(map[string]Item)}

	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("inventory: line %d: expected mapping", node.Line)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value

		var it Item
		if err := node.Content[i+1].Decode(&it); err != nil {
			return fmt.Errorf("inventory: item %q: %w", key, err)
		}
		it.Category = category.Parse(string(it.Category))
		inv.Put(key, it)
	}
	return nil
}

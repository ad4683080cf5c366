package bench

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/robotalks/gwbench/pkg/probe"
)

// HexBytes is a byte string encoded as hex in JSON.
type HexBytes []byte

// MarshalJSON implements json.Marshaler.
func (b HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(b))
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *HexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// Pattern is a known good option-byte layout. Only bits set in Mask are
// compared; a nil Mask compares every byte of Value.
type Pattern struct {
	Name  string   `json:"name"`
	Value HexBytes `json:"value"`
	Mask  HexBytes `json:"mask,omitempty"`
}

// Match checks the leading bytes of b.
func (p Pattern) Match(b []byte) bool {
	if len(b) < len(p.Value) {
		return false
	}
	for i, v := range p.Value {
		mask := byte(0xff)
		if p.Mask != nil {
			if i >= len(p.Mask) {
				continue
			}
			mask = p.Mask[i]
		}
		if (b[i]^v)&mask != 0 {
			return false
		}
	}
	return true
}

// Model is an entry of the hardware model table. A nil Submodel matches
// any submodel.
type Model struct {
	Name        string          `json:"name,omitempty"`
	Model       uint8           `json:"model"`
	Submodel    *uint8          `json:"submodel,omitempty"`
	OptionBytes []Pattern       `json:"option_bytes,omitempty"`
	Oscillator  *probe.OscSpec  `json:"oscillator,omitempty"`
	CC          *probe.CCWindow `json:"cc,omitempty"`
}

// overlay adds the checks of m to base.
func (m Model) overlay(base Model) Model {
	if m.Name != "" {
		base.Name = m.Name
	}
	base.Model, base.Submodel = m.Model, m.Submodel
	base.OptionBytes = append(append([]Pattern(nil), base.OptionBytes...), m.OptionBytes...)
	if m.Oscillator != nil {
		base.Oscillator = m.Oscillator
	}
	if m.CC != nil {
		base.CC = m.CC
	}
	return base
}

// Models is the hardware model table.
type Models struct {
	entries []Model
}

func submodel(n uint8) *uint8 {
	return &n
}

// optionBytesErased is the user option area of an AT32F4 as shipped, or
// after an OpenOCD stm32f1x unlock. The complement bytes are not checked.
var optionBytesErased = Pattern{
	Name:  "erased",
	Value: HexBytes{0xa5, 0x5a, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
	Mask:  HexBytes{0xff, 0xff, 0xff, 0, 0xff, 0, 0xff, 0, 0xff, 0, 0xff, 0, 0xff, 0, 0xff, 0},
}

// DefaultModels returns the table of known models.
func DefaultModels() *Models {
	osc := probe.DefaultOscSpec
	cc := probe.DefaultCCWindow
	return &Models{entries: []Model{
		{Name: "F1 Plus / AT32F4", Model: 4, OptionBytes: []Pattern{optionBytesErased}},
		{Name: "V4.1 USB-C", Model: 4, Submodel: submodel(1), Oscillator: &osc, CC: &cc},
		{Name: "F7", Model: 7, Oscillator: &osc},
	}}
}

// Add appends entries. Later entries overlay earlier ones.
func (m *Models) Add(entries ...Model) {
	m.entries = append(m.entries, entries...)
}

// Load adds the entries of a JSON array.
func (m *Models) Load(r io.Reader) error {
	var entries []Model
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return fmt.Errorf("models: %v", err)
	}
	for _, e := range entries {
		for _, p := range e.OptionBytes {
			if len(p.Value) == 0 || len(p.Value) > 32 {
				return fmt.Errorf("models: model %d pattern %q has %d bytes", e.Model, p.Name, len(p.Value))
			}
		}
	}
	m.Add(entries...)
	return nil
}

// LoadFile adds the entries of a JSON file.
func (m *Models) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return m.Load(f)
}

// Lookup merges every entry matching model and submodel, wildcard
// entries first. An unknown model has no model specific checks.
func (m *Models) Lookup(model, sub uint8) (res Model) {
	res.Model = model
	for _, e := range m.entries {
		if e.Model == model && e.Submodel == nil {
			res = e.overlay(res)
		}
	}
	for _, e := range m.entries {
		if e.Model == model && e.Submodel != nil && *e.Submodel == sub {
			res = e.overlay(res)
		}
	}
	res.Submodel = submodel(sub)
	return
}

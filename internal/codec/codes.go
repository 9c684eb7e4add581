package codec

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/02loveslollipop/tswater/internal/models"
)

// CodeTable maps stored transport/message codes to their kinds and back.
type CodeTable struct {
	channels     map[string]models.ChannelKind
	channelCodes map[models.ChannelKind]string
	messages     map[string]models.MessageKind
	messageCodes map[models.MessageKind]string
}

var defaultChannels = map[string]models.ChannelKind{
	"GSM":  models.ChannelGSM,
	"GPRS": models.ChannelGPRS,
	"BD":   models.ChannelBeidou,
	"PSTN": models.ChannelPSTN,
	"UHF":  models.ChannelUHF,
}

var defaultMessages = map[string]models.MessageKind{
	"TM": models.MessageTimed,
	"AD": models.MessageAdditional,
	"MN": models.MessageManual,
	"QR": models.MessageQuery,
}

// DefaultCodeTable returns the built-in code table.
func DefaultCodeTable() *CodeTable {
	t, err := NewCodeTable(defaultChannels, defaultMessages)
	if err != nil {
		panic(err)
	}
	return t
}

// NewCodeTable builds a table from code -> kind maps. Every known kind must
// appear under exactly one non-empty code, and the unknown kinds may not
// appear at all.
func NewCodeTable(channels map[string]models.ChannelKind, messages map[string]models.MessageKind) (*CodeTable, error) {
	t := &CodeTable{
		channels:     make(map[string]models.ChannelKind, len(channels)),
		channelCodes: make(map[models.ChannelKind]string, len(channels)),
		messages:     make(map[string]models.MessageKind, len(messages)),
		messageCodes: make(map[models.MessageKind]string, len(messages)),
	}

	for code, kind := range channels {
		if code == "" {
			return nil, fmt.Errorf("channel kind %s has an empty code", kind)
		}
		if kind == models.ChannelUnknown {
			return nil, fmt.Errorf("channel code %q maps to the unknown kind", code)
		}
		if prev, ok := t.channelCodes[kind]; ok {
			return nil, fmt.Errorf("channel kind %s has codes %q and %q", kind, prev, code)
		}
		t.channels[code] = kind
		t.channelCodes[kind] = code
	}

	for code, kind := range messages {
		if code == "" {
			return nil, fmt.Errorf("message kind %s has an empty code", kind)
		}
		if kind == models.MessageUnknown {
			return nil, fmt.Errorf("message code %q maps to the unknown kind", code)
		}
		if prev, ok := t.messageCodes[kind]; ok {
			return nil, fmt.Errorf("message kind %s has codes %q and %q", kind, prev, code)
		}
		t.messages[code] = kind
		t.messageCodes[kind] = code
	}

	for _, kind := range models.ChannelKinds() {
		if _, ok := t.channelCodes[kind]; !ok {
			return nil, fmt.Errorf("channel kind %s has no code", kind)
		}
	}
	for _, kind := range models.MessageKinds() {
		if _, ok := t.messageCodes[kind]; !ok {
			return nil, fmt.Errorf("message kind %s has no code", kind)
		}
	}

	return t, nil
}

// codeTableFile is the YAML layout of a code-table file. Kinds the file does
// not name keep their built-in code:
//
//	channels:
//	  GSM: gsm
//	messages:
//	  TM: timed
type codeTableFile struct {
	Channels map[string]string `yaml:"channels"`
	Messages map[string]string `yaml:"messages"`
}

// LoadCodeTable reads a code table from a YAML file.
func LoadCodeTable(path string) (*CodeTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read code table: %w", err)
	}
	return ParseCodeTable(data)
}

// ParseCodeTable decodes a YAML code table.
func ParseCodeTable(data []byte) (*CodeTable, error) {
	var file codeTableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse code table: %w", err)
	}

	channels := make(map[string]models.ChannelKind, len(file.Channels))
	for code, name := range file.Channels {
		kind, err := models.ParseChannelKind(name)
		if err != nil {
			return nil, fmt.Errorf("channel code %q: %w", code, err)
		}
		channels[code] = kind
	}

	messages := make(map[string]models.MessageKind, len(file.Messages))
	for code, name := range file.Messages {
		kind, err := models.ParseMessageKind(name)
		if err != nil {
			return nil, fmt.Errorf("message code %q: %w", code, err)
		}
		messages[code] = kind
	}

	return NewCodeTable(withDefaults(channels, defaultChannels), withDefaults(messages, defaultMessages))
}

// withDefaults adds the built-in code of every kind the file leaves out,
// unless the file already uses that code for something else.
func withDefaults[K comparable](file, defaults map[string]K) map[string]K {
	covered := make(map[K]bool, len(file))
	for _, kind := range file {
		covered[kind] = true
	}
	out := make(map[string]K, len(file)+len(defaults))
	for code, kind := range file {
		out[code] = kind
	}
	for code, kind := range defaults {
		if _, taken := out[code]; !taken && !covered[kind] {
			out[code] = kind
		}
	}
	return out
}

// Channel decodes a stored transport code. Unrecognised codes decode to the
// unknown variant carrying the raw code.
func (t *CodeTable) Channel(code string) models.ChannelType {
	if kind, ok := t.channels[code]; ok {
		return models.Channel(kind)
	}
	return models.ChannelType{Kind: models.ChannelUnknown, Code: code}
}

// ChannelCode encodes a transport type to its stored code.
func (t *CodeTable) ChannelCode(c models.ChannelType) string {
	if code, ok := t.channelCodes[c.Kind]; ok {
		return code
	}
	return c.Code
}

// Message decodes a stored reporting code.
func (t *CodeTable) Message(code string) models.MessageType {
	if kind, ok := t.messages[code]; ok {
		return models.Message(kind)
	}
	return models.MessageType{Kind: models.MessageUnknown, Code: code}
}

// MessageCode encodes a reporting type to its stored code.
func (t *CodeTable) MessageCode(m models.MessageType) string {
	if code, ok := t.messageCodes[m.Kind]; ok {
		return code
	}
	return m.Code
}

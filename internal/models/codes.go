package models

import (
	"fmt"
	"strings"
)

// ChannelKind enumerates the transports a station can report over.
type ChannelKind uint8

const (
	ChannelUnknown ChannelKind = iota
	ChannelGSM
	ChannelGPRS
	ChannelBeidou
	ChannelPSTN
	ChannelUHF
)

var channelNames = map[ChannelKind]string{
	ChannelUnknown: "unknown",
	ChannelGSM:     "gsm",
	ChannelGPRS:    "gprs",
	ChannelBeidou:  "beidou",
	ChannelPSTN:    "pstn",
	ChannelUHF:     "uhf",
}

func (k ChannelKind) String() string {
	if name, ok := channelNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ChannelKind(%d)", k)
}

// ChannelKinds returns every known channel kind.
func ChannelKinds() []ChannelKind {
	return []ChannelKind{ChannelGSM, ChannelGPRS, ChannelBeidou, ChannelPSTN, ChannelUHF}
}

// ParseChannelKind resolves a kind name as produced by String.
func ParseChannelKind(name string) (ChannelKind, error) {
	for kind, n := range channelNames {
		if strings.EqualFold(n, name) {
			return kind, nil
		}
	}
	return ChannelUnknown, fmt.Errorf("unknown channel kind %q", name)
}

// MessageKind enumerates the reporting modes of a message.
type MessageKind uint8

const (
	MessageUnknown MessageKind = iota
	MessageTimed
	MessageAdditional
	MessageManual
	MessageQuery
)

var messageNames = map[MessageKind]string{
	MessageUnknown:    "unknown",
	MessageTimed:      "timed",
	MessageAdditional: "additional",
	MessageManual:     "manual",
	MessageQuery:      "query",
}

func (k MessageKind) String() string {
	if name, ok := messageNames[k]; ok {
		return name
	}
	return fmt.Sprintf("MessageKind(%d)", k)
}

// MessageKinds returns every known message kind.
func MessageKinds() []MessageKind {
	return []MessageKind{MessageTimed, MessageAdditional, MessageManual, MessageQuery}
}

// ParseMessageKind resolves a kind name as produced by String.
func ParseMessageKind(name string) (MessageKind, error) {
	for kind, n := range messageNames {
		if strings.EqualFold(n, name) {
			return kind, nil
		}
	}
	return MessageUnknown, fmt.Errorf("unknown message kind %q", name)
}

// unknownPrefix tags the text form of a code that matched no code-table
// entry, e.g. "unknown:X7".
const unknownPrefix = "unknown:"

// ChannelType is a decoded transport code. Code holds the stored code when
// Kind is ChannelUnknown so it can be reported and written back unchanged.
type ChannelType struct {
	Kind ChannelKind
	Code string
}

// Channel returns the known channel type of the given kind.
func Channel(kind ChannelKind) ChannelType {
	return ChannelType{Kind: kind}
}

// Known reports whether the code matched a code-table entry.
func (c ChannelType) Known() bool {
	return c.Kind != ChannelUnknown
}

func (c ChannelType) String() string {
	if !c.Known() {
		return unknownPrefix + c.Code
	}
	return c.Kind.String()
}

func (c ChannelType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ChannelType) UnmarshalText(b []byte) error {
	s := string(b)
	if raw, ok := strings.CutPrefix(s, unknownPrefix); ok {
		*c = ChannelType{Kind: ChannelUnknown, Code: raw}
		return nil
	}
	kind, err := ParseChannelKind(s)
	if err != nil {
		return err
	}
	*c = ChannelType{Kind: kind}
	return nil
}

// MessageType is a decoded reporting code; see ChannelType.
type MessageType struct {
	Kind MessageKind
	Code string
}

// Message returns the known message type of the given kind.
func Message(kind MessageKind) MessageType {
	return MessageType{Kind: kind}
}

func (m MessageType) Known() bool {
	return m.Kind != MessageUnknown
}

func (m MessageType) String() string {
	if !m.Known() {
		return unknownPrefix + m.Code
	}
	return m.Kind.String()
}

func (m MessageType) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *MessageType) UnmarshalText(b []byte) error {
	s := string(b)
	if raw, ok := strings.CutPrefix(s, unknownPrefix); ok {
		*m = MessageType{Kind: MessageUnknown, Code: raw}
		return nil
	}
	kind, err := ParseMessageKind(s)
	if err != nil {
		return err
	}
	*m = MessageType{Kind: kind}
	return nil
}

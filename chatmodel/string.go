package chatmodel

import (
	"encoding/json"
	"strings"
)

// ContentProvider provides the content of a message for the chat history.
type ContentProvider interface {
	// GetContent gets the content of the message for the chat history
	GetContent() string
}

// String is a simple string type that implements the ContentProvider interface.
type String struct {
	value string
}

func NewString(str string) *String {
	return &String{
		value: str,
	}
}

// GetContent gets the content of the message for the chat history
func (o String) GetContent() string {
	return string(o.value)
}

func (s String) String() string {
	return string(s.value)
}

func (s String) Bytes() []byte {
	return []byte(s.value)
}

func (s *String) Unmarshal(bs []byte) error {
	str := strings.Trim(string(bs), "\"")

	*s = String{value: str}
	return nil
}

type Stringer interface {
	String() string
}

func Stringify(s any) string {
	if v, ok := s.(Stringer); ok {
		return v.String()
	}
	if v, ok := s.(ContentProvider); ok {
		return v.GetContent()
	}
	bs, _ := json.Marshal(s)
	return string(bs)
}

func ToBytes(s any) []byte {
	if v, ok := s.(Stringer); ok {
		return []byte(v.String())
	}
	if v, ok := s.(ContentProvider); ok {
		return []byte(v.GetContent())
	}
	bs, _ := json.Marshal(s)
	return bs
}

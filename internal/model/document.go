package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Document is the whole message collection, keyed by timestamp and kept in
// insertion order. The zero value is not usable; call NewDocument.
type Document struct {
	keys    []string
	records map[string]Message
}

func NewDocument() *Document {
	return &Document{records: make(map[string]Message)}
}

// Put inserts m under its timestamp. An existing record with the same key
// is overwritten in place and keeps its position.
func (d *Document) Put(m Message) {
	if _, ok := d.records[m.Timestamp]; !ok {
		d.keys = append(d.keys, m.Timestamp)
	}
	d.records[m.Timestamp] = m
}

func (d *Document) Get(timestamp string) (Message, bool) {
	m, ok := d.records[timestamp]
	return m, ok
}

func (d *Document) Len() int {
	return len(d.keys)
}

// Messages returns the records in insertion order.
func (d *Document) Messages() []Message {
	out := make([]Message, 0, len(d.keys))
	for _, k := range d.keys {
		out = append(out, d.records[k])
	}
	return out
}

// MarshalJSON writes the document as a single object with keys in insertion order.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalLiteral(k)
		if err != nil {
			return nil, err
		}
		val, err := marshalLiteral(d.records[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of timestamp -> {username, message},
// remembering the order in which keys appear.
func (d *Document) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("message document: expected object, got %v", tok)
	}

	doc := NewDocument()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("message document: unexpected key %v", tok)
		}

		var m Message
		if err := dec.Decode(&m); err != nil {
			return fmt.Errorf("message document: record %q: %w", key, err)
		}
		m.Timestamp = key
		doc.Put(m)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*d = *doc
	return nil
}

// EncodeDocument renders d the way it is kept on disk: two-space indent,
// non-ASCII and HTML characters written literally, no trailing newline.
func EncodeDocument(d *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func marshalLiteral(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

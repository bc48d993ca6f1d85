package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampKey_Format(t *testing.T) {
	ts := time.Date(2024, 3, 9, 7, 5, 1, 42000, time.Local)
	assert.Equal(t, "2024-03-09 07:05:01.000042", TimestampKey(ts))
}

func TestDocument_PutKeepsInsertionOrder(t *testing.T) {
	doc := NewDocument()
	doc.Put(Message{Timestamp: "b", Username: "bob", Body: "1"})
	doc.Put(Message{Timestamp: "a", Username: "ann", Body: "2"})
	doc.Put(Message{Timestamp: "c", Username: "cid", Body: "3"})

	// Overwriting an existing key must not move it
	doc.Put(Message{Timestamp: "b", Username: "bea", Body: "4"})

	msgs := doc.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"b", "a", "c"}, []string{msgs[0].Timestamp, msgs[1].Timestamp, msgs[2].Timestamp})
	assert.Equal(t, "bea", msgs[0].Username)
	assert.Equal(t, 3, doc.Len())
}

func TestDocument_UnmarshalPreservesKeyOrder(t *testing.T) {
	raw := `{"2024-01-02 00:00:00.000000": {"username": "zed", "message": "first"},
	         "2023-01-01 00:00:00.000000": {"username": "amy", "message": "second"}}`

	doc := NewDocument()
	require.NoError(t, json.Unmarshal([]byte(raw), doc))

	msgs := doc.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "zed", msgs[0].Username)
	assert.Equal(t, "first", msgs[0].Body)
	assert.Equal(t, "2023-01-01 00:00:00.000000", msgs[1].Timestamp)
}

func TestDocument_UnmarshalRejectsNonObject(t *testing.T) {
	for _, raw := range []string{`[]`, `null`, `"x"`, `{"k": 5}`} {
		doc := NewDocument()
		assert.Error(t, json.Unmarshal([]byte(raw), doc), raw)
	}
}

func TestEncodeDocument_Layout(t *testing.T) {
	doc := NewDocument()
	doc.Put(Message{Timestamp: "2024-01-01 10:00:00.000000", Username: "Дмитрий", Body: "<b>привет</b> & bye"})

	out, err := EncodeDocument(doc)
	require.NoError(t, err)

	expected := "{\n" +
		"  \"2024-01-01 10:00:00.000000\": {\n" +
		"    \"username\": \"Дмитрий\",\n" +
		"    \"message\": \"<b>привет</b> & bye\"\n" +
		"  }\n" +
		"}"
	assert.Equal(t, expected, string(out))
}

func TestEncodeDocument_Empty(t *testing.T) {
	out, err := EncodeDocument(NewDocument())
	require.NoError(t, err)
	assert.Equal(t, "{}", string(out))
}

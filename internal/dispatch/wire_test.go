package dispatch

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frameBytes(t *testing.T, method string, id, params string) []byte {
	t.Helper()
	var buf bytes.Buffer
	msg := Message{JSONRPC: "2.0", Method: method}
	if id != "" {
		msg.ID = json.RawMessage(id)
	}
	if params != "" {
		msg.Params = json.RawMessage(params)
	}
	require.NoError(t, writeFrame(&buf, msg))
	return buf.Bytes()
}

func TestWriteThenReadFrameRoundTrips(t *testing.T) {
	raw := frameBytes(t, "initialize", "1", `{"rootUri":"file:///a"}`)

	msg, err := readFrame(bufio.NewReader(bytes.NewReader(raw)))
	require.NoError(t, err)
	assert.Equal(t, "initialize", msg.Method)
	assert.Equal(t, json.RawMessage("1"), msg.ID)
}

func TestReadFrameRejectsMissingContentLength(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("\r\n{}"))
	_, err := readFrame(r)
	assert.Error(t, err)
}

func TestIsNotificationAndIsResponse(t *testing.T) {
	notif := Message{Method: "textDocument/didOpen"}
	assert.True(t, notif.IsNotification())
	assert.False(t, notif.IsResponse())

	resp := Message{ID: json.RawMessage("1"), Result: json.RawMessage("true")}
	assert.True(t, resp.IsResponse())
	assert.False(t, resp.IsNotification())
}

package dispatch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAllFrames(t *testing.T, data []byte) []Message {
	t.Helper()
	r := bufio.NewReader(bytes.NewReader(data))
	var out []Message
	for {
		msg, err := readFrame(r)
		if err != nil {
			return out
		}
		out = append(out, msg)
	}
}

func TestRunRoutesRequestAndWritesResponse(t *testing.T) {
	var out bytes.Buffer
	d := New(&out)
	d.Executor = func(f func()) { f() }
	d.HandleRequest("ping", func(ctx context.Context, params json.RawMessage) (any, *WireError) {
		return "pong", nil
	})

	var in bytes.Buffer
	in.Write(frameBytes(t, "ping", `1`, `{}`))

	require.NoError(t, d.Run(context.Background(), &in))

	msgs := readAllFrames(t, out.Bytes())
	require.Len(t, msgs, 1)
	assert.Equal(t, json.RawMessage(`1`), msgs[0].ID)
	assert.Equal(t, json.RawMessage(`"pong"`), msgs[0].Result)
}

func TestRunReturnsMethodNotFoundForUnknownRequest(t *testing.T) {
	var out bytes.Buffer
	d := New(&out)
	d.Executor = func(f func()) { f() }

	var in bytes.Buffer
	in.Write(frameBytes(t, "does/not/exist", `7`, `{}`))

	require.NoError(t, d.Run(context.Background(), &in))

	msgs := readAllFrames(t, out.Bytes())
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].Error)
	assert.Equal(t, codeMethodNotFound, msgs[0].Error.Code)
}

func TestRunInvokesNotificationHandler(t *testing.T) {
	var out bytes.Buffer
	d := New(&out)
	t.Cleanup(d.Close)
	received := make(chan string, 1)
	d.HandleNotification("textDocument/didOpen", func(params json.RawMessage) {
		received <- string(params)
	})

	var in bytes.Buffer
	in.Write(frameBytes(t, "textDocument/didOpen", "", `{"textDocument":{"uri":"file:///a"}}`))

	go d.Run(context.Background(), &in)

	select {
	case p := <-received:
		assert.Contains(t, p, "file:///a")
	case <-time.After(2 * time.Second):
		t.Fatal("notification handler was never invoked")
	}
}

func TestRequestObservesPriorSameURINotifications(t *testing.T) {
	var mu sync.Mutex
	var order []string
	done := make(chan []string, 1)

	d := New(&bytes.Buffer{})
	t.Cleanup(d.Close)
	d.HandleNotification("textDocument/didChange", func(params json.RawMessage) {
		mu.Lock()
		order = append(order, "notify")
		mu.Unlock()
	})
	d.HandleRequest("textDocument/hover", func(ctx context.Context, params json.RawMessage) (any, *WireError) {
		mu.Lock()
		snapshot := append([]string(nil), order...)
		mu.Unlock()
		done <- snapshot
		return "ok", nil
	})

	var in bytes.Buffer
	in.Write(frameBytes(t, "textDocument/didChange", "", `{"textDocument":{"uri":"file:///a"}}`))
	in.Write(frameBytes(t, "textDocument/didChange", "", `{"textDocument":{"uri":"file:///a"}}`))
	in.Write(frameBytes(t, "textDocument/hover", `1`, `{"textDocument":{"uri":"file:///a"}}`))

	go d.Run(context.Background(), &in)

	select {
	case snap := <-done:
		assert.Equal(t, []string{"notify", "notify"}, snap)
	case <-time.After(2 * time.Second):
		t.Fatal("hover handler never ran")
	}
}

func TestCancelRequestCancelsHandlerContext(t *testing.T) {
	cancelled := make(chan struct{})

	d := New(&bytes.Buffer{})
	d.HandleRequest("slow", func(ctx context.Context, params json.RawMessage) (any, *WireError) {
		<-ctx.Done()
		close(cancelled)
		return nil, &WireError{Code: RequestCancelled, Message: "cancelled"}
	})

	var in bytes.Buffer
	in.Write(frameBytes(t, "slow", `1`, `{}`))
	in.Write(frameBytes(t, "$/cancelRequest", "", `{"id":1}`))

	go d.Run(context.Background(), &in)

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("handler context was never cancelled")
	}
}

func TestShutdownRejectsFurtherRequestsThenExitStopsRun(t *testing.T) {
	var out bytes.Buffer
	d := New(&out)
	d.Executor = func(f func()) { f() }
	d.HandleRequest("shutdown", func(ctx context.Context, params json.RawMessage) (any, *WireError) {
		return nil, nil
	})
	d.HandleRequest("textDocument/hover", func(ctx context.Context, params json.RawMessage) (any, *WireError) {
		return "should not run", nil
	})
	exited := make(chan struct{})
	d.OnExit(func() { close(exited) })

	var in bytes.Buffer
	in.Write(frameBytes(t, "shutdown", `1`, `{}`))
	in.Write(frameBytes(t, "textDocument/hover", `2`, `{}`))
	in.Write(frameBytes(t, "exit", "", ""))

	err := d.Run(context.Background(), &in)
	require.NoError(t, err)

	select {
	case <-exited:
	default:
		t.Fatal("OnExit callback was never invoked")
	}

	msgs := readAllFrames(t, out.Bytes())
	require.Len(t, msgs, 2)
	assert.Equal(t, json.RawMessage(`1`), msgs[0].ID)
	assert.Nil(t, msgs[0].Error)
	require.NotNil(t, msgs[1].Error)
	assert.Equal(t, codeInvalidRequest, msgs[1].Error.Code)
}

package log

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent(connID string, category Category) Event {
	e := Event{
		Timestamp:    time.Now().UTC(),
		ConnectionID: connID,
		Direction:    DirectionOut,
		Layer:        LayerTransport,
		Category:     category,
		Transport:    "tls",
		RemoteAddr:   "takserver.example:8089",
	}
	switch category {
	case CategoryFrame:
		e.Frame = NewFrameEvent([]byte("<event/>"))
	case CategoryState:
		e.StateChange = &StateChangeEvent{OldState: "connecting", NewState: "authenticated"}
	case CategoryError:
		e.Error = &ErrorEventData{Message: "write failed", Context: "publish"}
	}
	return e
}

func TestEncodeDecodeEvent(t *testing.T) {
	original := testEvent("conn-1", CategoryFrame)
	original.EventUID = "TRACK1"

	data, err := EncodeEvent(original)
	require.NoError(t, err)

	decoded, err := DecodeEvent(data)
	require.NoError(t, err)

	assert.Equal(t, original.ConnectionID, decoded.ConnectionID)
	assert.Equal(t, original.Direction, decoded.Direction)
	assert.Equal(t, original.Layer, decoded.Layer)
	assert.Equal(t, original.Category, decoded.Category)
	assert.Equal(t, original.Transport, decoded.Transport)
	assert.Equal(t, original.RemoteAddr, decoded.RemoteAddr)
	assert.Equal(t, original.EventUID, decoded.EventUID)
	require.NotNil(t, decoded.Frame)
	assert.Equal(t, original.Frame.Size, decoded.Frame.Size)
	assert.Equal(t, original.Frame.Data, decoded.Frame.Data)
	assert.True(t, original.Timestamp.Equal(decoded.Timestamp))
}

func TestFrameEventTruncation(t *testing.T) {
	big := bytes.Repeat([]byte("x"), MaxLoggedFrameData+100)

	fe := NewFrameEvent(big)
	assert.Equal(t, len(big), fe.Size)
	assert.Len(t, fe.Data, MaxLoggedFrameData)
	assert.True(t, fe.Truncated)

	small := []byte("<event/>")
	fe = NewFrameEvent(small)
	assert.Equal(t, len(small), fe.Size)
	assert.Equal(t, small, fe.Data)
	assert.False(t, fe.Truncated)
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "IN", DirectionIn.String())
	assert.Equal(t, "OUT", DirectionOut.String())
	assert.Equal(t, "UNKNOWN", Direction(99).String())

	assert.Equal(t, "TRANSPORT", LayerTransport.String())
	assert.Equal(t, "CODEC", LayerCodec.String())
	assert.Equal(t, "PUBLISHER", LayerPublisher.String())

	assert.Equal(t, "FRAME", CategoryFrame.String())
	assert.Equal(t, "STATE", CategoryState.String())
	assert.Equal(t, "ERROR", CategoryError.String())
}

func TestFileLoggerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.cbor")

	logger, err := NewFileLogger(path)
	require.NoError(t, err)

	logger.Log(testEvent("conn-1", CategoryFrame))
	logger.Log(testEvent("conn-1", CategoryState))
	logger.Log(testEvent("conn-2", CategoryError))
	require.NoError(t, logger.Close())

	// Close is idempotent, and Log after Close is a no-op.
	require.NoError(t, logger.Close())
	logger.Log(testEvent("conn-3", CategoryFrame))

	events, err := ReadEventsFile(path, Filter{})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, CategoryFrame, events[0].Category)
	assert.Equal(t, CategoryState, events[1].Category)
	assert.Equal(t, CategoryError, events[2].Category)
}

func TestFileLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.cbor")

	for i := 0; i < 2; i++ {
		logger, err := NewFileLogger(path)
		require.NoError(t, err)
		logger.Log(testEvent("conn-1", CategoryFrame))
		require.NoError(t, logger.Close())
	}

	events, err := ReadEventsFile(path, Filter{})
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestFileLoggerConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.cbor")

	logger, err := NewFileLogger(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				logger.Log(testEvent("conn-1", CategoryFrame))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, logger.Close())

	events, err := ReadEventsFile(path, Filter{})
	require.NoError(t, err)
	assert.Len(t, events, 200)
}

func TestReadEventsFilter(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.Encode(testEvent("conn-1", CategoryFrame)))
	require.NoError(t, enc.Encode(testEvent("conn-2", CategoryState)))
	require.NoError(t, enc.Encode(testEvent("conn-1", CategoryError)))

	byConn, err := ReadEvents(bytes.NewReader(buf.Bytes()), Filter{ConnectionID: "conn-1"})
	require.NoError(t, err)
	assert.Len(t, byConn, 2)

	cat := CategoryState
	byCat, err := ReadEvents(bytes.NewReader(buf.Bytes()), Filter{Category: &cat})
	require.NoError(t, err)
	require.Len(t, byCat, 1)
	assert.Equal(t, "conn-2", byCat[0].ConnectionID)

	layer := LayerTransport
	byLayer, err := ReadEvents(bytes.NewReader(buf.Bytes()), Filter{Layer: &layer})
	require.NoError(t, err)
	assert.Len(t, byLayer, 3)
}

func TestReadEventsTruncatedStream(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.Encode(testEvent("conn-1", CategoryFrame)))
	full := buf.Len()
	require.NoError(t, enc.Encode(testEvent("conn-1", CategoryState)))

	// Cut the second record short.
	truncated := buf.Bytes()[:full+3]
	events, err := ReadEvents(bytes.NewReader(truncated), Filter{})
	assert.Error(t, err)
	assert.Len(t, events, 1)
}

func TestMultiLoggerFanOut(t *testing.T) {
	var mu sync.Mutex
	var a, b []Event
	la := loggerFunc(func(e Event) { mu.Lock(); a = append(a, e); mu.Unlock() })
	lb := loggerFunc(func(e Event) { mu.Lock(); b = append(b, e); mu.Unlock() })

	multi := NewMultiLogger(la, nil, lb)
	multi.Log(testEvent("conn-1", CategoryFrame))
	multi.Log(testEvent("conn-1", CategoryState))

	assert.Len(t, a, 2)
	assert.Len(t, b, 2)
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(NoopLogger); !ok {
		t.Error("expected NoopLogger for nil input")
	}
	fl := &FileLogger{file: os.Stdout}
	if OrNoop(fl) != fl {
		t.Error("expected passthrough for non-nil logger")
	}
}

type loggerFunc func(Event)

func (f loggerFunc) Log(e Event) { f(e) }

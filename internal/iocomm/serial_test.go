package iocomm

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamTransport_RoundTrip(t *testing.T) {
	host, board := net.Pipe()
	tr := NewStreamTransport(host)
	defer tr.Close()

	go func() {
		sc := bufio.NewScanner(board)
		for sc.Scan() {
			switch sc.Text() {
			case "GETADC 9":
				_, _ = board.Write([]byte("garbage\r\n\r\nADC 9 2600\r\n"))
			case "GETFW":
				_, _ = board.Write([]byte("FW 1.2"))
				_, _ = board.Write([]byte(".3\n"))
			}
		}
	}()

	require.NoError(t, tr.Write(GetADC(9)))
	ev := nextEvent(t, tr)
	assert.Equal(t, KindADC, ev.Kind)
	assert.Equal(t, uint16(9), ev.Channel)
	assert.Equal(t, uint32(2600), ev.Value)
	assert.False(t, ev.Received.IsZero())

	require.NoError(t, tr.Write(RequestFirmware()))
	ev = nextEvent(t, tr)
	assert.Equal(t, KindFirmware, ev.Kind)
	assert.Equal(t, "1.2.3", ev.Text)
}

func TestStreamTransport_Close(t *testing.T) {
	host, board := net.Pipe()
	defer board.Close()
	tr := NewStreamTransport(host)

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	_, ok := <-tr.Events()
	assert.False(t, ok, "events channel should be closed")
	assert.ErrorIs(t, tr.Write(GetCuff()), ErrClosed)
}

func TestStreamTransport_RemoteHangup(t *testing.T) {
	host, board := net.Pipe()
	tr := NewStreamTransport(host)
	defer tr.Close()

	require.NoError(t, board.Close())

	select {
	case _, ok := <-tr.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("reader did not stop after hangup")
	}
}

func nextEvent(t *testing.T, tr Transport) Event {
	t.Helper()
	select {
	case ev, ok := <-tr.Events():
		require.True(t, ok, "event stream closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
	return Event{}
}

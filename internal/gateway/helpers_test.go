package gateway

import (
	"encoding/json"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/models"
)

type fakeTransport struct {
	pings  atomic.Int32
	closes atomic.Int32
}

func (t *fakeTransport) Ping() error {
	t.pings.Add(1)
	return nil
}

func (t *fakeTransport) Close() error {
	t.closes.Add(1)
	return nil
}

func newTestConn(id string) *Conn {
	return NewConn(id, &fakeTransport{}, 16)
}

// drain returns every frame currently buffered on c.
func drain(t *testing.T, c *Conn) []models.Event {
	t.Helper()

	var out []models.Event
	for {
		select {
		case data, ok := <-c.Outbound():
			if !ok {
				return out
			}
			var evt models.Event
			require.NoError(t, json.Unmarshal(data, &evt))
			out = append(out, evt)
		default:
			return out
		}
	}
}

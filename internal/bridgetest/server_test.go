package bridgetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Lifecycle(t *testing.T) {
	s := NewSession()
	assert.Equal(t, StateDisconnected, s.State())

	require.NoError(t, s.IssueQR(DefaultQRString))
	assert.Equal(t, StatePending, s.State())

	require.NoError(t, s.Scan("+15551234567"))
	assert.Equal(t, StateConnected, s.State())

	require.NoError(t, s.Logout())
	assert.Equal(t, StateDisconnected, s.State())
}

func TestSession_Expiry(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.IssueQR(DefaultQRString))
	require.NoError(t, s.Expire())
	assert.Equal(t, StateExpired, s.State())

	// A new pairing string can be issued after expiry.
	require.NoError(t, s.IssueQR(DefaultQRString))
	assert.Equal(t, StatePending, s.State())
}

func TestSession_IllegalTransitions(t *testing.T) {
	s := NewSession()

	// Cannot scan without a pairing string.
	assert.Error(t, s.Scan("+15551234567"))

	// Cannot connect straight from expired.
	require.NoError(t, s.IssueQR(DefaultQRString))
	require.NoError(t, s.Expire())
	assert.Error(t, s.Scan("+15551234567"))

	// Cannot expire a connected session.
	require.NoError(t, s.IssueQR(DefaultQRString))
	require.NoError(t, s.Scan("+15551234567"))
	assert.Error(t, s.Expire())
}

func TestConnectAfter_FromDisconnected(t *testing.T) {
	srv := NewServer()
	defer srv.Close()

	// No pairing string issued yet; ConnectAfter must route the session
	// through pending itself rather than scan from disconnected.
	srv.ConnectAfter(context.Background(), 50*time.Millisecond, "+15551234567")

	deadline := time.After(2 * time.Second)
	for srv.Session.State() != StateConnected {
		select {
		case <-deadline:
			t.Fatalf("session never connected, state %s", srv.Session.State())
		case <-time.After(20 * time.Millisecond):
		}
	}

	_, _, phone := srv.Session.snapshot()
	assert.Equal(t, "+15551234567", phone)
}

func TestSession_QRRotation(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.IssueQR("first"))
	require.NoError(t, s.IssueQR("second"))

	_, qr, _ := s.snapshot()
	assert.Equal(t, "second", qr)
	assert.Equal(t, StatePending, s.State())
}

package wol

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/fgeck/borgtm/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockClient struct {
	wakeFunc func(broadcastIP string, mac net.HardwareAddr) error
	calls    int
}

func (m *mockClient) Wake(broadcastIP string, mac net.HardwareAddr) error {
	m.calls++
	if m.wakeFunc != nil {
		return m.wakeFunc(broadcastIP, mac)
	}
	return nil
}

type mockHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestWake_InvalidMAC(t *testing.T) {
	svc := NewWithClients(testLogger(), &mockClient{}, &mockHTTPClient{})

	err := svc.Wake(context.Background(), models.WOLConfig{MACAddress: "not-a-mac"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid MAC address")
}

func TestWake_NoPingURL(t *testing.T) {
	client := &mockClient{
		wakeFunc: func(broadcastIP string, mac net.HardwareAddr) error {
			assert.Equal(t, "192.168.1.255", broadcastIP)
			return nil
		},
	}
	svc := NewWithClients(testLogger(), client, &mockHTTPClient{})

	err := svc.Wake(context.Background(), models.WOLConfig{
		MACAddress:  "aa:bb:cc:dd:ee:ff",
		BroadcastIP: "192.168.1.255",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, client.calls)
}

func TestWake_PacketSendFailure(t *testing.T) {
	client := &mockClient{
		wakeFunc: func(broadcastIP string, mac net.HardwareAddr) error {
			return errors.New("network unreachable")
		},
	}
	svc := NewWithClients(testLogger(), client, &mockHTTPClient{})

	err := svc.Wake(context.Background(), models.WOLConfig{
		MACAddress:  "aa:bb:cc:dd:ee:ff",
		BroadcastIP: "192.168.1.255",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send WOL packet")
}

func TestWake_WaitsForTarget(t *testing.T) {
	attempts := 0
	httpClient := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("connection refused")
			}
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader("")),
			}, nil
		},
	}
	svc := NewWithClients(testLogger(), &mockClient{}, httpClient)

	err := svc.Wake(context.Background(), models.WOLConfig{
		MACAddress:   "aa:bb:cc:dd:ee:ff",
		BroadcastIP:  "192.168.1.255",
		PingURL:      "http://target:8000/health",
		Timeout:      time.Second,
		PollInterval: time.Millisecond,
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWake_TargetTimeout(t *testing.T) {
	httpClient := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := NewWithClients(testLogger(), &mockClient{}, httpClient)

	err := svc.Wake(context.Background(), models.WOLConfig{
		MACAddress:   "aa:bb:cc:dd:ee:ff",
		BroadcastIP:  "192.168.1.255",
		PingURL:      "http://target:8000/health",
		Timeout:      10 * time.Millisecond,
		PollInterval: time.Millisecond,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout waiting for target")
}

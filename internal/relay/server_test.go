package relay

import (
	"bufio"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"driverops/internal/config"
	"driverops/internal/location"
)

type recordingPublisher struct {
	mu      sync.Mutex
	devices []string
	samples []location.Sample
}

func (p *recordingPublisher) Publish(deviceID string, s location.Sample) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.devices = append(p.devices, deviceID)
	p.samples = append(p.samples, s)
	return nil
}

func TestExtractLine(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		data     string
		wantLine string
		wantNil  bool
		wantRest string
	}{
		"complete":   {data: "{\"lat\":1}\n", wantLine: `{"lat":1}`},
		"crlf":       {data: "PING\r\nnext", wantLine: "PING", wantRest: "next"},
		"incomplete": {data: "{\"lat\":1", wantNil: true, wantRest: "{\"lat\":1"},
		"blank":      {data: "  \nx", wantLine: "", wantRest: "x"},
		"two lines":  {data: "a\nb\n", wantLine: "a", wantRest: "b\n"},
	}
	for name, tt := range tests {
		line, rest := extractLine([]byte(tt.data))
		if tt.wantNil != (line == nil) {
			t.Fatalf("%s: line = %q, want nil %v", name, line, tt.wantNil)
		}
		if !tt.wantNil && string(line) != tt.wantLine {
			t.Fatalf("%s: line = %q, want %q", name, line, tt.wantLine)
		}
		if string(rest) != tt.wantRest {
			t.Fatalf("%s: rest = %q, want %q", name, rest, tt.wantRest)
		}
	}

	long := make([]byte, maxLineLength+1)
	if line, rest := extractLine(long); line != nil || rest != nil {
		t.Fatal("overlong line should be dropped")
	}
}

func TestConnectionRelaysSamples(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	srv := NewServer(&config.RelayConfig{RelayID: "relay-test"}, nil, pub)
	defer srv.Stop()

	client, conn := net.Pipe()
	session := &Session{ConnID: "relay-test-1", Conn: conn, ClientIP: "pipe", LastActive: time.Now()}
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.handleConnection(session)
	}()

	writes := []string{
		"{\"device_id\":\"phone-7\",\"lat\":-23.5,\"lon\":-46.6,\"accuracy\":5}\n",
		"{\"lat\":95,\"lon\":0}\n",
		"{\"lat\":-23.6,",
		"\"lon\":-46.7}\n",
	}
	for _, w := range writes {
		if _, err := client.Write([]byte(w)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	if _, err := client.Write([]byte("PING\n")); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	reply, err := bufio.NewReader(client).ReadString('\n')
	if err != nil || reply != "PONG\n" {
		t.Fatalf("heartbeat reply %q, err %v", reply, err)
	}

	rec := httptest.NewRecorder()
	srv.handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	var sessions []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &sessions); err != nil {
		t.Fatalf("decode sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0]["device_id"] != "phone-7" || sessions[0]["samples"] != float64(2) {
		t.Fatalf("unexpected sessions %v", sessions)
	}

	client.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("connection handler did not return")
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.samples) != 2 {
		t.Fatalf("expected 2 relayed samples, got %d", len(pub.samples))
	}
	for _, d := range pub.devices {
		if d != "phone-7" {
			t.Fatalf("sample published for %q", d)
		}
	}
	if pub.samples[1].Lat != -23.6 || pub.samples[1].Lon != -46.7 {
		t.Fatalf("split line decoded as %+v", pub.samples[1])
	}
	if _, ok := srv.sessions.Load("phone-7"); ok {
		t.Fatal("closed session still registered")
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv := NewServer(&config.RelayConfig{RelayID: "relay-9"}, nil, &recordingPublisher{})
	defer srv.Stop()

	rec := httptest.NewRecorder()
	srv.handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["relay_id"] != "relay-9" {
		t.Fatalf("unexpected health %v", body)
	}
}

func TestCleanupKeepsReconnectedDevice(t *testing.T) {
	t.Parallel()

	srv := NewServer(&config.RelayConfig{RelayID: "relay-9"}, nil, &recordingPublisher{})
	defer srv.Stop()

	stale := &Session{ConnID: "relay-9-1", DeviceID: "phone-7"}
	fresh := &Session{ConnID: "relay-9-2", DeviceID: "phone-7"}
	srv.sessions.Store("phone-7", stale)
	srv.sessions.Store("phone-7", fresh)

	srv.cleanupSession(stale)
	got, ok := srv.sessions.Load("phone-7")
	if !ok || got.(*Session) != fresh {
		t.Fatalf("old connection removed the reconnected session: %v", got)
	}

	srv.cleanupSession(fresh)
	if _, ok := srv.sessions.Load("phone-7"); ok {
		t.Fatal("closed session still registered")
	}
}

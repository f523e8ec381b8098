package instance

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/genricoloni/mediashell/internal/config"
	"go.uber.org/zap"
)

func testConfig(dir string, readTimeout time.Duration) *config.AppConfig {
	cfg := config.Default()
	cfg.AppID = "t"
	cfg.SocketDir = dir
	cfg.HandoffTimeout = time.Second
	cfg.ReadTimeout = readTimeout
	return cfg
}

func newServer(t *testing.T, dir string, readTimeout time.Duration) *Coordinator {
	t.Helper()
	c := NewCoordinator(zap.NewNop(), testConfig(dir, readTimeout))
	if !c.StartServing(context.Background()) {
		t.Fatal("StartServing returned false")
	}
	t.Cleanup(func() {
		_ = c.Stop(context.Background())
	})
	return c
}

func expectReceived(t *testing.T, c *Coordinator, expected string) {
	t.Helper()
	select {
	case got := <-c.Received():
		if got != expected {
			t.Errorf("expected %s, got %s", expected, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", expected)
	}
}

func TestChannelName(t *testing.T) {
	tests := []struct {
		appID    string
		expected string
	}{
		{"MediaPlayer", "MediaPlayer_SingleInstance"},
		{"org.example.player", "org.example.player_SingleInstance"},
		{"my player/v2", "my_player_v2_SingleInstance"},
	}

	for _, tt := range tests {
		if got := ChannelName(tt.appID); got != tt.expected {
			t.Errorf("ChannelName(%q): expected %s, got %s", tt.appID, tt.expected, got)
		}
		if ChannelName(tt.appID) != ChannelName(tt.appID) {
			t.Errorf("ChannelName(%q) is not deterministic", tt.appID)
		}
	}
}

func TestSocketDir(t *testing.T) {
	if got := SocketDir("/run/custom"); got != "/run/custom" {
		t.Errorf("explicit dir should win, got %s", got)
	}
	if got := SocketDir(""); got == "" {
		t.Error("default socket dir must not be empty")
	}
}

func TestCoordinator_HandoffRoundTrip(t *testing.T) {
	dir := t.TempDir()
	server := newServer(t, dir, time.Second)
	client := NewCoordinator(zap.NewNop(), testConfig(dir, time.Second))

	if client.SocketPath() != server.SocketPath() {
		t.Fatalf("client and server disagree on socket: %s vs %s", client.SocketPath(), server.SocketPath())
	}

	// the server keeps accepting after each message
	paths := []string{
		filepath.Join(dir, "a.mp3"),
		filepath.Join(dir, "b.mkv"),
		filepath.Join(dir, "c.flac"),
	}
	for _, p := range paths {
		if !client.TryHandoff(context.Background(), p) {
			t.Fatalf("TryHandoff(%s) returned false", p)
		}
		expectReceived(t, server, p)
	}
}

func TestCoordinator_HandoffSendsAbsolutePath(t *testing.T) {
	dir := t.TempDir()
	server := newServer(t, dir, time.Second)
	client := NewCoordinator(zap.NewNop(), testConfig(dir, time.Second))

	t.Chdir(dir)
	if !client.TryHandoff(context.Background(), "song.mp3") {
		t.Fatal("TryHandoff returned false")
	}

	abs, err := filepath.Abs("song.mp3")
	if err != nil {
		t.Fatal(err)
	}
	expectReceived(t, server, abs)
}

func TestCoordinator_HandoffWithoutServer(t *testing.T) {
	client := NewCoordinator(zap.NewNop(), testConfig(t.TempDir(), time.Second))

	if client.TryHandoff(context.Background(), "/music/a.mp3") {
		t.Error("TryHandoff should fail when nothing listens")
	}
	if client.TryHandoff(context.Background(), "") {
		t.Error("TryHandoff should never send an empty path")
	}
	if client.Serving() {
		t.Error("client should not report serving")
	}
}

func TestCoordinator_SecondPrimaryIsRefused(t *testing.T) {
	dir := t.TempDir()
	first := newServer(t, dir, time.Second)

	second := NewCoordinator(zap.NewNop(), testConfig(dir, time.Second))
	if second.StartServing(context.Background()) {
		t.Fatal("second StartServing should fail while the first is alive")
	}
	if second.Serving() {
		t.Error("refused coordinator reports serving")
	}

	// the first server is untouched
	client := NewCoordinator(zap.NewNop(), testConfig(dir, time.Second))
	if !client.TryHandoff(context.Background(), "/music/a.mp3") {
		t.Fatal("handoff to the first server failed")
	}
	expectReceived(t, first, "/music/a.mp3")

	if err := first.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	third := NewCoordinator(zap.NewNop(), testConfig(dir, time.Second))
	if !third.StartServing(context.Background()) {
		t.Fatal("StartServing should succeed once the first server stopped")
	}
	_ = third.Stop(context.Background())
}

func TestCoordinator_RemovesStaleSocket(t *testing.T) {
	tests := []struct {
		name  string
		leave func(t *testing.T, path string)
	}{
		{
			name: "Socket left by a crashed primary",
			leave: func(t *testing.T, path string) {
				l, err := net.Listen("unix", path)
				if err != nil {
					t.Fatal(err)
				}
				l.(*net.UnixListener).SetUnlinkOnClose(false)
				_ = l.Close()
			},
		},
		{
			name: "Regular file in place of the socket",
			leave: func(t *testing.T, path string) {
				if err := os.WriteFile(path, []byte("junk"), 0o600); err != nil {
					t.Fatal(err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			cfg := testConfig(dir, time.Second)
			probe := NewCoordinator(zap.NewNop(), cfg)
			tt.leave(t, probe.SocketPath())

			if _, err := os.Stat(probe.SocketPath()); err != nil {
				t.Fatalf("setup: stale entry missing: %v", err)
			}

			server := newServer(t, dir, time.Second)
			client := NewCoordinator(zap.NewNop(), cfg)
			if !client.TryHandoff(context.Background(), "/music/a.mp3") {
				t.Fatal("handoff after stale cleanup failed")
			}
			expectReceived(t, server, "/music/a.mp3")
		})
	}
}

func TestCoordinator_ConcurrentStartServing(t *testing.T) {
	dir := t.TempDir()
	const contenders = 8

	coordinators := make([]*Coordinator, contenders)
	results := make([]bool, contenders)
	var wg sync.WaitGroup
	for i := range coordinators {
		coordinators[i] = NewCoordinator(zap.NewNop(), testConfig(dir, time.Second))
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = coordinators[i].StartServing(context.Background())
		}(i)
	}
	wg.Wait()

	winners := 0
	for i, ok := range results {
		if ok {
			winners++
		}
		defer coordinators[i].Stop(context.Background())
	}
	if winners != 1 {
		t.Errorf("expected exactly one primary, got %d", winners)
	}
}

// rawSend dials the server and writes bytes without framing
func rawSend(t *testing.T, socketPath string, data []byte) {
	t.Helper()
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	if _, err := conn.Write(data); err != nil {
		t.Fatal(err)
	}
}

func TestCoordinator_DiscardsMalformedMessages(t *testing.T) {
	oversize := make([]byte, 4)
	binary.BigEndian.PutUint32(oversize, MaxFrameSize+1)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "Empty frame", data: []byte{0, 0, 0, 0}},
		{name: "Oversize frame", data: oversize},
		{name: "Truncated frame", data: []byte{0, 0, 0, 9, 'a'}},
		{name: "Invalid UTF-8", data: []byte{0, 0, 0, 2, 0xff, 0xfe}},
		{name: "Connect and close", data: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			server := newServer(t, dir, time.Second)

			rawSend(t, server.SocketPath(), tt.data)

			client := NewCoordinator(zap.NewNop(), testConfig(dir, time.Second))
			if !client.TryHandoff(context.Background(), "/music/valid.mp3") {
				t.Fatal("valid handoff failed")
			}
			// the malformed message never shows up ahead of the valid one
			expectReceived(t, server, "/music/valid.mp3")

			select {
			case got := <-server.Received():
				t.Errorf("unexpected delivery %q", got)
			case <-time.After(50 * time.Millisecond):
			}
		})
	}
}

func TestCoordinator_ClosesHungClients(t *testing.T) {
	dir := t.TempDir()
	server := newServer(t, dir, 100*time.Millisecond)

	conn, err := net.Dial("unix", server.SocketPath())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	// send a partial header and then go silent
	if _, err := conn.Write([]byte{0, 0}); err != nil {
		t.Fatal(err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected the server to close the connection, got %v", err)
	}
}

func TestCoordinator_Stop(t *testing.T) {
	dir := t.TempDir()
	c := NewCoordinator(zap.NewNop(), testConfig(dir, time.Second))
	if !c.StartServing(context.Background()) {
		t.Fatal("StartServing returned false")
	}

	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if c.Serving() {
		t.Error("stopped coordinator reports serving")
	}
	if _, err := os.Stat(c.SocketPath()); !os.IsNotExist(err) {
		t.Errorf("socket should be removed, stat err=%v", err)
	}
	if _, ok := <-c.Received(); ok {
		t.Error("received channel should be closed")
	}

	// idempotent and final
	if err := c.Stop(context.Background()); err != nil {
		t.Errorf("second Stop: %v", err)
	}
	if c.StartServing(context.Background()) {
		t.Error("StartServing after Stop should fail")
	}
}

// TestCoordinator_LaunchRace runs the startup sequence of several launches at once
func TestCoordinator_LaunchRace(t *testing.T) {
	dir := t.TempDir()
	const launches = 6

	var (
		mu        sync.Mutex
		primaries []*Coordinator
		forwarded int
		wg        sync.WaitGroup
	)
	for i := 0; i < launches; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := NewCoordinator(zap.NewNop(), testConfig(dir, time.Second))
			if c.TryHandoff(context.Background(), filepath.Join(dir, "seed.mp3")) {
				mu.Lock()
				forwarded++
				mu.Unlock()
				return
			}
			if c.StartServing(context.Background()) {
				mu.Lock()
				primaries = append(primaries, c)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	for _, p := range primaries {
		defer p.Stop(context.Background())
	}
	if len(primaries) != 1 {
		t.Fatalf("expected exactly one primary, got %d", len(primaries))
	}
	if forwarded > launches-1 {
		t.Errorf("forwarded %d of %d launches", forwarded, launches)
	}
}

package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cwrk-planet/videomeet-signaling/internal/memory"
	"github.com/cwrk-planet/videomeet-signaling/internal/service"
	httpx "github.com/cwrk-planet/videomeet-signaling/internal/transport/http"
	"github.com/cwrk-planet/videomeet-signaling/internal/transport/ws"
)

// newTestServer runs the full HTTP + websocket stack on a memory store.
func newTestServer(t *testing.T) (*httptest.Server, *service.RoomService) {
	t.Helper()

	rooms := service.NewRoomService(memory.NewStore(), service.RoomPolicy{})
	hub := ws.NewHub()
	notifier := service.NewNotifier(hub)
	members := service.NewMemberService(rooms, notifier)
	relay := service.NewRelay(hub)
	wsSrv := ws.NewServer(hub, members, relay, notifier, ws.Options{}, []string{"*"})

	router := httpx.NewRouter(httpx.NewHandler(rooms, hub), wsSrv.HandleWS, httpx.RouterConfig{AllowedOrigins: []string{"*"}})
	ts := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.CloseAll()
		ts.Close()
	})
	return ts, rooms
}

func newTestAPI(t *testing.T, ts *httptest.Server) *APIClient {
	t.Helper()
	api, err := NewAPIClient(ts.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("NewAPIClient: %v", err)
	}
	return api
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// runCLI executes signalctl against ts and returns stdout.
func runCLI(t *testing.T, ts *httptest.Server, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--server", ts.URL}, args...))
	err := cmd.ExecuteContext(testContext(t))
	return out.String(), err
}

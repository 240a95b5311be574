package cli

import (
	"strings"
	"testing"
)

func TestRoomsCommands(t *testing.T) {
	ts, _ := newTestServer(t)

	out, err := runCLI(t, ts, "rooms", "create", "retro", "--capacity", "3")
	if err != nil {
		t.Fatalf("rooms create: %v", err)
	}
	if !strings.Contains(out, "retro") {
		t.Fatalf("create output misses room id: %q", out)
	}

	out, err = runCLI(t, ts, "rooms", "ls")
	if err != nil {
		t.Fatalf("rooms ls: %v", err)
	}
	if !strings.Contains(out, "retro") || !strings.Contains(out, "0/3") {
		t.Fatalf("list output: %q", out)
	}

	out, err = runCLI(t, ts, "rooms", "get", "retro")
	if err != nil {
		t.Fatalf("rooms get: %v", err)
	}
	if !strings.Contains(out, "nobody is in the room") {
		t.Fatalf("get output: %q", out)
	}

	if _, err := runCLI(t, ts, "rooms", "rm", "retro"); err != nil {
		t.Fatalf("rooms rm: %v", err)
	}

	out, err = runCLI(t, ts, "rooms", "list")
	if err != nil {
		t.Fatalf("rooms list: %v", err)
	}
	if !strings.Contains(out, "no rooms") {
		t.Fatalf("expected empty list, got %q", out)
	}
}

func TestRoomsGetMissing(t *testing.T) {
	ts, _ := newTestServer(t)

	_, err := runCLI(t, ts, "rooms", "get", "ghost")
	if err == nil || !strings.Contains(err.Error(), "Room not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestRoomsGetRequiresID(t *testing.T) {
	ts, _ := newTestServer(t)

	if _, err := runCLI(t, ts, "rooms", "get"); err == nil {
		t.Fatalf("expected argument error")
	}
}

func TestStatsCommand(t *testing.T) {
	ts, _ := newTestServer(t)

	out, err := runCLI(t, ts, "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, "Open connections") {
		t.Fatalf("stats output: %q", out)
	}
}

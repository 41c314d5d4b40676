package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"arrayviz/internal/catalog"
	"arrayviz/internal/vm"
)

type fakeCatalog map[string]string

func (f fakeCatalog) Get(_ context.Context, ref string) (catalog.Program, error) {
	src, ok := f[ref]
	if !ok {
		return catalog.Program{}, errors.Wrap(catalog.ErrNotFound, ref)
	}
	return catalog.Program{ID: ref, Name: ref, Source: src}, nil
}

func startServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(New(opts...).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/session"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, req Request) Response {
	t.Helper()
	require.NoError(t, conn.WriteJSON(req))
	var resp Response
	require.NoError(t, conn.ReadJSON(&resp))
	return resp
}

func TestLoadAndRun(t *testing.T) {
	conn := dial(t, startServer(t))

	resp := roundTrip(t, conn, Request{Op: "load", Source: "x = 2 + 3\nprint(x)\n"})
	require.Nil(t, resp.Error)
	require.NotEmpty(t, resp.Session)
	require.Equal(t, "ready", resp.Snapshot.Status)

	run := roundTrip(t, conn, Request{Op: "run"})
	require.Nil(t, run.Error)
	require.Equal(t, resp.Session, run.Session)
	require.Equal(t, "halted", run.Snapshot.Status)
	require.Equal(t, "5", run.Snapshot.Variables["x"].Repr)
	require.Equal(t, []string{"5"}, run.Snapshot.Outputs)

	back := roundTrip(t, conn, Request{Op: "back"})
	require.Nil(t, back.Error)
	require.Equal(t, "running", back.Snapshot.Status)
	require.Equal(t, run.Snapshot.Steps-1, back.Snapshot.Steps)
}

func TestBreakpointsAndStepping(t *testing.T) {
	conn := dial(t, startServer(t))
	src := "total = 0\nfor i in [1, 2]:\n    total = total + i\nprint(total)\n"

	require.Nil(t, roundTrip(t, conn, Request{Op: "load", Source: src}).Error)
	bp := roundTrip(t, conn, Request{Op: "break", Line: 3})
	require.Nil(t, bp.Error)
	require.Equal(t, 1, bp.Breakpoint)

	hit := roundTrip(t, conn, Request{Op: "continue"})
	require.Nil(t, hit.Error)
	require.Equal(t, "running", hit.Snapshot.Status)
	require.Equal(t, "1", hit.Snapshot.Variables["i"].Repr)

	next := roundTrip(t, conn, Request{Op: "next"})
	require.Nil(t, next.Error)
	require.Equal(t, "1", next.Snapshot.Variables["total"].Repr)

	require.Nil(t, roundTrip(t, conn, Request{Op: "clear", Breakpoint: bp.Breakpoint}).Error)
	done := roundTrip(t, conn, Request{Op: "continue"})
	require.Equal(t, "halted", done.Snapshot.Status)
	require.Equal(t, []string{"3"}, done.Snapshot.Outputs)

	reset := roundTrip(t, conn, Request{Op: "reset"})
	require.Equal(t, "ready", reset.Snapshot.Status)
	require.Empty(t, reset.Snapshot.Outputs)
}

func TestWatchAndInput(t *testing.T) {
	conn := dial(t, startServer(t))

	require.Nil(t, roundTrip(t, conn, Request{Op: "input", Text: "Ada"}).Error)
	require.Nil(t, roundTrip(t, conn, Request{Op: "watch", Name: "name"}).Error)
	require.Nil(t, roundTrip(t, conn, Request{Op: "load", Source: "name = input()\n"}).Error)

	run := roundTrip(t, conn, Request{Op: "run"})
	require.Equal(t, "'Ada'", run.Snapshot.Watches["name"].Repr)
}

func TestErrors(t *testing.T) {
	conn := dial(t, startServer(t))

	resp := roundTrip(t, conn, Request{Op: "step"})
	require.NotNil(t, resp.Error)
	require.Equal(t, "RequestError", resp.Error.Type)
	require.Contains(t, resp.Error.Message, "no program loaded")

	resp = roundTrip(t, conn, Request{Op: "load", Source: "x = (1\n"})
	require.NotNil(t, resp.Error)
	require.Equal(t, "ParseError", resp.Error.Type)
	require.Nil(t, resp.Snapshot)

	resp = roundTrip(t, conn, Request{Op: "dance"})
	require.Contains(t, resp.Error.Message, `unknown op "dance"`)

	resp = roundTrip(t, conn, Request{Op: "load_program", ID: "x"})
	require.Contains(t, resp.Error.Message, "no program catalog configured")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	var bad Response
	require.NoError(t, conn.ReadJSON(&bad))
	require.Contains(t, bad.Error.Message, "decode request")

	runtime := roundTrip(t, conn, Request{Op: "load", Source: "x = [1][5]\n"})
	require.Nil(t, runtime.Error)
	run := roundTrip(t, conn, Request{Op: "run"})
	require.Nil(t, run.Error, "program errors belong in the snapshot")
	require.Equal(t, "errored", run.Snapshot.Status)
	require.Equal(t, "IndexError", string(run.Snapshot.Error.Type))
}

func TestLoadProgramFromCatalog(t *testing.T) {
	ts := startServer(t, WithCatalog(fakeCatalog{"double": "print(21 * 2)\n"}))
	conn := dial(t, ts)

	require.Nil(t, roundTrip(t, conn, Request{Op: "load_program", ID: "double"}).Error)
	run := roundTrip(t, conn, Request{Op: "run"})
	require.Equal(t, []string{"42"}, run.Snapshot.Outputs)

	missing := roundTrip(t, conn, Request{Op: "load_program", ID: "nope"})
	require.Contains(t, missing.Error.Message, "program not found")
}

func TestSessionsAreIsolated(t *testing.T) {
	ts := startServer(t, WithMachineOptions(vm.WithMaxSteps(1000)))
	a, b := dial(t, ts), dial(t, ts)

	ra := roundTrip(t, a, Request{Op: "load", Source: "x = 1\n"})
	rb := roundTrip(t, b, Request{Op: "load", Source: "x = 2\n"})
	require.NotEqual(t, ra.Session, rb.Session)

	roundTrip(t, a, Request{Op: "run"})
	sb := roundTrip(t, b, Request{Op: "snapshot"})
	require.Equal(t, "ready", sb.Snapshot.Status)
	require.Empty(t, sb.Snapshot.Variables)

	loop := roundTrip(t, b, Request{Op: "load", Source: "while True:\n    pass\n"})
	require.Nil(t, loop.Error)
	run := roundTrip(t, b, Request{Op: "run"})
	require.Equal(t, "errored", run.Snapshot.Status)
	require.Contains(t, run.Snapshot.Error.Message, "step limit of 1000 exceeded")
}

func TestHealthz(t *testing.T) {
	ts := startServer(t)
	res, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.Equal(t, "ok", body["status"])
}

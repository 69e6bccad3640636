package vm

import (
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"gopkg.in/gomail.v2"

	"flowa/pkg/langerr"
	"flowa/pkg/value"
)

// httpGet implements http.get(url), returning a {status, body, headers}
// object built by responseInstance.
func httpGet(args []value.Value) (value.Value, error) {
	u, ok := args[0].(value.Str)
	if !ok {
		return nil, langerr.New(langerr.TypeError, "http.get url must be a string")
	}
	resp, err := http.Get(string(u))
	if err != nil {
		return nil, langerr.New(langerr.ValueError, "http.get failed: %s", err)
	}
	return readResponse(resp)
}

// httpPost implements http.post(url, body), sending body as-is with a
// JSON content type.
func httpPost(args []value.Value) (value.Value, error) {
	u, ok := args[0].(value.Str)
	if !ok {
		return nil, langerr.New(langerr.TypeError, "http.post url must be a string")
	}
	body, ok := args[1].(value.Str)
	if !ok {
		return nil, langerr.New(langerr.TypeError, "http.post body must be a string")
	}
	resp, err := http.Post(string(u), "application/json", strings.NewReader(string(body)))
	if err != nil {
		return nil, langerr.New(langerr.ValueError, "http.post failed: %s", err)
	}
	return readResponse(resp)
}

func readResponse(resp *http.Response) (value.Value, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, langerr.New(langerr.ValueError, "failed to read response body: %s", err)
	}
	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}
	return responseInstance(resp.StatusCode, string(body), headers), nil
}

// wsConn wraps a live client websocket connection as an opaque Value so it
// can travel through locals/globals/args without pkg/value knowing
// anything about gorilla/websocket. It reuses KindInstance — from the
// language's perspective a connection behaves like any other foreign
// handle: it can be held and passed around, but has no fields, and
// value.Equal never reports two connections (or one with itself) equal.
type wsConn struct {
	conn *websocket.Conn
}

func (*wsConn) Kind() value.Kind { return value.KindInstance }
func (*wsConn) String() string   { return "ws-connection" }

// wsDial implements ws.dial(url): opens a client connection. The language
// has no bound HTTP server to upgrade from, so the ws module is
// client-side only.
func wsDial(args []value.Value) (value.Value, error) {
	u, ok := args[0].(value.Str)
	if !ok {
		return nil, langerr.New(langerr.TypeError, "ws.dial url must be a string")
	}
	conn, _, err := websocket.DefaultDialer.Dial(string(u), nil)
	if err != nil {
		return nil, langerr.New(langerr.ValueError, "ws.dial failed: %s", err)
	}
	return &wsConn{conn: conn}, nil
}

func wsSend(args []value.Value) (value.Value, error) {
	c, ok := args[0].(*wsConn)
	if !ok {
		return nil, langerr.New(langerr.TypeError, "ws.send expects a websocket connection")
	}
	msg, ok := args[1].(value.Str)
	if !ok {
		return nil, langerr.New(langerr.TypeError, "ws.send message must be a string")
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		return nil, langerr.New(langerr.ValueError, "ws.send failed: %s", err)
	}
	return value.Bool(true), nil
}

// wsRecv returns Nil on disconnect rather than an error, so a receive
// loop can end on a plain falsy check.
func wsRecv(args []value.Value) (value.Value, error) {
	c, ok := args[0].(*wsConn)
	if !ok {
		return nil, langerr.New(langerr.TypeError, "ws.recv expects a websocket connection")
	}
	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		return value.Nil, nil
	}
	return value.Str(msg), nil
}

func wsClose(args []value.Value) (value.Value, error) {
	c, ok := args[0].(*wsConn)
	if !ok {
		return nil, langerr.New(langerr.TypeError, "ws.close expects a websocket connection")
	}
	if err := c.conn.Close(); err != nil {
		return nil, langerr.New(langerr.ValueError, "ws.close failed: %s", err)
	}
	return value.Bool(true), nil
}

// mailSend implements mail.send(msg), msg an object with to/from/subject/
// body/html fields. SMTP transport settings come from the environment
// (SMTP_HOST/SMTP_PORT/SMTP_USER/SMTP_PASS), resolvable through the same
// .env loading the rest of the prelude relies on.
func mailSend(args []value.Value) (value.Value, error) {
	msg, ok := args[0].(*value.Instance)
	if !ok {
		return nil, langerr.New(langerr.TypeError, "mail.send expects an object")
	}
	field := func(name string) string {
		if s, ok := msg.Fields[name].(value.Str); ok {
			return string(s)
		}
		return ""
	}

	to, from, subject, body, html := field("to"), field("from"), field("subject"), field("body"), field("html")
	if to == "" || from == "" {
		return nil, langerr.New(langerr.ValueError, "mail.send requires 'to' and 'from' fields")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	if html != "" {
		m.SetBody("text/html", html)
	} else {
		m.SetBody("text/plain", body)
	}

	host := os.Getenv("SMTP_HOST")
	port, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if port == 0 {
		port = 587
	}
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASS")

	d := gomail.NewDialer(host, port, user, pass)
	if err := d.DialAndSend(m); err != nil {
		return nil, langerr.New(langerr.ValueError, "mail.send failed: %s", err)
	}
	return value.Bool(true), nil
}

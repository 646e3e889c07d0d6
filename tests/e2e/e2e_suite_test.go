// Package e2e encodes the literal end-to-end scenarios the hub must
// satisfy, driving the real wire protocol over real WebSocket connections
// against an in-process server rather than mocking any layer.
package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rjsadow/axochat/internal/auth"
	"github.com/rjsadow/axochat/internal/hub"
	"github.com/rjsadow/axochat/internal/moderation"
	"github.com/rjsadow/axochat/internal/protocol"
	"github.com/rjsadow/axochat/internal/wsconn"
)

func TestE2E(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Chat Relay E2E Suite")
}

// memStore is an in-memory moderation.Store, avoiding filesystem fixtures
// for scenarios that don't care how the document is persisted.
type memStore struct {
	state *moderation.State
}

func newMemStore() *memStore                         { return &memStore{state: moderation.NewState()} }
func (m *memStore) Load() (*moderation.State, error) { return m.state, nil }
func (m *memStore) Save(s *moderation.State) error   { m.state = s; return nil }

// testServer bundles one running hub and wsconn listener; startTestServer
// registers their teardown with DeferCleanup.
type testServer struct {
	url    string
	store  *memStore
	tokens *auth.TokenService
}

func startTestServer(mojangServer *httptest.Server) *testServer {
	var verifier *auth.MojangVerifier
	if mojangServer != nil {
		verifier = auth.NewMojangVerifierWithClient(mojangServer.Client(), mojangServer.URL)
	}

	tokens, err := auth.NewTokenService([]byte("e2e-signing-key"), "HS256", time.Hour)
	Expect(err).NotTo(HaveOccurred())

	store := newMemStore()
	h, err := hub.New(hub.Config{
		RateCapacity:  5,
		RateRegen:     time.Second,
		MaxMessageLen: 256,
		Mojang:        verifier,
		Tokens:        tokens,
		Moderation:    store,
	})
	Expect(err).NotTo(HaveOccurred())

	ctx, cancel := context.WithCancel(context.Background())
	DeferCleanup(cancel)
	go h.Run(ctx)

	handler := wsconn.NewHandler(h, nil, nil)
	srv := httptest.NewServer(handler)
	DeferCleanup(srv.Close)

	return &testServer{url: "ws" + strings.TrimPrefix(srv.URL, "http"), store: store, tokens: tokens}
}

// mintTestToken mints a token through the same service the test server's
// hub verifies against, letting scenarios log connections in without
// re-running the Mojang handshake.
func mintTestToken(srv *testServer, name string, userUUID uuid.UUID) string {
	token, err := srv.tokens.Mint(protocol.UserIdentity{Name: name, UUID: userUUID})
	Expect(err).NotTo(HaveOccurred())
	return token
}

// client wraps a raw websocket connection with JSON envelope helpers
// matching the wire schema, so scenarios read close to the protocol
// itself rather than drowning in encode/decode boilerplate.
type client struct {
	conn *websocket.Conn
}

func dial(url string) *client {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	Expect(err).NotTo(HaveOccurred())
	return &client{conn: conn}
}

func (c *client) send(variant string, content any) {
	payload := map[string]any{"m": variant, "c": content}
	data, err := json.Marshal(payload)
	Expect(err).NotTo(HaveOccurred())
	Expect(c.conn.WriteMessage(websocket.TextMessage, data)).To(Succeed())
}

type envelope struct {
	M string          `json:"m"`
	C json.RawMessage `json:"c"`
}

func (c *client) receive() envelope {
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := c.conn.ReadMessage()
	Expect(err).NotTo(HaveOccurred())
	var env envelope
	Expect(json.Unmarshal(data, &env)).To(Succeed())
	return env
}

func (c *client) close() {
	c.conn.Close()
}

func fakeMojangServer(reportedUUID uuid.UUID, reportedName string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"` + reportedUUID.String() + `","name":"` + reportedName + `"}`))
	}))
}

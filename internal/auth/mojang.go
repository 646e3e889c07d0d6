package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rjsadow/axochat/internal/protocol"
)

// mojangBaseURL is the external session verifier endpoint.
const mojangBaseURL = "https://sessionserver.mojang.com/session/minecraft/hasJoined"

// MojangVerifier wraps the external session service. Verify performs the
// blocking HTTPS call itself; the hub is responsible for calling it from a
// goroutine it does not wait on synchronously, and for re-entering hub
// state only when the goroutine reports back the result, so the call never
// blocks the hub's event loop.
type MojangVerifier struct {
	client  *http.Client
	baseURL string
}

// NewMojangVerifier creates a MojangVerifier with a bounded per-request
// timeout; the hub never wants a verification hanging indefinitely.
func NewMojangVerifier() *MojangVerifier {
	return &MojangVerifier{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: mojangBaseURL,
	}
}

// hasJoinedResponse is the subset of the session service's JSON body the
// hub cares about; "properties" is ignored.
type hasJoinedResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ErrLoginFailed is returned for any non-200 response or transport error;
// both collapse to the single client-visible LoginFailed.
var ErrLoginFailed = fmt.Errorf("mojang session verification failed")

// NewMojangVerifierWithClient creates a MojangVerifier against an explicit
// base URL and http.Client, letting callers outside this package (e.g.
// end-to-end tests standing up a fake session service) avoid the real
// Mojang endpoint.
func NewMojangVerifierWithClient(client *http.Client, baseURL string) *MojangVerifier {
	return &MojangVerifier{client: client, baseURL: baseURL}
}

// Verify calls the external session service for (username, nonce) and
// returns the identity it reports. The returned UUID may or may not match
// the UUID the client originally claimed; comparing the two and reporting
// InvalidId on mismatch is the caller's responsibility.
func (v *MojangVerifier) Verify(ctx context.Context, username, nonce string) (protocol.UserIdentity, error) {
	return v.verifyAt(ctx, v.baseURL, username, nonce)
}

// verifyAt is Verify against an explicit base URL, letting tests point the
// verifier at an httptest.Server instead of the real session service.
func (v *MojangVerifier) verifyAt(ctx context.Context, baseURL, username, nonce string) (protocol.UserIdentity, error) {
	q := url.Values{
		"username": {username},
		"serverId": {nonce},
	}
	reqURL := baseURL + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return protocol.UserIdentity{}, fmt.Errorf("%w: building request: %v", ErrLoginFailed, err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return protocol.UserIdentity{}, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return protocol.UserIdentity{}, fmt.Errorf("%w: status %d", ErrLoginFailed, resp.StatusCode)
	}

	var body hasJoinedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return protocol.UserIdentity{}, fmt.Errorf("%w: decoding response: %v", ErrLoginFailed, err)
	}

	id, err := parseMojangUUID(body.ID)
	if err != nil {
		return protocol.UserIdentity{}, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}

	return protocol.UserIdentity{Name: body.Name, UUID: id}, nil
}

// parseMojangUUID accepts both the dashless and canonical UUID forms the
// session service may return.
func parseMojangUUID(s string) (uuid.UUID, error) {
	if !strings.Contains(s, "-") && len(s) == 32 {
		s = fmt.Sprintf("%s-%s-%s-%s-%s", s[0:8], s[8:12], s[12:16], s[16:20], s[20:32])
	}
	return uuid.Parse(s)
}

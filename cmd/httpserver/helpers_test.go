//go:build integration

package httpserver_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-petr/pet-ledger/cmd/httpserver"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/tokenpkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

type client struct {
	server     *httpserver.Server
	tokenMaker tokenpkg.Maker
}

func newClient(t *testing.T, server *httpserver.Server) client {
	t.Helper()

	tokenMaker, err := tokenpkg.NewMaker(server.Config.TokenType, server.Config.TokenSymmetricKey)
	if err != nil {
		t.Fatalf("tokenpkg.NewMaker(%q, key) returned error: %v", server.Config.TokenType, err)
	}

	return client{server: server, tokenMaker: tokenMaker}
}

// request builds a request as userID. An empty userID sends the request
// without authorization.
func (c client) request(t *testing.T, method, path, userID string, body any, header http.Header) *http.Request {
	t.Helper()

	var b []byte

	if body != nil {
		var err error

		b, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("Encoding request body error: %v", err)
		}
	}

	req, err := http.NewRequest(method, path, bytes.NewReader(b))
	if err != nil {
		t.Fatalf("Creating request error: %v", err)
	}

	for k, v := range header {
		req.Header[k] = v
	}

	if userID != "" {
		err = middleware.AddAuthorization(req, c.tokenMaker, middleware.AuthTypeBearer, userID, time.Minute)
		if err != nil {
			t.Fatalf("middleware.AddAuthorization returned error: %v", err)
		}
	}

	return req
}

// do sends a request as userID and decodes the response envelope into res.
func (c client) do(t *testing.T, method, path, userID string, body any, header http.Header, res *web.Response) *httptest.ResponseRecorder {
	t.Helper()

	recorder := httptest.NewRecorder()
	c.server.ServeHTTP(recorder, c.request(t, method, path, userID, body, header))

	if res != nil {
		if err := json.Unmarshal(recorder.Body.Bytes(), res); err != nil {
			t.Fatalf("Decoding response body %q error: %v", recorder.Body.String(), err)
		}
	}

	return recorder
}

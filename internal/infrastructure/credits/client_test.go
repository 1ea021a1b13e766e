package credits

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"saleor-apps-core/internal/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_AddCredits(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"account_id":"buyer@example.com","pages_added":1000,"new_credit_balance":1500,"order_id":"T3JkZXI6MQ==","message":"ok"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "admin-key", zerolog.Nop())
	resp, err := client.AddCredits(context.Background(), ports.CreditTopUpRequest{
		AccountID: "buyer@example.com",
		Pages:     1000,
		OrderID:   "T3JkZXI6MQ==",
		Source:    "saleor-ocr-credits",
	})
	require.NoError(t, err)

	assert.Equal(t, "/v1/accounts/buyer@example.com/credits", gotPath)
	assert.Equal(t, "Bearer admin-key", gotAuth)
	assert.Equal(t, map[string]any{"pages": 1000.0, "order_id": "T3JkZXI6MQ==", "source": "saleor-ocr-credits"}, gotBody)
	assert.Equal(t, 1000, resp.PagesAdded)
	assert.Equal(t, 1500, resp.NewCreditBalance)
	require.NotNil(t, resp.OrderID)
	assert.Equal(t, "T3JkZXI6MQ==", *resp.OrderID)
}

func TestClient_DefaultSource(t *testing.T) {
	var source string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body topUpBody
		_ = json.NewDecoder(r.Body).Decode(&body)
		source = body.Source
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "k", zerolog.Nop()).AddCredits(context.Background(), ports.CreditTopUpRequest{AccountID: "a", Pages: 1, OrderID: "o"})
	require.NoError(t, err)
	assert.Equal(t, DefaultSource, source)
}

func TestClient_ErrorStatus(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "k", zerolog.Nop()).AddCredits(context.Background(), ports.CreditTopUpRequest{AccountID: "a", Pages: 1, OrderID: "o"})
	assert.ErrorIs(t, err, ErrCreditsAPI)
	assert.ErrorContains(t, err, "502 - upstream down")
	assert.Equal(t, 1, calls)
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(url, "k", zerolog.Nop()).AddCredits(context.Background(), ports.CreditTopUpRequest{AccountID: "a", Pages: 1, OrderID: "o"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCreditsAPI)
}

package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripeGatewayCreatePaymentIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "5000", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "user_001", r.PostForm.Get("metadata[user_id]"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"pi_1","client_secret":"cs_1","status":"requires_payment_method"}`))
	}))
	defer srv.Close()

	g := NewStripeGateway("sk_test_123", srv.URL)
	intent, err := g.CreatePaymentIntent(context.Background(), 5000, "usd", map[string]string{"user_id": "user_001"})
	require.NoError(t, err)
	assert.Equal(t, "pi_1", intent.ID)
	assert.Equal(t, "cs_1", intent.ClientSecret)
}

func TestStripeGatewayCreateCheckoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/checkout/sessions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.PostForm.Get("mode"))
		assert.Equal(t, "https://app.test/ok", r.PostForm.Get("success_url"))
		assert.Equal(t, "5000", r.PostForm.Get("line_items[0][price_data][unit_amount]"))

		w.Write([]byte(`{"id":"cs_sess_1","url":"https://checkout.test/s/1"}`))
	}))
	defer srv.Close()

	g := NewStripeGateway("sk_test_123", srv.URL)
	session, err := g.CreateCheckoutSession(context.Background(), 5000, "https://app.test/ok", "https://app.test/cancel", nil)
	require.NoError(t, err)
	assert.Equal(t, "cs_sess_1", session.ID)
	assert.Equal(t, "https://checkout.test/s/1", session.URL)
}

func TestStripeGatewayRetrievePaymentIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/payment_intents/pi_1", r.URL.Path)
		w.Write([]byte(`{"id":"pi_1","status":"succeeded"}`))
	}))
	defer srv.Close()

	g := NewStripeGateway("sk_test_123", srv.URL)
	intent, err := g.RetrievePaymentIntent(context.Background(), "pi_1")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", intent.Status)
}

func TestStripeGatewaySurfacesErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"message":"Your card was declined."}}`))
	}))
	defer srv.Close()

	g := NewStripeGateway("sk_test_123", srv.URL)
	_, err := g.CreatePaymentIntent(context.Background(), 5000, "usd", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "card was declined")
}

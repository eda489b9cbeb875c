package cartclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCart(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[{"productId":"p1","quantity":2,"price":10.0}],"totalAmount":20.0,"currency":"EUR"}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", time.Second)
	cart, err := c.GetCart(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, "/cart/u1", gotPath)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "p1", cart.Items[0].ProductID)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.True(t, cart.Items[0].Price.Equal(decimal.NewFromInt(10)))
	assert.True(t, cart.TotalAmount.Equal(decimal.NewFromInt(20)))
}

func TestGetCart_EscapesUserID(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte(`{"items":[],"totalAmount":0}`))
	}))
	defer srv.Close()

	cart, err := New(srv.URL, time.Second).GetCart(context.Background(), "a/b c")
	require.NoError(t, err)

	assert.Equal(t, "/cart/a%2Fb%20c", gotPath)
	assert.True(t, cart.IsEmpty())
}

func TestGetCart_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-200",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "bad body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`not json`))
			},
		},
		{
			name: "too slow",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(200 * time.Millisecond)
				w.Write([]byte(`{"items":[],"totalAmount":0}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := New(srv.URL, 50*time.Millisecond).GetCart(context.Background(), "u1")
			assert.Error(t, err)
		})
	}
}

func TestGetCart_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second).GetCart(context.Background(), "u1")
	assert.Error(t, err)
}

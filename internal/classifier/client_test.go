package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ClassifySentiment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/sentiment", r.URL.Path)

		var req SentimentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"great show", "awful ending"}, req.Texts)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sentiments":[{"label":"POSITIVE","score":0.98},{"label":"NEGATIVE"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", 5*time.Second)
	labels, err := client.ClassifySentiment(context.Background(), []string{"great show", "awful ending"})
	require.NoError(t, err)
	assert.Equal(t, []string{"POSITIVE", "NEGATIVE"}, labels)
}

func TestClient_ExtractTopics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/topics", r.URL.Path)

		var req TopicsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 3, req.NumTopics)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"topics":[{"id":"t1","label":"Pricing","keywords":["price"],"weight":0.7,"tweetCount":4}]}`))
	}))
	defer server.Close()

	topics, err := NewClient(server.URL, 5*time.Second).ExtractTopics(context.Background(), []string{"a"}, 3)
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "Pricing", topics[0].Label)
	assert.Equal(t, 4, topics[0].TweetCount)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		timeout time.Duration
	}{
		{
			name: "Non-success status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			timeout: time.Second,
		},
		{
			name: "Slow server",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(200 * time.Millisecond)
			},
			timeout: 20 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewClient(server.URL, tt.timeout)

			_, err := client.ClassifySentiment(context.Background(), []string{"x"})
			assert.Error(t, err)

			_, err = client.ExtractTopics(context.Background(), []string{"x"}, 5)
			assert.Error(t, err)
		})
	}
}

func TestClient_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	assert.NoError(t, NewClient(server.URL, time.Second).Ping(context.Background()))

	server.Close()
	assert.Error(t, NewClient(server.URL, time.Second).Ping(context.Background()))
}

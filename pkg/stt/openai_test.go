package stt

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestOpenAIRequiresKey(t *testing.T) {
	_, err := NewOpenAI("", nil, Options{})
	assert.Error(t, err)
}

func TestOpenAITranscribe(t *testing.T) {
	var (
		path string
		body string
	)
	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		path = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(`{"text":" Add 3 apples. "}`)),
			Request:    r,
		}, nil
	})}

	o, err := NewOpenAI("sk-test", hc, Options{Language: "en"})
	require.NoError(t, err)

	text, err := o.Transcribe(context.Background(), make([]float32, 1600))
	require.NoError(t, err)
	assert.Equal(t, "Add 3 apples.", text)

	assert.True(t, strings.HasSuffix(path, "/audio/transcriptions"), path)
	assert.Contains(t, body, "whisper-1")
	assert.Contains(t, body, `filename="speech.wav"`)

	_, err = o.Transcribe(context.Background(), nil)
	assert.Error(t, err)
}

package stt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"pantry/pkg/audioconv"
)

// OpenAI sends recordings to the hosted whisper-1 model.
type OpenAI struct {
	client openai.Client
	lang   string
	prompt string
}

// NewOpenAI builds a remote transcriber. httpClient may be nil; pass one to
// go through a proxy.
func NewOpenAI(apiKey string, httpClient *http.Client, opt Options) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	lang := opt.Language
	if lang == "auto" {
		lang = ""
	}
	return &OpenAI{
		client: openai.NewClient(opts...),
		lang:   lang,
		prompt: opt.InitialPrompt,
	}, nil
}

func (o *OpenAI) Transcribe(ctx context.Context, pcm []float32) (string, error) {
	if len(pcm) == 0 {
		return "", errors.New("no audio samples provided")
	}

	wav, err := audioconv.WAVBytes(pcm, audioconv.TargetRate)
	if err != nil {
		return "", fmt.Errorf("encode wav: %w", err)
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(wav), "speech.wav", "audio/wav"),
		Model: openai.AudioModelWhisper1,
	}
	if o.lang != "" {
		params.Language = openai.String(o.lang)
	}
	if o.prompt != "" {
		params.Prompt = openai.String(o.prompt)
	}

	res, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcription: %w", err)
	}
	return strings.TrimSpace(res.Text), nil
}

func (o *OpenAI) Close() error { return nil }

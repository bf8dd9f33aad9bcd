// Package stt turns recorded speech into text, locally with whisper.cpp or
// remotely with the OpenAI audio API.
package stt

import "context"

// Transcriber takes mono 16kHz float32 samples.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []float32) (string, error)
	Close() error
}

var (
	_ Transcriber = (*Whisper)(nil)
	_ Transcriber = (*OpenAI)(nil)
)

package audio

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pactlOutput = `Sink Input #41
	Driver: protocol-native.c
	Volume: front-left: 52428 /  80% / -5.81 dB,   front-right: 52428 /  80% / -5.81 dB
	Properties:
		application.name = "Firefox"
		media.name = "Playback"

Sink Input #57
	Driver: protocol-native.c
	Volume: front-left: 65536 / 100% / 0.00 dB
	Properties:
		application.name = "pantry"

Sink Input #garbage
	Volume: mono: 100%
`

type fakePactl struct {
	volumes map[int]int
	set     []string
}

func (f *fakePactl) run(_ context.Context, args ...string) ([]byte, error) {
	if args[0] == "list" {
		return []byte(pactlOutput), nil
	}
	f.set = append(f.set, strings.Join(args[1:], " "))
	return nil, nil
}

func TestParseSinkInputs(t *testing.T) {
	got := parseSinkInputs(pactlOutput)
	assert.Equal(t, []sinkInput{
		{ID: 41, Volume: 80, AppName: "Firefox"},
		{ID: 57, Volume: 100, AppName: "pantry"},
	}, got)

	assert.Empty(t, parseSinkInputs(""))
}

func TestDuckerSkipsSelfAndRestores(t *testing.T) {
	fake := &fakePactl{}
	d := NewDucker([]string{"pantry"}, 0.25, 0)
	d.run = fake.run

	ctx := context.Background()
	require.NoError(t, d.Duck(ctx))
	require.NoError(t, d.Duck(ctx))
	assert.Equal(t, []string{"41 20%"}, fake.set)

	require.NoError(t, d.Restore(ctx))
	require.NoError(t, d.Restore(ctx))
	assert.Equal(t, []string{"41 20%", "41 80%"}, fake.set)
}

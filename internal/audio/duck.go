package audio

import (
	"context"
	"fmt"
	log "log/slog"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	percentRe = regexp.MustCompile(`(\d+)\s*%`)
	appNameRe = regexp.MustCompile(`application\.name = "([^"]*)"`)
)

const maxVolume = 150

type sinkInput struct {
	ID      int
	Volume  int
	AppName string
}

// Ducker lowers every PulseAudio sink input except our own while the
// assistant is listening or talking, and puts the volumes back afterwards.
type Ducker struct {
	mu       sync.Mutex
	self     []string
	factor   float64
	fade     time.Duration
	original map[int]int

	// run executes pactl; swapped out in tests.
	run func(ctx context.Context, args ...string) ([]byte, error)
}

func NewDucker(self []string, factor float64, fade time.Duration) *Ducker {
	return &Ducker{
		self:   append([]string(nil), self...),
		factor: math.Max(0, math.Min(factor, 1)),
		fade:   fade,
		run: func(ctx context.Context, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, "pactl", args...).Output()
		},
	}
}

// Duck is a no-op while already ducked.
func (d *Ducker) Duck(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.original != nil {
		return nil
	}

	inputs, err := d.list(ctx)
	if err != nil {
		return err
	}

	d.original = make(map[int]int)
	var steps []fadeStep
	for _, in := range inputs {
		if d.isSelf(in) {
			continue
		}
		d.original[in.ID] = in.Volume
		to := int(math.Round(float64(in.Volume) * d.factor))
		steps = append(steps, fadeStep{id: in.ID, from: in.Volume, to: to})
	}

	log.Debug("Ducking streams", "count", len(steps))
	return d.apply(ctx, steps)
}

// Restore fades ducked streams back. Streams that appeared after Duck are
// left alone.
func (d *Ducker) Restore(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.original == nil {
		return nil
	}
	defer func() { d.original = nil }()

	inputs, err := d.list(ctx)
	if err != nil {
		return err
	}

	var steps []fadeStep
	for _, in := range inputs {
		orig, ok := d.original[in.ID]
		if !ok {
			continue
		}
		steps = append(steps, fadeStep{id: in.ID, from: in.Volume, to: orig})
	}
	return d.apply(ctx, steps)
}

func (d *Ducker) isSelf(in sinkInput) bool {
	for _, name := range d.self {
		if in.AppName == name {
			return true
		}
	}
	return false
}

func (d *Ducker) list(ctx context.Context) ([]sinkInput, error) {
	out, err := d.run(ctx, "list", "sink-inputs")
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}
	return parseSinkInputs(string(out)), nil
}

type fadeStep struct {
	id, from, to int
}

func (d *Ducker) apply(ctx context.Context, steps []fadeStep) error {
	if len(steps) == 0 {
		return nil
	}

	const tick = 10 * time.Millisecond
	n := int(d.fade / tick)
	if n < 1 {
		n = 1
	}

	for i := 1; i <= n; i++ {
		frac := float64(i) / float64(n)
		for _, s := range steps {
			v := int(math.Round(float64(s.from) + float64(s.to-s.from)*frac))
			if err := d.setVolume(ctx, s.id, v); err != nil {
				return err
			}
		}
		if i < n {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.fade / time.Duration(n)):
			}
		}
	}
	return nil
}

func (d *Ducker) setVolume(ctx context.Context, id, percent int) error {
	percent = max(0, min(percent, maxVolume))
	_, err := d.run(ctx, "set-sink-input-volume", strconv.Itoa(id), fmt.Sprintf("%d%%", percent))
	if err != nil {
		return fmt.Errorf("set volume of sink input %d: %w", id, err)
	}
	return nil
}

// parseSinkInputs reads the output of `pactl list sink-inputs`.
func parseSinkInputs(text string) []sinkInput {
	blocks := strings.Split(text, "Sink Input #")
	var res []sinkInput

	for _, block := range blocks[1:] {
		head, body, _ := strings.Cut(block, "\n")
		id, err := strconv.Atoi(strings.TrimSpace(head))
		if err != nil {
			continue
		}

		in := sinkInput{ID: id}
		for _, line := range strings.Split(body, "\n") {
			line = strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(line, "Volume:") && in.Volume == 0:
				if m := percentRe.FindStringSubmatch(line); m != nil {
					in.Volume, _ = strconv.Atoi(m[1])
				}
			case in.AppName == "":
				if m := appNameRe.FindStringSubmatch(line); m != nil {
					in.AppName = m[1]
				}
			}
		}

		if in.Volume == 0 && in.AppName == "" {
			continue
		}
		res = append(res, in)
	}
	return res
}

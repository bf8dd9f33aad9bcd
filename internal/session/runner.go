package session

import (
	"context"
	"errors"
	"sync"

	"pantry/internal/nlu"
)

var ErrClosed = errors.New("session: runner closed")

// Handler is what the runner serializes; *nlu.Dispatcher in production.
type Handler interface {
	Handle(ctx context.Context, text string) (string, error)
	Mode() nlu.Mode
}

type Reply struct {
	Text string
	// Mode is the dispatcher mode after the command ran.
	Mode nlu.Mode
}

type request struct {
	ctx   context.Context
	text  string
	reply chan result
}

type result struct {
	Reply
	err error
}

// Runner owns the dispatcher on a single goroutine. The terminal loop, the
// control socket and the bus shard all submit through it, so commands run one
// at a time.
type Runner struct {
	h        Handler
	requests chan request
	quit     chan struct{}
	done     chan struct{}
	stop     sync.Once
}

func NewRunner(h Handler) *Runner {
	r := &Runner{
		h:        h,
		requests: make(chan request),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go r.loop()
	return r
}

func (r *Runner) loop() {
	defer close(r.done)
	for {
		select {
		case req := <-r.requests:
			var res result
			if req.text == "" {
				res.Mode = r.h.Mode()
			} else {
				res.Text, res.err = r.h.Handle(req.ctx, req.text)
				res.Mode = r.h.Mode()
			}
			req.reply <- res
		case <-r.quit:
			return
		}
	}
}

// Handle runs one command. A non-nil error with a zero Reply.Text means the
// command could not be persisted, or ctx ended first.
func (r *Runner) Handle(ctx context.Context, text string) (Reply, error) {
	if text == "" {
		return Reply{}, errors.New("session: empty command")
	}
	res, err := r.submit(ctx, text)
	if err != nil {
		return Reply{}, err
	}
	return res.Reply, res.err
}

// Mode reports the current dispatcher mode.
func (r *Runner) Mode(ctx context.Context) (nlu.Mode, error) {
	res, err := r.submit(ctx, "")
	return res.Mode, err
}

func (r *Runner) submit(ctx context.Context, text string) (result, error) {
	req := request{ctx: ctx, text: text, reply: make(chan result, 1)}

	select {
	case r.requests <- req:
	case <-ctx.Done():
		return result{}, ctx.Err()
	case <-r.done:
		return result{}, ErrClosed
	}

	select {
	case res := <-req.reply:
		return res, nil
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
}

// Close stops the loop after the command in flight, if any, finishes.
func (r *Runner) Close() {
	r.stop.Do(func() { close(r.quit) })
	<-r.done
}

// HandleText is Handle for front ends that only want the reply text.
func (r *Runner) HandleText(ctx context.Context, text string) (string, error) {
	reply, err := r.Handle(ctx, text)
	return reply.Text, err
}

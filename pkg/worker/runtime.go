package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/user/gifcast/pkg/ports"
	"github.com/user/gifcast/pkg/registry"
)

const eventBuffer = 16

// Runtime owns exactly one encoder instance for one job and processes
// commands strictly in receipt order. All encoder mutation happens on the
// Run goroutine; the orchestrator only exchanges messages with it.
type Runtime struct {
	registry *registry.Registry
	logger   ports.Logger

	commands chan Command
	events   chan Event
}

// NewRuntime creates a runtime wired to the given encoder registry.
func NewRuntime(reg *registry.Registry, logger ports.Logger) *Runtime {
	return &Runtime{
		registry: reg,
		logger:   logger.WithComponent("worker"),
		commands: make(chan Command),
		events:   make(chan Event, eventBuffer),
	}
}

// Commands returns the channel the orchestrator sends on.
func (r *Runtime) Commands() chan<- Command { return r.commands }

// Events returns the channel the runtime replies on.
func (r *Runtime) Events() <-chan Event { return r.events }

// Close stops the runtime loop after the current command. Only the
// command sender may call it, exactly once.
func (r *Runtime) Close() { close(r.commands) }

// Run processes commands until the command channel closes or ctx is done.
// Any encoder still held on exit is disposed.
func (r *Runtime) Run(ctx context.Context) {
	var (
		encoder     ports.GifEncoder
		totalFrames int
		framesDone  int
		startedAt   time.Time
		terminal    bool
	)

	dispose := func() {
		if encoder != nil {
			encoder.Dispose()
			encoder = nil
		}
	}
	defer dispose()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-r.commands:
			if !ok {
				return
			}

			if terminal {
				r.events <- Event{Type: EvtError, Message: fmt.Sprintf("protocol violation: %s after terminal command", cmd.Type)}
				continue
			}

			switch cmd.Type {
			case CmdInit:
				dispose()
				framesDone = 0
				if cmd.Init == nil {
					r.events <- Event{Type: EvtError, Message: "protocol violation: INIT without payload"}
					continue
				}

				enc, err := r.registry.Create(cmd.Init.EncoderID)
				if err != nil {
					r.events <- Event{Type: EvtError, Message: err.Error()}
					continue
				}
				if err := enc.Init(ctx, cmd.Init.encoderConfig()); err != nil {
					enc.Dispose()
					r.events <- Event{Type: EvtError, Message: err.Error()}
					continue
				}

				encoder = enc
				totalFrames = cmd.Init.TotalFrames
				startedAt = time.Now()
				r.logger.Debug("Encoder %s initialized for %d frames", enc.Info().ID, totalFrames)
				r.events <- Event{Type: EvtReady}

			case CmdAddFrame:
				if encoder == nil {
					r.events <- Event{Type: EvtError, Message: "protocol violation: ADD_FRAME before READY"}
					continue
				}
				if cmd.Frame == nil {
					r.events <- Event{Type: EvtError, Message: "protocol violation: ADD_FRAME without payload"}
					continue
				}

				f := cmd.Frame
				if err := encoder.AddFrame(f.Pixels, f.Width, f.Height, f.FrameIndex); err != nil {
					dispose()
					terminal = true
					r.events <- Event{Type: EvtError, Message: err.Error()}
					continue
				}

				framesDone++
				percent := 100.0
				if totalFrames > 0 {
					percent = float64(framesDone) / float64(totalFrames) * 100.0
				}
				r.events <- Event{Type: EvtProgress, FrameIndex: f.FrameIndex, Percent: percent}

			case CmdFinish:
				if encoder == nil {
					r.events <- Event{Type: EvtError, Message: "protocol violation: FINISH before READY"}
					continue
				}

				data, err := encoder.Finish()
				dispose()
				terminal = true
				if err != nil {
					r.events <- Event{Type: EvtError, Message: err.Error()}
					continue
				}
				elapsed := time.Since(startedAt).Milliseconds()
				r.logger.Debug("Encoded %d frames in %d ms (%d bytes)", framesDone, elapsed, len(data))
				r.events <- Event{Type: EvtComplete, Data: data, ElapsedMs: elapsed}

			case CmdCancel:
				dispose()
				terminal = true
				framesDone = 0
				r.logger.Debug("Job cancelled, encoder disposed")
				r.events <- Event{Type: EvtCancelled}

			default:
				r.events <- Event{Type: EvtError, Message: fmt.Sprintf("protocol violation: unknown command %q", cmd.Type)}
			}
		}
	}
}

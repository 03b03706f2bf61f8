// Package export orchestrates encoding jobs: it derives the per-job encoder
// configuration, extracts frames, drives the worker runtime over the message
// protocol, and maintains the job state machine with progress reporting and
// cancellation.
package export

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/user/gifcast/pkg/config"
	"github.com/user/gifcast/pkg/extractor"
	"github.com/user/gifcast/pkg/ports"
	"github.com/user/gifcast/pkg/registry"
	"github.com/user/gifcast/pkg/timing"
	"github.com/user/gifcast/pkg/worker"
)

var (
	// ErrCancelled marks a job ended by the caller's context, as opposed to
	// an encoding failure.
	ErrCancelled = errors.New("export: cancelled")
	// ErrJobActive is returned when Encode is called while another job is
	// running on the same exporter.
	ErrJobActive = errors.New("export: another job is active")
	// ErrNoFrames is returned when there is nothing to encode.
	ErrNoFrames = errors.New("export: no frames")
)

// Option configures an Exporter.
type Option func(*Exporter)

// WithPlaceholderFrames makes the exporter substitute a blank frame for
// sources that fail extraction instead of aborting the job.
func WithPlaceholderFrames() Option {
	return func(e *Exporter) { e.placeholderFrames = true }
}

// Exporter runs one encoding job at a time against a registry of encoder
// backends. Encoder state is never touched directly; all mutation happens
// inside the worker runtime goroutine.
type Exporter struct {
	registry          *registry.Registry
	logger            ports.Logger
	placeholderFrames bool

	mu     sync.Mutex
	active bool
	job    Job
}

// New creates an exporter backed by the given encoder registry.
func New(reg *registry.Registry, logger ports.Logger, opts ...Option) *Exporter {
	e := &Exporter{
		registry: reg,
		logger:   logger.WithComponent("export"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Job returns a snapshot of the most recent job.
func (e *Exporter) Job() Job {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job
}

// Encode runs one export to completion and returns the encoded GIF.
//
// Frames are subsampled by the settings' frame skip, extracted (optionally
// cropped), and streamed to the worker in strict index order; onProgress is
// invoked synchronously with a job snapshot after every encoded frame.
// Cancelling ctx aborts the job cleanly: the worker disposes its encoder and
// Encode returns an error wrapping ErrCancelled.
func (e *Exporter) Encode(
	ctx context.Context,
	frames []ports.Frame,
	crop *ports.CropArea,
	settings config.ExportSettings,
	sourceFPS float64,
	onProgress func(Job),
) ([]byte, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}

	e.mu.Lock()
	if e.active {
		e.mu.Unlock()
		return nil, ErrJobActive
	}
	e.active = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.active = false
		e.mu.Unlock()
	}()

	kept := timing.ApplyFrameSkip(frames, settings.FrameSkip)

	width, height := frames[0].Width(), frames[0].Height()
	if crop != nil {
		if err := crop.Validate(width, height); err != nil {
			return nil, err
		}
		width, height = crop.Width, crop.Height
	}

	cfg, err := settings.EncoderConfig(width, height, sourceFPS)
	if err != nil {
		return nil, err
	}

	e.setJob(Job{
		ID:          fmt.Sprintf("export-%d", time.Now().UnixNano()),
		Status:      StatusPreparing,
		TotalFrames: len(kept),
		EncoderID:   settings.EncoderID,
	}, onProgress)

	// The runtime gets a detached context: caller cancellation goes through
	// the CANCEL command so the encoder is always disposed in order.
	rt := worker.NewRuntime(e.registry, e.logger)
	go rt.Run(context.WithoutCancel(ctx))
	defer rt.Close()

	e.logger.Info("Starting export: %d frames at %dx%d", len(kept), width, height)

	if err := e.initWorker(ctx, rt, settings.EncoderID, cfg, len(kept), onProgress); err != nil {
		return nil, err
	}

	e.updateJob(onProgress, func(j *Job) {
		j.Status = StatusEncoding
		j.StartTime = time.Now()
	})

	for i, frame := range kept {
		if ctx.Err() != nil {
			return nil, e.cancel(rt, onProgress)
		}

		pixels, fw, fh, err := extractor.Extract(frame, crop)
		if err != nil {
			var extractErr *extractor.ExtractionError
			if e.placeholderFrames && errors.As(err, &extractErr) {
				e.logger.Warn("Frame %d unreadable, substituting blank frame", i)
				pixels, fw, fh = extractor.Placeholder(width, height), width, height
			} else {
				e.abort(rt)
				e.failJob(err.Error(), onProgress)
				return nil, err
			}
		}

		rt.Commands() <- worker.Command{Type: worker.CmdAddFrame, Frame: &worker.FramePayload{
			Pixels:     pixels,
			Width:      fw,
			Height:     fh,
			FrameIndex: i,
		}}
		pixels = nil // transferred; the buffer now belongs to the worker

		evt, cancelled := e.await(ctx, rt)
		if cancelled {
			return nil, e.cancel(rt, onProgress)
		}
		switch evt.Type {
		case worker.EvtProgress:
			e.updateJob(onProgress, func(j *Job) {
				j.CurrentFrame = evt.FrameIndex + 1
				j.Progress = evt.Percent
				if j.Progress > 99 {
					j.Progress = 99 // 100 is reserved for COMPLETE
				}
				if j.CurrentFrame > 0 {
					elapsed := time.Since(j.StartTime)
					perFrame := elapsed / time.Duration(j.CurrentFrame)
					j.EstimatedRemaining = perFrame * time.Duration(j.TotalFrames-j.CurrentFrame)
				}
			})
		case worker.EvtError:
			e.failJob(evt.Message, onProgress)
			return nil, fmt.Errorf("export: frame %d: %s", i, evt.Message)
		default:
			e.failJob(evt.Message, onProgress)
			return nil, fmt.Errorf("export: unexpected %s event during encoding", evt.Type)
		}
	}

	if ctx.Err() != nil {
		return nil, e.cancel(rt, onProgress)
	}

	rt.Commands() <- worker.Command{Type: worker.CmdFinish}
	evt, cancelled := e.await(ctx, rt)
	if cancelled {
		// The encoder already flushed or failed; drain its reply, then
		// report cancellation to the caller.
		return nil, e.cancel(rt, onProgress)
	}
	if evt.Type != worker.EvtComplete {
		e.failJob(evt.Message, onProgress)
		return nil, fmt.Errorf("export: finish: %s", evt.Message)
	}

	e.logger.Info("Export complete: %d bytes in %d ms", len(evt.Data), evt.ElapsedMs)
	e.updateJob(onProgress, func(j *Job) {
		j.Status = StatusComplete
		j.Progress = 100
		j.Result = evt.Data
	})
	return evt.Data, nil
}

// initWorker sends INIT and waits for READY. When the requested encoder
// fails to initialize (for example an unavailable native module) and a
// different default exists, it falls back to the default backend once.
func (e *Exporter) initWorker(
	ctx context.Context,
	rt *worker.Runtime,
	encoderID string,
	cfg ports.EncoderConfig,
	totalFrames int,
	onProgress func(Job),
) error {
	send := func(id string) (worker.Event, bool) {
		rt.Commands() <- worker.Command{Type: worker.CmdInit, Init: &worker.InitPayload{
			EncoderID:      id,
			Width:          cfg.Width,
			Height:         cfg.Height,
			TotalFrames:    totalFrames,
			MaxColors:      cfg.MaxColors,
			FrameDelayMs:   cfg.FrameDelayMs,
			LoopCount:      cfg.LoopCount,
			QuantizeFormat: cfg.QuantizeFormat,
			Dithering:      cfg.Dithering,
		}}
		return e.await(ctx, rt)
	}

	evt, cancelled := send(encoderID)
	if cancelled {
		return e.cancel(rt, onProgress)
	}
	if evt.Type == worker.EvtReady {
		return nil
	}

	fallbackID := e.registry.DefaultID()
	if encoderID != "" && fallbackID != "" && fallbackID != encoderID {
		e.logger.Warn("Encoder %s unavailable (%s), falling back to %s", encoderID, evt.Message, fallbackID)
		evt, cancelled = send(fallbackID)
		if cancelled {
			return e.cancel(rt, onProgress)
		}
		if evt.Type == worker.EvtReady {
			e.updateJob(nil, func(j *Job) { j.EncoderID = fallbackID })
			return nil
		}
	}

	e.failJob(evt.Message, onProgress)
	return fmt.Errorf("export: encoder init: %s", evt.Message)
}

// await waits for the next worker event, reporting cancellation when the
// caller's context fires first.
func (e *Exporter) await(ctx context.Context, rt *worker.Runtime) (worker.Event, bool) {
	select {
	case evt := <-rt.Events():
		return evt, false
	case <-ctx.Done():
		return worker.Event{}, true
	}
}

// cancel sends CANCEL so the worker disposes its encoder, drains events
// until the CANCELLED reply, and marks the job cancelled.
func (e *Exporter) cancel(rt *worker.Runtime, onProgress func(Job)) error {
	rt.Commands() <- worker.Command{Type: worker.CmdCancel}
	e.drainUntilDisposed(rt)

	e.logger.Info("Export cancelled")
	e.updateJob(onProgress, func(j *Job) {
		j.Status = StatusCancelled
		j.Result = nil
		j.Err = ""
	})
	return ErrCancelled
}

// abort disposes the worker's encoder after a main-side failure, without
// marking the job cancelled.
func (e *Exporter) abort(rt *worker.Runtime) {
	rt.Commands() <- worker.Command{Type: worker.CmdCancel}
	e.drainUntilDisposed(rt)
}

// drainUntilDisposed discards queued replies from commands issued before
// CANCEL. The runtime answers CANCEL with CANCELLED, or with a protocol
// ERROR when the job was already terminal; either way the encoder is gone.
func (e *Exporter) drainUntilDisposed(rt *worker.Runtime) {
	for evt := range rt.Events() {
		if evt.Type == worker.EvtCancelled || evt.Type == worker.EvtError {
			return
		}
	}
}

func (e *Exporter) setJob(job Job, onProgress func(Job)) {
	e.mu.Lock()
	e.job = job
	snapshot := e.job
	e.mu.Unlock()
	if onProgress != nil {
		onProgress(snapshot)
	}
}

func (e *Exporter) updateJob(onProgress func(Job), mutate func(*Job)) {
	e.mu.Lock()
	mutate(&e.job)
	snapshot := e.job
	e.mu.Unlock()
	if onProgress != nil {
		onProgress(snapshot)
	}
}

func (e *Exporter) failJob(message string, onProgress func(Job)) {
	e.updateJob(onProgress, func(j *Job) {
		j.Status = StatusError
		j.Result = nil
		j.Err = message
	})
}

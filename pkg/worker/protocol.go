// Package worker defines the tagged-message protocol between the export
// orchestrator and the encoding runtime, and the runtime goroutine that
// drives one encoder instance per job.
//
// The protocol is a closed set: four commands, five events, one in-flight
// operation at a time. Pixel and result buffers cross the boundary by
// ownership transfer; the sender must drop its reference after sending.
package worker

import "github.com/user/gifcast/pkg/ports"

// CommandType tags a command sent to the runtime.
type CommandType string

const (
	CmdInit     CommandType = "init"
	CmdAddFrame CommandType = "add_frame"
	CmdFinish   CommandType = "finish"
	CmdCancel   CommandType = "cancel"
)

// EventType tags an event emitted by the runtime.
type EventType string

const (
	EvtReady     EventType = "ready"
	EvtProgress  EventType = "progress"
	EvtComplete  EventType = "complete"
	EvtError     EventType = "error"
	EvtCancelled EventType = "cancelled"
)

// InitPayload carries everything the runtime needs to create and initialize
// an encoder for one job.
type InitPayload struct {
	EncoderID      string
	Width          int
	Height         int
	TotalFrames    int
	MaxColors      int
	FrameDelayMs   int
	LoopCount      int
	QuantizeFormat ports.QuantizeFormat
	Dithering      bool
}

// FramePayload carries one transferred pixel buffer. After sending, the
// buffer belongs to the runtime.
type FramePayload struct {
	Pixels     []byte
	Width      int
	Height     int
	FrameIndex int
}

// Command is one tagged message to the runtime. Exactly one payload field is
// set, matching Type.
type Command struct {
	Type  CommandType
	Init  *InitPayload
	Frame *FramePayload
}

// Event is one tagged message from the runtime.
type Event struct {
	Type       EventType
	FrameIndex int     // PROGRESS: index of the frame just encoded
	Percent    float64 // PROGRESS: frames done / total * 100
	Data       []byte  // COMPLETE: encoded GIF, transferred to the receiver
	ElapsedMs  int64   // COMPLETE: wall time since INIT
	Message    string  // ERROR: human-readable cause
}

func (p InitPayload) encoderConfig() ports.EncoderConfig {
	return ports.EncoderConfig{
		Width:          p.Width,
		Height:         p.Height,
		MaxColors:      p.MaxColors,
		FrameDelayMs:   p.FrameDelayMs,
		LoopCount:      p.LoopCount,
		QuantizeFormat: p.QuantizeFormat,
		Dithering:      p.Dithering,
	}
}

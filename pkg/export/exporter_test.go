package export

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/user/gifcast/pkg/adapters/gifenc"
	"github.com/user/gifcast/pkg/adapters/logger"
	"github.com/user/gifcast/pkg/config"
	"github.com/user/gifcast/pkg/extractor"
	"github.com/user/gifcast/pkg/mocks"
	"github.com/user/gifcast/pkg/ports"
	"github.com/user/gifcast/pkg/registry"
)

func testFrames(n, w, h int) []ports.Frame {
	frames := make([]ports.Frame, n)
	for i := range frames {
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.SetRGBA(x, y, color.RGBA{R: uint8(i * 20), G: 100, B: 50, A: 255})
			}
		}
		frames[i] = &mocks.Frame{W: w, H: h, Ts: int64(i) * 33_333, Img: img}
	}
	return frames
}

func mockRegistry(enc *mocks.GifEncoder) *registry.Registry {
	reg := registry.New()
	reg.Register("mock", func() ports.GifEncoder { return enc })
	return reg
}

func TestEncode_HappyPath(t *testing.T) {
	enc := &mocks.GifEncoder{}
	exporter := New(mockRegistry(enc), logger.NewNoop())

	var snapshots []Job
	data, err := exporter.Encode(context.Background(), testFrames(5, 4, 4), nil,
		config.Defaults(), 30, func(j Job) { snapshots = append(snapshots, j) })
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected encoded output")
	}

	if len(enc.AddFrameCalls) != 5 {
		t.Errorf("expected 5 frames encoded, got %d", len(enc.AddFrameCalls))
	}
	for i, call := range enc.AddFrameCalls {
		if call.FrameIndex != i {
			t.Errorf("frame %d sent with index %d", i, call.FrameIndex)
		}
	}
	if enc.DisposeCount != 1 {
		t.Errorf("encoder disposed %d times, want 1", enc.DisposeCount)
	}

	final := exporter.Job()
	if final.Status != StatusComplete || final.Progress != 100 {
		t.Errorf("expected complete job at 100%%, got %s at %.0f", final.Status, final.Progress)
	}
	if len(snapshots) == 0 {
		t.Fatal("expected progress callbacks")
	}
	last := snapshots[len(snapshots)-1]
	if last.Status != StatusComplete {
		t.Errorf("last snapshot should be complete, got %s", last.Status)
	}
}

func TestEncode_ProgressIsMonotonic(t *testing.T) {
	enc := &mocks.GifEncoder{}
	exporter := New(mockRegistry(enc), logger.NewNoop())

	prev := -1.0
	_, err := exporter.Encode(context.Background(), testFrames(10, 2, 2), nil,
		config.Defaults(), 30, func(j Job) {
			if j.Progress < prev {
				t.Errorf("progress went backwards: %.1f after %.1f", j.Progress, prev)
			}
			prev = j.Progress
		})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestEncode_FrameSkip(t *testing.T) {
	enc := &mocks.GifEncoder{}
	exporter := New(mockRegistry(enc), logger.NewNoop())

	settings := config.Defaults()
	settings.FrameSkip = 2

	_, err := exporter.Encode(context.Background(), testFrames(5, 2, 2), nil, settings, 30, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(enc.AddFrameCalls) != 3 { // frames 0, 2, 4
		t.Errorf("expected 3 frames with skip 2, got %d", len(enc.AddFrameCalls))
	}
	if exporter.Job().TotalFrames != 3 {
		t.Errorf("job total should count kept frames, got %d", exporter.Job().TotalFrames)
	}
}

func TestEncode_Crop(t *testing.T) {
	enc := &mocks.GifEncoder{}
	exporter := New(mockRegistry(enc), logger.NewNoop())

	crop := &ports.CropArea{X: 1, Y: 1, Width: 2, Height: 2}
	_, err := exporter.Encode(context.Background(), testFrames(2, 4, 4), crop,
		config.Defaults(), 30, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if enc.InitConfig.Width != 2 || enc.InitConfig.Height != 2 {
		t.Errorf("encoder should be configured to crop size, got %dx%d",
			enc.InitConfig.Width, enc.InitConfig.Height)
	}
	for i, call := range enc.AddFrameCalls {
		if call.Width != 2 || call.Height != 2 {
			t.Errorf("frame %d not cropped: %dx%d", i, call.Width, call.Height)
		}
	}
}

func TestEncode_InvalidCropRejected(t *testing.T) {
	exporter := New(mockRegistry(&mocks.GifEncoder{}), logger.NewNoop())

	crop := &ports.CropArea{X: 3, Y: 3, Width: 4, Height: 4}
	_, err := exporter.Encode(context.Background(), testFrames(2, 4, 4), crop,
		config.Defaults(), 30, nil)
	if err == nil {
		t.Fatal("expected error for out-of-bounds crop")
	}
}

func TestEncode_InvalidSettingsRejected(t *testing.T) {
	enc := &mocks.GifEncoder{}
	exporter := New(mockRegistry(enc), logger.NewNoop())

	settings := config.Defaults()
	settings.Quality = 3.0

	_, err := exporter.Encode(context.Background(), testFrames(2, 2, 2), nil, settings, 30, nil)
	if err == nil {
		t.Fatal("expected error for invalid settings")
	}
	if enc.InitCalled {
		t.Error("encoder must not be touched when settings are invalid")
	}
}

func TestEncode_CancellationRace(t *testing.T) {
	enc := &mocks.GifEncoder{}
	exporter := New(mockRegistry(enc), logger.NewNoop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel mid-job, after the third frame's progress report.
	_, err := exporter.Encode(ctx, testFrames(10, 2, 2), nil, config.Defaults(), 30,
		func(j Job) {
			if j.CurrentFrame == 3 {
				cancel()
			}
		})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}

	job := exporter.Job()
	if job.Status != StatusCancelled {
		t.Errorf("expected cancelled status, got %s", job.Status)
	}
	if job.Err != "" {
		t.Errorf("cancellation must not set an error message, got %q", job.Err)
	}
	if job.Result != nil {
		t.Error("cancelled job must not keep a result")
	}
	if enc.DisposeCount != 1 {
		t.Errorf("encoder disposed %d times, want exactly 1", enc.DisposeCount)
	}
	if enc.FinishCalled {
		t.Error("Finish must not run on a cancelled job")
	}
}

func TestEncode_CancelledBeforeStart(t *testing.T) {
	enc := &mocks.GifEncoder{}
	exporter := New(mockRegistry(enc), logger.NewNoop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exporter.Encode(ctx, testFrames(3, 2, 2), nil, config.Defaults(), 30, nil)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if len(enc.AddFrameCalls) != 0 {
		t.Error("no frames should be sent after cancellation")
	}
}

func TestEncode_EncoderFailureMarksJobError(t *testing.T) {
	enc := &mocks.GifEncoder{
		AddFrameFunc: func(pixels []byte, w, h, idx int) error {
			if idx == 1 {
				return errors.New("quantization exploded")
			}
			return nil
		},
	}
	exporter := New(mockRegistry(enc), logger.NewNoop())

	_, err := exporter.Encode(context.Background(), testFrames(3, 2, 2), nil,
		config.Defaults(), 30, nil)
	if err == nil {
		t.Fatal("expected encode error")
	}
	if errors.Is(err, ErrCancelled) {
		t.Error("an encoding failure is not a cancellation")
	}

	job := exporter.Job()
	if job.Status != StatusError {
		t.Errorf("expected error status, got %s", job.Status)
	}
	if job.Err == "" {
		t.Error("failed job should carry the error message")
	}
	if job.Result != nil {
		t.Error("partial results must be discarded on error")
	}
}

func TestEncode_ExtractionFailureAborts(t *testing.T) {
	enc := &mocks.GifEncoder{}
	exporter := New(mockRegistry(enc), logger.NewNoop())

	frames := testFrames(3, 2, 2)
	frames[1] = &mocks.Frame{W: 2, H: 2, Err: errors.New("source closed")}

	_, err := exporter.Encode(context.Background(), frames, nil, config.Defaults(), 30, nil)
	var extractErr *extractor.ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected an extraction error, got %v", err)
	}
	if enc.DisposeCount != 1 {
		t.Errorf("worker encoder should be disposed on abort, got %d", enc.DisposeCount)
	}
}

func TestEncode_ExtractionFailureWithPlaceholderPolicy(t *testing.T) {
	enc := &mocks.GifEncoder{}
	exporter := New(mockRegistry(enc), logger.NewNoop(), WithPlaceholderFrames())

	frames := testFrames(3, 2, 2)
	frames[1] = &mocks.Frame{W: 2, H: 2, Err: errors.New("source closed")}

	_, err := exporter.Encode(context.Background(), frames, nil, config.Defaults(), 30, nil)
	if err != nil {
		t.Fatalf("placeholder policy should keep the job alive: %v", err)
	}
	if len(enc.AddFrameCalls) != 3 {
		t.Errorf("expected 3 frames including the placeholder, got %d", len(enc.AddFrameCalls))
	}
}

func TestEncode_FallsBackToDefaultEncoder(t *testing.T) {
	broken := &mocks.GifEncoder{
		InitFunc: func(ctx context.Context, cfg ports.EncoderConfig) error {
			return errors.New("module unavailable")
		},
	}
	working := &mocks.GifEncoder{}

	reg := registry.New()
	reg.Register("software", func() ports.GifEncoder { return working }, true)
	reg.Register("native", func() ports.GifEncoder { return broken })

	exporter := New(reg, logger.NewNoop())
	settings := config.Defaults()
	settings.EncoderID = "native"

	data, err := exporter.Encode(context.Background(), testFrames(2, 2, 2), nil, settings, 30, nil)
	if err != nil {
		t.Fatalf("fallback should succeed: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected output from fallback encoder")
	}
	if len(working.AddFrameCalls) != 2 {
		t.Errorf("fallback encoder should encode the frames, got %d calls", len(working.AddFrameCalls))
	}
	if exporter.Job().EncoderID != "software" {
		t.Errorf("job should record the fallback encoder, got %q", exporter.Job().EncoderID)
	}
}

func TestEncode_NoFrames(t *testing.T) {
	exporter := New(mockRegistry(&mocks.GifEncoder{}), logger.NewNoop())
	if _, err := exporter.Encode(context.Background(), nil, nil, config.Defaults(), 30, nil); !errors.Is(err, ErrNoFrames) {
		t.Errorf("expected ErrNoFrames, got %v", err)
	}
}

func TestEncode_RetryAfterError(t *testing.T) {
	calls := 0
	enc := &mocks.GifEncoder{
		AddFrameFunc: func(pixels []byte, w, h, idx int) error {
			calls++
			if calls == 1 {
				return errors.New("transient failure")
			}
			return nil
		},
	}
	exporter := New(mockRegistry(enc), logger.NewNoop())

	if _, err := exporter.Encode(context.Background(), testFrames(2, 2, 2), nil, config.Defaults(), 30, nil); err == nil {
		t.Fatal("first job should fail")
	}

	// A failed job must not wedge the exporter; a fresh job with the same
	// settings starts clean.
	if _, err := exporter.Encode(context.Background(), testFrames(2, 2, 2), nil, config.Defaults(), 30, nil); err != nil {
		t.Fatalf("retry should succeed: %v", err)
	}
}

func TestEncode_EndToEndWithSoftwareBackend(t *testing.T) {
	reg := registry.New()
	reg.Register(gifenc.ID, gifenc.Factory(), true)

	exporter := New(reg, logger.NewNoop())
	data, err := exporter.Encode(context.Background(), testFrames(4, 8, 8), nil,
		config.Defaults(), 30, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(data) < 6 || string(data[:6]) != "GIF89a" {
		t.Errorf("output does not start with a GIF header: %q", data[:min(6, len(data))])
	}
}

package wasmenc

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// instance wraps one instantiated module: its exported functions, a small
// arena over the linear memory, and the host-callback capture slots. It
// exposes the narrow quantize/finish seam the encoder works against; all
// pointer and callback marshaling stays in here.
type instance struct {
	runtime wazero.Runtime
	module  api.Module

	malloc     api.Function
	memFree    api.Function
	newEnc     api.Function
	addFrame   api.Function
	finishEnc  api.Function
	freeEnc    api.Function

	handle uint64

	// Filled by host callbacks during ge_add_frame / ge_finish.
	lastPalette []byte
	lastIndices []byte
	result      []byte
}

// newInstance instantiates the compiled module with this instance's host
// callbacks and creates a module-side encoder handle.
func (b *Backend) newInstance(ctx context.Context, width, height, delayCs, loopCount int) (*instance, error) {
	if err := b.load(ctx); err != nil {
		return nil, err
	}

	inst := &instance{}
	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCompilationCache(b.cache))

	_, err := r.NewHostModuleBuilder("env").
		NewFunctionBuilder().WithFunc(inst.onFrameDone).Export("frame_done").
		NewFunctionBuilder().WithFunc(inst.onResultDone).Export("result_done").
		Instantiate(ctx)
	if err != nil {
		r.Close(ctx)
		return nil, fmt.Errorf("wasmenc: host module: %w", err)
	}

	mod, err := r.InstantiateWithConfig(ctx, b.wasm, wazero.NewModuleConfig().WithName("gifenc"))
	if err != nil {
		r.Close(ctx)
		return nil, fmt.Errorf("wasmenc: instantiate: %w", err)
	}

	inst.runtime = r
	inst.module = mod
	for _, exp := range []struct {
		name string
		fn   *api.Function
	}{
		{"malloc", &inst.malloc},
		{"free", &inst.memFree},
		{"ge_new", &inst.newEnc},
		{"ge_add_frame", &inst.addFrame},
		{"ge_finish", &inst.finishEnc},
		{"ge_free", &inst.freeEnc},
	} {
		f := mod.ExportedFunction(exp.name)
		if f == nil {
			r.Close(ctx)
			return nil, fmt.Errorf("wasmenc: module does not export %q", exp.name)
		}
		*exp.fn = f
	}

	res, err := inst.newEnc.Call(ctx, uint64(width), uint64(height), uint64(delayCs), uint64(loopCount))
	if err != nil {
		r.Close(ctx)
		return nil, fmt.Errorf("wasmenc: ge_new: %w", err)
	}
	if len(res) == 0 || res[0] == 0 {
		r.Close(ctx)
		return nil, errors.New("wasmenc: ge_new returned no handle")
	}
	inst.handle = res[0]
	return inst, nil
}

// onFrameDone copies the palette and indexed-pixel buffers out of linear
// memory. The module may reuse or free them after ge_add_frame returns.
func (i *instance) onFrameDone(_ context.Context, m api.Module, palPtr, palLen, idxPtr, idxLen uint32) {
	i.lastPalette = readCopy(m, palPtr, palLen)
	i.lastIndices = readCopy(m, idxPtr, idxLen)
}

// onResultDone copies the encoded GIF out of linear memory.
func (i *instance) onResultDone(_ context.Context, m api.Module, ptr, length uint32) {
	i.result = readCopy(m, ptr, length)
}

func readCopy(m api.Module, ptr, length uint32) []byte {
	if length == 0 {
		return nil
	}
	buf, ok := m.Memory().Read(ptr, length)
	if !ok {
		return nil
	}
	return append([]byte(nil), buf...)
}

// quantize copies one RGBA buffer into linear memory, runs the module's
// quantize-and-append routine, and returns the palette and indexed pixels
// the callback delivered. The input allocation is always freed.
func (i *instance) quantize(ctx context.Context, pixels []byte, width, height int) (palette, indices []byte, err error) {
	ptr, err := i.alloc(ctx, uint32(len(pixels)))
	if err != nil {
		return nil, nil, err
	}
	defer i.free(ctx, ptr)

	if !i.module.Memory().Write(ptr, pixels) {
		return nil, nil, errors.New("wasmenc: pixel buffer write out of range")
	}

	i.lastPalette, i.lastIndices = nil, nil
	res, err := i.addFrame.Call(ctx, i.handle, uint64(ptr), uint64(width), uint64(height))
	if err != nil {
		return nil, nil, fmt.Errorf("wasmenc: ge_add_frame: %w", err)
	}
	if len(res) == 0 || res[0] != 0 {
		return nil, nil, fmt.Errorf("wasmenc: ge_add_frame failed with status %d", statusOf(res))
	}
	if i.lastIndices == nil {
		return nil, nil, errors.New("wasmenc: module did not deliver quantized frame")
	}
	return i.lastPalette, i.lastIndices, nil
}

// finish runs the module's completion routine and returns the encoded bytes
// delivered by the result callback.
func (i *instance) finish(ctx context.Context) ([]byte, error) {
	i.result = nil
	res, err := i.finishEnc.Call(ctx, i.handle)
	if err != nil {
		return nil, fmt.Errorf("wasmenc: ge_finish: %w", err)
	}
	if len(res) == 0 || res[0] != 0 {
		return nil, fmt.Errorf("wasmenc: ge_finish failed with status %d", statusOf(res))
	}
	if len(i.result) == 0 {
		return nil, errors.New("wasmenc: module delivered no result")
	}
	return i.result, nil
}

// close releases the module-side encoder handle and tears down the runtime.
func (i *instance) close(ctx context.Context) {
	if i.runtime == nil {
		return
	}
	if i.freeEnc != nil && i.handle != 0 {
		_, _ = i.freeEnc.Call(ctx, i.handle)
	}
	_ = i.runtime.Close(ctx)
	i.runtime = nil
	i.module = nil
	i.lastPalette, i.lastIndices, i.result = nil, nil, nil
}

func (i *instance) alloc(ctx context.Context, size uint32) (uint32, error) {
	res, err := i.malloc.Call(ctx, uint64(size))
	if err != nil {
		return 0, fmt.Errorf("wasmenc: malloc(%d): %w", size, err)
	}
	if len(res) == 0 || res[0] == 0 {
		return 0, fmt.Errorf("wasmenc: malloc(%d) returned null", size)
	}
	return uint32(res[0]), nil
}

func (i *instance) free(ctx context.Context, ptr uint32) {
	_, _ = i.memFree.Call(ctx, uint64(ptr))
}

func statusOf(res []uint64) uint64 {
	if len(res) == 0 {
		return ^uint64(0)
	}
	return res[0]
}

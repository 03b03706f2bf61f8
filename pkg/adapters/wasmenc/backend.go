// Package wasmenc provides the native GIF encoder backend: a compiled
// WebAssembly module executed in a sandboxed linear-memory runtime (wazero),
// with pixel buffers marshaled through explicit allocate/copy/free calls and
// results delivered via host callbacks.
//
// The module must export:
//
//	malloc(size i32) -> i32            linear-memory allocator
//	free(ptr i32)
//	ge_new(w, h, delay_cs, loop i32) -> i32   encoder handle, 0 on failure
//	ge_add_frame(handle, ptr, w, h i32) -> i32  0 on success; calls env.frame_done
//	ge_finish(handle i32) -> i32       0 on success; calls env.result_done
//	ge_free(handle i32)
//
// and import from "env":
//
//	frame_done(pal_ptr, pal_len, idx_ptr, idx_len i32)
//	result_done(ptr, len i32)
package wasmenc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/tetratelabs/wazero"
)

// ID is the registry identifier of the native backend.
const ID = "native"

// ErrModuleUnavailable indicates the wasm module could not be loaded or
// compiled. Callers treat this as a feature-detection miss and fall back to
// the software backend; it is never a job failure.
var ErrModuleUnavailable = errors.New("wasmenc: module unavailable")

// Options configures where the wasm module comes from.
type Options struct {
	// ModulePath is a filesystem path to the compiled .wasm module.
	ModulePath string
	// ModuleBytes takes precedence over ModulePath when set.
	ModuleBytes []byte
}

// Backend owns the module bytes and the shared compilation cache. The module
// is compile-checked exactly once per Backend and the cache is reused by
// every encoder instance it creates.
type Backend struct {
	opts Options

	once    sync.Once
	loadErr error
	wasm    []byte
	cache   wazero.CompilationCache
}

// NewBackend creates a backend for the given module source. Nothing is
// loaded until the first Available or Init call.
func NewBackend(opts Options) *Backend {
	return &Backend{opts: opts}
}

// Available reports whether the module loads and compiles. A false result
// means the caller should select the software backend instead.
func (b *Backend) Available(ctx context.Context) bool {
	return b.load(ctx) == nil
}

// Close drops the compilation cache.
func (b *Backend) Close(ctx context.Context) error {
	if b.cache != nil {
		return b.cache.Close(ctx)
	}
	return nil
}

func (b *Backend) load(ctx context.Context) error {
	b.once.Do(func() {
		wasm := b.opts.ModuleBytes
		if len(wasm) == 0 && b.opts.ModulePath != "" {
			data, err := os.ReadFile(b.opts.ModulePath)
			if err != nil {
				b.loadErr = fmt.Errorf("%w: read %s: %v", ErrModuleUnavailable, b.opts.ModulePath, err)
				return
			}
			wasm = data
		}
		if len(wasm) == 0 {
			b.loadErr = fmt.Errorf("%w: no module configured", ErrModuleUnavailable)
			return
		}

		cache := wazero.NewCompilationCache()
		probe := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCompilationCache(cache))
		defer probe.Close(ctx)

		if _, err := probe.CompileModule(ctx, wasm); err != nil {
			cache.Close(ctx)
			b.loadErr = fmt.Errorf("%w: compile: %v", ErrModuleUnavailable, err)
			return
		}

		b.wasm = wasm
		b.cache = cache
	})
	return b.loadErr
}

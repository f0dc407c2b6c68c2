package lua

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// Runtime wraps a single Lua state. It is not safe for concurrent use.
type Runtime struct {
	state      *lua.LState
	secureMode bool
	initErr    error
}

type RuntimeOption func(*Runtime)

func WithLoader(loader Loader) RuntimeOption {
	return func(r *Runtime) {
		if loader != nil {
			SetupRequire(r.state, loader)
		}
	}
}

func WithSecureMode(secure bool) RuntimeOption {
	return func(r *Runtime) {
		r.secureMode = secure
	}
}

// WithModules registers modules as globals before any script runs.
func WithModules(modules ...Module) RuntimeOption {
	return func(r *Runtime) {
		for _, m := range modules {
			if err := m.Register(r.state); err != nil && r.initErr == nil {
				r.initErr = fmt.Errorf("failed to register module %s: %w", m.Name(), err)
			}
		}
	}
}

// WithPreload makes a module available through require.
func WithPreload(name string, loader lua.LGFunction) RuntimeOption {
	return func(r *Runtime) {
		r.state.PreloadModule(name, loader)
	}
}

func NewRuntime(options ...RuntimeOption) *Runtime {
	L := lua.NewState()

	runtime := &Runtime{
		state:      L,
		secureMode: true,
	}

	for _, opt := range options {
		opt(runtime)
	}

	if runtime.secureMode {
		runtime.setupSecureState()
	}

	return runtime
}

func (r *Runtime) State() *lua.LState {
	return r.state
}

func (r *Runtime) setupSecureState() {
	for _, name := range []string{"os", "io", "debug", "dofile", "loadfile"} {
		r.state.SetGlobal(name, lua.LNil)
	}
}

func (r *Runtime) LoadScript(scriptContent string) error {
	if r.initErr != nil {
		return r.initErr
	}
	if err := r.state.DoString(scriptContent); err != nil {
		return fmt.Errorf("failed to load script: %w", err)
	}
	return nil
}

// Call invokes a global function. Blocking Lua calls observe ctx.
func (r *Runtime) Call(ctx context.Context, functionName string, args ...any) ([]any, error) {
	luaFn, ok := r.state.GetGlobal(functionName).(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("function %s not found", functionName)
	}

	r.state.SetContext(ctx)
	defer r.state.RemoveContext()

	base := r.state.GetTop()
	r.state.Push(luaFn)
	for _, arg := range args {
		r.state.Push(ToLuaValue(r.state, arg))
	}

	if err := r.state.PCall(len(args), lua.MultRet, nil); err != nil {
		return nil, fmt.Errorf("lua execution error: %w", err)
	}

	top := r.state.GetTop()
	results := make([]any, 0, top-base)
	for i := base + 1; i <= top; i++ {
		results = append(results, ToGoValue(r.state.Get(i)))
	}
	r.state.SetTop(base)

	return results, nil
}

func (r *Runtime) Close() error {
	if r.state != nil {
		r.state.Close()
	}
	return nil
}

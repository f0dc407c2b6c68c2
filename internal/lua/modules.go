package lua

import lua "github.com/yuin/gopher-lua"

// Module installs globals into a fresh state.
type Module interface {
	Name() string
	Register(L *lua.LState) error
}

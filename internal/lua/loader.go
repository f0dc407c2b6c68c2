package lua

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

type Loader interface {
	Load(identifier string) (string, error)
}

// FSLoader reads scripts from a file system, such as an embedded one.
type FSLoader struct {
	fsys     fs.FS
	basePath string
}

func NewFSLoader(fsys fs.FS, basePath string) *FSLoader {
	return &FSLoader{
		fsys:     fsys,
		basePath: basePath,
	}
}

// NewDirLoader reads scripts from a directory on disk.
func NewDirLoader(dir string) *FSLoader {
	return NewFSLoader(os.DirFS(dir), ".")
}

func (l *FSLoader) Load(identifier string) (string, error) {
	name := path.Join(l.basePath, path.Clean("/" + identifier)[1:])
	if !strings.HasSuffix(name, ".lua") {
		name += ".lua"
	}

	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return "", fmt.Errorf("failed to load script %s: %w", identifier, err)
	}

	return string(data), nil
}

// ChainLoader returns the first script any of its loaders can find.
type ChainLoader []Loader

func (c ChainLoader) Load(identifier string) (string, error) {
	var errs []error
	for _, l := range c {
		if l == nil {
			continue
		}
		script, err := l.Load(identifier)
		if err == nil {
			return script, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", fmt.Errorf("no loader for script %s", identifier)
	}
	return "", errors.Join(errs...)
}

// SetupRequire resolves require calls through loader after checking
// package.preload.
func SetupRequire(L *lua.LState, loader Loader) {
	originalRequire := L.GetGlobal("require")

	L.SetGlobal("require", L.NewFunction(func(L *lua.LState) int {
		module := L.CheckString(1)

		preload := L.GetField(L.GetGlobal("package"), "preload")
		if tbl, ok := preload.(*lua.LTable); ok && tbl.RawGetString(module) != lua.LNil {
			if fn, ok := originalRequire.(*lua.LFunction); ok {
				L.Push(fn)
				L.Push(lua.LString(module))
				L.Call(1, 1)
				return 1
			}
		}

		scriptContent, err := loader.Load(module)
		if err != nil {
			L.RaiseError("failed to require module %s: %s", module, err.Error())
			return 0
		}

		fn, err := L.LoadString(scriptContent)
		if err != nil {
			L.RaiseError("failed to load module %s: %s", module, err.Error())
			return 0
		}

		top := L.GetTop()
		L.Push(fn)
		L.Call(0, lua.MultRet)
		return L.GetTop() - top
	}))
}

package loader

import (
	"bytes"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/flextoolbar/internal/toolbar/button"
	"github.com/dshills/flextoolbar/internal/toolbar/condition"
)

// luaRuntime owns the Lua state behind a Lua config. gopher-lua states are
// not goroutine-safe, so every call into Lua holds mu.
type luaRuntime struct {
	mu     sync.Mutex
	L      *lua.LState
	closed bool
}

func newLuaRuntime() *luaRuntime {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	// No io, os or debug: configs only describe buttons.
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	return &luaRuntime{L: L}
}

func (rt *luaRuntime) close() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if !rt.closed {
		rt.closed = true
		rt.L.Close()
	}
	return nil
}

// decodeLua runs the chunk and converts its return value. The chunk must
// return an array table of button tables:
//
//	return {
//	  { icon = "bug", callback = "debugger:toggle",
//	    show = { ["function"] = function(editor) return editor:isModified() end } },
//	}
func (l *Loader) decodeLua(path string, data []byte) (*Config, error) {
	rt := newLuaRuntime()

	fn, err := rt.L.Load(bytes.NewReader(data), path)
	if err != nil {
		_ = rt.close()
		return nil, &ParseError{Path: path, Message: err.Error(), Err: err}
	}

	rt.L.Push(fn)
	if err := rt.L.PCall(0, 1, nil); err != nil {
		_ = rt.close()
		return nil, &ParseError{Path: path, Message: err.Error(), Err: err}
	}
	ret := rt.L.Get(-1)
	rt.L.Pop(1)

	records, err := toRecords(path, rt.toGo(ret, "", make(map[*lua.LTable]bool)))
	if err != nil {
		_ = rt.close()
		return nil, err
	}
	return &Config{Records: records, closer: rt.close}, nil
}

// toGo converts a Lua value. key is the table key the value was stored
// under; it decides whether a function becomes an action or a predicate.
func (rt *luaRuntime) toGo(lv lua.LValue, key string, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		defer delete(visited, v)
		return rt.tableToGo(v, key, visited)
	case *lua.LFunction:
		if key == "callback" {
			return rt.action(v)
		}
		return rt.predicate(v)
	default:
		return nil
	}
}

func (rt *luaRuntime) tableToGo(t *lua.LTable, key string, visited map[*lua.LTable]bool) any {
	n := t.Len()
	count := 0
	t.ForEach(func(_, _ lua.LValue) { count++ })

	if n > 0 && n == count {
		arr := make([]any, n)
		for i := 1; i <= n; i++ {
			arr[i-1] = rt.toGo(t.RawGetInt(i), key, visited)
		}
		return arr
	}

	m := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		var name string
		switch kv := k.(type) {
		case lua.LString:
			name = string(kv)
		case lua.LNumber:
			name = fmt.Sprintf("%v", float64(kv))
		default:
			name = k.String()
		}
		// Everything nested under a callback (modifier maps) is an action.
		childKey := name
		if key == "callback" {
			childKey = key
		}
		m[name] = rt.toGo(v, childKey, visited)
	})
	return m
}

func (rt *luaRuntime) predicate(fn *lua.LFunction) condition.Predicate {
	return func(ed condition.Editor) (any, error) {
		rt.mu.Lock()
		defer rt.mu.Unlock()
		if rt.closed {
			return nil, ErrClosed
		}

		if err := rt.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, rt.editorValue(ed)); err != nil {
			return nil, err
		}
		ret := rt.L.Get(-1)
		rt.L.Pop(1)

		if n, ok := ret.(lua.LNumber); ok {
			return float64(n), nil
		}
		return rt.toGo(ret, "", make(map[*lua.LTable]bool)), nil
	}
}

func (rt *luaRuntime) action(fn *lua.LFunction) button.Action {
	return func(data any) error {
		rt.mu.Lock()
		defer rt.mu.Unlock()
		if rt.closed {
			return ErrClosed
		}

		return rt.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, toLua(data))
	}
}

// editorValue exposes the editor to Lua as a table with methods, so configs
// can write editor:isModified().
func (rt *luaRuntime) editorValue(ed condition.Editor) lua.LValue {
	if ed == nil {
		return lua.LNil
	}

	L := rt.L
	t := L.NewTable()
	L.SetField(t, "path", lua.LString(ed.Path()))
	L.SetField(t, "grammar", lua.LString(ed.GrammarName()))
	L.SetField(t, "isModified", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(ed.IsModified()))
		return 1
	}))
	L.SetField(t, "getPath", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(ed.Path()))
		return 1
	}))
	L.SetField(t, "getGrammar", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(ed.GrammarName()))
		return 1
	}))
	return t
}

func toLua(v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(x)
	case string:
		return lua.LString(x)
	case int:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	default:
		return lua.LString(fmt.Sprint(x))
	}
}

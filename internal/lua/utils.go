package lua

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

func ToLuaValue(L *lua.LState, value any) lua.LValue {
	switch v := value.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return v
	case bool:
		return lua.LBool(v)
	case int:
		return lua.LNumber(v)
	case int64:
		return lua.LNumber(v)
	case float64:
		return lua.LNumber(v)
	case string:
		return lua.LString(v)
	case []string:
		table := L.NewTable()
		for _, s := range v {
			table.Append(lua.LString(s))
		}
		return table
	case map[string]string:
		table := L.NewTable()
		for key, val := range v {
			table.RawSetString(key, lua.LString(val))
		}
		return table
	case map[string]any:
		table := L.NewTable()
		for key, val := range v {
			table.RawSetString(key, ToLuaValue(L, val))
		}
		return table
	case []any:
		table := L.NewTable()
		for i, val := range v {
			table.RawSetInt(i+1, ToLuaValue(L, val))
		}
		return table
	default:
		return lua.LString(fmt.Sprintf("%v", v))
	}
}

func ToGoValue(lv lua.LValue) any {
	switch v := lv.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if maxn := v.MaxN(); maxn > 0 {
			slice := make([]any, 0, maxn)
			for i := 1; i <= maxn; i++ {
				slice = append(slice, ToGoValue(v.RawGetInt(i)))
			}
			return slice
		}

		m := make(map[string]any)
		v.ForEach(func(key, value lua.LValue) {
			if keyStr, ok := key.(lua.LString); ok {
				m[string(keyStr)] = ToGoValue(value)
			}
		})
		return m
	default:
		return nil
	}
}

// StringField reads a string value from a decoded table, ignoring other
// types.
func StringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

package lua

import (
	"encoding/json"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// ── JSON ──

func jsonDecodeFn(L *lua.LState) int {
	str := L.CheckString(1)
	var v any
	if err := json.Unmarshal([]byte(str), &v); err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(goToLua(L, v))
	L.Push(lua.LNil)
	return 2
}

func jsonEncodeFn(L *lua.LState) int {
	data, err := json.Marshal(luaToGo(L.CheckAny(1)))
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LString(string(data)))
	L.Push(lua.LNil)
	return 2
}

func goToLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case float64:
		return lua.LNumber(val)
	case int:
		return lua.LNumber(float64(val))
	case string:
		return lua.LString(val)
	case []any:
		tbl := L.NewTable()
		for i, item := range val {
			tbl.RawSetInt(i+1, goToLua(L, item))
		}
		return tbl
	case map[string]any:
		tbl := L.NewTable()
		for k, item := range val {
			tbl.RawSetString(k, goToLua(L, item))
		}
		return tbl
	default:
		return lua.LString(fmt.Sprintf("%v", val))
	}
}

func luaToGo(lv lua.LValue) any {
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
		if n := v.MaxN(); n > 0 {
			arr := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				arr = append(arr, luaToGo(v.RawGetInt(i)))
			}
			return arr
		}
		m := make(map[string]any)
		v.ForEach(func(key, val lua.LValue) {
			m[key.String()] = luaToGo(val)
		})
		return m
	default:
		return v.String()
	}
}

// ── Log ──

func logFn(plugin, level string) lua.LGFunction {
	return func(L *lua.LState) int {
		msg := L.CheckString(1)
		switch level {
		case "warn":
			log.Warnf("[%s] %s", plugin, msg)
		case "error":
			log.Errorf("[%s] %s", plugin, msg)
		default:
			log.Infof("[%s] %s", plugin, msg)
		}
		return 0
	}
}

// ── Text helpers ──

func trimFn(L *lua.LState) int {
	L.Push(lua.LString(strings.TrimSpace(L.CheckString(1))))
	return 1
}

// linesFn splits a string on newlines into an array table.
func linesFn(L *lua.LState) int {
	tbl := L.NewTable()
	for i, line := range strings.Split(L.CheckString(1), "\n") {
		tbl.RawSetInt(i+1, lua.LString(line))
	}
	L.Push(tbl)
	return 1
}

package lua

import (
	lua "github.com/yuin/gopher-lua"
)

// newSandboxedVM creates a VM with only base, table, string and math
// libraries and the codespace.* helpers. No os or io access.
func newSandboxedVM(plugin string, registryMax int) *lua.LState {
	L := lua.NewState(lua.Options{
		SkipOpenLibs:        true,
		CallStackSize:       128,
		RegistrySize:        2048,
		RegistryMaxSize:     registryMax,
		RegistryGrowStep:    32,
		MinimizeStackMemory: true,
	})

	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "collectgarbage"} {
		L.SetGlobal(name, lua.LNil)
	}

	injectAPI(L, plugin)
	return L
}

// injectAPI installs the codespace.* table.
func injectAPI(L *lua.LState, plugin string) {
	api := L.NewTable()

	jsonTbl := L.NewTable()
	jsonTbl.RawSetString("decode", L.NewFunction(jsonDecodeFn))
	jsonTbl.RawSetString("encode", L.NewFunction(jsonEncodeFn))
	api.RawSetString("json", jsonTbl)

	logTbl := L.NewTable()
	logTbl.RawSetString("info", L.NewFunction(logFn(plugin, "info")))
	logTbl.RawSetString("warn", L.NewFunction(logFn(plugin, "warn")))
	logTbl.RawSetString("error", L.NewFunction(logFn(plugin, "error")))
	api.RawSetString("log", logTbl)

	api.RawSetString("trim", L.NewFunction(trimFn))
	api.RawSetString("lines", L.NewFunction(linesFn))

	L.SetGlobal("codespace", api)
}

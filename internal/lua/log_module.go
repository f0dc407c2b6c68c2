package lua

import (
	"log/slog"

	lua "github.com/yuin/gopher-lua"
)

// LogModule forwards script log calls to slog, tagged with the script name.
type LogModule struct {
	logger *slog.Logger
}

func NewLogModule(logger *slog.Logger, script string) *LogModule {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogModule{
		logger: logger.With("script", script),
	}
}

func (l *LogModule) Name() string {
	return "log"
}

func (l *LogModule) Register(L *lua.LState) error {
	logTable := L.NewTable()
	L.SetFuncs(logTable, map[string]lua.LGFunction{
		"debug": l.logAt(slog.LevelDebug),
		"info":  l.logAt(slog.LevelInfo),
		"warn":  l.logAt(slog.LevelWarn),
		"error": l.logAt(slog.LevelError),
	})

	L.SetGlobal("log", logTable)
	return nil
}

func (l *LogModule) logAt(level slog.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		message := L.CheckString(1)
		var attrs []any
		if tbl, ok := L.Get(2).(*lua.LTable); ok {
			tbl.ForEach(func(k, v lua.LValue) {
				attrs = append(attrs, k.String(), ToGoValue(v))
			})
		}
		l.logger.Log(L.Context(), level, message, attrs...)
		return 0
	}
}

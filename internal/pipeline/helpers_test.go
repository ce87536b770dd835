package pipeline

import (
	"context"
	"fmt"

	"lingocap/internal/config"
	"lingocap/pkg/logger"
)

func testLogger() logger.Logger {
	l := logger.NewApiLogger(&config.Config{
		Server: config.ServerConfig{Mode: "Development"},
		Logger: config.Logger{Encoding: "console", Level: "error"},
	})
	l.InitLogger()
	return l
}

func testConfig(cacheDir string) *config.Config {
	c := &config.Config{}
	config.SetDefaults(c)
	c.Pipeline.CacheDir = cacheDir
	return c
}

// fakeRunner stands in for the external tools. Each call is recorded and
// dispatched to the configured handler.
type fakeRunner struct {
	calls   [][]string
	handler func(name string, args []string) (ToolResult, error)
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) (ToolResult, error) {
	if err := ctx.Err(); err != nil {
		return ToolResult{ExitCode: -1}, err
	}
	r.calls = append(r.calls, append([]string{name}, args...))
	if r.handler == nil {
		return ToolResult{}, fmt.Errorf("unexpected tool invocation: %s", name)
	}
	return r.handler(name, args)
}

// Package functions holds the registry of functions the agent may call and
// the dispatcher that runs them on behalf of a call.
package functions

import (
	"context"
	"encoding/json"
	"fmt"
)

// Function is one callable exposed to the agent.
type Function interface {
	Name() string
	Description() string
	// Parameters is the JSON schema of the argument object.
	Parameters() json.RawMessage
	Invoke(ctx context.Context, args Args) (any, error)
}

// Func adapts a plain Go function to Function.
type Func struct {
	FuncName string
	Desc     string
	Schema   string
	Fn       func(ctx context.Context, args Args) (any, error)
}

func (f *Func) Name() string                { return f.FuncName }
func (f *Func) Description() string         { return f.Desc }
func (f *Func) Parameters() json.RawMessage { return json.RawMessage(f.Schema) }

func (f *Func) Invoke(ctx context.Context, args Args) (any, error) {
	return f.Fn(ctx, args)
}

// ErrorResult is the structured error object returned to the agent in
// place of a result.
type ErrorResult struct {
	Error string `json:"error"`
}

// Errorf builds an ErrorResult.
func Errorf(format string, a ...any) ErrorResult {
	return ErrorResult{Error: fmt.Sprintf(format, a...)}
}

// Args are the decoded arguments of a call. Values follow JSON decoding
// rules: numbers are float64.
type Args map[string]any

// String returns the string at key, or "" when absent.
func (a Args) String(key string) string {
	switch v := a[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// StringOr returns the string at key, or def when absent or empty.
func (a Args) StringOr(key, def string) string {
	if s := a.String(key); s != "" {
		return s
	}
	return def
}

// Float returns the number at key, or 0 when absent.
func (a Args) Float(key string) float64 {
	switch v := a[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	default:
		return 0
	}
}

// IntOr returns the number at key truncated to int, or def when absent.
func (a Args) IntOr(key string, def int) int {
	if _, ok := a[key]; !ok {
		return def
	}
	return int(a.Float(key))
}

package functions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/room4-2/agentbridge/logger"
	"github.com/room4-2/agentbridge/messages"
)

const echoSchema = `{
	"type": "object",
	"properties": {
		"text": {"type": "string"},
		"times": {"type": "number"}
	},
	"required": ["text"]
}`

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry(
		&Func{
			FuncName: "echo",
			Desc:     "Echo text back",
			Schema:   echoSchema,
			Fn: func(_ context.Context, args Args) (any, error) {
				return map[string]any{"text": args.String("text"), "times": args.IntOr("times", 1)}, nil
			},
		},
		&Func{
			FuncName: "explode",
			Fn: func(context.Context, Args) (any, error) {
				return nil, errors.New("boom")
			},
		},
		&Func{
			FuncName: "panics",
			Fn: func(context.Context, Args) (any, error) {
				panic("bad state")
			},
		},
		&Func{
			FuncName: "hang",
			Fn: func(ctx context.Context, _ Args) (any, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
		},
		&Func{
			FuncName: "lookup_miss",
			Fn: func(context.Context, Args) (any, error) {
				return Errorf("Account '%s' not found.", "999"), nil
			},
		},
		&Func{
			FuncName: "noop",
			Fn: func(context.Context, Args) (any, error) {
				return nil, nil
			},
		},
	)
	require.NoError(t, err)
	return reg
}

func respond(t *testing.T, d *Dispatcher, call messages.FunctionCall) (*messages.FunctionCallResponse, map[string]any) {
	t.Helper()
	resp := d.Respond(context.Background(), call)
	require.NotNil(t, resp)
	var content map[string]any
	require.NoError(t, messages.Decode([]byte(resp.Content), &content))
	return resp, content
}

func TestDispatcher_Success(t *testing.T) {
	d := NewDispatcher(testRegistry(t), time.Second, logger.Discard())

	resp, content := respond(t, d, messages.FunctionCall{ID: "f1", Name: "echo", Arguments: `{"text":"hi","times":2}`})
	assert.Equal(t, messages.TypeFunctionCallResponse, resp.Type)
	assert.Equal(t, "f1", resp.ID)
	assert.Equal(t, "echo", resp.Name)
	assert.Equal(t, "hi", content["text"])
	assert.Equal(t, float64(2), content["times"])
}

func TestDispatcher_UnknownFunction(t *testing.T) {
	d := NewDispatcher(testRegistry(t), time.Second, logger.Discard())

	resp, content := respond(t, d, messages.FunctionCall{ID: "f2", Name: "launch_rocket", Arguments: `{}`})
	assert.Equal(t, "f2", resp.ID)
	assert.Equal(t, "launch_rocket", resp.Name)
	assert.Equal(t, "Function 'launch_rocket' not found.", content["error"])
}

func TestDispatcher_FunctionError(t *testing.T) {
	d := NewDispatcher(testRegistry(t), time.Second, logger.Discard())

	_, content := respond(t, d, messages.FunctionCall{ID: "f3", Name: "explode"})
	assert.Equal(t, "Function failed with: boom", content["error"])
}

func TestDispatcher_Panic(t *testing.T) {
	d := NewDispatcher(testRegistry(t), time.Second, logger.Discard())

	_, content := respond(t, d, messages.FunctionCall{ID: "f4", Name: "panics"})
	assert.Equal(t, "Function failed with: panic: bad state", content["error"])
}

func TestDispatcher_MalformedArguments(t *testing.T) {
	d := NewDispatcher(testRegistry(t), time.Second, logger.Discard())

	resp, content := respond(t, d, messages.FunctionCall{ID: "f5", Name: "echo", Arguments: `{"text":`})
	assert.Equal(t, "f5", resp.ID)
	assert.Equal(t, "echo", resp.Name)
	assert.Contains(t, content["error"], "Function failed with: invalid arguments")
}

func TestDispatcher_MissingIdentifiers(t *testing.T) {
	d := NewDispatcher(testRegistry(t), time.Second, logger.Discard())

	resp, _ := respond(t, d, messages.FunctionCall{Arguments: `not json`})
	assert.Equal(t, messages.UnknownCallField, resp.ID)
	assert.Equal(t, messages.UnknownCallField, resp.Name)
}

func TestDispatcher_UndecodableCall(t *testing.T) {
	d := NewDispatcher(testRegistry(t), time.Second, logger.Discard())

	call := messages.FunctionCall{ID: "f9", Name: "echo", DecodeErr: errors.New("arguments is an object")}
	resp, content := respond(t, d, call)
	assert.Equal(t, "f9", resp.ID)
	assert.Equal(t, "echo", resp.Name)
	assert.Contains(t, content["error"], "Function failed with: invalid arguments")
	assert.Contains(t, content["error"], "arguments is an object")
}

func TestDispatcher_SchemaViolation(t *testing.T) {
	d := NewDispatcher(testRegistry(t), time.Second, logger.Discard())

	_, content := respond(t, d, messages.FunctionCall{ID: "f6", Name: "echo", Arguments: `{"times":3}`})
	assert.Contains(t, content["error"], "invalid arguments")
	assert.Contains(t, content["error"], "text")
}

func TestDispatcher_Timeout(t *testing.T) {
	d := NewDispatcher(testRegistry(t), 20*time.Millisecond, logger.Discard())

	_, content := respond(t, d, messages.FunctionCall{ID: "f7", Name: "hang"})
	assert.Contains(t, content["error"], "function timed out")
}

func TestDispatcher_ApplicationError(t *testing.T) {
	d := NewDispatcher(testRegistry(t), time.Second, logger.Discard())

	_, content := respond(t, d, messages.FunctionCall{ID: "f8", Name: "lookup_miss"})
	assert.Equal(t, "Account '999' not found.", content["error"])
}

func TestDispatcher_NilResult(t *testing.T) {
	d := NewDispatcher(testRegistry(t), time.Second, logger.Discard())

	_, content := respond(t, d, messages.FunctionCall{ID: "f9", Name: "noop"})
	assert.Equal(t, true, content["success"])
}

func TestDispatch_Direct(t *testing.T) {
	d := NewDispatcher(testRegistry(t), 0, logger.Discard())

	res := d.Dispatch(context.Background(), "missing", Args{})
	assert.Equal(t, Errorf("Function 'missing' not found."), res)

	res = d.Dispatch(context.Background(), "echo", Args{"text": "yo"})
	assert.Equal(t, map[string]any{"text": "yo", "times": 1}, res)
}

func TestRegistry(t *testing.T) {
	reg := testRegistry(t)

	assert.Equal(t, []string{"echo", "explode", "panics", "hang", "lookup_miss", "noop"}, reg.Names())
	decls := reg.Declarations()
	require.Len(t, decls, 6)
	assert.Equal(t, "echo", decls[0].Name)
	assert.JSONEq(t, echoSchema, string(decls[0].Parameters))

	err := reg.Validate("echo", []byte(`{"text": 5}`))
	assert.ErrorIs(t, err, ErrInvalidArguments)
	assert.NoError(t, reg.Validate("echo", []byte(`{"text": "ok"}`)))
	assert.NoError(t, reg.Validate("noop", []byte(`{"anything": true}`)))
}

func TestRegistry_RejectsDuplicatesAndBadSchemas(t *testing.T) {
	fn := &Func{FuncName: "a", Fn: func(context.Context, Args) (any, error) { return nil, nil }}
	_, err := NewRegistry(fn, fn)
	assert.Error(t, err)

	_, err = NewRegistry(&Func{FuncName: "b", Schema: `{"type": 12}`})
	assert.Error(t, err)
}

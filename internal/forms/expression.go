package forms

import (
	"context"
	"sync"

	"github.com/google/cel-go/cel"

	"crmforge/pkg/logger"
)

// ExpressionCache compiles tenant-authored CEL constraint expressions once
// and caches the programs. Expressions see two variables: `value` (the field
// value under validation) and `draft` (the full draft value set) and must
// evaluate to bool.
//
// A malformed or failing expression is "not enforceable": logged for
// operators, skipped during validation, never surfaced to the user. This
// matches the malformed-regex policy.
type ExpressionCache struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
	broken   map[string]struct{} // expressions that failed to compile
}

// NewExpressionCache builds the CEL environment. An environment construction
// failure disables expression constraints entirely (nil cache is safe).
func NewExpressionCache() (*ExpressionCache, error) {
	env, err := cel.NewEnv(
		cel.Variable("value", cel.DynType),
		cel.Variable("draft", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, err
	}
	return &ExpressionCache{
		env:      env,
		programs: make(map[string]cel.Program),
		broken:   make(map[string]struct{}),
	}, nil
}

// Eval evaluates expr against value and draft.
// enforceable=false means the constraint must be skipped.
func (c *ExpressionCache) Eval(ctx context.Context, expr string, value any, draft map[string]any) (passed, enforceable bool) {
	if c == nil || expr == "" {
		return true, false
	}

	prg, ok := c.program(ctx, expr)
	if !ok {
		return true, false
	}

	if draft == nil {
		draft = map[string]any{}
	}
	out, _, err := prg.Eval(map[string]any{
		"value": value,
		"draft": draft,
	})
	if err != nil {
		logger.Warn(ctx, "constraint expression evaluation failed",
			"expression", expr, "error", err)
		return true, false
	}

	b, ok := out.Value().(bool)
	if !ok {
		logger.Warn(ctx, "constraint expression did not evaluate to bool",
			"expression", expr)
		return true, false
	}
	return b, true
}

func (c *ExpressionCache) program(ctx context.Context, expr string) (cel.Program, bool) {
	c.mu.RLock()
	prg, cached := c.programs[expr]
	_, isBroken := c.broken[expr]
	c.mu.RUnlock()

	if cached {
		return prg, true
	}
	if isBroken {
		return nil, false
	}

	ast, issues := c.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		logger.Warn(ctx, "constraint expression does not compile",
			"expression", expr, "error", issues.Err())
		c.mu.Lock()
		c.broken[expr] = struct{}{}
		c.mu.Unlock()
		return nil, false
	}

	prg, err := c.env.Program(ast)
	if err != nil {
		logger.Warn(ctx, "constraint expression program build failed",
			"expression", expr, "error", err)
		c.mu.Lock()
		c.broken[expr] = struct{}{}
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.programs[expr] = prg
	c.mu.Unlock()
	return prg, true
}

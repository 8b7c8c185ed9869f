package gate

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"

	"github.com/kestrelci/kestrel/pkg/apis/core/v1beta1"
)

// NewCelEnv declares the variables available to job `if` expressions.
func NewCelEnv() (*cel.Env, error) {
	return cel.NewEnv(
		ext.Strings(),
		cel.Variable("event", cel.StringType),
		cel.Variable("branch", cel.StringType),
		cel.Variable("commit_message", cel.StringType),
		cel.Variable("matrix", cel.MapType(cel.StringType, cel.StringType)),
	)
}

type Condition struct {
	expr string
	prg  cel.Program
}

// CompileCondition compiles a job `if` expression once at load time. A
// broken expression aborts the invocation before any instance runs.
func CompileCondition(celEnv *cel.Env, expr string) (*Condition, error) {
	if expr == "" {
		return nil, nil
	}

	ast, issues := celEnv.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("expression compilation `%s` failed: %v: %w", expr, issues.Err(), v1beta1.ErrInvalidWorkflow)
	}

	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expression `%s` must evaluate to a boolean: %w", expr, v1beta1.ErrInvalidWorkflow)
	}

	prg, err := celEnv.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("expression ast `%s` failed: %v: %w", expr, err, v1beta1.ErrInvalidWorkflow)
	}

	return &Condition{expr: expr, prg: prg}, nil
}

// Eval evaluates the condition against the trigger and one instance's
// matrix assignment.
func (c *Condition) Eval(trigger v1beta1.Trigger, matrixValues map[string]string) (bool, error) {
	if matrixValues == nil {
		matrixValues = map[string]string{}
	}

	out, _, err := c.prg.Eval(map[string]any{
		"event":          string(trigger.Event),
		"branch":         trigger.Branch,
		"commit_message": trigger.CommitMessage,
		"matrix":         matrixValues,
	})
	if err != nil {
		return false, fmt.Errorf("condition expression evaluation `%s` failed: %w", c.expr, err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition expression `%s` is not a boolean: %w", c.expr, v1beta1.ErrInvalidWorkflow)
	}

	return result, nil
}

package tools

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	tooltypes "github.com/abonvalle/hf-agent-course/pkg/types/tools"
)

// CalculatorToolResult represents the result of an arithmetic operation
type CalculatorToolResult struct {
	operation string
	a         float64
	b         float64
	value     float64
	err       string
}

// GetResult returns the computed value
func (r *CalculatorToolResult) GetResult() string {
	return formatNumber(r.value)
}

// GetError returns the error message
func (r *CalculatorToolResult) GetError() string {
	return r.err
}

// IsError returns true if the result contains an error
func (r *CalculatorToolResult) IsError() bool {
	return r.err != ""
}

// AssistantFacing returns the string representation for the AI assistant
func (r *CalculatorToolResult) AssistantFacing() string {
	result := ""
	if !r.IsError() {
		result = formatNumber(r.value)
	}
	return tooltypes.StringifyToolResult(result, r.err)
}

// StructuredData returns structured metadata about the calculation
func (r *CalculatorToolResult) StructuredData() tooltypes.StructuredToolResult {
	result := tooltypes.StructuredToolResult{
		ToolName:  "calculator",
		Success:   !r.IsError(),
		Timestamp: time.Now(),
	}

	if r.IsError() {
		result.Error = r.GetError()
		return result
	}

	result.Metadata = &tooltypes.CalculatorMetadata{
		Operation: r.operation,
		Operands:  []float64{r.a, r.b},
		Value:     r.value,
	}
	return result
}

// CalculatorTool performs basic arithmetic on two numbers
type CalculatorTool struct{}

// CalculatorInput defines the input parameters for the calculator tool
type CalculatorInput struct {
	Operation string  `json:"operation" jsonschema:"description=The arithmetic operation to perform,enum=add,enum=subtract,enum=multiply,enum=divide,enum=modulus"`
	A         float64 `json:"a" jsonschema:"description=The first operand"`
	B         float64 `json:"b" jsonschema:"description=The second operand"`
}

// Name returns the name of the tool
func (t *CalculatorTool) Name() string {
	return "calculator"
}

// GenerateSchema generates the JSON schema for the tool's input parameters
func (t *CalculatorTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[CalculatorInput]()
}

// Description returns the description of the calculator tool
func (t *CalculatorTool) Description() string {
	return `Perform basic arithmetic on two numbers.

Supported operations:
- add: a + b
- subtract: a - b
- multiply: a * b
- divide: a / b (b must not be zero)
- modulus: a % b (b must not be zero)

Use this tool instead of doing arithmetic yourself whenever a question requires an exact numeric result.
`
}

// TracingKVs returns tracing key-value pairs for observability
func (t *CalculatorTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	input := &CalculatorInput{}
	err := json.Unmarshal([]byte(parameters), input)
	if err != nil {
		return nil, err
	}

	return []attribute.KeyValue{
		attribute.String("operation", input.Operation),
		attribute.Float64("a", input.A),
		attribute.Float64("b", input.B),
	}, nil
}

// ValidateInput validates the input parameters for the tool
func (t *CalculatorTool) ValidateInput(_ tooltypes.State, parameters string) error {
	var input CalculatorInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return errors.Wrap(err, "invalid input")
	}

	switch input.Operation {
	case "add", "subtract", "multiply":
	case "divide", "modulus":
		if input.B == 0 {
			return errors.Errorf("cannot %s by zero", input.Operation)
		}
	case "":
		return errors.New("operation is required")
	default:
		return errors.Errorf("unsupported operation: %s", input.Operation)
	}

	return nil
}

// Execute performs the arithmetic operation
func (t *CalculatorTool) Execute(_ context.Context, _ tooltypes.State, parameters string) tooltypes.ToolResult {
	input := &CalculatorInput{}
	err := json.Unmarshal([]byte(parameters), input)
	if err != nil {
		return &CalculatorToolResult{err: err.Error()}
	}

	var value float64
	switch input.Operation {
	case "add":
		value = input.A + input.B
	case "subtract":
		value = input.A - input.B
	case "multiply":
		value = input.A * input.B
	case "divide":
		value = input.A / input.B
	case "modulus":
		value = math.Mod(input.A, input.B)
	default:
		return &CalculatorToolResult{err: "unsupported operation: " + input.Operation}
	}

	return &CalculatorToolResult{
		operation: input.Operation,
		a:         input.A,
		b:         input.B,
		value:     value,
	}
}

// formatNumber renders integers without a trailing decimal part
func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

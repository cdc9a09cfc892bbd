package tool

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	llmx "github.com/tanpawarit/Chative-Agent-Router/agent/llm"
)

const ToolCalculate = "calculate"

// Accepts digits, whitespace, decimal points, operators, and parentheses.
var calcExpressionPattern = regexp.MustCompile(`^[\d\s\+\-\*/%\^\(\)\.]+$`)

var calcReplacer = strings.NewReplacer(
	"×", "*",
	"÷", "/",
	"$", "",
)

var thousandsComma = regexp.MustCompile(`(\d),(\d{3})\b`)

var calculateDecl = llmx.FunctionDecl{
	Name:        ToolCalculate,
	Description: "Evalúa una expresión aritmética (+ - * / % ^ y paréntesis). Úsala para cualquier cálculo.",
	Params: []llmx.Param{
		{Name: "expression", Type: llmx.ParamString, Description: "Expresión a evaluar, por ejemplo (1200 - 350) * 0.16", Required: true},
	},
}

type CalculateOutput struct {
	Expression string  `json:"expression"`
	Result     float64 `json:"result"`
}

func calculate(_ context.Context, args map[string]any) (any, error) {
	raw, ok := args["expression"]
	if !ok {
		return nil, fmt.Errorf("expression is required")
	}
	expression, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("expression must be a string")
	}

	expression = normalizeExpression(expression)
	if err := validateCalcExpression(expression); err != nil {
		return nil, err
	}
	result, err := evaluateCalcExpression(expression)
	if err != nil {
		return nil, err
	}
	if math.IsInf(result, 0) || math.IsNaN(result) {
		return nil, fmt.Errorf("result is not a finite number")
	}
	return CalculateOutput{Expression: expression, Result: result}, nil
}

// normalizeExpression accepts the notations users and models write in Spanish-language chats.
func normalizeExpression(expression string) string {
	expression = strings.TrimSpace(expression)
	expression = strings.ReplaceAll(expression, "x", "*")
	expression = calcReplacer.Replace(expression)
	for thousandsComma.MatchString(expression) {
		expression = thousandsComma.ReplaceAllString(expression, "$1$2")
	}
	// Remaining commas are decimal separators.
	return strings.ReplaceAll(expression, ",", ".")
}

func validateCalcExpression(expression string) error {
	if expression == "" {
		return fmt.Errorf("expression is empty")
	}
	if !calcExpressionPattern.MatchString(expression) {
		return fmt.Errorf("expression contains invalid characters")
	}
	return nil
}

// ErrDivisionByZero is returned for a zero divisor of / or %.
var ErrDivisionByZero = errors.New("division by zero")

type calcToken struct {
	op  byte // 0 for a number
	num float64
	pos int
}

// calcPrecedence drives the evaluator; ^ is the only right-associative operator.
var calcPrecedence = map[byte]int{'+': 1, '-': 1, '*': 2, '/': 2, '%': 2, '^': 3}

func tokenizeCalc(expression string) ([]calcToken, error) {
	var tokens []calcToken
	for i := 0; i < len(expression); {
		ch := expression[i]
		switch {
		case ch == ' ' || ch == '\t':
			i++
		case ch >= '0' && ch <= '9' || ch == '.':
			j := i
			for j < len(expression) && (expression[j] >= '0' && expression[j] <= '9' || expression[j] == '.') {
				j++
			}
			num, err := strconv.ParseFloat(expression[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q at position %d", expression[i:j], i)
			}
			tokens = append(tokens, calcToken{num: num, pos: i})
			i = j
		default:
			tokens = append(tokens, calcToken{op: ch, pos: i})
			i++
		}
	}
	return tokens, nil
}

type calcEvaluator struct {
	tokens []calcToken
	next   int
}

func evaluateCalcExpression(expression string) (float64, error) {
	tokens, err := tokenizeCalc(expression)
	if err != nil {
		return 0, err
	}
	e := &calcEvaluator{tokens: tokens}
	value, err := e.binary(1)
	if err != nil {
		return 0, err
	}
	if tok, ok := e.peek(); ok {
		return 0, fmt.Errorf("unexpected %q at position %d", tok.op, tok.pos)
	}
	return value, nil
}

// binary folds operators whose precedence is at least minPrec.
func (e *calcEvaluator) binary(minPrec int) (float64, error) {
	left, err := e.operand()
	if err != nil {
		return 0, err
	}
	for {
		tok, ok := e.peek()
		prec := calcPrecedence[tok.op]
		if !ok || tok.op == 0 || prec == 0 || prec < minPrec {
			return left, nil
		}
		e.next++

		nextMin := prec + 1
		if tok.op == '^' {
			nextMin = prec
		}
		right, err := e.binary(nextMin)
		if err != nil {
			return 0, err
		}
		if left, err = applyCalcOp(tok.op, left, right); err != nil {
			return 0, err
		}
	}
}

// operand reads a number, a parenthesized group or a signed operand.
func (e *calcEvaluator) operand() (float64, error) {
	tok, ok := e.peek()
	if !ok {
		return 0, fmt.Errorf("expression ends unexpectedly")
	}
	e.next++

	switch tok.op {
	case 0:
		return tok.num, nil
	case '+':
		return e.operand()
	case '-':
		value, err := e.operand()
		return -value, err
	case '(':
		value, err := e.binary(1)
		if err != nil {
			return 0, err
		}
		if closing, ok := e.peek(); !ok || closing.op != ')' {
			return 0, fmt.Errorf("missing closing parenthesis for position %d", tok.pos)
		}
		e.next++
		return value, nil
	default:
		return 0, fmt.Errorf("unexpected %q at position %d", tok.op, tok.pos)
	}
}

func (e *calcEvaluator) peek() (calcToken, bool) {
	if e.next >= len(e.tokens) {
		return calcToken{}, false
	}
	return e.tokens[e.next], true
}

func applyCalcOp(op byte, left, right float64) (float64, error) {
	switch op {
	case '+':
		return left + right, nil
	case '-':
		return left - right, nil
	case '*':
		return left * right, nil
	case '/':
		if right == 0 {
			return 0, ErrDivisionByZero
		}
		return left / right, nil
	case '%':
		if right == 0 {
			return 0, ErrDivisionByZero
		}
		return math.Mod(left, right), nil
	case '^':
		return math.Pow(left, right), nil
	}
	return 0, fmt.Errorf("unsupported operator %q", op)
}

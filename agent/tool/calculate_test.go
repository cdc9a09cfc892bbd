package tool

import (
	"context"
	"errors"
	"testing"
)

func TestCalculate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		expr string
		want float64
	}{
		{expr: "2 + 3 * (4 - 1)", want: 11},
		{expr: "1,200 - 350", want: 850},
		{expr: "1,000,000 / 4", want: 250000},
		{expr: "12,5 * 2", want: 25},
		{expr: "$300 x 3", want: 900},
		{expr: "2 ^ 3 ^ 2", want: 512},
		{expr: "-(5 - 8)", want: 3},
		{expr: "10 - 4 - 3", want: 3},
		{expr: "2 * 3 ^ 2", want: 18},
		{expr: "7 % 4 + 1", want: 4},
		{expr: "2 - -3", want: 5},
	}
	for _, tc := range cases {
		out, err := calculate(context.Background(), map[string]any{"expression": tc.expr})
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tc.expr, err)
		}
		res, ok := out.(CalculateOutput)
		if !ok {
			t.Fatalf("%q: unexpected result type: %T", tc.expr, out)
		}
		if res.Result != tc.want {
			t.Fatalf("%q: got %v, want %v", tc.expr, res.Result, tc.want)
		}
	}
}

func TestCalculateInvalidExpression(t *testing.T) {
	t.Parallel()

	for _, args := range []map[string]any{
		{"expression": "2 + abc"},
		{"expression": "(1 + 2"},
		{"expression": "(1 + 2))"},
		{"expression": "2 3"},
		{"expression": "1..5 + 1"},
		{"expression": 42},
		{},
	} {
		if _, err := calculate(context.Background(), args); err == nil {
			t.Fatalf("%#v: expected error", args)
		}
	}
}

func TestCalculateDivisionByZero(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{"4 / 0", "5 % (2 - 2)", "1 + 3 / (1,5 - 1,5)"} {
		_, err := calculate(context.Background(), map[string]any{"expression": expr})
		if !errors.Is(err, ErrDivisionByZero) {
			t.Fatalf("%q: expected ErrDivisionByZero, got %v", expr, err)
		}
	}
}

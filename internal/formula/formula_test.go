// FilePath: internal/formula/formula_test.go
package formula

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyEmptyFormulaIsIdentity(t *testing.T) {
	res, err := Apply("", 42.5)
	require.NoError(t, err)
	require.False(t, res.IsText)
	require.Equal(t, 42.5, res.Num)

	res, err = Apply("   ", 7)
	require.NoError(t, err)
	require.Equal(t, 7.0, res.Num)
}

func TestApplyCelsiusToFahrenheit(t *testing.T) {
	res, err := Apply("($VALUE$ * 9/5) + 32", 20)
	require.NoError(t, err)
	require.Equal(t, 68.0, res.Num)
}

func TestApplyFailsClosed(t *testing.T) {
	// Broken input returns the original value alongside the diagnostic
	for _, formula := range []string{
		"$VALUE$ +",
		"(1 + 2",
		"$VALUE$ / 0",
		"$VALUE$ % 0",
		"foo($VALUE$)",
		"window.alert($VALUE$)",
	} {
		res, err := Apply(formula, 123.0)
		require.Error(t, err, "formula %q", formula)
		require.False(t, res.IsText)
		require.Equal(t, 123.0, res.Num, "formula %q", formula)
	}
}

func TestEvaluateArithmetic(t *testing.T) {
	cases := []struct {
		formula string
		value   float64
		want    float64
	}{
		{"$VALUE$ + 1", 1, 2},
		{"-$VALUE$", 3, -3},
		{"$VALUE$ % 3", 10, 1},
		{"2 + 3 * 4", 0, 14},
		{"(2 + 3) * 4", 0, 20},
		{"$VALUE$ / 4", 10, 2.5},
	}
	for _, tc := range cases {
		res, err := Evaluate(tc.formula, tc.value)
		require.NoError(t, err, "formula %q", tc.formula)
		require.Equal(t, tc.want, res.Num, "formula %q", tc.formula)
	}
}

func TestEvaluateComparisonsRenderAsOneZero(t *testing.T) {
	res, err := Evaluate("$VALUE$ > 10", 20)
	require.NoError(t, err)
	require.Equal(t, 1.0, res.Num)

	res, err = Evaluate("$VALUE$ > 10", 5)
	require.NoError(t, err)
	require.Equal(t, 0.0, res.Num)

	res, err = Evaluate("$VALUE$ >= 5 && $VALUE$ <= 10", 7)
	require.NoError(t, err)
	require.Equal(t, 1.0, res.Num)

	res, err = Evaluate("!($VALUE$ == 3)", 3)
	require.NoError(t, err)
	require.Equal(t, 0.0, res.Num)
}

func TestEvaluateTernaryWithTextBranches(t *testing.T) {
	res, err := Evaluate(`$VALUE$ >= 100 ? "HIGH" : "OK"`, 150)
	require.NoError(t, err)
	require.True(t, res.IsText)
	require.Equal(t, "HIGH", res.Text)
	require.Equal(t, "HIGH", res.String())

	res, err = Evaluate(`$VALUE$ >= 100 ? "HIGH" : "OK"`, 50)
	require.NoError(t, err)
	require.Equal(t, "OK", res.Text)
}

func TestEvaluateNestedTernaryIsRightAssociative(t *testing.T) {
	formula := `$VALUE$ > 90 ? "critical" : $VALUE$ > 70 ? "warning" : "normal"`

	res, err := Evaluate(formula, 95)
	require.NoError(t, err)
	require.Equal(t, "critical", res.Text)

	res, err = Evaluate(formula, 80)
	require.NoError(t, err)
	require.Equal(t, "warning", res.Text)

	res, err = Evaluate(formula, 10)
	require.NoError(t, err)
	require.Equal(t, "normal", res.Text)
}

func TestEvaluateFunctionWhitelist(t *testing.T) {
	cases := []struct {
		formula string
		value   float64
		want    float64
	}{
		{"abs($VALUE$)", -4, 4},
		{"round($VALUE$)", 2.5, 3},
		{"floor($VALUE$)", 2.9, 2},
		{"ceil($VALUE$)", 2.1, 3},
		{"min($VALUE$, 10)", 25, 10},
		{"max($VALUE$, 0, 5)", -3, 5},
	}
	for _, tc := range cases {
		res, err := Evaluate(tc.formula, tc.value)
		require.NoError(t, err, "formula %q", tc.formula)
		require.Equal(t, tc.want, res.Num, "formula %q", tc.formula)
	}
}

func TestEvaluateToFixedReturnsText(t *testing.T) {
	res, err := Evaluate("toFixed($VALUE$, 2)", 3.14159)
	require.NoError(t, err)
	require.True(t, res.IsText)
	require.Equal(t, "3.14", res.Text)
}

func TestEvaluateRejectsUnknownIdentifiers(t *testing.T) {
	_, err := Evaluate("eval($VALUE$)", 1)
	require.Error(t, err)

	_, err = Evaluate("process", 1)
	require.Error(t, err)
}

func TestEvaluateStringEquality(t *testing.T) {
	res, err := Evaluate(`($VALUE$ > 0 ? "on" : "off") == "on" ? 1 : 0`, 5)
	require.NoError(t, err)
	require.Equal(t, 1.0, res.Num)
}

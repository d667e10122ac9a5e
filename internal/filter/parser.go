package filter

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrMalformedExpression = errors.New("malformed filter expression")
	ErrInvalidValue        = errors.New("invalid filter value")
)

const (
	dimensionSyntax = "field==val, field!=val, field contains val, field begins val, " +
		"field ends val, field matches regex, field in val1|val2"
	metricSyntax = "metric>N, metric<N, metric>=N, metric<=N, metric==N"
)

type pattern struct {
	regex    *regexp.Regexp
	operator Operator
}

var (
	inListPattern = regexp.MustCompile(`(?i)^(\w+)\s+in\s+(.+)$`)

	// Tried in order, first match wins
	dimensionPatterns = []pattern{
		{regexp.MustCompile(`^(\w+)\s*!=\s*(.+)$`), OperatorNotEquals},
		{regexp.MustCompile(`^(\w+)\s*==\s*(.+)$`), OperatorEquals},
		{regexp.MustCompile(`(?i)^(\w+)\s+contains\s+(.+)$`), OperatorContains},
		{regexp.MustCompile(`(?i)^(\w+)\s+begins\s+(.+)$`), OperatorBeginsWith},
		{regexp.MustCompile(`(?i)^(\w+)\s+ends\s+(.+)$`), OperatorEndsWith},
		{regexp.MustCompile(`(?i)^(\w+)\s+matches\s+(.+)$`), OperatorMatchesRegex},
	}

	legacyContainsPattern = regexp.MustCompile(`^(\w+)~=(.+)$`)

	// >= and <= come before > and < so they are not captured by the shorter forms
	metricPatterns = []pattern{
		{regexp.MustCompile(`^(\w+)\s*>=\s*(.+)$`), OperatorGreaterThanOrEqual},
		{regexp.MustCompile(`^(\w+)\s*<=\s*(.+)$`), OperatorLessThanOrEqual},
		{regexp.MustCompile(`^(\w+)\s*>\s*(.+)$`), OperatorGreaterThan},
		{regexp.MustCompile(`^(\w+)\s*<\s*(.+)$`), OperatorLessThan},
		{regexp.MustCompile(`^(\w+)\s*==\s*(.+)$`), OperatorEqual},
	}
)

// ParseDimensionFilter parses one dimension filter, e.g. "country==Norway",
// "pagePath contains /blog" or "deviceCategory in mobile|tablet".
func ParseDimensionFilter(expr string) (Expression, error) {
	if match := inListPattern.FindStringSubmatch(expr); match != nil {
		values := strings.Split(match[2], "|")
		for i, value := range values {
			values[i] = strings.TrimSpace(value)
		}
		return Comparison{Field: match[1], Operator: OperatorInList, Values: values}, nil
	}

	for _, pattern := range dimensionPatterns {
		match := pattern.regex.FindStringSubmatch(expr)
		if match == nil {
			continue
		}

		switch pattern.operator {
		case OperatorNotEquals:
			return Not{
				Inner: Comparison{Field: match[1], Operator: OperatorEquals, Value: strings.TrimSpace(match[2])},
			}, nil
		case OperatorMatchesRegex:
			// Regular expressions are passed through untouched
			return Comparison{Field: match[1], Operator: pattern.operator, Value: match[2]}, nil
		default:
			return Comparison{Field: match[1], Operator: pattern.operator, Value: strings.TrimSpace(match[2])}, nil
		}
	}

	// Legacy shorthand, value kept as written
	if match := legacyContainsPattern.FindStringSubmatch(expr); match != nil {
		return Comparison{Field: match[1], Operator: OperatorContains, Value: match[2]}, nil
	}

	return nil, fmt.Errorf("%w '%s' (syntax: %s)", ErrMalformedExpression, expr, dimensionSyntax)
}

// ParseMetricFilter parses one numeric metric filter, e.g. "sessions>100".
// The threshold is truncated toward zero.
func ParseMetricFilter(expr string) (Expression, error) {
	for _, pattern := range metricPatterns {
		match := pattern.regex.FindStringSubmatch(expr)
		if match == nil {
			continue
		}

		raw := strings.TrimSpace(match[2])
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, fmt.Errorf("%w: metric filter value must be a number, got '%s'", ErrInvalidValue, match[2])
		}
		if value >= math.MaxInt64 || value <= math.MinInt64 {
			return nil, fmt.Errorf("%w: metric filter value '%s' is out of range", ErrInvalidValue, raw)
		}

		return Comparison{Field: match[1], Operator: pattern.operator, Number: int64(math.Trunc(value))}, nil
	}

	return nil, fmt.Errorf("%w '%s' (syntax: %s)", ErrMalformedExpression, expr, metricSyntax)
}

// ParseDimensionFilters parses every expression and combines them with AND.
// No expressions gives nil.
func ParseDimensionFilters(exprs []string) (Expression, error) {
	return parseAll(exprs, ParseDimensionFilter)
}

// ParseMetricFilters parses every expression and combines them with AND.
// No expressions gives nil.
func ParseMetricFilters(exprs []string) (Expression, error) {
	return parseAll(exprs, ParseMetricFilter)
}

func parseAll(exprs []string, parse func(string) (Expression, error)) (Expression, error) {
	if len(exprs) == 0 {
		return nil, nil
	}

	expressions := make([]Expression, 0, len(exprs))
	for _, expr := range exprs {
		expression, err := parse(expr)
		if err != nil {
			return nil, err
		}
		expressions = append(expressions, expression)
	}
	return Combine(expressions), nil
}

package filter

import (
	"strconv"

	"ga4cli/internal/api"

	"hermannm.dev/enumnames"
)

// Expression is a node of a filter tree: a Comparison, a Not or a Group.
type Expression interface {
	isExpression()
}

// Comparison tests one field. Value is used by the string operators, Values by
// OperatorInList and Number by the numeric operators.
type Comparison struct {
	Field    string
	Operator Operator
	Value    string
	Values   []string
	Number   int64
}

// Not negates its inner expression.
type Not struct {
	Inner Expression
}

// Group holds when all of its expressions hold.
type Group struct {
	Expressions []Expression
}

func (Comparison) isExpression() {}
func (Not) isExpression()        {}
func (Group) isExpression()      {}

type Operator uint8

const (
	OperatorEquals             Operator = 1
	OperatorNotEquals          Operator = 2
	OperatorContains           Operator = 3
	OperatorBeginsWith         Operator = 4
	OperatorEndsWith           Operator = 5
	OperatorMatchesRegex       Operator = 6
	OperatorInList             Operator = 7
	OperatorEqual              Operator = 8
	OperatorGreaterThan        Operator = 9
	OperatorGreaterThanOrEqual Operator = 10
	OperatorLessThan           Operator = 11
	OperatorLessThanOrEqual    Operator = 12
)

var operatorNames = enumnames.NewMap(map[Operator]string{
	OperatorEquals:             "equals",
	OperatorNotEquals:          "notEquals",
	OperatorContains:           "contains",
	OperatorBeginsWith:         "beginsWith",
	OperatorEndsWith:           "endsWith",
	OperatorMatchesRegex:       "matchesRegex",
	OperatorInList:             "inList",
	OperatorEqual:              "equal",
	OperatorGreaterThan:        "greaterThan",
	OperatorGreaterThanOrEqual: "greaterThanOrEqual",
	OperatorLessThan:           "lessThan",
	OperatorLessThanOrEqual:    "lessThanOrEqual",
})

// Wire names of string match types and numeric operations.
var matchTypes = map[Operator]string{
	OperatorEquals:       "EXACT",
	OperatorNotEquals:    "EXACT",
	OperatorContains:     "CONTAINS",
	OperatorBeginsWith:   "BEGINS_WITH",
	OperatorEndsWith:     "ENDS_WITH",
	OperatorMatchesRegex: "FULL_REGEXP",
}

var numericOperations = map[Operator]string{
	OperatorEqual:              "EQUAL",
	OperatorGreaterThan:        "GREATER_THAN",
	OperatorGreaterThanOrEqual: "GREATER_THAN_OR_EQUAL",
	OperatorLessThan:           "LESS_THAN",
	OperatorLessThanOrEqual:    "LESS_THAN_OR_EQUAL",
}

func (operator Operator) IsValid() bool {
	return operatorNames.ContainsEnumValue(operator)
}

func (operator Operator) IsNumeric() bool {
	_, ok := numericOperations[operator]
	return ok
}

func (operator Operator) String() string {
	return operatorNames.GetNameOrFallback(operator, "[INVALID OPERATOR]")
}

func (operator Operator) MarshalJSON() ([]byte, error) {
	return operatorNames.MarshalToNameJSON(operator)
}

func (operator *Operator) UnmarshalJSON(bytes []byte) error {
	return operatorNames.UnmarshalFromNameJSON(bytes, operator)
}

// Combine joins expressions with AND semantics. A single expression is
// returned unwrapped, and an empty list gives nil.
func Combine(expressions []Expression) Expression {
	switch len(expressions) {
	case 0:
		return nil
	case 1:
		return expressions[0]
	default:
		return Group{Expressions: expressions}
	}
}

// ToAPI compiles a filter tree into the Data API wire shape. A nil expression
// gives nil, so the request field is omitted.
func ToAPI(expression Expression) *api.FilterExpression {
	switch expression := expression.(type) {
	case Comparison:
		if expression.Operator == OperatorNotEquals {
			expression.Operator = OperatorEquals
			return &api.FilterExpression{NotExpression: ToAPI(expression)}
		}
		return &api.FilterExpression{Filter: comparisonToAPI(expression)}
	case Not:
		return &api.FilterExpression{NotExpression: ToAPI(expression.Inner)}
	case Group:
		list := &api.FilterExpressionList{
			Expressions: make([]api.FilterExpression, 0, len(expression.Expressions)),
		}
		for _, inner := range expression.Expressions {
			if compiled := ToAPI(inner); compiled != nil {
				list.Expressions = append(list.Expressions, *compiled)
			}
		}
		return &api.FilterExpression{AndGroup: list}
	default:
		return nil
	}
}

func comparisonToAPI(comparison Comparison) *api.Filter {
	filter := &api.Filter{FieldName: comparison.Field}

	switch {
	case comparison.Operator == OperatorInList:
		filter.InListFilter = &api.InListFilter{Values: comparison.Values}
	case comparison.Operator.IsNumeric():
		filter.NumericFilter = &api.NumericFilter{
			Operation: numericOperations[comparison.Operator],
			Value:     api.NumericValue{Int64Value: strconv.FormatInt(comparison.Number, 10)},
		}
	default:
		filter.StringFilter = &api.StringFilter{
			MatchType: matchTypes[comparison.Operator],
			Value:     comparison.Value,
		}
	}

	return filter
}

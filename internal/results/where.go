package results

import (
	"github.com/hashicorp/go-bexpr"
	"hermannm.dev/wrap"
)

// Where keeps the rows matching a boolean expression over field names, e.g.
// `deviceCategory == "mobile" and country != "Norway"`. It runs locally on
// rows already returned, and never changes the request sent to the API.
func Where(report *Report, expression string) (*Report, error) {
	if expression == "" {
		return report, nil
	}

	evaluator, err := bexpr.CreateEvaluator(expression)
	if err != nil {
		return nil, wrap.Errorf(err, "invalid --where expression '%s'", expression)
	}

	filtered := &Report{Columns: report.Columns, Rows: make([]Row, 0, len(report.Rows))}
	for i, row := range report.Rows {
		match, err := evaluator.Evaluate(map[string]any(row))
		if err != nil {
			return nil, wrap.Errorf(err, "failed to evaluate --where expression on row %d", i)
		}
		if match {
			filtered.Rows = append(filtered.Rows, row)
		}
	}
	return filtered, nil
}

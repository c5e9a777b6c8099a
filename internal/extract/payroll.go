package extract

import (
	"math"
	"strings"

	"github.com/harvestfund/granary/internal/alias"
	"github.com/harvestfund/granary/internal/model"
	"github.com/harvestfund/granary/internal/normalize"
)

// payrollTolerance allows for per-employee rounding when reconciling the
// register's printed totals against the summed rows.
const payrollTolerance = 1.00

// PayrollRegister extracts per-employee pay rows and register totals.
type PayrollRegister struct {
	aliases *alias.Resolver
	dates   dateParser
}

// NewPayrollRegister creates the payroll register extractor.
func NewPayrollRegister(aliases *alias.Resolver, dayFirst bool) *PayrollRegister {
	return &PayrollRegister{aliases: aliases, dates: dateParser{dayFirst: dayFirst}}
}

// Key implements Extractor.
func (e *PayrollRegister) Key() string { return "payroll_register" }

// Extract implements Extractor.
func (e *PayrollRegister) Extract(text string) *model.ExtractionResult {
	res := model.NewExtractionResult(e.Key())
	docLines := lines(text)
	important := 0

	e.extractPeriod(docLines, res, &important)

	employees, grossSum, netSum := e.parseEmployees(docLines)
	if len(employees) > 0 {
		res.SetField("employees", "", employees, 0.8, model.FieldSource{Location: "employee table", Raw: ""})
		res.SetField("totals.employee_count", "", len(employees), 0.85,
			model.FieldSource{Location: "employee table", Raw: ""})
		important += 2
	}

	if raw, v, loc, ok := labeledMoney(docLines, "total gross", "gross pay total", "totals"); ok {
		setMoneyField(res, "totals.gross_pay", raw, v, loc, 0.85)
		if len(employees) > 0 && math.Abs(v-grossSum) > payrollTolerance {
			res.Warn("gross_total_mismatch")
		}
		important++
	} else if grossSum > 0 {
		res.SetField("totals.gross_pay", "", grossSum, 0.7,
			model.FieldSource{Location: "computed from rows", Raw: ""})
	}

	if raw, v, loc, ok := labeledMoney(docLines, "total net", "net pay total"); ok {
		setMoneyField(res, "totals.net_pay", raw, v, loc, 0.85)
		if len(employees) > 0 && math.Abs(v-netSum) > payrollTolerance {
			res.Warn("net_total_mismatch")
		}
	} else if netSum > 0 {
		res.SetField("totals.net_pay", "", netSum, 0.7,
			model.FieldSource{Location: "computed from rows", Raw: ""})
	}

	res.Confidence = confidence(0.5, 0.1, 0.95, important, len(res.Warnings))
	return res
}

func (e *PayrollRegister) extractPeriod(docLines []string, res *model.ExtractionResult, important *int) {
	for i, line := range docLines {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "pay period") && !strings.Contains(lower, "period ending") {
			continue
		}
		dates := dateRe.FindAllString(line, 2)
		if len(dates) == 0 {
			continue
		}
		if start, ok := e.dates.parse(dates[0]); ok {
			res.SetField("period.start", dates[0], start, 0.85, model.FieldSource{Location: lineLoc(i), Raw: line})
		}
		if len(dates) > 1 {
			if end, ok := e.dates.parse(dates[1]); ok {
				res.SetField("period.end", dates[1], end, 0.85, model.FieldSource{Location: lineLoc(i), Raw: line})
			}
		}
		*important++
		return
	}
}

// parseEmployees reads the employee table and returns the rows plus the
// summed gross and net pay for totals reconciliation. The totals row ends
// the table and is never counted as an employee.
func (e *PayrollRegister) parseEmployees(docLines []string) ([]map[string]any, float64, float64) {
	headerIdx := -1
	var columns map[int]string
	for i, line := range docLines {
		cells := splitColumns(line)
		if len(cells) < 2 {
			continue
		}
		matched := make(map[int]string)
		for pos, cell := range cells {
			if canonical, ok := e.aliases.MatchColumn(cell); ok {
				matched[pos] = canonical
			}
		}
		if len(matched) >= 2 {
			headerIdx, columns = i, matched
			break
		}
	}
	if headerIdx < 0 {
		return nil, 0, 0
	}

	var (
		employees []map[string]any
		grossSum  float64
		netSum    float64
	)
	for i := headerIdx + 1; i < len(docLines); i++ {
		cells := splitColumns(docLines[i])
		if len(cells) == 0 {
			break
		}
		if isTotalsRow(cells) {
			break
		}

		row := make(map[string]any)
		for pos, canonical := range columns {
			if pos >= len(cells) {
				continue
			}
			cell := cells[pos]
			switch canonical {
			case "employees.name":
				row["name"] = cell
			case "employees.gross_pay":
				if v, ok := normalize.Money(cell); ok {
					row["gross_pay"] = v
					grossSum += v
				}
			case "employees.net_pay":
				if v, ok := normalize.Money(cell); ok {
					row["net_pay"] = v
					netSum += v
				}
			case "employees.taxes":
				if v, ok := normalize.Money(cell); ok {
					row["taxes"] = v
				}
			}
		}
		if len(row) == 0 {
			continue
		}
		employees = append(employees, row)
	}
	return employees, grossSum, netSum
}

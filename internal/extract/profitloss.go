package extract

import (
	"math"
	"strings"

	"github.com/harvestfund/granary/internal/alias"
	"github.com/harvestfund/granary/internal/model"
)

// ProfitLoss extracts an income statement's summary lines.
type ProfitLoss struct {
	aliases *alias.Resolver
	dates   dateParser
}

// NewProfitLoss creates the P&L extractor.
func NewProfitLoss(aliases *alias.Resolver, dayFirst bool) *ProfitLoss {
	return &ProfitLoss{aliases: aliases, dates: dateParser{dayFirst: dayFirst}}
}

// Key implements Extractor.
func (e *ProfitLoss) Key() string { return "profit_loss" }

// Extract implements Extractor.
func (e *ProfitLoss) Extract(text string) *model.ExtractionResult {
	res := model.NewExtractionResult(e.Key())
	docLines := lines(text)
	important := 0

	e.extractPeriod(docLines, res)

	var revenue, expenses, netIncome float64
	var haveRevenue, haveExpenses, haveNet bool

	if raw, v, loc, ok := labeledMoney(docLines, "total revenue", "total income", "gross receipts", "total sales"); ok {
		setMoneyField(res, "revenue.total", raw, v, loc, 0.85)
		revenue, haveRevenue = v, true
		important++
	}
	if raw, v, loc, ok := labeledMoney(docLines, "total expenses", "total operating expenses"); ok {
		setMoneyField(res, "expenses.total", raw, v, loc, 0.85)
		expenses, haveExpenses = v, true
		important++
	}
	if raw, v, loc, ok := labeledMoney(docLines, "payroll expense", "salaries and wages", "wages expense"); ok {
		setMoneyField(res, "expenses.payroll", raw, v, loc, 0.8)
	}
	if raw, v, loc, ok := labeledMoney(docLines, "net income", "net profit", "net loss", "net earnings"); ok {
		// A "Net Loss" line prints the magnitude; the sign comes from the
		// label.
		if v > 0 && hasLine(docLines, "net loss") {
			v = -v
		}
		setMoneyField(res, "net_income", raw, v, loc, 0.85)
		netIncome, haveNet = v, true
		important++
	}

	// revenue − expenses should agree with the printed net income.
	if haveRevenue && haveExpenses && haveNet {
		if math.Abs((revenue-expenses)-netIncome) > reconcileTolerance {
			res.Warn("net_income_inconsistent")
		}
	}

	res.Confidence = confidence(0.5, 0.12, 0.95, important, len(res.Warnings))
	return res
}

func hasLine(docLines []string, needle string) bool {
	for _, line := range docLines {
		if strings.Contains(strings.ToLower(line), needle) {
			return true
		}
	}
	return false
}

func (e *ProfitLoss) extractPeriod(docLines []string, res *model.ExtractionResult) {
	for i, line := range docLines {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "for the period") && !strings.Contains(lower, "period ending") &&
			!strings.Contains(lower, "for the year") {
			continue
		}
		dates := dateRe.FindAllString(line, 2)
		if len(dates) == 0 {
			continue
		}
		if len(dates) == 2 {
			if start, ok := e.dates.parse(dates[0]); ok {
				res.SetField("period.start", dates[0], start, 0.8, model.FieldSource{Location: lineLoc(i), Raw: line})
			}
			if end, ok := e.dates.parse(dates[1]); ok {
				res.SetField("period.end", dates[1], end, 0.8, model.FieldSource{Location: lineLoc(i), Raw: line})
			}
		} else if end, ok := e.dates.parse(dates[0]); ok {
			res.SetField("period.end", dates[0], end, 0.8, model.FieldSource{Location: lineLoc(i), Raw: line})
		}
		return
	}
}

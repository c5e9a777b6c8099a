package extract

import (
	"math"
	"regexp"
	"strings"

	"github.com/harvestfund/granary/internal/alias"
	"github.com/harvestfund/granary/internal/model"
	"github.com/harvestfund/granary/internal/normalize"
)

// reconcileTolerance is how far computed transaction sums may drift from
// the statement's printed totals before a warning is raised.
const reconcileTolerance = 0.05

// BankStatement extracts checking/savings statements. The transaction table
// is located by alias-matching a header row rather than by fixed column
// positions, so statements from different banks parse without per-bank
// layouts.
type BankStatement struct {
	aliases *alias.Resolver
	dates   dateParser
}

// NewBankStatement creates the bank statement extractor.
func NewBankStatement(aliases *alias.Resolver, dayFirst bool) *BankStatement {
	return &BankStatement{aliases: aliases, dates: dateParser{dayFirst: dayFirst}}
}

// Key implements Extractor.
func (e *BankStatement) Key() string { return "bank_statement" }

var acctLast4Re = regexp.MustCompile(`(?i)account\s*(?:number|#|no\.?)?\s*[:.]?\s*[x*•]{2,}\s*-?\s*(\d{4})`)

// Extract implements Extractor.
func (e *BankStatement) Extract(text string) *model.ExtractionResult {
	res := model.NewExtractionResult(e.Key())
	docLines := lines(text)
	important := 0

	if holder, i, ok := labeledValue(docLines, "account holder", "prepared for", "customer name"); ok {
		res.SetField("account.holder", holder, holder, 0.75, model.FieldSource{Location: lineLoc(i), Raw: holder})
	}

	if m := acctLast4Re.FindStringSubmatch(text); m != nil {
		res.SetField("account.number_last4", m[0], m[1], 0.85, model.FieldSource{Location: "document", Raw: m[0]})
		important++
	}

	e.extractPeriod(docLines, res, &important)

	if raw, v, loc, ok := labeledMoney(docLines, "beginning balance", "opening balance"); ok {
		setMoneyField(res, "balances.opening", raw, v, loc, 0.85)
		important++
	}
	if raw, v, loc, ok := labeledMoney(docLines, "ending balance", "closing balance"); ok {
		setMoneyField(res, "balances.closing", raw, v, loc, 0.85)
		important++
	}

	txns, depositSum, withdrawalSum := e.parseTransactions(docLines, res)
	if len(txns) > 0 {
		res.SetField("transactions", "", txns, 0.8, model.FieldSource{Location: "transaction table", Raw: ""})
		important++
		e.reconcileTotals(docLines, res, depositSum, withdrawalSum)
	}

	res.Confidence = confidence(0.5, 0.08, 0.95, important, len(res.Warnings))
	return res
}

// extractPeriod reads a "Statement Period" line carrying two date tokens.
func (e *BankStatement) extractPeriod(docLines []string, res *model.ExtractionResult, important *int) {
	for i, line := range docLines {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "statement period") && !strings.Contains(lower, "period covered") {
			continue
		}
		dates := dateRe.FindAllString(line, 2)
		if len(dates) < 2 {
			continue
		}
		if start, ok := e.dates.parse(dates[0]); ok {
			res.SetField("period.start", dates[0], start, 0.85, model.FieldSource{Location: lineLoc(i), Raw: line})
		}
		if end, ok := e.dates.parse(dates[1]); ok {
			res.SetField("period.end", dates[1], end, 0.85, model.FieldSource{Location: lineLoc(i), Raw: line})
		}
		*important++
		return
	}
}

// parseTransactions locates the header row whose columns alias-match at
// least two transaction fields, then consumes data rows until a totals row
// or the table visibly ends. Returns the rows plus the computed deposit and
// withdrawal sums.
func (e *BankStatement) parseTransactions(docLines []string, res *model.ExtractionResult) ([]map[string]any, float64, float64) {
	headerIdx, columns := e.findHeader(docLines)
	if headerIdx < 0 {
		return nil, 0, 0
	}

	var (
		txns        []map[string]any
		deposits    float64
		withdrawals float64
		blanks      int
	)
	for i := headerIdx + 1; i < len(docLines); i++ {
		cells := splitColumns(docLines[i])
		if len(cells) == 0 {
			blanks++
			if blanks >= 2 {
				break
			}
			continue
		}
		blanks = 0
		if isTotalsRow(cells) {
			break
		}

		txn := e.parseRow(cells, columns)
		if txn == nil {
			continue
		}
		txns = append(txns, txn)
		if amount, ok := txn["amount"].(float64); ok {
			if amount >= 0 {
				deposits += amount
			} else {
				withdrawals += -amount
			}
		}
	}
	return txns, deposits, withdrawals
}

// findHeader returns the line index of the transaction table header and a
// column-position → canonical field map.
func (e *BankStatement) findHeader(docLines []string) (int, map[int]string) {
	for i, line := range docLines {
		cells := splitColumns(line)
		if len(cells) < 2 {
			continue
		}
		columns := make(map[int]string)
		for pos, cell := range cells {
			if canonical, ok := e.aliases.MatchColumn(cell); ok {
				columns[pos] = canonical
			}
		}
		if len(columns) >= 2 {
			return i, columns
		}
	}
	return -1, nil
}

func (e *BankStatement) parseRow(cells []string, columns map[int]string) map[string]any {
	txn := make(map[string]any)
	for pos, canonical := range columns {
		if pos >= len(cells) {
			continue
		}
		cell := cells[pos]
		switch canonical {
		case "transactions.date":
			if iso, ok := e.dates.parse(cell); ok {
				txn["date"] = iso
			}
		case "transactions.description":
			txn["description"] = cell
		case "transactions.amount":
			if v, ok := normalize.Money(cell); ok {
				txn["amount"] = v
			}
		case "transactions.balance":
			if v, ok := normalize.Money(cell); ok {
				txn["balance"] = v
			}
		}
	}
	// A row with neither a date nor an amount is layout noise, not a
	// transaction.
	if _, hasDate := txn["date"]; !hasDate {
		if _, hasAmount := txn["amount"]; !hasAmount {
			return nil
		}
	}
	return txn
}

// reconcileTotals compares computed deposit/withdrawal sums against the
// statement's printed totals. Disagreement beyond the tolerance is recorded
// as a warning; the printed totals still win.
func (e *BankStatement) reconcileTotals(docLines []string, res *model.ExtractionResult, depositSum, withdrawalSum float64) {
	if raw, v, loc, ok := labeledMoney(docLines, "total deposits", "deposits and credits"); ok {
		setMoneyField(res, "totals.deposits", raw, v, loc, 0.85)
		if math.Abs(v-depositSum) > reconcileTolerance {
			res.Warn("deposit_total_mismatch")
		}
	} else if depositSum > 0 {
		res.SetField("totals.deposits", "", depositSum, 0.7,
			model.FieldSource{Location: "computed from transactions", Raw: ""})
	}

	if raw, v, loc, ok := labeledMoney(docLines, "total withdrawals", "withdrawals and debits"); ok {
		v = math.Abs(v)
		setMoneyField(res, "totals.withdrawals", raw, v, loc, 0.85)
		if math.Abs(v-withdrawalSum) > reconcileTolerance {
			res.Warn("withdrawal_total_mismatch")
		}
	} else if withdrawalSum > 0 {
		res.SetField("totals.withdrawals", "", withdrawalSum, 0.7,
			model.FieldSource{Location: "computed from transactions", Raw: ""})
	}
}

package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/harvestfund/granary/internal/model"
)

// OFXExtractor parses OFX/QFX downloads into the same bank_statement
// envelope the text extractor produces, so everything downstream treats
// both ingestion paths identically. Unlike the text extractors it can fail:
// a file that is not OFX at all falls back to text extraction.
type OFXExtractor struct{}

// NewOFXExtractor creates the OFX extractor.
func NewOFXExtractor() *OFXExtractor { return &OFXExtractor{} }

var (
	severityRe = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	openTagRe  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// preprocessOFX fixes common formatting defects in bank-produced OFX files:
// leading whitespace before the header, mixed-case SEVERITY values, and
// SGML-style opening tags missing their closing bracket.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRe.ReplaceAllStringFunc(content, strings.ToUpper)
	content = openTagRe.ReplaceAllString(content, "$1>")
	return content
}

// IsOFX reports whether content looks like an OFX/QFX document.
func IsOFX(content []byte) bool {
	head := strings.ToUpper(string(content[:min(len(content), 512)]))
	return strings.Contains(head, "OFXHEADER") || strings.Contains(head, "<OFX>")
}

// Parse converts OFX content into a bank_statement extraction envelope.
func (e *OFXExtractor) Parse(content []byte) (*model.ExtractionResult, error) {
	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("parsing OFX content: %w", err)
	}

	res := model.NewExtractionResult("bank_statement")
	var (
		txns        []map[string]any
		deposits    float64
		withdrawals float64
	)

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok {
			continue
		}
		e.fillAccount(res, string(stmt.BankAcctFrom.AcctID))
		e.fillBalances(res, stmt)
		if stmt.BankTranList == nil {
			continue
		}
		e.fillPeriod(res, stmt)
		for _, ofxTx := range stmt.BankTranList.Transactions {
			txn, amount := convertOFXTransaction(ofxTx)
			txns = append(txns, txn)
			if amount >= 0 {
				deposits += amount
			} else {
				withdrawals += -amount
			}
		}
	}

	if len(txns) > 0 {
		res.SetField("transactions", "", txns, 0.95, model.FieldSource{Location: "ofx", Raw: ""})
		res.SetField("totals.deposits", "", deposits, 0.95, model.FieldSource{Location: "ofx", Raw: ""})
		res.SetField("totals.withdrawals", "", withdrawals, 0.95, model.FieldSource{Location: "ofx", Raw: ""})
	}

	// OFX is machine-produced; field values are trusted far more than
	// text-scraped ones.
	res.Confidence = 0.95
	return res, nil
}

func (e *OFXExtractor) fillAccount(res *model.ExtractionResult, acctID string) {
	if acctID == "" {
		return
	}
	last4 := acctID
	if len(last4) > 4 {
		last4 = last4[len(last4)-4:]
	}
	res.SetField("account.number_last4", "", last4, 0.95, model.FieldSource{Location: "ofx", Raw: ""})
}

func (e *OFXExtractor) fillBalances(res *model.ExtractionResult, stmt *ofxgo.StatementResponse) {
	if closing, exact := stmt.BalAmt.Float64(); exact || closing != 0 {
		res.SetField("balances.closing", "", closing, 0.95, model.FieldSource{Location: "ofx", Raw: ""})
	}
}

func (e *OFXExtractor) fillPeriod(res *model.ExtractionResult, stmt *ofxgo.StatementResponse) {
	if !stmt.BankTranList.DtStart.IsZero() {
		res.SetField("period.start", "", stmt.BankTranList.DtStart.Format("2006-01-02"), 0.95,
			model.FieldSource{Location: "ofx", Raw: ""})
	}
	if !stmt.BankTranList.DtEnd.IsZero() {
		res.SetField("period.end", "", stmt.BankTranList.DtEnd.Format("2006-01-02"), 0.95,
			model.FieldSource{Location: "ofx", Raw: ""})
	}
}

// convertOFXTransaction flattens one OFX transaction into a table row and
// returns the signed amount for totals computation. OFX uses negative
// amounts for debits, which matches our row convention.
func convertOFXTransaction(ofxTx ofxgo.Transaction) (map[string]any, float64) {
	amount, _ := ofxTx.TrnAmt.Float64()

	description := string(ofxTx.Name)
	if ofxTx.Payee != nil && ofxTx.Payee.Name != "" {
		description = string(ofxTx.Payee.Name)
	} else if ofxTx.Memo != "" && isGenericDescription(description) {
		description = string(ofxTx.Memo)
	}

	txn := map[string]any{
		"date":        ofxTx.DtPosted.Time.Format("2006-01-02"),
		"description": strings.TrimSpace(description),
		"amount":      amount,
	}
	if ofxTx.CheckNum != "" {
		txn["check_number"] = string(ofxTx.CheckNum)
	}
	return txn, amount
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}

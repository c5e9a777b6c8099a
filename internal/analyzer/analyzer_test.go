package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harvestfund/granary/internal/catalog"
	"github.com/harvestfund/granary/internal/common"
	"github.com/harvestfund/granary/internal/model"
	"github.com/harvestfund/granary/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const form941Text = `Form 941 for 2024: Employer's Quarterly Federal Tax Return
Employer identification number (EIN) 12-3456789
Line 1. Number of employees who received wages: 14
Line 2. Wages, tips, and other compensation: $182,400.00`

// fakeStore records appended traces; failErr makes every append fail.
type fakeStore struct {
	traces  []model.AnalyzeTrace
	failErr error
}

func (f *fakeStore) AppendTrace(_ context.Context, trace model.AnalyzeTrace) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.traces = append(f.traces, trace)
	return nil
}

func (f *fakeStore) Traces(_ context.Context, sessionID string) ([]model.AnalyzeTrace, error) {
	var out []model.AnalyzeTrace
	for _, tr := range f.traces {
		if tr.SessionID == sessionID {
			out = append(out, tr)
		}
	}
	return out, nil
}

func (f *fakeStore) AppendMemory(context.Context, session.MemoryRecord) error { return nil }
func (f *fakeStore) LoadMemory(context.Context, string) ([]session.MemoryRecord, error) {
	return nil, nil
}
func (f *fakeStore) Close() error { return nil }

func newAnalyzer(t *testing.T, opts ...Option) *Analyzer {
	t.Helper()
	cat, err := catalog.Load()
	require.NoError(t, err)
	return New(cat, opts...)
}

func TestAnalyze_TypedDocument(t *testing.T) {
	a := newAnalyzer(t)

	resp, err := a.Analyze(context.Background(), Request{
		Content:  []byte(form941Text),
		Filename: "q3-941.pdf",
	})
	require.NoError(t, err)

	assert.Equal(t, "form_941", resp.Result.DocType)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, resp.SessionID, resp.Trace.SessionID)
	assert.Equal(t, "form_941", resp.Trace.DetectedType)
	assert.Equal(t, "form_941", resp.Trace.Extractor)
	assert.NotEmpty(t, resp.Trace.SchemaFields)
	assert.Contains(t, resp.Result.Fields, "ein")
}

func TestAnalyze_FallsBackToGeneric(t *testing.T) {
	a := newAnalyzer(t)

	resp, err := a.Analyze(context.Background(), Request{
		Content: []byte("meeting notes: call Dana at (555) 201-7788 about the $1,200.00 invoice"),
	})
	require.NoError(t, err)

	assert.Equal(t, "untyped", resp.Result.DocType)
	assert.Equal(t, "untyped", resp.Trace.Extractor)
	assert.Empty(t, resp.Trace.DetectedType)
	assert.Empty(t, resp.SkippedFields)
}

func TestAnalyze_EmptyDocument(t *testing.T) {
	a := newAnalyzer(t)

	_, err := a.Analyze(context.Background(), Request{Content: []byte("   \n\t ")})
	assert.ErrorIs(t, err, common.ErrEmptyDocument)
}

func TestAnalyze_SessionIDPreserved(t *testing.T) {
	a := newAnalyzer(t)

	resp, err := a.Analyze(context.Background(), Request{
		Content:   []byte(form941Text),
		SessionID: "caller-chosen",
	})
	require.NoError(t, err)
	assert.Equal(t, "caller-chosen", resp.SessionID)
}

func TestAnalyze_WritesTrace(t *testing.T) {
	store := &fakeStore{}
	a := newAnalyzer(t, WithStore(store))

	resp, err := a.Analyze(context.Background(), Request{
		Content:  []byte(form941Text),
		Filename: "q3-941.pdf",
	})
	require.NoError(t, err)

	require.Len(t, store.traces, 1)
	assert.Equal(t, resp.Trace, store.traces[0])
	assert.Equal(t, "q3-941.pdf", store.traces[0].Filename)
}

func TestAnalyze_TraceWriteFailureIsSwallowed(t *testing.T) {
	store := &fakeStore{failErr: errors.New("disk full")}
	a := newAnalyzer(t, WithStore(store))

	resp, err := a.Analyze(context.Background(), Request{Content: []byte(form941Text)})
	require.NoError(t, err)
	assert.Equal(t, "form_941", resp.Result.DocType)
}

func TestAnalyze_OFXRouting(t *testing.T) {
	a := newAnalyzer(t, WithClock(func() time.Time {
		return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	}))

	ofx := `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240201120000
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>021000021
<ACCTID>99887766
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101
<DTEND>20240131
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240105
<TRNAMT>2500.00
<FITID>1001
<NAME>ACH DEPOSIT CLIENT PAYMENT
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>5102.13
<DTASOF>20240131
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

	resp, err := a.Analyze(context.Background(), Request{
		Content:  []byte(ofx),
		Filename: "january.ofx",
	})
	require.NoError(t, err)

	assert.Equal(t, "bank_statement", resp.Result.DocType)
	assert.Equal(t, "bank_statement", resp.Trace.DetectedType)
	assert.InDelta(t, 0.95, resp.Result.Confidence, 0.001)
}

func TestAnalyze_DayFirstDates(t *testing.T) {
	statement := []byte(`FIRST NATIONAL BANK Account Statement
Statement Period 01/02/2024 - 03/04/2024
Beginning Balance $4,210.55
Ending Balance $5,102.13
Deposits and Credits`)

	us := newAnalyzer(t)
	resp, err := us.Analyze(context.Background(), Request{Content: statement})
	require.NoError(t, err)
	require.Equal(t, "bank_statement", resp.Result.DocType)
	assert.Equal(t, "2024-01-02", resp.Result.FieldsClean["period.start"])
	assert.Equal(t, "2024-03-04", resp.Result.FieldsClean["period.end"])

	intl := newAnalyzer(t, WithDayFirstDates(true))
	resp, err = intl.Analyze(context.Background(), Request{Content: statement})
	require.NoError(t, err)
	require.Equal(t, "bank_statement", resp.Result.DocType)
	assert.Equal(t, "2024-02-01", resp.Result.FieldsClean["period.start"])
	assert.Equal(t, "2024-04-03", resp.Result.FieldsClean["period.end"])
}

func TestFilterToSchema(t *testing.T) {
	def := &model.DocumentDefinition{
		Key:          "sample",
		DisplayName:  "Sample",
		SchemaFields: []string{"ein", "wages_total"},
	}

	res := model.NewExtractionResult("sample")
	res.SetField("ein", "12-3456789", "12-3456789", 0.9, model.FieldSource{Location: "line 1"})
	res.SetField("wages_total", "$10", 10.0, 0.9, model.FieldSource{Location: "line 2"})
	res.SetField("surprise_field", "x", "x", 0.5, model.FieldSource{Location: "line 3"})

	skipped := filterToSchema(res, def)

	assert.Equal(t, []string{"surprise_field"}, skipped)
	assert.NotContains(t, res.Fields, "surprise_field")
	assert.NotContains(t, res.FieldsClean, "surprise_field")
	assert.NotContains(t, res.FieldConfidence, "surprise_field")
	assert.NotContains(t, res.FieldSources, "surprise_field")
	assert.Contains(t, res.Fields, "ein")
	assert.Contains(t, res.Fields, "wages_total")
}

func TestHasOFXExtension(t *testing.T) {
	assert.True(t, hasOFXExtension("jan.ofx"))
	assert.True(t, hasOFXExtension("JAN.QFX"))
	assert.False(t, hasOFXExtension("jan.pdf"))
	assert.False(t, hasOFXExtension(""))
}

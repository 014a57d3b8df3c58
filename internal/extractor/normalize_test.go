package extractor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimintake/internal/domain"
	"claimintake/internal/extractor"
	"claimintake/internal/port"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-03-02", "2024-03-02", true},
		{"02/03/2024", "2024-03-02", true},
		{"2/3/2024", "2024-03-02", true},
		{"02-03-2024", "2024-03-02", true},
		{"2 Mar 2024", "2024-03-02", true},
		{"2 March 2024", "2024-03-02", true},
		{"Mar 2, 2024", "2024-03-02", true},
		{"02-Mar-2024", "2024-03-02", true},
		{"2024-03-02T10:00:00Z", "2024-03-02", true},
		{"31/02/2024", "", false},
		{"yesterday", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := extractor.ParseDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"1234.50", 1234.5, false},
		{"1,234.50", 1234.5, false},
		{"S$ 1,234.50", 1234.5, false},
		{"SGD 80", 80, false},
		{"Rs. 500", 500, false},
		{"-12.00", -12, false},
		{"€12", 12, false},
		{"N/A", 0, true},
		{"SGD", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := extractor.ParseAmount(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.0001)
		})
	}
}

func defaultCatalog() *extractor.CurrencyCatalog {
	return extractor.NewCurrencyCatalog(extractor.DefaultCurrencies())
}

func TestNormalize_FullReceipt(t *testing.T) {
	raw := port.RawReceipt{
		ReceiptNumber: " R-1001 ",
		ReceiptDate:   "05/03/2024",
		AdmissionDate: "01/03/2024",
		DischargeDate: "05/03/2024",
		Hospital:      "Mount Elizabeth",
		Currency:      "SGD",
		BillAmount:    "1,520.40",
		GST:           "120.40",
	}

	rec, gst, warnings := extractor.Normalize(raw, "doc-1", defaultCatalog())

	assert.Empty(t, warnings)
	require.NotNil(t, rec.Number)
	assert.Equal(t, "R-1001", *rec.Number)
	assert.Equal(t, "2024-03-05", *rec.ReceiptDate)
	assert.Equal(t, "2024-03-01", *rec.AdmissionDate)
	assert.Equal(t, "2024-03-05", *rec.DischargeDate)
	assert.Equal(t, "Mount Elizabeth", *rec.HospitalName)
	require.NotNil(t, rec.Currency)
	assert.Equal(t, domain.Currency{Code: "SGD", Name: "Singapore Dollar", Symbol: "S$"}, *rec.Currency)
	assert.InDelta(t, 1520.40, *rec.Amount, 0.001)
	require.NotNil(t, gst)
	assert.InDelta(t, 120.40, *gst, 0.001)
	assert.Equal(t, []domain.ClaimDocument{{Type: domain.DocumentTypeReceipt, ID: "doc-1"}}, rec.Documents)
	assert.True(t, rec.HasHospitalStay())
}

func TestNormalize_MissingFieldsStayNil(t *testing.T) {
	rec, gst, warnings := extractor.Normalize(port.RawReceipt{Hospital: "Raffles Medical"}, "doc-1", defaultCatalog())

	assert.Empty(t, warnings)
	assert.Nil(t, rec.Number)
	assert.Nil(t, rec.ReceiptDate)
	assert.Nil(t, rec.Currency)
	assert.Nil(t, rec.Amount)
	assert.Nil(t, gst)
	assert.Equal(t, []string{"hospitalName"}, rec.PopulatedFields())
}

func TestNormalize_UnparsableValuesAreDropped(t *testing.T) {
	raw := port.RawReceipt{
		ReceiptDate: "sometime in March",
		BillAmount:  "see attached",
		Currency:    "Zorkmid",
	}

	rec, _, warnings := extractor.Normalize(raw, "doc-1", defaultCatalog())

	assert.Nil(t, rec.ReceiptDate)
	assert.Nil(t, rec.Amount)
	assert.Nil(t, rec.Currency)
	assert.Len(t, warnings, 3)
}

func TestNormalize_NegativeAmountDiscarded(t *testing.T) {
	rec, _, warnings := extractor.Normalize(port.RawReceipt{BillAmount: "-45.00"}, "doc-1", defaultCatalog())

	assert.Nil(t, rec.Amount)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "negative")
}

func TestNormalize_CurrencyFromAmountPrefix(t *testing.T) {
	rec, _, _ := extractor.Normalize(port.RawReceipt{BillAmount: "RM 88.00"}, "doc-1", defaultCatalog())

	require.NotNil(t, rec.Currency)
	assert.Equal(t, "MYR", rec.Currency.Code)
	assert.InDelta(t, 88.0, *rec.Amount, 0.001)
}

func TestNormalize_AmbiguousSymbolLeavesCurrencyNil(t *testing.T) {
	rec, _, warnings := extractor.Normalize(port.RawReceipt{BillAmount: "¥ 3000"}, "doc-1", defaultCatalog())

	assert.Nil(t, rec.Currency)
	assert.NotNil(t, rec.Amount)
	assert.Len(t, warnings, 1)
}

func TestNormalize_DocumentType(t *testing.T) {
	t.Run("explicit tag", func(t *testing.T) {
		rec, _, _ := extractor.Normalize(port.RawReceipt{Hospital: "X", DocumentType: "HOSPITAL_BILL"}, "doc-9", defaultCatalog())
		assert.Equal(t, []domain.ClaimDocument{{Type: domain.DocumentTypeHospitalBill, ID: "doc-9"}}, rec.Documents)
	})

	t.Run("misspelled tag is rejected", func(t *testing.T) {
		rec, _, warnings := extractor.Normalize(port.RawReceipt{Hospital: "X", DocumentType: "HOSPITALBILL"}, "doc-9", defaultCatalog())
		assert.Empty(t, rec.Documents)
		assert.NotNil(t, rec.Documents)
		assert.Len(t, warnings, 1)
	})

	t.Run("no document id", func(t *testing.T) {
		rec, _, _ := extractor.Normalize(port.RawReceipt{Hospital: "X"}, "", defaultCatalog())
		assert.Empty(t, rec.Documents)
	})
}

func TestRecordConfidence_RekeysAndFilters(t *testing.T) {
	rec, _, _ := extractor.Normalize(port.RawReceipt{
		Hospital:   "Raffles Medical",
		BillAmount: "not a number",
	}, "doc-1", defaultCatalog())

	conf := extractor.RecordConfidence(rec, map[string]float64{
		"hospital":    0.91,
		"bill_amount": 0.88,
		"gst":         0.7,
	})

	assert.Equal(t, map[string]float64{"hospitalName": 0.91}, conf)
}

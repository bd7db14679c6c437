package grounding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zainab-noor-25/invoice-api/internal/entity"
)

const source = `GLOBEX CORPORATION
INVOICE 1001
Invoice Date: 01/03/2024
Bill To:
Acme Industries Ltd
Subtotal 1,000.00
Grand Total $1,234.56`

func fullFields() entity.ExtractedFields {
	return entity.ExtractedFields{
		SupplierName: entity.Ptr("Globex Corporation"),
		CustomerName: entity.Ptr("Acme Industries Ltd"),
		DateIssued:   entity.Ptr("2024-03-01"),
		DueDate:      entity.Ptr("2024-03-31"),
		TotalAmount:  entity.Ptr(1234.56),
		Warning:      entity.Ptr("kept"),
	}
}

func TestVerifyKeepsGroundedValues(t *testing.T) {
	out, rej := NewVerifier(nil).Verify(fullFields(), source)
	assert.Empty(t, rej)
	assert.Equal(t, fullFields(), out)
}

func TestVerifyEmptyTextNullsEverything(t *testing.T) {
	out, rej := NewVerifier(nil).Verify(fullFields(), "   ")
	assert.Nil(t, out.SupplierName)
	assert.Nil(t, out.CustomerName)
	assert.Nil(t, out.DateIssued)
	assert.Nil(t, out.DueDate)
	assert.Nil(t, out.TotalAmount)
	assert.Equal(t, "kept", *out.Warning)
	assert.Len(t, rej, 5)
}

func TestVerifyRejectsLabelsAndUnknownNames(t *testing.T) {
	f := entity.ExtractedFields{
		SupplierName: entity.Ptr("Initech"),
		CustomerName: entity.Ptr("Bill To"),
	}
	out, rej := NewVerifier(nil).Verify(f, source)
	assert.Nil(t, out.SupplierName)
	assert.Nil(t, out.CustomerName, "label is present in text but is not a name")
	require.Len(t, rej, 2)
	assert.Equal(t, entity.FieldCustomerName, rej[1].Field)
}

func TestVerifySupplierCheckCanBeDisabled(t *testing.T) {
	f := entity.ExtractedFields{SupplierName: entity.Ptr("Initech")}
	out, rej := NewVerifier(nil, WithSupplierCheck(false)).Verify(f, source)
	assert.Equal(t, "Initech", *out.SupplierName)
	assert.Empty(t, rej)
}

func TestNameEvidenceRelaxedMatches(t *testing.T) {
	for _, name := range []string{
		"ACME   industries ltd",   // whitespace and case
		"Acme Industries Limited", // token "industries"
		"GlobexCorporation",       // spaces removed
	} {
		_, ok := nameEvidence(source, name)
		assert.True(t, ok, name)
	}
	_, ok := nameEvidence(source, "Foo Ltd")
	assert.False(t, ok)
}

func TestVerifyDatesNeedSomeDateInText(t *testing.T) {
	f := entity.ExtractedFields{DateIssued: entity.Ptr("2024-03-01"), DueDate: entity.Ptr("2099-01-01")}

	out, _ := NewVerifier(nil).Verify(f, source)
	assert.NotNil(t, out.DateIssued)
	assert.NotNil(t, out.DueDate, "date check only proves some date exists")

	out, rej := NewVerifier(nil).Verify(f, "INVOICE without any dates at all")
	assert.Nil(t, out.DateIssued)
	assert.Nil(t, out.DueDate)
	assert.Len(t, rej, 2)

	out, _ = NewVerifier(nil).Verify(f, "Due Date: 31 12 2024")
	assert.NotNil(t, out.DueDate)
}

func TestAmountInText(t *testing.T) {
	assert.True(t, AmountInText("Total $3,000.00", 3000))
	assert.True(t, AmountInText("Total 3 000", 3000))
	assert.True(t, AmountInText("Total 3000", 3000))
	assert.True(t, AmountInText("Grand Total $1,234.56", 1234.56))
	assert.True(t, AmountInText("Total due 0.00", 0))
	assert.False(t, AmountInText("Total $3,500.00", 3000))
	assert.False(t, AmountInText("Total 13000", 3000))
}

func TestVerifyRejectsUngroundedTotal(t *testing.T) {
	f := entity.ExtractedFields{TotalAmount: entity.Ptr(999.99)}
	out, rej := NewVerifier(nil).Verify(f, source)
	assert.Nil(t, out.TotalAmount)
	require.Len(t, rej, 1)
	assert.Equal(t, "amount not in text", rej[0].Reason)
}

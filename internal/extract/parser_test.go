package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOwnTaxID = "20100064571"

func TestParser_Parse(t *testing.T) {
	parser := NewParser(testOwnTaxID)

	t.Run("full credit invoice", func(t *testing.T) {
		got := parser.Parse("SOLES,20190143806,MECANICA INDUSTRIAL LIRA S.A.C.,FACTURA 7 DIAS,10/01/2026,Credito,True,120.00,141.60")

		require.NotNil(t, got.Currency)
		assert.Equal(t, "SOLES", *got.Currency)
		require.NotNil(t, got.TaxID)
		assert.Equal(t, "20190143806", *got.TaxID)
		require.NotNil(t, got.Supplier)
		assert.Equal(t, "MECANICA INDUSTRIAL LIRA S.A.C.", *got.Supplier)
		require.NotNil(t, got.InvoiceCode)
		assert.Equal(t, "FACTURA 7 DIAS", *got.InvoiceCode)
		require.NotNil(t, got.IssueDate)
		assert.Equal(t, "10/01/2026", *got.IssueDate)
		require.NotNil(t, got.PaymentTerms)
		assert.Equal(t, "Credito", *got.PaymentTerms)
		assert.True(t, got.TaxIncluded)
		require.NotNil(t, got.Subtotal)
		assert.Equal(t, "120.00", *got.Subtotal)
		require.NotNil(t, got.Total)
		assert.Equal(t, "141.60", *got.Total)
	})

	t.Run("cash invoice with null tax id", func(t *testing.T) {
		got := parser.Parse("DOLARES,null,EMPRESA XYZ S.A.C.,F001-001,11/01/2026,Contado,False,500.00,500.00")

		require.NotNil(t, got.Currency)
		assert.Equal(t, "DOLARES", *got.Currency)
		assert.Nil(t, got.TaxID)
		assert.False(t, got.TaxIncluded)
		require.NotNil(t, got.Total)
		assert.Equal(t, "500.00", *got.Total)
	})

	t.Run("own tax id is discarded", func(t *testing.T) {
		got := parser.Parse("SOLES," + testOwnTaxID + ",PROVEEDOR S.A.,F001-002,12/01/2026,Contado,False,100.00,100.00")
		assert.Nil(t, got.TaxID)
	})

	t.Run("null token is case insensitive", func(t *testing.T) {
		got := parser.Parse("NULL,Null,null,NULL,null,null,False,null,null")
		assert.Nil(t, got.Currency)
		assert.Nil(t, got.TaxID)
		assert.Nil(t, got.Supplier)
		assert.Nil(t, got.Subtotal)
		assert.Nil(t, got.Total)
	})

	t.Run("short answer pads missing fields", func(t *testing.T) {
		got := parser.Parse("SOLES,20190143806")

		require.NotNil(t, got.Currency)
		assert.Equal(t, "SOLES", *got.Currency)
		require.NotNil(t, got.TaxID)
		assert.Nil(t, got.Supplier)
		assert.Nil(t, got.InvoiceCode)
		assert.False(t, got.TaxIncluded)
		assert.Nil(t, got.Subtotal)
		assert.Nil(t, got.Total)
	})

	t.Run("excess fields are ignored", func(t *testing.T) {
		got := parser.Parse("SOLES,null,X,Y,Z,Contado,True,10.00,11.80,extra,more")
		require.NotNil(t, got.Total)
		assert.Equal(t, "11.80", *got.Total)
	})

	t.Run("surrounding whitespace is trimmed", func(t *testing.T) {
		got := parser.Parse("  SOLES , 20190143806 , ACME S.A. , F1 , 01/01/2026 , Contado , si , 10.00 , 11.80  ")

		require.NotNil(t, got.Currency)
		assert.Equal(t, "SOLES", *got.Currency)
		require.NotNil(t, got.Supplier)
		assert.Equal(t, "ACME S.A.", *got.Supplier)
		assert.True(t, got.TaxIncluded)
	})

	t.Run("empty fields stay as empty strings", func(t *testing.T) {
		got := parser.Parse("SOLES,,ACME S.A.")

		require.NotNil(t, got.TaxID)
		assert.Equal(t, "", *got.TaxID)
		require.NotNil(t, got.Supplier)
		assert.Equal(t, "ACME S.A.", *got.Supplier)
		assert.Nil(t, got.InvoiceCode)
	})

	t.Run("empty answer yields a single empty field", func(t *testing.T) {
		got := parser.Parse("")
		require.NotNil(t, got.Currency)
		assert.Equal(t, "", *got.Currency)
		assert.Nil(t, got.TaxID)
		assert.False(t, got.TaxIncluded)
		assert.Nil(t, got.Total)
	})
}

func TestParser_TaxIncludedTokens(t *testing.T) {
	parser := NewParser(testOwnTaxID)

	tests := []struct {
		token string
		want  bool
	}{
		{"True", true},
		{"true", true},
		{"TRUE", true},
		{"yes", true},
		{"Si", true},
		{"s", true},
		{"1", true},
		{"Verdadero", true},
		{"False", false},
		{"no", false},
		{"0", false},
		{"maybe", false},
		{"null", false},
	}

	for _, tc := range tests {
		t.Run(tc.token, func(t *testing.T) {
			got := parser.Parse("SOLES,null,X,F1,01/01/2026,Contado," + tc.token + ",10.00,11.80")
			assert.Equal(t, tc.want, got.TaxIncluded)
		})
	}
}

func TestParser_TotalDefaultsToSubtotal(t *testing.T) {
	parser := NewParser(testOwnTaxID)

	t.Run("copied when tax excluded and total missing", func(t *testing.T) {
		got := parser.Parse("SOLES,null,X,F1,01/01/2026,Contado,False,250.00,null")
		require.NotNil(t, got.Total)
		assert.Equal(t, "250.00", *got.Total)
	})

	t.Run("not copied when tax included", func(t *testing.T) {
		got := parser.Parse("SOLES,null,X,F1,01/01/2026,Contado,True,250.00,null")
		assert.Nil(t, got.Total)
	})

	t.Run("not copied when subtotal missing", func(t *testing.T) {
		got := parser.Parse("SOLES,null,X,F1,01/01/2026,Contado,False,null,null")
		assert.Nil(t, got.Total)
	})

	t.Run("not copied when subtotal empty", func(t *testing.T) {
		got := parser.Parse("SOLES,null,X,F1,01/01/2026,Contado,False,,null")
		assert.Nil(t, got.Total)
	})

	t.Run("existing total wins", func(t *testing.T) {
		got := parser.Parse("SOLES,null,X,F1,01/01/2026,Contado,False,250.00,300.00")
		require.NotNil(t, got.Total)
		assert.Equal(t, "300.00", *got.Total)
	})
}

func TestParser_Idempotent(t *testing.T) {
	parser := NewParser(testOwnTaxID)
	raw := "SOLES,20190143806,ACME S.A.,F1,01/01/2026,Credito,True,100.00,118.00"

	first := parser.Parse(raw)
	second := parser.Parse(raw)
	assert.Equal(t, first, second)
}

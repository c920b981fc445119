package posting

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSmartCodeValidate(t *testing.T) {
	tests := []struct {
		name    string
		code    SmartCode
		wantErr bool
	}{
		{"full ERP code", "HERA.ERP.SD.Invoice.Posted.v1", false},
		{"vertical app code", "HERA.SALON.SALE.SERVICE.v1", false},
		{"minimum segments", "HERA.REST.POS.v1", false},
		{"too few segments", "HERA.SD.v1", true},
		{"empty segment", "HERA..SD.Invoice.v1", true},
		{"missing version suffix", "HERA.ERP.SD.Invoice.Posted", true},
		{"empty code", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.code.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSmartCodeModule(t *testing.T) {
	assert.Equal(t, "SD", SmartCode("HERA.ERP.SD.Invoice.Posted.v1").Module())
	assert.Equal(t, "MM", SmartCode("HERA.ERP.MM.GRN.Posted.v1").Module())
	assert.Equal(t, "SALE", SmartCode("HERA.SALON.SALE.SERVICE.v1").Module())
	assert.Equal(t, "", SmartCode("HERA.SD").Module())
}

func TestSmartCodeVersion(t *testing.T) {
	assert.Equal(t, "v1", SmartCode("HERA.ERP.SD.Invoice.Posted.v1").Version())
	assert.Equal(t, "v2", SmartCode("HERA.SALON.SALE.SERVICE.v2").Version())
	assert.Equal(t, "", SmartCode("").Version())
}

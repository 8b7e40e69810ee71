package values

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		wantErr  bool
	}{
		{"valid USD", "100.50", "USD", false},
		{"valid ETB", "2500.00", "ETB", false},
		{"zero", "0", "USD", false},
		{"negative allowed at value level", "-10.00", "USD", false},
		{"unsupported currency", "100.00", "XXX", true},
		{"lowercase currency", "100.00", "usd", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMoneyFromString(tt.amount, tt.currency)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, m.Amount().Equal(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestMoney_IsWholeMinorUnit(t *testing.T) {
	tests := []struct {
		amount string
		want   bool
	}{
		{"100", true},
		{"100.5", true},
		{"100.50", true},
		{"100.505", false},
		{"0.001", false},
		{"99.99", true},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			m := MustNewMoneyFromString(tt.amount, "USD")
			assert.Equal(t, tt.want, m.IsWholeMinorUnit())
		})
	}
}

func TestMoney_Compare(t *testing.T) {
	a := MustNewMoneyFromString("100.00", "USD")
	b := MustNewMoneyFromString("100.50", "USD")

	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(MustNewMoneyFromString("100", "USD")))
}

func TestMoney_AddCurrencyMismatch(t *testing.T) {
	usd := MustNewMoneyFromString("100.00", "USD")
	eur := MustNewMoneyFromString("100.00", "EUR")

	_, err := usd.Add(eur)
	require.Error(t, err)

	assert.Panics(t, func() { usd.MustAdd(eur) })
}

func TestMoney_JSONRoundTrip(t *testing.T) {
	m := MustNewMoneyFromString("1234.56", "ETB")

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var back Money
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, m.Equal(back))
	assert.Equal(t, "ETB", back.Currency())
}

func TestMoney_ToCents(t *testing.T) {
	m := MustNewMoneyFromString("12.34", "USD")
	assert.Equal(t, int64(1234), m.ToCents())
}

package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyMarshalsTwoPlaces(t *testing.T) {
	tests := map[string]string{
		"45":      `"45.00"`,
		"12.00":   `"12.00"`,
		"0":       `"0.00"`,
		"9.5":     `"9.50"`,
		"1234.56": `"1234.56"`,
	}
	for in, want := range tests {
		out, err := json.Marshal(NewMoney(decimal.RequireFromString(in)))
		require.NoError(t, err)
		assert.Equal(t, want, string(out), in)
	}
}

func TestTransactionJSONAmounts(t *testing.T) {
	txn := Transaction{
		ID:          "t1",
		StationID:   "s1",
		Amount:      NewMoney(decimal.RequireFromString("50")),
		FinalAmount: NewMoney(decimal.RequireFromString("45")),
	}
	out, err := json.Marshal(txn)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &body))
	assert.Equal(t, "50.00", body["amount"])
	assert.Equal(t, "45.00", body["final_amount"])
}

func TestMoneyUnmarshalsLikeDecimal(t *testing.T) {
	var m Money
	require.NoError(t, json.Unmarshal([]byte(`"12.30"`), &m))
	assert.True(t, m.Equal(decimal.RequireFromString("12.3")))
}

package agent

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Param keys accepted from API callers.
const (
	ParamAction       = "action"
	ParamQuery        = "query"
	ParamMarketID     = "marketId"
	ParamOutcomeIndex = "outcomeIndex"
	ParamOutcome      = "outcome"
	ParamAmount       = "amount"
	ParamRecipient    = "recipient"
	ParamToken        = "token"
	ParamTokenMint    = "tokenMint"
	ParamInputToken   = "inputToken"
	ParamOutputToken  = "outputToken"
	ParamMint         = "mint"
	ParamLimit        = "limit"
)

// override replaces *dst with Params[key] when the caller supplied it.
func (in *Input) override(dst *string, key string) {
	if v := in.Param(key); v != "" {
		*dst = v
	}
}

func (in *Input) overrideAmount(dst *decimal.Decimal, key string) {
	if amount, ok := parseAmount(in.Param(key)); ok {
		*dst = amount
	}
}

func (in *Input) intParam(key string, def int) int {
	v, err := strconv.Atoi(in.Param(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

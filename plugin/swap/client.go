// Package swap quotes token swaps through the Jupiter aggregator. Only
// Solana is routed; other chains return blockchain.ErrUnsupportedChain.
package swap

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/hrygo/execfi/plugin/apiclient"
	"github.com/hrygo/execfi/plugin/blockchain"
)

// DefaultSlippageBps is 1%.
const DefaultSlippageBps = 100

// ErrNoRoute is returned when the aggregator cannot route the pair.
var ErrNoRoute = errors.New("no swap route found")

type QuoteRequest struct {
	Chain       string
	InputToken  string
	OutputToken string
	// Amount is in display units of InputToken.
	Amount      decimal.Decimal
	SlippageBps int
}

// Quote is a simulated swap: route, price impact and network fee. Nothing is
// signed or sent.
type Quote struct {
	Chain           string          `json:"chain"`
	InputToken      string          `json:"inputToken"`
	InputMint       string          `json:"inputMint"`
	OutputToken     string          `json:"outputToken"`
	OutputMint      string          `json:"outputMint"`
	InputAmount     decimal.Decimal `json:"inputAmount"`
	OutputAmount    decimal.Decimal `json:"outputAmount"`
	MinOutputAmount decimal.Decimal `json:"minOutputAmount"`
	Route           []string        `json:"route"`
	// PriceImpact and Slippage are percentages.
	PriceImpact  float64         `json:"priceImpact"`
	Slippage     float64         `json:"slippage"`
	EstimatedGas int64           `json:"estimatedGas"`
	GasFee       decimal.Decimal `json:"gasFee"`
	FeeToken     string          `json:"feeToken"`
	Status       string          `json:"status"`
}

// Client is the Jupiter quote client.
type Client struct {
	api *apiclient.Client
}

func NewClient(baseURL string, opts ...apiclient.Option) *Client {
	return &Client{api: apiclient.New(baseURL, "", opts...)}
}

type quoteResponse struct {
	InAmount             string `json:"inAmount"`
	OutAmount            string `json:"outAmount"`
	OtherAmountThreshold string `json:"otherAmountThreshold"`
	PriceImpactPct       string `json:"priceImpactPct"`
	RoutePlan            []struct {
		SwapInfo struct {
			Label string `json:"label"`
		} `json:"swapInfo"`
	} `json:"routePlan"`
}

// Quote resolves both tokens in the chain registry, asks Jupiter for the best
// route and adds the network fee estimate.
func (c *Client) Quote(ctx context.Context, req *QuoteRequest) (*Quote, error) {
	if req.Chain != "solana" {
		return nil, fmt.Errorf("%w: swaps are only routed on solana, not %s", blockchain.ErrUnsupportedChain, req.Chain)
	}
	input, ok := blockchain.ResolveToken(req.Chain, req.InputToken)
	if !ok {
		return nil, fmt.Errorf("%w: %s", blockchain.ErrUnknownToken, req.InputToken)
	}
	output, ok := blockchain.ResolveToken(req.Chain, req.OutputToken)
	if !ok {
		return nil, fmt.Errorf("%w: %s", blockchain.ErrUnknownToken, req.OutputToken)
	}
	if input.Address == output.Address {
		return nil, fmt.Errorf("%w: input and output are both %s", ErrNoRoute, input.Symbol)
	}
	slippage := req.SlippageBps
	if slippage <= 0 {
		slippage = DefaultSlippageBps
	}

	units := blockchain.ToBaseUnits(req.Amount, input.Decimals)
	if !units.IsPositive() {
		return nil, fmt.Errorf("amount %s is below the smallest unit of %s", req.Amount, input.Symbol)
	}
	query := url.Values{
		"inputMint":   {input.Address},
		"outputMint":  {output.Address},
		"amount":      {units.String()},
		"slippageBps": {strconv.Itoa(slippage)},
	}
	var resp quoteResponse
	if err := c.api.GetJSON(ctx, "/v6/quote", query, &resp); err != nil {
		return nil, fmt.Errorf("jupiter quote: %w", err)
	}
	if len(resp.RoutePlan) == 0 {
		return nil, ErrNoRoute
	}

	outUnits, err := decimal.NewFromString(resp.OutAmount)
	if err != nil {
		return nil, fmt.Errorf("jupiter quote: invalid outAmount %q", resp.OutAmount)
	}
	minUnits, err := decimal.NewFromString(resp.OtherAmountThreshold)
	if err != nil {
		minUnits = outUnits
	}
	impact, _ := strconv.ParseFloat(resp.PriceImpactPct, 64)

	route := make([]string, 0, len(resp.RoutePlan))
	for _, hop := range resp.RoutePlan {
		route = append(route, hop.SwapInfo.Label)
	}
	native, _ := blockchain.NativeToken(req.Chain)

	return &Quote{
		Chain:           req.Chain,
		InputToken:      input.Symbol,
		InputMint:       input.Address,
		OutputToken:     output.Symbol,
		OutputMint:      output.Address,
		InputAmount:     req.Amount,
		OutputAmount:    blockchain.FromBaseUnits(outUnits, output.Decimals),
		MinOutputAmount: blockchain.FromBaseUnits(minUnits, output.Decimals),
		Route:           route,
		PriceImpact:     impact * 100,
		Slippage:        float64(slippage) / 100,
		EstimatedGas:    blockchain.SolanaSignatureFee,
		GasFee:          blockchain.FromBaseUnits(decimal.NewFromInt(blockchain.SolanaSignatureFee), native.Decimals),
		FeeToken:        native.Symbol,
		Status:          "simulated",
	}, nil
}

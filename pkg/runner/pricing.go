// Copyright 2025 The Agentcore Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package runner

import "github.com/agentcore/runtime/pkg/model"

// ModelPrice is USD per token, in and out priced separately since output
// tokens are typically several times more expensive than input tokens.
type ModelPrice struct {
	InUSDPerToken  float64
	OutUSDPerToken float64
}

// PricingTable maps a model name to its per-token price. Unknown models
// cost 0 — an explicit design choice (spec.md §4.4): the operator must
// register a price before a model's usage counts toward billing.
type PricingTable map[string]ModelPrice

// CostUSD returns the dollar cost of usage at modelName's registered price.
func (p PricingTable) CostUSD(modelName string, usage model.TokenUsage) float64 {
	price, ok := p[modelName]
	if !ok {
		return 0
	}
	return float64(usage.In)*price.InUSDPerToken + float64(usage.Out)*price.OutUSDPerToken
}

// DefaultPricing is a small seed table covering the two wired drivers'
// common models; operators extend it via config.
var DefaultPricing = PricingTable{
	"claude-3-5-sonnet-20241022": {InUSDPerToken: 3.0 / 1_000_000, OutUSDPerToken: 15.0 / 1_000_000},
	"claude-3-5-haiku-20241022":  {InUSDPerToken: 0.8 / 1_000_000, OutUSDPerToken: 4.0 / 1_000_000},
	"gemini-1.5-pro":             {InUSDPerToken: 1.25 / 1_000_000, OutUSDPerToken: 5.0 / 1_000_000},
	"gemini-1.5-flash":           {InUSDPerToken: 0.075 / 1_000_000, OutUSDPerToken: 0.3 / 1_000_000},
}

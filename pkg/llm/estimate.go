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

package llm

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Estimator counts tokens for providers that don't report usage in their
// streaming response (or report it late enough that a pre-flight budget
// check needs a number first). Neither Anthropic nor Gemini tokenize with
// cl100k_base, but it is the closest available approximation without a
// provider-specific tokenizer, the same tradeoff the teacher's own
// TokenCounter makes for "claude" and "gemini" model prefixes.
type Estimator struct {
	mu       sync.RWMutex
	encoding *tiktoken.Tiktoken
}

var (
	estimatorOnce sync.Once
	estimatorInst *Estimator
	estimatorErr  error
)

// NewEstimator returns a process-wide Estimator backed by the cl100k_base
// encoding, building it once and reusing it afterward.
func NewEstimator() (*Estimator, error) {
	estimatorOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			estimatorErr = fmt.Errorf("load cl100k_base encoding: %w", err)
			return
		}
		estimatorInst = &Estimator{encoding: enc}
	})
	return estimatorInst, estimatorErr
}

// Count returns the estimated token count of text.
func (e *Estimator) Count(text string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.encoding == nil {
		return len(text) / 4
	}
	return len(e.encoding.Encode(text, nil, nil))
}

// CountMessages estimates a full turn, including the teacher's per-message
// role-framing overhead (3 tokens/message, 3 for the reply primer), applied
// uniformly since neither target provider publishes its own framing cost.
func (e *Estimator) CountMessages(messages []Message) int {
	const tokensPerMessage = 3
	total := 3
	for _, m := range messages {
		total += tokensPerMessage
		total += e.Count(string(m.Role))
		total += e.Count(m.Text)
	}
	return total
}

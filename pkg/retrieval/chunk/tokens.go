// Copyright 2025 The agentcore Authors
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

package chunk

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// fixedEncoding is the "fixed BPE table" spec §4.G asks for: chunk sizes
// reflect embedding-model token constraints, not the generating model's
// own tokenizer, so unlike pkg/agent.TokenCounter's per-model cache this
// package always counts against cl100k_base regardless of Options.Language
// or any downstream provider. This, alongside provider.Process(), is one
// of the two process-wide singletons spec §9 allows.
var (
	fixedEncodingOnce sync.Once
	fixedEncoding     *tiktoken.Tiktoken
	fixedEncodingErr  error
)

func encoding() (*tiktoken.Tiktoken, error) {
	fixedEncodingOnce.Do(func() {
		fixedEncoding, fixedEncodingErr = tiktoken.GetEncoding("cl100k_base")
	})
	return fixedEncoding, fixedEncodingErr
}

// countTokens returns text's exact token count under the fixed encoding,
// falling back to a char/4 estimate if the encoding table failed to
// load (grammar-less environments still get a usable chunker).
func countTokens(text string) int {
	enc, err := encoding()
	if err != nil || enc == nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

// charsPerToken estimates the average characters-per-token ratio over a
// content sample, used to scale a token-denominated overlap budget into
// a character count for splitters (markdown) that work line-by-line
// rather than token-by-token.
func charsPerToken(sample string) float64 {
	tokens := countTokens(sample)
	if tokens == 0 {
		return 4.0
	}
	ratio := float64(len(sample)) / float64(tokens)
	if ratio <= 0 {
		return 4.0
	}
	return ratio
}

// Copyright 2025 Zintix Labs
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

// Package sampler O(1) 加權抽樣（Vose alias method，全整數版本）。
package sampler

import (
	"math"
	"math/bits"

	"github.com/zintix-labs/rocklab/errs"
	"github.com/zintix-labs/rocklab/sdk/core"
)

// AliasTable 每個槽位只放「自己」與「別名」兩個選項。
// 權重乘上元素數 n 做整數 scaling，抽樣時不經過浮點數。
//
// 建表 O(n)，抽樣 O(1)（固定兩次 IntN）。
type AliasTable struct {
	Prob    []int
	Aliases []int
	Size    int
	Total   int
}

// BuildAliasTable weights 為非負整數且不需正規化；至少一個為正。
func BuildAliasTable(weights []int) (*AliasTable, error) {
	n := len(weights)
	if n == 0 {
		return nil, errs.NewWarn("alias table: empty weights")
	}
	var total uint64
	for _, w := range weights {
		if w < 0 {
			return nil, errs.Warnf("alias table: negative weight %d", w)
		}
		if total > uint64(math.MaxInt)-uint64(w) {
			return nil, errs.NewWarn("alias table: total weight overflow")
		}
		total += uint64(w)
	}
	if total == 0 {
		return nil, errs.NewWarn("alias table: all weights are zero")
	}
	if hi, lo := bits.Mul64(total, uint64(n)); hi != 0 || lo > math.MaxInt64 {
		return nil, errs.NewWarn("alias table: weights too large")
	}

	tot := int(total)
	prob := make([]int, n)
	aliases := make([]int, n)
	small := make([]int, 0, n)
	large := make([]int, 0, n)
	for i, w := range weights {
		aliases[i] = i
		prob[i] = w * n
		if prob[i] < tot {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}

	// sum(prob) = total * n 不變
	for len(small) > 0 && len(large) > 0 {
		s := small[len(small)-1]
		small = small[:len(small)-1]
		l := large[len(large)-1]
		large = large[:len(large)-1]

		aliases[s] = l
		prob[l] += prob[s] - tot
		if prob[l] < tot {
			small = append(small, l)
		} else {
			large = append(large, l)
		}
	}
	// 剩下的槽位機率視為滿格
	for _, i := range append(small, large...) {
		prob[i] = tot
	}

	return &AliasTable{Prob: prob, Aliases: aliases, Size: n, Total: tot}, nil
}

// Pick 抽出一個索引
func (at *AliasTable) Pick(c *core.Core) int {
	idx := c.IntN(at.Size)
	if c.IntN(at.Total) < at.Prob[idx] {
		return idx
	}
	return at.Aliases[idx]
}

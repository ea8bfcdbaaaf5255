// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
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

package worker

import (
	"memstress/internal/bench/metrics"
	"memstress/internal/bench/object"
	"memstress/internal/bench/store"
)

// MaxLongLivedRatio and MinLongLivedRatio bound the adaptive 1-in-r
// promotion sampling ratio r (spec.md §4.6). The naming is the spec's own:
// MaxLongLivedRatio (2) is the most permissive setting (promote roughly
// every other ring eviction), MinLongLivedRatio (1,048,576) the most
// restrictive.
const (
	MaxLongLivedRatio = 2
	MinLongLivedRatio = 1 << 20
)

// promoter runs the adaptive admission sub-protocol: every r-th ring
// eviction is offered to the store, and r backs off multiplicatively on
// rejection and recovers multiplicatively on acceptance.
type promoter struct {
	r        int64
	counter  int64
	counters *metrics.Counters
}

func newPromoter(counters *metrics.Counters) *promoter {
	return &promoter{r: MaxLongLivedRatio, counter: MaxLongLivedRatio, counters: counters}
}

// offer considers obj (a ring eviction) for promotion. Most calls are
// no-ops; only every r-th call actually attempts admission.
func (p *promoter) offer(st *store.Store, obj object.Object) {
	p.counter--
	if p.counter > 0 {
		return
	}

	p.counters.PromotionAttempts.Add(1)
	if st.TryAdd(obj) {
		p.counters.PromotionAdmits.Add(1)
		p.r /= 2
		if p.r < MaxLongLivedRatio {
			p.r = MaxLongLivedRatio
		}
	} else {
		p.r *= 2
		if p.r > MinLongLivedRatio {
			p.r = MinLongLivedRatio
		}
	}
	p.counter = p.r
}

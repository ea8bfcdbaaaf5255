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

package report

import (
	"context"

	redis "github.com/redis/go-redis/v9"
)

// RedisPublisher fans result rows out to a Redis list (RPUSH) so multiple
// memstress runs across a fleet can be aggregated by a separate consumer.
// It is optional: a run with no -redis-addr never constructs one, and a
// publish failure is logged by the caller without changing the process exit
// code (spec.md §7 treats this the same as any other non-core I/O failure).
type RedisPublisher struct {
	client *redis.Client
	key    string
}

// NewRedisPublisher connects to addr and publishes under key.
func NewRedisPublisher(addr, key string) *RedisPublisher {
	return &RedisPublisher{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		key:    key,
	}
}

// Publish appends row's rendered line to the configured Redis list.
func (p *RedisPublisher) Publish(ctx context.Context, row Row) error {
	return p.client.RPush(ctx, p.key, row.Line()).Err()
}

// Close releases the underlying connection pool.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

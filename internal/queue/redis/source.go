// Package redis — очередь событий поверх списков Redis: RPUSH в хвост, выборка с головы.
// В режиме подтверждения выбранное переносится в список <key>:inflight до Ack/Release.
package redis

import (
	"context"
	"fmt"

	"github.com/go-redis/redis"

	"github.com/Gunvolt24/datapipe/internal/ports"
)

// Проверка, что Source удовлетворяет портам очереди.
var (
	_ ports.MessageSource = (*Source)(nil)
	_ ports.Acknowledger  = (*Source)(nil)
)

const inflightSuffix = ":inflight"

// reserveScript — атомарно перенести до ARGV[1] сообщений с головы KEYS[1] в хвост KEYS[2].
const reserveScript = `
local items = redis.call('LRANGE', KEYS[1], 0, tonumber(ARGV[1]) - 1)
if #items > 0 then
	redis.call('LTRIM', KEYS[1], #items, -1)
	redis.call('RPUSH', KEYS[2], unpack(items))
end
return items
`

// releaseScript — вернуть KEYS[2] в голову KEYS[1], сохранив порядок.
const releaseScript = `
local items = redis.call('LRANGE', KEYS[2], 0, -1)
for i = #items, 1, -1 do
	redis.call('LPUSH', KEYS[1], items[i])
end
redis.call('DEL', KEYS[2])
return #items
`

// Source — очередь одного типа события. Один Source на ключ: inflight-список общий.
type Source struct {
	db   *redis.Client
	name string
	key  string
}

// NewSource — очередь name в списке keyPrefix+name.
func NewSource(db *redis.Client, keyPrefix, name string) *Source {
	return &Source{db: db, name: name, key: keyPrefix + name}
}

func (s *Source) Name() string { return s.name }

// Key — ключ списка очереди.
func (s *Source) Key() string { return s.key }

func (s *Source) inflightKey() string { return s.key + inflightSuffix }

// Reserve — до max сообщений с головы списка. deleteOnReserve — LRANGE+LTRIM в одной транзакции,
// иначе — перенос в inflight скриптом.
func (s *Source) Reserve(ctx context.Context, max int, deleteOnReserve bool) ([]ports.Message, error) {
	if max <= 0 {
		return nil, nil
	}
	db := s.db.WithContext(ctx)

	if !deleteOnReserve {
		res, err := db.Eval(reserveScript, []string{s.key, s.inflightKey()}, max).Result()
		if err != nil {
			return nil, fmt.Errorf("redis reserve key=%s: %w", s.key, err)
		}
		return toMessages(res)
	}

	var lrange *redis.StringSliceCmd
	_, err := db.TxPipelined(func(pipe redis.Pipeliner) error {
		lrange = pipe.LRange(s.key, 0, int64(max-1))
		pipe.LTrim(s.key, int64(max), -1)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis pop key=%s: %w", s.key, err)
	}
	return bodiesToMessages(lrange.Val()), nil
}

// Ack — зарезервированное загружено, inflight больше не нужен.
func (s *Source) Ack(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Del(s.inflightKey()).Err(); err != nil {
		return fmt.Errorf("redis ack key=%s: %w", s.key, err)
	}
	return nil
}

// Release — вернуть inflight в голову очереди.
func (s *Source) Release(ctx context.Context) error {
	_, err := s.Recover(ctx)
	return err
}

// Recover — то же, что Release; вызывается на старте, чтобы вернуть сообщения,
// оставшиеся в inflight после аварийной остановки. Возвращает число возвращённых.
func (s *Source) Recover(ctx context.Context) (int64, error) {
	n, err := s.db.WithContext(ctx).Eval(releaseScript, []string{s.key, s.inflightKey()}).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis release key=%s: %w", s.key, err)
	}
	return n, nil
}

func toMessages(res interface{}) ([]ports.Message, error) {
	items, ok := res.([]interface{})
	if !ok {
		return nil, fmt.Errorf("redis reserve: unexpected reply %T", res)
	}
	bodies := make([]string, 0, len(items))
	for _, it := range items {
		b, ok := it.(string)
		if !ok {
			return nil, fmt.Errorf("redis reserve: unexpected item %T", it)
		}
		bodies = append(bodies, b)
	}
	return bodiesToMessages(bodies), nil
}

func bodiesToMessages(bodies []string) []ports.Message {
	if len(bodies) == 0 {
		return nil
	}
	out := make([]ports.Message, 0, len(bodies))
	for _, b := range bodies {
		out = append(out, ports.Message{Body: b})
	}
	return out
}

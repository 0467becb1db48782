package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/atmx/paper-ledger/internal/model"
	"github.com/atmx/paper-ledger/internal/money"
	"github.com/atmx/paper-ledger/internal/ticker"
)

// RedisBook is a Feed stored in a single Redis hash so that several server
// instances mark positions against the same quotes. Values are msgpack
// encoded quoteRecords keyed by ticker.
type RedisBook struct {
	rdb *redis.Client
	key string
}

// NewRedisBook creates a Redis-backed quote book under the given hash key.
func NewRedisBook(rdb *redis.Client, key string) *RedisBook {
	if key == "" {
		key = "quotes"
	}
	return &RedisBook{rdb: rdb, key: key}
}

// quoteRecord is the wire form of a quote. Amounts travel as decimal strings.
type quoteRecord struct {
	Price     string `msgpack:"p"`
	PrevClose string `msgpack:"c"`
	UpdatedAt int64  `msgpack:"t"` // unix nanoseconds
}

func encodeQuote(q model.Quote) ([]byte, error) {
	return msgpack.Marshal(quoteRecord{
		Price:     q.Price.String(),
		PrevClose: q.PrevClose.String(),
		UpdatedAt: q.UpdatedAt.UnixNano(),
	})
}

func decodeQuote(sym string, data []byte) (model.Quote, error) {
	var rec quoteRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return model.Quote{}, fmt.Errorf("pricing: decode %s: %w", sym, err)
	}
	price, err := money.Parse(rec.Price)
	if err != nil {
		return model.Quote{}, err
	}
	prevClose, err := money.Parse(rec.PrevClose)
	if err != nil {
		return model.Quote{}, err
	}
	return model.Quote{
		Ticker:    sym,
		Price:     price,
		PrevClose: prevClose,
		UpdatedAt: time.Unix(0, rec.UpdatedAt).UTC(),
	}, nil
}

func (b *RedisBook) Quote(ctx context.Context, sym string) (model.Quote, error) {
	sym = ticker.Normalize(sym)
	return b.get(ctx, b.rdb, sym)
}

func (b *RedisBook) get(ctx context.Context, c redis.Cmdable, sym string) (model.Quote, error) {
	data, err := c.HGet(ctx, b.key, sym).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Quote{}, fmt.Errorf("%w: %s", model.ErrUnknownTicker, sym)
	}
	if err != nil {
		return model.Quote{}, fmt.Errorf("pricing: get %s: %w", sym, err)
	}
	return decodeQuote(sym, data)
}

// SetPrice updates one field under WATCH so concurrent writers never lose
// a previous close.
func (b *RedisBook) SetPrice(ctx context.Context, sym string, price money.Money) (model.Quote, error) {
	sym, err := ticker.Parse(sym)
	if err != nil {
		return model.Quote{}, err
	}
	if !price.IsPositive() {
		return model.Quote{}, fmt.Errorf("%w: %s %s", model.ErrInvalidPrice, sym, price)
	}

	var q model.Quote
	err = b.rdb.Watch(ctx, func(tx *redis.Tx) error {
		prev, err := b.get(ctx, tx, sym)
		if err != nil && !errors.Is(err, model.ErrUnknownTicker) {
			return err
		}
		q = nextQuote(prev, sym, price, time.Now().UTC())
		data, err := encodeQuote(q)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, b.key, sym, data)
			return nil
		})
		return err
	}, b.key)
	if err != nil {
		return model.Quote{}, fmt.Errorf("pricing: set %s: %w", sym, err)
	}
	return q, nil
}

func (b *RedisBook) RollClose(ctx context.Context) (int, error) {
	var rolled int
	err := b.rdb.Watch(ctx, func(tx *redis.Tx) error {
		all, err := tx.HGetAll(ctx, b.key).Result()
		if err != nil {
			return err
		}
		fields := make([]any, 0, 2*len(all))
		for sym, raw := range all {
			q, err := decodeQuote(sym, []byte(raw))
			if err != nil {
				return err
			}
			q.PrevClose = q.Price
			data, err := encodeQuote(q)
			if err != nil {
				return err
			}
			fields = append(fields, sym, data)
		}
		if len(fields) == 0 {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, b.key, fields...)
			return nil
		})
		rolled = len(all)
		return err
	}, b.key)
	if err != nil {
		return 0, fmt.Errorf("pricing: roll close: %w", err)
	}
	return rolled, nil
}

func (b *RedisBook) List(ctx context.Context) ([]model.Quote, error) {
	all, err := b.rdb.HGetAll(ctx, b.key).Result()
	if err != nil {
		return nil, fmt.Errorf("pricing: list: %w", err)
	}
	quotes := make([]model.Quote, 0, len(all))
	for sym, raw := range all {
		q, err := decodeQuote(sym, []byte(raw))
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	sortQuotes(quotes)
	return quotes, nil
}

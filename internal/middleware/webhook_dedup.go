package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultDedupTTL = 10 * time.Minute

// UpdateDeduper remembers which Telegram updates were already handled.
type UpdateDeduper interface {
	// Seen marks updateID as handled and reports whether it already was.
	Seen(ctx context.Context, updateID int64) (bool, error)
}

// redisUpdateDeduper shares handled ids between replicas.
type redisUpdateDeduper struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func (d *redisUpdateDeduper) Seen(ctx context.Context, updateID int64) (bool, error) {
	created, err := d.client.SetNX(ctx, d.prefix+strconv.FormatInt(updateID, 10), "1", d.ttl).Result()
	if err != nil {
		return false, err
	}
	return !created, nil
}

// memoryUpdateDeduper keeps handled ids in process until they expire.
type memoryUpdateDeduper struct {
	mu        sync.Mutex
	expiry    map[int64]time.Time
	ttl       time.Duration
	nextSweep time.Time
	now       func() time.Time
}

func newMemoryUpdateDeduper(ttl time.Duration) *memoryUpdateDeduper {
	d := &memoryUpdateDeduper{
		expiry: make(map[int64]time.Time),
		ttl:    ttl,
		now:    time.Now,
	}
	d.nextSweep = d.now().Add(ttl)
	return d
}

func (d *memoryUpdateDeduper) Seen(_ context.Context, updateID int64) (bool, error) {
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if until, ok := d.expiry[updateID]; ok && until.After(now) {
		return true, nil
	}
	d.expiry[updateID] = now.Add(d.ttl)
	if now.After(d.nextSweep) {
		d.sweep(now)
	}
	return false, nil
}

func (d *memoryUpdateDeduper) sweep(now time.Time) {
	for id, until := range d.expiry {
		if !until.After(now) {
			delete(d.expiry, id)
		}
	}
	d.nextSweep = now.Add(d.ttl)
}

// NewUpdateDeduper connects to Redis and falls back to memory when no
// address is set or the ping fails. The returned error is the ping failure;
// the deduper works either way.
func NewUpdateDeduper(addr, pass string, db int, ttl time.Duration) (UpdateDeduper, error) {
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}
	if addr == "" {
		return newMemoryUpdateDeduper(ttl), nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return newMemoryUpdateDeduper(ttl), err
	}
	return &redisUpdateDeduper{client: client, prefix: "coachbot:update:", ttl: ttl}, nil
}

// webhookUpdate holds the fields of an update needed to recognize and
// describe it.
type webhookUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		From     *struct{ ID int64 } `json:"from"`
		Photo    json.RawMessage     `json:"photo"`
		Document json.RawMessage     `json:"document"`
	} `json:"message"`
	Callback *struct {
		From *struct{ ID int64 } `json:"from"`
		Data string              `json:"data"`
	} `json:"callback_query"`
}

// fields describes the update for logs: who sent it and what it carries.
// Receipts and review buttons are the updates a redelivery could apply twice.
func (u webhookUpdate) fields() []zap.Field {
	out := []zap.Field{zap.Int64("update_id", u.UpdateID)}
	switch {
	case u.Callback != nil:
		out = append(out, zap.String("kind", "callback"), zap.String("data", u.Callback.Data))
		if u.Callback.From != nil {
			out = append(out, zap.Int64("user_id", u.Callback.From.ID))
		}
	case u.Message != nil:
		kind := "message"
		if len(u.Message.Photo) > 0 || len(u.Message.Document) > 0 {
			kind = "receipt"
		}
		out = append(out, zap.String("kind", kind))
		if u.Message.From != nil {
			out = append(out, zap.Int64("user_id", u.Message.From.ID))
		}
	default:
		out = append(out, zap.String("kind", "other"))
	}
	return out
}

// TelegramUpdateDedup answers redelivered webhook updates with 200 without
// handling them. Telegram retries until it gets a 2xx, so a slow handler
// would otherwise store a receipt or an approval twice.
func TelegramUpdateDedup(deduper UpdateDeduper, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if deduper == nil || req.Body == nil {
				return next(c)
			}

			raw, err := io.ReadAll(req.Body)
			req.Body = io.NopCloser(bytes.NewReader(raw))
			if err != nil || len(raw) == 0 {
				return next(c)
			}

			var update webhookUpdate
			if err := json.Unmarshal(raw, &update); err != nil || update.UpdateID == 0 {
				return next(c)
			}

			dup, err := deduper.Seen(req.Context(), update.UpdateID)
			if err != nil {
				logger.Warn("Update dedup failed", append(update.fields(), zap.Error(err))...)
				return next(c)
			}
			if dup {
				logger.Info("Dropping redelivered update", update.fields()...)
				return c.NoContent(http.StatusOK)
			}
			return next(c)
		}
	}
}

package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/amirphl/qrtrack/repository"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Destination is the part of a QR code the redirect path needs
type Destination struct {
	QRCodeID uint   `json:"qr_code_id"`
	URL      string `json:"url"`
}

// DestinationCache resolves short codes to destinations with redis cache-aside.
// Resolve returns nil, nil when the code does not exist.
type DestinationCache interface {
	Resolve(ctx context.Context, shortCode string) (*Destination, error)
	Invalidate(ctx context.Context, shortCode string)
}

// Generation keys outlive any in-flight fill by a wide margin
const destinationGenerationTTL = 24 * time.Hour

// Writes the entry only if no invalidation happened since the fill read its generation
var fillScript = redis.NewScript(`
if (redis.call("get", KEYS[2]) or "") ~= ARGV[2] then
	return 0
end
if ARGV[3] == "0" then
	redis.call("set", KEYS[1], ARGV[1])
else
	redis.call("set", KEYS[1], ARGV[1], "PX", ARGV[3])
end
return 1
`)

type DestinationCacheImpl struct {
	repo   repository.QRCodeRepository
	client *redis.Client
	prefix string
	ttl    time.Duration
	group  singleflight.Group
}

// NewDestinationCache creates the cache. A nil client disables redis and every lookup hits the store.
func NewDestinationCache(repo repository.QRCodeRepository, client *redis.Client, prefix string, ttl time.Duration) DestinationCache {
	return &DestinationCacheImpl{
		repo:   repo,
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *DestinationCacheImpl) key(shortCode string) string {
	return c.prefix + "dest:" + shortCode
}

func (c *DestinationCacheImpl) generationKey(shortCode string) string {
	return c.prefix + "destgen:" + shortCode
}

// generation returns the invalidation counter for a code. ok is false when redis cannot answer.
func (c *DestinationCacheImpl) generation(ctx context.Context, shortCode string) (gen string, ok bool) {
	if c.client == nil {
		return "", false
	}
	gen, err := c.client.Get(ctx, c.generationKey(shortCode)).Result()
	switch {
	case err == nil:
		return gen, true
	case errors.Is(err, redis.Nil):
		return "", true
	default:
		return "", false
	}
}

func (c *DestinationCacheImpl) Resolve(ctx context.Context, shortCode string) (*Destination, error) {
	if c.client != nil {
		raw, err := c.client.Get(ctx, c.key(shortCode)).Bytes()
		switch {
		case err == nil:
			var dest Destination
			if jsonErr := json.Unmarshal(raw, &dest); jsonErr == nil {
				destinationCacheTotal.WithLabelValues("hit").Inc()
				return &dest, nil
			}
			log.Printf("Dropping corrupt cache entry for %s", shortCode)
		case errors.Is(err, redis.Nil):
		default:
			// Redis trouble must not block redirects
			destinationCacheTotal.WithLabelValues("error").Inc()
			log.Printf("Destination cache read failed for %s: %v", shortCode, err)
		}
	}
	destinationCacheTotal.WithLabelValues("miss").Inc()

	v, err, _ := c.group.Do(shortCode, func() (any, error) {
		gen, cacheable := c.generation(ctx, shortCode)
		row, err := c.repo.ByShortCode(ctx, shortCode)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return nil, nil
		}
		dest := &Destination{QRCodeID: row.ID, URL: row.OriginalURL}
		if cacheable {
			c.store(ctx, shortCode, gen, dest)
		}
		return dest, nil
	})
	if err != nil {
		return nil, err
	}
	dest, _ := v.(*Destination)
	return dest, nil
}

func (c *DestinationCacheImpl) store(ctx context.Context, shortCode, gen string, dest *Destination) {
	payload, err := json.Marshal(dest)
	if err != nil {
		return
	}
	keys := []string{c.key(shortCode), c.generationKey(shortCode)}
	stored, err := fillScript.Run(ctx, c.client, keys, payload, gen, c.ttl.Milliseconds()).Int()
	if err != nil {
		log.Printf("Destination cache write failed for %s: %v", shortCode, err)
		return
	}
	if stored == 0 {
		log.Printf("Skipped destination cache fill for %s: invalidated during lookup", shortCode)
	}
}

// Invalidate bumps the code's generation before deleting the entry, so a fill that
// read the store before the change cannot write the old destination back.
func (c *DestinationCacheImpl) Invalidate(ctx context.Context, shortCode string) {
	c.group.Forget(shortCode)
	if c.client == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	genKey := c.generationKey(shortCode)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, destinationGenerationTTL)
		pipe.Del(ctx, c.key(shortCode))
		return nil
	})
	if err != nil {
		log.Printf("Destination cache invalidation failed for %s: %v", shortCode, err)
	}
}

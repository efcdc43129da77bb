// Package cache: cache baca progress di Redis.
//
// Kunci data menyertakan generasi siswa+materi dan generasi materi:
//
//	progress:gen:s:{student}:{material}  INCR tiap tulis ledger siswa tsb
//	progress:gen:m:{material}            INCR tiap edit hierarki materi tsb
//	progress:view:{student}:{material}:{sgen}:{mgen}
//
// Invalidate cukup menaikkan generasi; entri data lama kedaluwarsa lewat TTL.
package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 10 * time.Minute

type ProgressCache struct {
	Client *redis.Client
	TTL    time.Duration
}

// ParseURL validates a Redis connection URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	return opts, nil
}

// New connect + ping. Pemanggil boleh jalan tanpa cache kalau ini gagal.
func New(ctx context.Context, url string) (*ProgressCache, error) {
	opts, err := ParseURL(url)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging cache: %w", err)
	}
	return &ProgressCache{Client: client, TTL: DefaultTTL}, nil
}

func (c *ProgressCache) Close() error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

func (c *ProgressCache) HealthCheck(ctx context.Context) error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Ping(ctx).Err()
}

func studentGenKey(studentID, materialID uuid.UUID) string {
	return "progress:gen:s:" + studentID.String() + ":" + materialID.String()
}

func materialGenKey(materialID uuid.UUID) string {
	return "progress:gen:m:" + materialID.String()
}

func (c *ProgressCache) ttl() time.Duration {
	if c.TTL > 0 {
		return c.TTL
	}
	return DefaultTTL
}

// viewKey membaca dua generasi sekaligus (MGET). Generasi yang belum ada = 0.
func (c *ProgressCache) viewKey(ctx context.Context, studentID, materialID uuid.UUID) (string, error) {
	vals, err := c.Client.MGet(ctx, studentGenKey(studentID, materialID), materialGenKey(materialID)).Result()
	if err != nil {
		return "", err
	}
	gen := func(v any) string {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
		return "0"
	}
	return fmt.Sprintf("progress:view:%s:%s:%s:%s", studentID, materialID, gen(vals[0]), gen(vals[1])), nil
}

// GetView mengembalikan token kunci (dipakai SetView) dan hit=true kalau dst
// terisi. Token diambil sebelum DB dibaca, jadi tulis yang commit di antara
// keduanya membuat entri yang disimpan langsung basi, bukan sebaliknya.
// Error redis diperlakukan sebagai miss.
func (c *ProgressCache) GetView(ctx context.Context, studentID, materialID uuid.UUID, dst any) (string, bool) {
	if c == nil || c.Client == nil {
		return "", false
	}
	key, err := c.viewKey(ctx, studentID, materialID)
	if err != nil {
		log.Printf("[WARN] cache gen read: %v", err)
		return "", false
	}
	raw, err := c.Client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[WARN] cache get %s: %v", key, err)
		}
		return key, false
	}
	if err := sonic.Unmarshal(raw, dst); err != nil {
		log.Printf("[WARN] cache decode %s: %v", key, err)
		return key, false
	}
	return key, true
}

func (c *ProgressCache) SetView(ctx context.Context, token string, v any) {
	if c == nil || c.Client == nil || token == "" {
		return
	}
	raw, err := sonic.Marshal(v)
	if err != nil {
		log.Printf("[WARN] cache encode: %v", err)
		return
	}
	if err := c.Client.Set(ctx, token, raw, c.ttl()).Err(); err != nil {
		log.Printf("[WARN] cache set %s: %v", token, err)
	}
}

// Invalidate dipanggil setelah commit tulis ledger (siswa, materi).
func (c *ProgressCache) Invalidate(ctx context.Context, studentID, materialID uuid.UUID) {
	if c == nil || c.Client == nil {
		return
	}
	c.bump(ctx, studentGenKey(studentID, materialID))
}

// InvalidateMaterial dipanggil setelah edit hierarki; berlaku untuk semua siswa.
func (c *ProgressCache) InvalidateMaterial(ctx context.Context, materialID uuid.UUID) {
	if c == nil || c.Client == nil {
		return
	}
	c.bump(ctx, materialGenKey(materialID))
}

func (c *ProgressCache) bump(ctx context.Context, key string) {
	// kunci generasi tidak diberi TTL: kalau hilang, hitungan mulai lagi dari 0
	// dan bisa bertemu entri lama yang masih hidup
	if err := c.Client.Incr(ctx, key).Err(); err != nil {
		log.Printf("[ERROR] cache invalidate %s: %v", key, err)
	}
}

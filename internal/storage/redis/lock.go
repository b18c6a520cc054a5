package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// el DEL es condicional al valor: solo el dueño del lock puede soltarlo
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// LockManager reparte locks distribuidos con TTL vía SETNX. Se usa para
// serializar creaciones de conexión con el mismo nombre entre réplicas.
type LockManager struct {
	client *Client
	log    *zap.Logger
}

func NewLockManager(client *Client, log *zap.Logger) *LockManager {
	return &LockManager{client: client, log: log}
}

// Acquire intenta tomar el lock. Si acquired es true, release lo suelta;
// si el proceso muere antes, el TTL lo libera solo.
func (m *LockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), acquired bool, err error) {
	value := uuid.New().String()

	acquired, err = m.client.rdb.SetNX(ctx, "lock:"+key, value, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("lock acquire: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}

	release = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, err := releaseScript.Run(ctx, m.client.rdb, []string{"lock:" + key}, value).Result(); err != nil && err != redis.Nil {
			m.log.Warn("lock release falló", zap.String("key", key), zap.Error(err))
		}
	}
	return release, true, nil
}

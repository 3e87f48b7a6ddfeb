package session

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/memstore"
	redisstore "github.com/gin-contrib/sessions/redis"

	"github.com/noah-isme/school-attendance/pkg/config"
)

const (
	redisPoolSize  = 10
	redisKeyPrefix = "attendance_session:"
)

// NewStore returns the server-side session store selected by cfg.Store. The
// cookie carries only the signed session id, so replaying an old cookie reads
// the current server-side values.
func NewStore(cfg config.SessionConfig, redisCfg config.RedisConfig) (sessions.Store, error) {
	var store sessions.Store
	switch cfg.Store {
	case config.SessionStoreRedis:
		addr := fmt.Sprintf("%s:%d", redisCfg.Host, redisCfg.Port)
		rs, err := redisstore.NewStoreWithDB(redisPoolSize, "tcp", addr, redisCfg.Password, strconv.Itoa(redisCfg.DB), []byte(cfg.Secret))
		if err != nil {
			return nil, fmt.Errorf("open redis session store: %w", err)
		}
		if err := redisstore.SetKeyPrefix(rs, redisKeyPrefix); err != nil {
			return nil, fmt.Errorf("configure redis session store: %w", err)
		}
		store = rs
	default:
		store = memstore.NewStore([]byte(cfg.Secret))
	}
	store.Options(Options(cfg))
	return store, nil
}

// Options returns the cookie options shared by every backend.
func Options(cfg config.SessionConfig) sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.IdleTimeout.Seconds()),
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

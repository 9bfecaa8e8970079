package session

import (
	"fmt"

	"shortsmith/config"
	"shortsmith/logger"
)

// Open builds the Store selected by SESSION_BACKEND.
func Open(s *config.Settings, log *logger.Logger) (Store, error) {
	switch s.SessionBackend {
	case config.SessionBackendRedis:
		return NewRedisStore(RedisConfig{
			Addr:     s.RedisAddr,
			Password: s.RedisPass,
			DB:       s.RedisDB,
			Name:     s.Provider,
		}, log)
	case config.SessionBackendSQLite:
		return NewSQLiteStore(s.SessionDBPath(), s.Provider, log)
	case config.SessionBackendFile, "":
		return NewFileStore(s.SessionPath(), log), nil
	}
	return nil, fmt.Errorf("unknown session backend %q", s.SessionBackend)
}

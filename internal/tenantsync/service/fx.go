package service

import (
	"errors"
	"strings"

	"github.com/smallbiznis/seatwise/internal/config"
	"go.uber.org/zap"
)

// ProvideSealer builds the token sealer. Without TOKEN_ENCRYPTION_KEY a
// random key is used outside production, so sessions end on restart.
func ProvideSealer(cfg config.Config, log *zap.Logger) (*Sealer, error) {
	if !cfg.MicrosoftEnabled() {
		return nil, nil
	}
	if key := strings.TrimSpace(cfg.TokenEncryptionKey); key != "" {
		return NewSealer(key)
	}
	if cfg.IsProduction() {
		return nil, errors.New("TOKEN_ENCRYPTION_KEY is required when Microsoft sign-in is enabled in production")
	}
	log.Warn("TOKEN_ENCRYPTION_KEY not set; using an ephemeral key")
	return NewEphemeralSealer()
}

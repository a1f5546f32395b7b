//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/google/wire"

	"github.com/uniedit/upload-notifier/internal/shared/config"
)

// InitializeApp creates the application using Wire.
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		InfraSet,
		OutboundSet,
		AppSet,
	)
	return nil, nil, nil
}

package daemon

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/eliteGoblin/netmon/internal/config"
	"github.com/eliteGoblin/netmon/internal/domain"
)

// Factory builds a fresh keeper for a config snapshot. Shells call it on
// every start since a stopped keeper cannot be reused.
type Factory func(settings config.Config, sink domain.StatusSink) (domain.Keeper, error)

// LauncherFunc picks a browser backend for the configured engine.
type LauncherFunc func(engine domain.Engine) (domain.BrowserLauncher, error)

// NewFactory returns a Factory that wires keepers to the given portal layout.
// Status messages go to sink and to the log.
func NewFactory(portal domain.Portal, launchers LauncherFunc, logger *zap.Logger) Factory {
	return func(settings config.Config, sink domain.StatusSink) (domain.Keeper, error) {
		launcher, err := launchers(settings.Daemon.Engine)
		if err != nil {
			return nil, fmt.Errorf("failed to create browser launcher: %w", err)
		}
		return NewKeeper(
			ConfigFrom(settings),
			settings,
			portal,
			launcher,
			Tee(sink, LogSink(logger)),
			logger.With(zap.String("portal", portal.ID)),
		), nil
	}
}

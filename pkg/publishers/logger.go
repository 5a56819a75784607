package publishers

import "github.com/samvad-hq/yt-bias-miner/internal/logger"

// Logger is the logging surface publishers write to.
type Logger = logger.Logger

type noopLogger = logger.NopLogger

func ensureLogger(log Logger) Logger { return logger.Ensure(log) }

package sqlite

import "github.com/skyvern-ops/sora-engine/pkg/logger"

// Logging field helpers shared by the storage files.
var Error = logger.Error

package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/jakechorley/manpower/internal/config"
	"github.com/jakechorley/manpower/pkg/core/services"
	"github.com/jakechorley/manpower/pkg/db"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg      *config.Config
	Database db.Database
	Engine   *services.Engine
	Logger   *zap.Logger
	Ctx      context.Context
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorDim    = "\033[2m"
)

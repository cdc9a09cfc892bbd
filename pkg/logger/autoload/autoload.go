// Package autoload initialises the global logger from LOG_* environment variables on import.
// It reads the process environment only; .env files are loaded later by pkg/config.
package autoload

import (
	"github.com/kelseyhightower/envconfig"

	logx "github.com/tanpawarit/Chative-Agent-Router/pkg/logger"
)

func init() {
	var conf logx.Config
	if err := envconfig.Process("LOG", &conf); err != nil {
		logx.Init()
		return
	}
	logx.Init(conf)
}

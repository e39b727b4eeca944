package main

import (
	"strings"
	"sync"

	"stem-service/app"
	"stem-service/pkg/config"
)

type commandContext struct {
	configFlag *string

	configOnce  sync.Once
	config      *config.Config
	configErr   error
	closeLogger func()
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// ensureConfig 只加载一次配置，同时初始化全局日志
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, closeLogger, err := app.Bootstrap(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.closeLogger = closeLogger
	})
	return c.config, c.configErr
}

func (c *commandContext) close() {
	if c.closeLogger != nil {
		c.closeLogger()
		c.closeLogger = nil
	}
}

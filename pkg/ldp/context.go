package ldp

import (
	"time"

	"github.com/clover-repo/ldpstore/internal/config"
)

// OpContext is the explicit request-scoped context record SPEC_FULL §9
// (Design Notes, "Global state") asks for in place of thread-local or
// package-level state: webroot, a clock, the acting principal, and the
// loaded configuration, passed into every LdpResource call.
type OpContext struct {
	Webroot string
	Now     func() time.Time
	Actor   string
	Config  *config.Config
}

// NewOpContext builds an OpContext from a loaded Config, defaulting Now to
// time.Now and Actor to the configured default actor.
func NewOpContext(cfg *config.Config) *OpContext {
	return &OpContext{
		Webroot: cfg.Server.Webroot,
		Now:     time.Now,
		Actor:   cfg.Server.DefaultActor,
		Config:  cfg,
	}
}

func (c *OpContext) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *OpContext) actor() string {
	if c.Actor != "" {
		return c.Actor
	}
	return DefaultUser
}

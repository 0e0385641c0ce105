// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/cascadeflow/cascade/pkg/actions/httprequest"
	logaction "github.com/cascadeflow/cascade/pkg/actions/log"
	"github.com/cascadeflow/cascade/pkg/registry"
)

func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)

	registerNativeActions(reg)

	return reg
}

func registerNativeActions(reg *registry.Registry) {
	reg.Register(logaction.NewHandler())
	reg.Register(httprequest.NewHandler())
}

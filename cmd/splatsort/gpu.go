//go:build !nogpu

package main

import (
	"log/slog"

	"github.com/gogpu/splatsort"
	"github.com/gogpu/splatsort/gpu"
)

type projector interface {
	Sort(s *splatsort.Sorter, positions []splatsort.Position, cam splatsort.Camera, depthIndex []uint32) error
	Close()
}

func openProjector(logger *slog.Logger) (projector, error) {
	p, err := gpu.Open()
	if err != nil {
		return nil, err
	}
	p.SetLogger(logger)
	return p, nil
}

//go:build nogpu

package main

import (
	"errors"
	"log/slog"

	"github.com/gogpu/splatsort"
)

type projector interface {
	Sort(s *splatsort.Sorter, positions []splatsort.Position, cam splatsort.Camera, depthIndex []uint32) error
	Close()
}

func openProjector(*slog.Logger) (projector, error) {
	return nil, errors.New("built with nogpu")
}

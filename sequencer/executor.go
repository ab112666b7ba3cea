// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sequencer

import (
	"errors"
	"fmt"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/sequencervm/host"
)

var errKernelPanic = errors.New("kernel panicked")

// executor pushes messages into the native runtime and runs the kernel
// against it.
type executor struct {
	runtime      *host.Native
	kernel       host.Kernel
	levelMarkers bool
	log          log.Logger
}

func newExecutor(runtime *host.Native, kernel host.Kernel, levelMarkers bool) *executor {
	return &executor{
		runtime:      runtime,
		kernel:       kernel,
		levelMarkers: levelMarkers,
		log:          log.New("module", "executor"),
	}
}

// onMessage runs the kernel exactly once with [msg] queued.
func (e *executor) onMessage(msg *host.Message) error {
	e.runtime.AddMessage(msg)
	return e.run()
}

// onLevel signals the boundary between [closing] and [opened]. [used] is the
// number of slots [closing] consumed. Without level markers the kernel is
// not involved.
func (e *executor) onLevel(closing, opened, used uint32) error {
	if !e.levelMarkers {
		e.log.Debug("level boundary", "closing", closing, "opened", opened)
		return nil
	}
	e.runtime.AddMessage(host.EndOfLevel(closing, used))
	e.runtime.AddMessage(host.StartOfLevel(opened))
	return e.run()
}

func (e *executor) run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errKernelPanic, r)
		}
		if err != nil {
			// an aborted run must not leak its inputs into the next one
			e.runtime.DropInputs()
		}
	}()
	return e.kernel.Entry(e.runtime)
}

/*
 * MIT License
 *
 * Copyright (c) 2026 staticd contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Package acceptor implements the master process: it owns the listening
// socket, spawns one worker process per configured slot by re-executing
// this binary with an inherited socketpair end and shared statistics
// descriptor, and round-robins every accepted connection across the
// worker pool by handing off its file descriptor. There is no shared
// listen socket between processes -- only the acceptor ever calls
// accept(2); everything downstream travels over a descriptor-passing
// channel.
package acceptor

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/nabbar/staticd/internal/apperr"
	"github.com/nabbar/staticd/internal/config"
	"github.com/nabbar/staticd/internal/logging"
	"github.com/nabbar/staticd/internal/shm"
	"github.com/nabbar/staticd/internal/transport"
)

// RoleEnv names the environment variable a re-exec'd child inspects to
// know it should run as a worker rather than re-entering the acceptor.
const RoleEnv = "STATICD_ROLE"

// RoleWorker is the value RoleEnv carries for a worker process.
const RoleWorker = "worker"

// workerHandle tracks one spawned worker process from the acceptor's
// side: the local channel end used for dispatch and the *exec.Cmd used
// to wait for exit during shutdown.
type workerHandle struct {
	channel *transport.Channel
	cmd     *exec.Cmd
}

// Acceptor is the master process's runtime.
type Acceptor struct {
	cfg   config.Config
	log   logging.Logger
	stats *shm.Stats

	listener net.Listener
	workers  []*workerHandle
}

// New binds the listening socket and spawns every configured worker via
// self-re-exec. It returns once every worker has been launched (not
// necessarily ready); dispatch begins only after Serve is called.
func New(cfg config.Config, log logging.Logger, stats *shm.Stats) (*Acceptor, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, apperr.New(apperr.CodeListen, "listening on port %d", cfg.Port).AddParent(err)
	}

	a := &Acceptor{cfg: cfg, log: log, stats: stats, listener: ln}

	for i := 0; i < cfg.NumWorkers; i++ {
		wh, err := a.spawnWorker(i)
		if err != nil {
			a.shutdownWorkers()
			ln.Close()
			return nil, apperr.New(apperr.CodeWorkerSpawn, "spawning worker %d", i).AddParent(err)
		}
		a.workers = append(a.workers, wh)
	}

	return a, nil
}

// spawnWorker creates a socketpair, re-execs the current binary with the
// worker's end and the shared statistics descriptor inherited at fixed
// fd numbers, and keeps the acceptor's end of the pair for dispatch.
func (a *Acceptor) spawnWorker(index int) (*workerHandle, error) {
	local, remote, err := transport.NewPair()
	if err != nil {
		return nil, fmt.Errorf("socketpair: %w", err)
	}

	self, err := os.Executable()
	if err != nil {
		local.Close()
		remote.Close()
		return nil, fmt.Errorf("resolving executable: %w", err)
	}

	cmd := exec.Command(self, os.Args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = []*os.File{remote.File(), statsFile(a.stats)}
	cmd.Env = append(os.Environ(),
		RoleEnv+"="+RoleWorker,
		fmt.Sprintf("STATICD_WORKER_INDEX=%d", index),
	)
	cmd.Env = append(cmd.Env, a.cfg.Environ()...)

	if err := cmd.Start(); err != nil {
		local.Close()
		remote.Close()
		return nil, fmt.Errorf("starting worker process: %w", err)
	}

	remote.Close()

	a.log.WithField("worker_index", index).WithField("pid", cmd.Process.Pid).Info("worker spawned")

	return &workerHandle{channel: local, cmd: cmd}, nil
}

func statsFile(s *shm.Stats) *os.File {
	return os.NewFile(uintptr(s.Fd()), "staticd-stats")
}

// shutdownWorkers tears down every worker spawned so far, for use when
// New fails partway through bringing up the pool.
func (a *Acceptor) shutdownWorkers() {
	for _, wh := range a.workers {
		wh.channel.Close()
		if wh.cmd.Process != nil {
			_ = wh.cmd.Process.Kill()
			_ = wh.cmd.Wait()
		}
	}
}

// Serve runs the accept loop, dispatching each connection to the next
// worker in round-robin order, until the listener is closed by Shutdown.
func (a *Acceptor) Serve() error {
	current := 0
	for {
		conn, err := a.listener.Accept()
		if err != nil {
			return err
		}

		sc, ok := conn.(syscall.Conn)
		if !ok {
			conn.Close()
			continue
		}

		if err := dispatchFD(sc, a.workers[current].channel); err != nil {
			a.log.WithField("worker_index", current).Error("dispatch failed: ", err)
		}
		conn.Close()

		current = (current + 1) % len(a.workers)
	}
}

func dispatchFD(sc syscall.Conn, ch *transport.Channel) error {
	raw, err := sc.SyscallConn()
	if err != nil {
		return err
	}

	var sendErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		sendErr = ch.Send(int(fd))
	})
	if ctrlErr != nil {
		return ctrlErr
	}
	return sendErr
}

// Shutdown stops accepting new connections, closes every worker's
// dispatch channel (their signal to drain and exit), and waits for each
// worker process to exit, bounded by timeout.
func (a *Acceptor) Shutdown(timeout time.Duration) {
	a.listener.Close()

	for _, wh := range a.workers {
		wh.channel.Close()
	}

	done := make(chan struct{})
	go func() {
		for _, wh := range a.workers {
			_ = wh.cmd.Wait()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		for _, wh := range a.workers {
			if wh.cmd.Process != nil {
				_ = wh.cmd.Process.Kill()
			}
		}
	}
}

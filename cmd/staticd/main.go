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

// Command staticd is a concurrent static file HTTP server built on a
// two-tier process model: one acceptor process owning the listen socket
// and a pool of worker processes, each running its own thread pool,
// fed by descriptor handoff over Unix-domain sockets.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nabbar/staticd/internal/accesslog"
	"github.com/nabbar/staticd/internal/acceptor"
	"github.com/nabbar/staticd/internal/config"
	"github.com/nabbar/staticd/internal/logging"
	"github.com/nabbar/staticd/internal/shm"
	"github.com/nabbar/staticd/internal/transport"
	"github.com/nabbar/staticd/internal/worker"
)

const (
	workerFD = 3 // fixed by ExtraFiles order: socketpair end first
	statsFD  = 4 // then the shared statistics region
)

func main() {
	if os.Getenv(acceptor.RoleEnv) == acceptor.RoleWorker {
		if err := runWorker(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "staticd",
		Short: "Concurrent static file HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAcceptor(configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "server.conf", "path to the server configuration file")

	return cmd
}

func runAcceptor(configPath string) error {
	log := logging.Default("acceptor", nil)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Error("failed to load configuration: ", err)
		return err
	}

	stats, err := shm.Create()
	if err != nil {
		log.Error("failed to allocate shared statistics region: ", err)
		return err
	}
	defer stats.Close()

	acc, err := acceptor.New(cfg, log, stats)
	if err != nil {
		log.Error("failed to start: ", err)
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	dashboardDone := make(chan struct{})
	go runDashboard(stats, time.Duration(cfg.TimeoutSeconds)*time.Second, dashboardDone)

	serveErr := make(chan error, 1)
	go func() { serveErr <- acc.Serve() }()

	<-sig
	close(dashboardDone)
	log.Info("shutting down")
	acc.Shutdown(10 * time.Second)
	<-serveErr

	return nil
}

// runDashboard prints the periodic text statistics dashboard to stdout,
// on the configured interval, until stop is closed.
func runDashboard(stats *shm.Stats, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			snap := stats.Snapshot()
			fmt.Fprintf(os.Stdout,
				"=== SERVER STATISTICS ===\nActive Connections: %d\nTotal Requests:     %d\nBytes Transferred:  %d\nAvg Response Time:  %s\nStatus 2xx: %d  3xx: %d  4xx: %d  5xx: %d\n=========================\n",
				snap.ActiveConnections, snap.TotalRequests, snap.BytesTransferred, snap.AverageResponseTime(),
				snap.Status2xx, snap.Status3xx, snap.Status4xx, snap.Status5xx)
		}
	}
}

// runWorker is the entry point for a re-exec'd worker process: it
// reconstructs its configuration and inherited descriptors purely from
// the environment and fixed fd numbers, with no access to the original
// config file.
func runWorker() error {
	signal.Ignore(syscall.SIGINT)

	cfg, err := config.FromEnviron()
	if err != nil {
		return fmt.Errorf("worker: reconstructing configuration: %w", err)
	}

	log := logging.Default("worker", nil)

	ch := transport.FromFD(workerFD)
	stats, err := shm.Open(statsFD)
	if err != nil {
		return fmt.Errorf("worker: opening shared statistics region: %w", err)
	}
	defer stats.Close()

	al := accesslog.Open(cfg.LogFile)
	go al.Run()
	defer al.Close()

	w := worker.New(worker.Config{
		DocumentRoot: cfg.DocumentRoot,
		Threads:      cfg.ThreadsPerWorker,
		QueueSize:    cfg.MaxQueueSize,
		Timeout:      time.Duration(cfg.TimeoutSeconds) * time.Second,
		CacheBytes:   cfg.CacheByteBudget(),
	}, ch, stats, al, log)

	w.Run()
	return nil
}

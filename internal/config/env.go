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

package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variable names used to hand a parsed Config across the
// self-re-exec boundary to a worker process. Re-parsing the config file a
// second time in the worker would be redundant and could race a concurrent
// edit of the file on disk; the acceptor instead serializes the already
// validated Config it loaded once.
const (
	EnvPort             = "STATICD_PORT"
	EnvNumWorkers       = "STATICD_NUM_WORKERS"
	EnvThreadsPerWorker = "STATICD_THREADS_PER_WORKER"
	EnvMaxQueueSize     = "STATICD_MAX_QUEUE_SIZE"
	EnvDocumentRoot     = "STATICD_DOCUMENT_ROOT"
	EnvLogFile          = "STATICD_LOG_FILE"
	EnvCacheSizeMB      = "STATICD_CACHE_SIZE_MB"
	EnvTimeoutSeconds   = "STATICD_TIMEOUT_SECONDS"
)

// Environ renders the Config as a slice of "KEY=VALUE" pairs suitable for
// exec.Cmd.Env, to be appended to os.Environ() when spawning a worker.
func (c Config) Environ() []string {
	return []string{
		fmt.Sprintf("%s=%d", EnvPort, c.Port),
		fmt.Sprintf("%s=%d", EnvNumWorkers, c.NumWorkers),
		fmt.Sprintf("%s=%d", EnvThreadsPerWorker, c.ThreadsPerWorker),
		fmt.Sprintf("%s=%d", EnvMaxQueueSize, c.MaxQueueSize),
		fmt.Sprintf("%s=%s", EnvDocumentRoot, c.DocumentRoot),
		fmt.Sprintf("%s=%s", EnvLogFile, c.LogFile),
		fmt.Sprintf("%s=%d", EnvCacheSizeMB, c.CacheSizeMB),
		fmt.Sprintf("%s=%d", EnvTimeoutSeconds, c.TimeoutSeconds),
	}
}

// FromEnviron reconstructs a Config from the current process environment,
// the inverse of Environ. It does not re-validate against the file on
// disk since none is read.
func FromEnviron() (Config, error) {
	c := Config{
		Port:             atoiEnv(EnvPort),
		NumWorkers:       atoiEnv(EnvNumWorkers),
		ThreadsPerWorker: atoiEnv(EnvThreadsPerWorker),
		MaxQueueSize:     atoiEnv(EnvMaxQueueSize),
		DocumentRoot:     os.Getenv(EnvDocumentRoot),
		LogFile:          os.Getenv(EnvLogFile),
		CacheSizeMB:      atoiEnv(EnvCacheSizeMB),
		TimeoutSeconds:   atoiEnv(EnvTimeoutSeconds),
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func atoiEnv(key string) int {
	v, _ := strconv.Atoi(os.Getenv(key))
	return v
}

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

// Package config loads and validates the server's key=value configuration
// file. Unknown keys are ignored; a missing file is a fatal init error.
package config

import (
	"github.com/magiconair/properties"

	"github.com/nabbar/staticd/internal/apperr"
)

// Config is the immutable, process-wide configuration loaded once at
// startup and shared (by value) between the acceptor and every worker.
type Config struct {
	Port             int    `validate:"min=1,max=65535"`
	NumWorkers       int    `validate:"min=1"`
	ThreadsPerWorker int    `validate:"min=0"`
	MaxQueueSize     int    `validate:"min=2"`
	DocumentRoot     string `validate:"required"`
	LogFile          string `validate:"required"`
	CacheSizeMB      int    `validate:"min=0"`
	TimeoutSeconds   int    `validate:"min=1"`
}

// Default returns the configuration applied for any key absent from the
// loaded file. These defaults only fill gaps; they never override a key
// that is present in the file.
func Default() Config {
	return Config{
		Port:             8080,
		NumWorkers:       4,
		ThreadsPerWorker: 4,
		MaxQueueSize:     64,
		DocumentRoot:     "./www",
		LogFile:          "access.log",
		CacheSizeMB:      16,
		TimeoutSeconds:   30,
	}
}

// Load reads a key=value configuration file. '#' starts a comment, blank
// lines are ignored, and unknown keys are silently ignored -- exactly the
// behavior of the original properties-style loader this format imitates.
// A missing file is returned as a CodeConfigLoad apperr.Error.
func Load(path string) (Config, error) {
	cfg := Default()

	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return Config{}, apperr.New(apperr.CodeConfigLoad, "loading %s", path).AddParent(err)
	}

	cfg.Port = p.GetInt("PORT", cfg.Port)
	cfg.NumWorkers = p.GetInt("NUM_WORKERS", cfg.NumWorkers)
	cfg.ThreadsPerWorker = p.GetInt("THREADS_PER_WORKER", cfg.ThreadsPerWorker)
	cfg.MaxQueueSize = p.GetInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.DocumentRoot = p.GetString("DOCUMENT_ROOT", cfg.DocumentRoot)
	cfg.LogFile = p.GetString("LOG_FILE", cfg.LogFile)
	cfg.CacheSizeMB = p.GetInt("CACHE_SIZE_MB", cfg.CacheSizeMB)
	cfg.TimeoutSeconds = p.GetInt("TIMEOUT_SECONDS", cfg.TimeoutSeconds)

	if err = cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// CacheByteBudget converts the configured megabyte budget into bytes.
func (c Config) CacheByteBudget() int64 {
	return int64(c.CacheSizeMB) * 1024 * 1024
}

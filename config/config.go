package config

import (
	"runtime"
	"time"
)

type (
	Headers struct {
		// MaxSize limits the whole header section, including the request line and the empty
		// line terminating the section. Requests exceeding it are rejected with
		// 431 Request Header Fields Too Large.
		MaxSize int
		// MaxCount is the maximal number of header lines a request may carry.
		MaxCount int
		// Prealloc is the initial capacity of the buffer accumulating the header section.
		Prealloc int
	}

	Body struct {
		// MaxSize describes the maximal declared Content-Length that can be processed.
		// Requests exceeding it are rejected with 413 without reading the body.
		MaxSize uint64
	}

	NET struct {
		// ReadBufferSize is a size of buffer in bytes which will be used to read from
		// socket
		ReadBufferSize int
		// WriteBufferSize is the initial capacity of the buffer the response is serialized into.
		WriteBufferSize int
		// AcceptRetryDelay is the initial pause after a transient accept error. Every
		// consecutive error doubles it, up to AcceptRetryDelayMax.
		AcceptRetryDelay    time.Duration
		AcceptRetryDelayMax time.Duration
	}

	Workers struct {
		// Count is the fixed number of goroutines serving connections. A connection occupies
		// its worker until the response is written, so slow clients reduce the throughput.
		Count int
	}
)

// Config holds settings used across various parts of schnell, mainly restrictions, limitations
// and pre-allocations.
//
// You must ALWAYS modify defaults (returned via Default()) and NEVER try to initialize the
// config manually, because most likely this will result in ambiguous errors.
type Config struct {
	Headers Headers
	Body    Body
	NET     NET
	Workers Workers
}

// Default returns default config.
func Default() *Config {
	return &Config{
		Headers: Headers{
			MaxSize:  8 * 1024,
			MaxCount: 100,
			Prealloc: 1024,
		},
		Body: Body{
			MaxSize: 10 * 1024 * 1024, // 10 megabytes
		},
		NET: NET{
			ReadBufferSize:      4 * 1024,
			WriteBufferSize:     1024,
			AcceptRetryDelay:    5 * time.Millisecond,
			AcceptRetryDelayMax: time.Second,
		},
		Workers: Workers{
			Count: runtime.NumCPU(),
		},
	}
}

// Copyright (c) 2025 The Stakewheel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package api exposes a read-only HTTP surface over the pool.
package api

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/stakewheel/stakewheel/metrics"
	"github.com/stakewheel/stakewheel/pool"
)

// Options of the api router.
type Options struct {
	EnableMetrics bool
}

// New returns the api router.
func New(p *pool.Pool, opts Options) http.HandlerFunc {
	router := mux.NewRouter()

	newPoolAPI(p).Mount(router, "")

	if opts.EnableMetrics {
		if h := metrics.HTTPHandler(); h != nil {
			router.Path("/metrics").Handler(h)
		}
	}

	return handlers.CompressHandler(router).ServeHTTP
}

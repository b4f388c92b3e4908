package main

import (
	"net/http"
	"time"

	"github.com/mcdev12/staffraffle/go/internal/config"
	"github.com/mcdev12/staffraffle/go/internal/raffle/gateway"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func setupServer(cfg config.Config, gw *gateway.Service) *http.Server {
	// Gateway handler already carries CORS; h2c lets HTTP/2 clients talk plaintext.
	return &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     h2c.NewHandler(gw.Handler(), &http2.Server{}),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
}

// Package mcp exposes the emissions engines as Model Context Protocol tools over stdio.
package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"co2-mcs/internal/config"
	"co2-mcs/internal/metrics"
	"co2-mcs/internal/store"
)

// Server holds the state shared by every tool call.
type Server struct {
	cfg     *config.AppConfig
	runs    *store.RunLog
	metrics *metrics.Metrics
	server  *mcp.Server
}

// NewServer creates the MCP server and registers its tools.
func NewServer(cfg *config.AppConfig, runs *store.RunLog, version string) *Server {
	s := &Server{
		cfg:     cfg,
		runs:    runs,
		metrics: metrics.New(),
		server:  mcp.NewServer(&mcp.Implementation{Name: "co2-mcs", Version: version}, nil),
	}
	s.registerTools()
	return s
}

// Start serves tool calls on stdin/stdout until the client disconnects or ctx ends.
func (s *Server) Start(ctx context.Context) error {
	log.Info().Msg("MCP server listening on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

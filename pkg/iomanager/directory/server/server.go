package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/eser/iomanager/pkg/ajan/httpfx"
	"github.com/eser/iomanager/pkg/iomanager/directory"
)

// Server answers the three endpoints directory.Client speaks: a
// partition-scoped registry reachable over /publish, /retract, and
// /getconnection/<partition>[/<session>].
type Server struct {
	store  Store
	logger *slog.Logger
}

// New wires handlers for /publish, /retract and /getconnection/... onto
// routes.
func New(routes *httpfx.Router, store Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{store: store, logger: logger}

	routes.
		Route("POST /publish", s.handlePublish).
		HasSummary("Publish connections").
		HasDescription("Registers or refreshes one or more connection endpoints.")

	routes.
		Route("POST /retract", s.handleRetract).
		HasSummary("Retract connections").
		HasDescription("Removes one or more connection endpoints from the directory.")

	routes.
		Route("POST /getconnection/{partition}", s.handleGetConnection).
		HasSummary("Resolve connections").
		HasPathParameter("partition", "partition name")

	routes.
		Route("POST /getconnection/{partition}/{session}", s.handleGetConnection).
		HasSummary("Resolve connections scoped to a session").
		HasPathParameter("partition", "partition name").
		HasPathParameter("session", "session name")

	return s
}

type publishRequest struct {
	Partition   string                    `json:"partition"`
	Connections []directory.Registration `json:"connections"`
}

func (s *Server) handlePublish(ctx *httpfx.Context) httpfx.Result {
	var req publishRequest

	if err := decodeJSON(ctx.Request, &req); err != nil {
		return ctx.Results.BadRequest(httpfx.WithPlainText(err.Error()))
	}

	now := time.Now()
	entries := make([]Entry, 0, len(req.Connections))

	for _, reg := range req.Connections {
		entries = append(entries, Entry{
			Partition:    req.Partition,
			Session:      "",
			UID:          reg.UID,
			DataType:     reg.DataType,
			URI:          reg.URI,
			Kind:         reg.Kind,
			RegisteredAt: now,
		})
	}

	if err := s.store.Publish(ctx.Request.Context(), entries); err != nil {
		s.logger.ErrorContext(ctx.Request.Context(), "directory publish failed", slog.Any("error", err))

		return ctx.Results.Error(http.StatusInternalServerError, httpfx.WithPlainText(err.Error()))
	}

	return ctx.Results.Ok()
}

type retractRequest struct {
	Partition   string `json:"partition"`
	Connections []struct {
		UID      string `json:"connection_id"`
		DataType string `json:"data_type"`
	} `json:"connections"`
}

func (s *Server) handleRetract(ctx *httpfx.Context) httpfx.Result {
	var req retractRequest

	if err := decodeJSON(ctx.Request, &req); err != nil {
		return ctx.Results.BadRequest(httpfx.WithPlainText(err.Error()))
	}

	uids := make([]UIDDataType, 0, len(req.Connections))
	for _, c := range req.Connections {
		uids = append(uids, UIDDataType{UID: c.UID, DataType: c.DataType})
	}

	if err := s.store.Retract(ctx.Request.Context(), req.Partition, uids); err != nil {
		s.logger.ErrorContext(ctx.Request.Context(), "directory retract failed", slog.Any("error", err))

		return ctx.Results.Error(http.StatusInternalServerError, httpfx.WithPlainText(err.Error()))
	}

	return ctx.Results.Ok()
}

func (s *Server) handleGetConnection(ctx *httpfx.Context) httpfx.Result {
	partition := ctx.Request.PathValue("partition")
	session := ctx.Request.PathValue("session")

	var req directory.Request

	if err := decodeJSON(ctx.Request, &req); err != nil {
		return ctx.Results.BadRequest(httpfx.WithPlainText(err.Error()))
	}

	entries, err := s.store.Query(ctx.Request.Context(), partition, session, req.UIDRegex, req.DataType)
	if err != nil {
		s.logger.ErrorContext(ctx.Request.Context(), "directory query failed", slog.Any("error", err))

		return ctx.Results.Error(http.StatusInternalServerError, httpfx.WithPlainText(err.Error()))
	}

	infos := make([]directory.Info, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, directory.Info{UID: e.UID, DataType: e.DataType, URI: e.URI, Kind: e.Kind})
	}

	return ctx.Results.JSON(infos)
}

func decodeJSON(r *http.Request, out any) error {
	defer r.Body.Close()

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}

	if len(data) == 0 {
		return nil
	}

	return json.Unmarshal(data, out)
}

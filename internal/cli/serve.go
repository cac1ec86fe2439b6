package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bitfsorg/libmarket-go/events"
	"github.com/bitfsorg/libmarket-go/storage"
)

const shutdownTimeout = 5 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve metrics and a read-only HTTP API",
		Long: `Serve Prometheus metrics on /metrics and read-only JSON views of the
routing table, listings, requests, offers, fee configuration and events until
interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNode(rootOpts, false, func(n *node) error {
				n.bus.AddListener(events.All, func(e storage.Event) {
					zap.L().Info("event", zap.String("name", e.Name), zap.Uint64("version", e.StateVersion))
				})
				srv := &http.Server{
					Addr:              rootOpts.cfg.ListenAddr,
					Handler:           newRouter(n, rootOpts.Decimals),
					ReadHeaderTimeout: 10 * time.Second,
				}
				return serve(cmd.Context(), srv)
			})
		},
	}
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	zap.L().Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// newRouter builds the HTTP routes over an opened node.
func newRouter(n *node, decimals int32) http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", n.metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "network": n.network, "version": n.d.Version()})
	}).Methods(http.MethodGet)

	r.HandleFunc("/facets", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, facetViews(n.d.Facets()))
	}).Methods(http.MethodGet)

	r.HandleFunc("/listings/{kind}/{collection}/{item}/{index}", func(w http.ResponseWriter, req *http.Request) {
		v := mux.Vars(req)
		kind, err := parseListingKind(v["kind"])
		if err != nil {
			writeError(w, err)
			return
		}
		slot, err := parseSlot([]string{v["collection"], v["item"], v["index"]})
		if err != nil {
			writeError(w, err)
			return
		}
		l, err := n.client.GetListing(req.Context(), kind, slot)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, listingView(l, decimals))
	}).Methods(http.MethodGet)

	r.HandleFunc("/requests/{kind}/{collection}/{item}/{index}", func(w http.ResponseWriter, req *http.Request) {
		v := mux.Vars(req)
		kind, err := parseRequestKind(v["kind"])
		if err != nil {
			writeError(w, err)
			return
		}
		slot, err := parseSlot([]string{v["collection"], v["item"], v["index"]})
		if err != nil {
			writeError(w, err)
			return
		}
		rq, err := n.client.GetRequest(req.Context(), kind, slot)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, requestView(rq, decimals))
	}).Methods(http.MethodGet)

	r.HandleFunc("/offers/{requester}/{counterparty}/{index}", func(w http.ResponseWriter, req *http.Request) {
		v := mux.Vars(req)
		requester, err := parseAddress(v["requester"])
		if err != nil {
			writeError(w, err)
			return
		}
		counterparty, err := parseAddress(v["counterparty"])
		if err != nil {
			writeError(w, err)
			return
		}
		index, err := strconv.ParseUint(v["index"], 10, 64)
		if err != nil {
			writeError(w, err)
			return
		}
		o, err := n.client.GetOffer(req.Context(), requester, counterparty, index)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, offerView(o, decimals))
	}).Methods(http.MethodGet)

	r.HandleFunc("/fees/{collection}", func(w http.ResponseWriter, req *http.Request) {
		collection, err := parseAddress(mux.Vars(req)["collection"])
		if err != nil {
			writeError(w, err)
			return
		}
		cfg, err := n.client.GetCollectionFees(req.Context(), collection)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, feeView(cfg))
	}).Methods(http.MethodGet)

	r.HandleFunc("/events", func(w http.ResponseWriter, req *http.Request) {
		var from uint64
		if s := req.URL.Query().Get("from"); s != "" {
			v, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				writeError(w, err)
				return
			}
			from = v
		}
		evts, err := n.store.Events(from)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, filterEvents(evts, req.URL.Query().Get("name")))
	}).Methods(http.MethodGet)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

// writeError maps not-found lookups to 404 and everything else to 400.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, storage.ErrNotFound) {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

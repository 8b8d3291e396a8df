package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/toolgate/auth"
	"github.com/jonwraymond/toolgate/gate"
	"github.com/jonwraymond/toolgate/jsonrpc"
	"github.com/jonwraymond/toolgate/observe"
	"golang.org/x/time/rate"
)

// Defaults for Options.
const (
	DefaultMaxInFlight  = 256
	DefaultMaxBodyBytes = 1 << 20
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// Denial messages.
const (
	MsgPermissionDenied = "permission denied"
	MsgRateLimited      = "rate limited"
	MsgDenied           = "request denied"
	MsgServerBusy       = "server busy"
)

// IdentityFunc extracts the caller's identity from a request.
type IdentityFunc func(r *http.Request) (*auth.Identity, error)

// ContextIdentity reads the identity an upstream middleware stored in the
// request context.
func ContextIdentity(r *http.Request) (*auth.Identity, error) {
	id := auth.IdentityFromContext(r.Context())
	if !id.Valid() {
		return nil, auth.ErrMissingIdentity
	}
	return id, nil
}

// Options configures a Handler.
type Options struct {
	// Identity extracts the caller.
	// Default: ContextIdentity
	Identity IdentityFunc

	// OpaqueDenials reports every denial as CodeDenied without a reason.
	OpaqueDenials bool

	// MaxInFlight caps concurrently handled requests.
	// Default: DefaultMaxInFlight
	MaxInFlight int

	// MaxWait is how long a request waits for a free slot.
	// Default: 0 (reject immediately)
	MaxWait time.Duration

	// Rate caps admitted requests per second across the process. Zero
	// disables the cap.
	Rate float64

	// Burst is the token bucket size for Rate.
	// Default: MaxInFlight
	Burst int

	// MaxBodyBytes bounds the request body.
	// Default: DefaultMaxBodyBytes
	MaxBodyBytes int64

	// Logger receives faults and denials.
	// Default: observe.NopLogger()
	Logger observe.Logger
}

// DenialData is the error data of a visible denial.
type DenialData struct {
	Reason    gate.Reason `json:"reason"`
	Remaining *int        `json:"remaining,omitempty"`
}

// Handler is the JSON-RPC entry point.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: every failure is answered as a JSON-RPC error; only a wrong
// HTTP method yields a non-200 status.
type Handler struct {
	check     gate.CheckFunc
	forwarder Forwarder
	opts      Options
	bulkhead  *bulkhead
	rate      *rate.Limiter
}

// NewHandler builds a Handler that checks tool calls with check and relays
// admitted requests through forwarder.
func NewHandler(check gate.CheckFunc, forwarder Forwarder, opts Options) *Handler {
	if opts.Identity == nil {
		opts.Identity = ContextIdentity
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = DefaultMaxInFlight
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Logger == nil {
		opts.Logger = observe.NopLogger()
	}
	h := &Handler{
		check:     check,
		forwarder: forwarder,
		opts:      opts,
		bulkhead:  newBulkhead(opts.MaxInFlight, opts.MaxWait),
	}
	if opts.Rate > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = opts.MaxInFlight
		}
		h.rate = rate.NewLimiter(rate.Limit(opts.Rate), burst)
	}
	return h
}

// Stats returns the in-flight counters.
func (h *Handler) Stats() Stats {
	return h.bulkhead.stats()
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reqID := r.Header.Get(RequestIDHeader)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, reqID)
	ctx := WithRequestID(r.Context(), reqID)
	rid := observe.Field{Key: "request.id", Value: reqID}

	if h.rate != nil && !h.rate.Allow() {
		h.bulkhead.reject()
		h.opts.Logger.Warn(ctx, "request rejected", rid, observe.Field{Key: "error", Value: ErrBusy})
		writeResponse(w, jsonrpc.NewError(jsonrpc.NullID, jsonrpc.CodeInternalError, MsgServerBusy, nil))
		return
	}
	if err := h.bulkhead.acquire(ctx); err != nil {
		h.opts.Logger.Warn(ctx, "request rejected", rid, observe.Field{Key: "error", Value: err})
		writeResponse(w, jsonrpc.NewError(jsonrpc.NullID, jsonrpc.CodeInternalError, MsgServerBusy, nil))
		return
	}
	defer h.bulkhead.release()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeResponse(w, jsonrpc.NewError(jsonrpc.NullID, jsonrpc.CodeInvalidRequest, jsonrpc.MsgInvalidRequest, "request body too large"))
			return
		}
		writeResponse(w, jsonrpc.NewError(jsonrpc.NullID, jsonrpc.CodeParseError, jsonrpc.MsgParseError, nil))
		return
	}

	req, perr := jsonrpc.ParseRequest(body)
	if perr != nil {
		id := req.ResponseID()
		if perr.Code == jsonrpc.CodeParseError {
			id = jsonrpc.NullID
		}
		writeResponse(w, jsonrpc.NewError(id, perr.Code, perr.Message, perr.Data))
		return
	}

	if req.Method != jsonrpc.MethodToolsCall {
		h.forward(ctx, w, req, body, rid)
		return
	}

	params, perr := jsonrpc.ParseToolCall(req.Params)
	if perr != nil {
		h.reply(w, req, jsonrpc.NewError(req.ResponseID(), perr.Code, perr.Message, perr.Data))
		return
	}

	id, err := h.opts.Identity(r)
	if err != nil {
		h.opts.Logger.Info(ctx, "call without identity", rid,
			observe.Field{Key: "tool.name", Value: params.Name},
			observe.Field{Key: "error", Value: err},
		)
		h.reply(w, req, h.denial(req, gate.Decision{Reason: gate.ReasonPermissionDenied}))
		return
	}

	call := gate.Call{TenantID: id.TenantID, UserID: id.Principal, Tool: params.Name}
	decision, err := h.check(ctx, call)
	if err != nil {
		h.opts.Logger.WithCall(observe.MetaFromCall(call)).Error(ctx, "check failed", rid, observe.Field{Key: "error", Value: err})
		h.reply(w, req, internalError(req))
		return
	}
	if !decision.Allowed {
		h.reply(w, req, h.denial(req, decision))
		return
	}

	h.forward(ctx, w, req, body, rid)
}

func (h *Handler) forward(ctx context.Context, w http.ResponseWriter, req *jsonrpc.Request, body []byte, rid observe.Field) {
	out, err := h.forwarder.Forward(ctx, req, body)
	if err != nil {
		h.opts.Logger.Error(ctx, "forward failed", rid,
			observe.Field{Key: "method", Value: req.Method},
			observe.Field{Key: "error", Value: err},
		)
		h.reply(w, req, internalError(req))
		return
	}
	if len(out) == 0 {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// reply writes resp, or only an acknowledgement for a notification.
func (h *Handler) reply(w http.ResponseWriter, req *jsonrpc.Request, resp *jsonrpc.Response) {
	if req.IsNotification() {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	writeResponse(w, resp)
}

func (h *Handler) denial(req *jsonrpc.Request, d gate.Decision) *jsonrpc.Response {
	if h.opts.OpaqueDenials {
		return jsonrpc.NewError(req.ResponseID(), jsonrpc.CodeDenied, MsgDenied, nil)
	}
	switch d.Reason {
	case gate.ReasonRateLimited:
		remaining := d.RemainingOr(0)
		return jsonrpc.NewError(req.ResponseID(), jsonrpc.CodeRateLimited, MsgRateLimited,
			DenialData{Reason: d.Reason, Remaining: &remaining})
	default:
		return jsonrpc.NewError(req.ResponseID(), jsonrpc.CodePermissionDenied, MsgPermissionDenied,
			DenialData{Reason: gate.ReasonPermissionDenied})
	}
}

func internalError(req *jsonrpc.Request) *jsonrpc.Response {
	return jsonrpc.NewError(req.ResponseID(), jsonrpc.CodeInternalError, jsonrpc.MsgInternalError, nil)
}

func writeResponse(w http.ResponseWriter, resp *jsonrpc.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

var _ http.Handler = (*Handler)(nil)

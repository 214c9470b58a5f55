package httpapi

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"lojadash/backend/internal/analytics"
	"lojadash/backend/internal/domain"
	"lojadash/backend/internal/ingest"
	"lojadash/backend/internal/service"
	"lojadash/backend/internal/store"
)

const defaultMaxUploadBytes = 20 << 20

type API struct {
	service        *service.Service
	auth           *TokenVerifier
	allowedOrigin  string
	importLimiter  *attemptLimiter
	maxUploadBytes int64
}

func New(svc *service.Service, auth *TokenVerifier, allowedOrigin string, maxUploadBytes int64) *API {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &API{
		service:        svc,
		auth:           auth,
		allowedOrigin:  allowedOrigin,
		importLimiter:  newAttemptLimiter(10, time.Minute),
		maxUploadBytes: maxUploadBytes,
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)

	mux.HandleFunc("/api/v1/snapshots", a.handleSnapshots)
	mux.HandleFunc("/api/v1/snapshots/current", a.handleCurrentSnapshot)
	mux.HandleFunc("/api/v1/snapshots/import", a.requireAuth(a.handleImport, "admin", "editor"))

	mux.HandleFunc("/api/v1/metrics", a.handleMetrics)
	mux.HandleFunc("/api/v1/customers", a.handleCustomers)
	mux.HandleFunc("/api/v1/catalog", a.handleCatalog)

	return a.withMiddleware(mux)
}

// requireAuth only guards a route when a token secret is configured.
func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.auth == nil {
			next(w, r)
			return
		}

		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 20, 200)
	snapshots, err := a.service.ListSnapshots(r.Context(), limit)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": snapshots})
}

func (a *API) handleCurrentSnapshot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		snapshot, err := a.service.CurrentSnapshot(r.Context())
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
	case http.MethodPut:
		a.requireAuth(a.replaceSnapshot, "admin", "editor")(w, r)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) replaceSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := ingest.DecodeSnapshot(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	saved, err := a.service.ReplaceSnapshot(r.Context(), snapshot)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshot": saved.Info()})
}

func (a *API) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.importLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many imports"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, status, fmt.Errorf("invalid upload: %w", err))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("multipart field \"file\" required"))
		return
	}
	defer file.Close()

	report, err := a.service.ImportWorkbook(r.Context(), file, header.Filename)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func (a *API) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	metrics, err := a.service.Metrics(r.Context(), parseSelection(r))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "csv") {
		payload, err := metricsToCSV(metrics)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", "attachment; filename=\"metrics.csv\"")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
		return
	}

	writeJSON(w, http.StatusOK, metrics)
}

func (a *API) handleCustomers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	customers, err := a.service.Customers(r.Context(), parseSelection(r))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
}

func (a *API) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	catalog, err := a.service.Catalog(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products_catalog": catalog})
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
}

// parseSelection reads year, month and days. Days may be comma separated or
// repeated (?days=01,02 or ?day=01&day=02).
func parseSelection(r *http.Request) domain.FilterSelection {
	q := r.URL.Query()
	sel := domain.FilterSelection{
		Year:  strings.TrimSpace(q.Get("year")),
		Month: strings.TrimSpace(q.Get("month")),
	}
	raw := make([]string, 0, len(q["days"])+len(q["day"]))
	raw = append(raw, q["days"]...)
	raw = append(raw, q["day"]...)
	for _, value := range raw {
		for _, day := range strings.Split(value, ",") {
			if day = strings.TrimSpace(day); day != "" {
				sel.Days = append(sel.Days, day)
			}
		}
	}
	return sel
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, analytics.ErrInvalidSelection):
		return http.StatusBadRequest
	case errors.Is(err, ingest.ErrNoOrderSheet), errors.Is(err, ingest.ErrInvalidWorkbook):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrInvalidSnapshot):
		return http.StatusConflict
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func metricsToCSV(m domain.Metrics) ([]byte, error) {
	var buf strings.Builder
	cw := csv.NewWriter(&buf)

	rows := [][]string{
		{"section", "key", "value", "count"},
		{"summary", "snapshot_version", strconv.FormatInt(m.SnapshotVersion, 10), ""},
		{"summary", "total_revenue", m.TotalRevenue.StringFixed(2), strconv.Itoa(m.OrderCount)},
		{"summary", "total_profit", m.TotalProfit.StringFixed(2), ""},
		{"summary", "avg_ticket", m.AvgTicket.StringFixed(2), ""},
		{"summary", "is_filtered", strconv.FormatBool(m.IsFiltered), ""},
	}
	for _, c := range m.TopCustomers {
		rows = append(rows, []string{"top_customer", c.Name, c.Revenue.StringFixed(2), strconv.Itoa(c.Orders)})
	}
	for _, p := range m.TopProducts {
		rows = append(rows, []string{"top_product", p.Reference, p.Revenue.StringFixed(2), strconv.Itoa(p.Quantity)})
	}
	for _, l := range m.SalesByLocation {
		rows = append(rows, []string{"location", l.Location, l.Revenue.StringFixed(2), strconv.Itoa(l.Orders)})
	}
	for _, d := range m.SalesByDayOfWeek {
		rows = append(rows, []string{"weekday", d.Day, d.Revenue.StringFixed(2), strconv.Itoa(d.Orders)})
	}
	for _, p := range m.PaymentMethodData {
		rows = append(rows, []string{"payment", p.Method, p.Revenue.StringFixed(2), strconv.Itoa(p.Count)})
	}
	for _, d := range m.SalesByDate {
		rows = append(rows, []string{"date", d.Date, d.Revenue.StringFixed(2), strconv.Itoa(d.Count)})
	}
	rows = append(rows, []string{"shipping", "total", m.ShippingMetrics.TotalShippingRevenue.StringFixed(2), strconv.Itoa(m.ShippingMetrics.ShippingCount)})

	if err := cw.WriteAll(rows); err != nil {
		return nil, err
	}
	return []byte(buf.String()), nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx messages are masked; 4xx messages are meant for the caller.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

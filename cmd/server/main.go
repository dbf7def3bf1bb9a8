package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/autoworth/autoworth/internal/config"
	"github.com/autoworth/autoworth/internal/db"
	"github.com/autoworth/autoworth/internal/market"
	"github.com/autoworth/autoworth/internal/migrations"
	"github.com/autoworth/autoworth/internal/pipeline"
	"github.com/autoworth/autoworth/internal/seed"
	"github.com/autoworth/autoworth/internal/valuation"
)

type server struct {
	db     *sql.DB
	store  *market.Store
	engine *valuation.Engine
	runner *pipeline.Runner
	logger *slog.Logger
}

func main() {
	cfg := config.Load()
	logger := newLogger(cfg.LogFormat)
	slog.SetDefault(logger)

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if cfg.IsDev() {
		if err := migrations.Up(database, "migrations"); err != nil {
			logger.Error("failed to run database migrations", "error", err)
			os.Exit(1)
		}
	}

	stats, err := seed.Run(database)
	if err != nil {
		logger.Error("failed to seed lookup tables", "error", err)
		os.Exit(1)
	}
	if stats.Inserts > 0 {
		logger.Info("seeded lookup tables", "inserts", stats.Inserts)
	}

	store := market.NewStore(database)
	engine := valuation.NewEngine(store, valuation.StaticBasePrice(cfg.DefaultBasePrice), logger)

	runner := newRunner(cfg, database, engine, logger)

	srv := &server{
		db:     database,
		store:  store,
		engine: engine,
		runner: runner,
		logger: logger,
	}

	addr := ":" + cfg.Port
	logger.Info("listening", "addr", addr)
	if err := http.ListenAndServe(addr, srv.routes()); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/api/valuations", s.handleCreateValuation)
	r.Get("/api/valuations", s.handleListValuations)
	r.Get("/api/market/multiplier", s.handleMarketMultiplier)
	r.Post("/api/pipeline/valuations", s.handlePipelineValuation)
	r.Get("/api/admin/multipliers", s.handleListMultipliers)
	r.Post("/api/admin/multipliers", s.handleUpsertMultiplier)
	r.Post("/api/admin/multipliers/{zip}", s.handleUpdateMultiplier)
	r.Get("/api/admin/trims", s.handleListTrims)
	r.Post("/api/admin/trims", s.handleUpsertTrim)
	r.Get("/api/admin/features", s.handleListFeatures)
	r.Post("/api/admin/features", s.handleUpsertFeature)
	return r
}

// newLogger builds the process logger; format is "json" or "text".
func newLogger(format string) *slog.Logger {
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, nil)
	} else {
		handler = slog.NewTextHandler(os.Stdout, nil)
	}
	return slog.New(handler)
}

// newRunner wires the pipeline with whatever external collaborators are
// configured. Without a decoder URL the pipeline endpoint reports itself
// unavailable.
func newRunner(cfg config.Config, database *sql.DB, engine *valuation.Engine, logger *slog.Logger) *pipeline.Runner {
	if cfg.VINDecoderURL == "" {
		return nil
	}

	var enricher pipeline.Enricher
	if cfg.EnrichmentURL != "" {
		enricher = newEnrichmentClient(cfg.EnrichmentURL)
	}
	var comps pipeline.CompAggregator
	if cfg.ListingsURL != "" {
		comps = newListingsClient(cfg.ListingsURL)
	}

	runner := pipeline.NewRunner(
		newDecoderClient(cfg.VINDecoderURL),
		enricher,
		comps,
		engine,
		pipeline.NewCache(database),
		logger,
	)
	runner.MaxAge = time.Duration(cfg.CacheMaxAgeHours) * time.Hour
	return runner
}

// valuationRequest is the JSON body of POST /api/valuations.
type valuationRequest struct {
	VIN              string   `json:"vin"`
	Make             string   `json:"make"`
	Model            string   `json:"model"`
	Year             int      `json:"year"`
	Mileage          int      `json:"mileage"`
	Condition        string   `json:"condition"`
	ZIPCode          string   `json:"zipCode"`
	Trim             string   `json:"trim"`
	FuelType         string   `json:"fuelType"`
	Transmission     string   `json:"transmission"`
	BodyStyle        string   `json:"bodyStyle"`
	Color            string   `json:"color"`
	AccidentCount    int      `json:"accidentCount"`
	FrameDamage      bool     `json:"frameDamage"`
	MajorAccident    bool     `json:"majorAccident"`
	TitleStatus      string   `json:"titleStatus"`
	TitleBand        int      `json:"titleBand"`
	Features         []string `json:"premiumFeatures"`
	Warranty         string   `json:"warranty"`
	OpenRecall       bool     `json:"openRecall"`
	RecallRisk       string   `json:"recallRisk"`
	RecallResolved   bool     `json:"recallResolved"`
	AIConditionScore float64  `json:"aiConditionScore"`
	DrivingScore     int      `json:"drivingScore"`
	BasePrice        float64  `json:"basePrice"`
}

func (req valuationRequest) toInput() valuation.Input {
	return valuation.Input{
		VIN:              strings.TrimSpace(req.VIN),
		Make:             strings.TrimSpace(req.Make),
		Model:            strings.TrimSpace(req.Model),
		Year:             req.Year,
		Mileage:          req.Mileage,
		Condition:        valuation.NormalizeCondition(req.Condition),
		ZIPCode:          strings.TrimSpace(req.ZIPCode),
		Trim:             strings.TrimSpace(req.Trim),
		FuelType:         valuation.NormalizeFuelType(req.FuelType),
		Transmission:     req.Transmission,
		BodyStyle:        valuation.NormalizeBodyStyle(req.BodyStyle),
		Color:            req.Color,
		AccidentCount:    req.AccidentCount,
		FrameDamage:      req.FrameDamage,
		MajorAccident:    req.MajorAccident,
		TitleStatus:      valuation.NormalizeTitleStatus(req.TitleStatus),
		TitleBand:        req.TitleBand,
		Features:         req.Features,
		Warranty:         valuation.NormalizeWarranty(req.Warranty),
		OpenRecall:       req.OpenRecall,
		RecallRisk:       valuation.RecallRisk(strings.ToLower(strings.TrimSpace(req.RecallRisk))),
		RecallResolved:   req.RecallResolved,
		AIConditionScore: req.AIConditionScore,
		DrivingScore:     req.DrivingScore,
		BasePrice:        req.BasePrice,
	}
}

func (s *server) handleCreateValuation(w http.ResponseWriter, r *http.Request) {
	var req valuationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	in := req.toInput()
	result, err := s.engine.Valuate(r.Context(), in)
	if err != nil {
		var verr *valuation.ValidationError
		if errors.As(err, &verr) {
			respondError(w, http.StatusBadRequest, verr.Error())
			return
		}
		s.logger.Error("valuation failed", "error", err)
		respondError(w, http.StatusInternalServerError, "valuation failed")
		return
	}

	if err := s.insertValuation(r, in, result); err != nil {
		// History is best-effort; the valuation itself succeeded.
		s.logger.Warn("failed to persist valuation history", "error", err)
	}

	respondJSON(w, http.StatusOK, result)
}

type valuationListItem struct {
	CreatedAt      string  `json:"createdAt"`
	VIN            string  `json:"vin,omitempty"`
	Make           string  `json:"make"`
	Model          string  `json:"model"`
	Year           int     `json:"year"`
	EstimatedValue float64 `json:"estimatedValue"`
}

func (s *server) handleListValuations(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	items, err := s.listValuations(query)
	if err != nil {
		s.logger.Error("failed to list valuations", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load valuations")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"valuations": items})
}

func (s *server) handleMarketMultiplier(w http.ResponseWriter, r *http.Request) {
	zip := strings.TrimSpace(r.URL.Query().Get("zip"))
	if zip == "" {
		respondError(w, http.StatusBadRequest, "zip is required")
		return
	}

	percent, err := s.store.Multiplier(r.Context(), zip)
	if err != nil {
		// Degrade to neutral rather than failing the caller.
		s.logger.Warn("market multiplier lookup failed", "zip", zip, "error", err)
		percent = 0
	}
	respondJSON(w, http.StatusOK, map[string]any{"zip": zip, "percent": percent})
}

func (s *server) handlePipelineValuation(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		respondError(w, http.StatusServiceUnavailable, "pipeline is not configured")
		return
	}

	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// Stage failures are reported inside the outcome, not as HTTP errors.
	outcome := s.runner.Run(r.Context(), req)
	respondJSON(w, http.StatusOK, outcome)
}

func (s *server) handleListMultipliers(w http.ResponseWriter, r *http.Request) {
	multipliers, err := s.store.ListMultipliers(r.Context())
	if err != nil {
		s.logger.Error("failed to list multipliers", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load multipliers")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"multipliers": multipliers})
}

func (s *server) handleUpsertMultiplier(w http.ResponseWriter, r *http.Request) {
	var m market.Multiplier
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	m.ZIP = strings.TrimSpace(m.ZIP)
	if !validZIP(m.ZIP) {
		respondError(w, http.StatusBadRequest, "zip must be a 5-digit ZIP code")
		return
	}

	if err := s.store.UpsertMultiplier(r.Context(), m); err != nil {
		s.logger.Error("failed to upsert multiplier", "zip", m.ZIP, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save multiplier")
		return
	}
	respondJSON(w, http.StatusOK, m)
}

// handleUpdateMultiplier is the path-addressed variant used by the admin UI;
// the zip comes from the URL and the body carries the new values.
func (s *server) handleUpdateMultiplier(w http.ResponseWriter, r *http.Request) {
	zip := chi.URLParam(r, "zip")
	if !validZIP(zip) {
		respondError(w, http.StatusBadRequest, "zip must be a 5-digit ZIP code")
		return
	}

	var m market.Multiplier
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	m.ZIP = zip

	if err := s.store.UpsertMultiplier(r.Context(), m); err != nil {
		s.logger.Error("failed to update multiplier", "zip", zip, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save multiplier")
		return
	}
	respondJSON(w, http.StatusOK, m)
}

func (s *server) handleListTrims(w http.ResponseWriter, r *http.Request) {
	trims, err := s.store.ListTrims(r.Context())
	if err != nil {
		s.logger.Error("failed to list trims", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load trims")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"trims": trims})
}

func (s *server) handleUpsertTrim(w http.ResponseWriter, r *http.Request) {
	var t market.TrimRow
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if t.Make == "" || t.Model == "" || t.Trim == "" {
		respondError(w, http.StatusBadRequest, "make, model, and trim are required")
		return
	}

	if err := s.store.UpsertTrim(r.Context(), t); err != nil {
		s.logger.Error("failed to upsert trim", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save trim")
		return
	}
	respondJSON(w, http.StatusOK, t)
}

func (s *server) handleListFeatures(w http.ResponseWriter, r *http.Request) {
	features, err := s.store.ListFeatures(r.Context())
	if err != nil {
		s.logger.Error("failed to list features", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load features")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"features": features})
}

func (s *server) handleUpsertFeature(w http.ResponseWriter, r *http.Request) {
	var f market.Feature
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	f.ID = strings.ToLower(strings.TrimSpace(f.ID))
	if f.ID == "" || f.Name == "" {
		respondError(w, http.StatusBadRequest, "id and name are required")
		return
	}

	if err := s.store.UpsertFeature(r.Context(), f); err != nil {
		s.logger.Error("failed to upsert feature", "id", f.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save feature")
		return
	}
	respondJSON(w, http.StatusOK, f)
}

func (s *server) insertValuation(r *http.Request, in valuation.Input, result valuation.Result) error {
	inputJSON, err := json.Marshal(in)
	if err != nil {
		return err
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(r.Context(), `
		INSERT INTO valuations (vin, make, model, year, input_json, result_json, estimated_value)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, in.VIN, in.Make, in.Model, in.Year, string(inputJSON), string(resultJSON), result.EstimatedValue)
	return err
}

func (s *server) listValuations(query string) ([]valuationListItem, error) {
	search := "%" + query + "%"
	rows, err := s.db.Query(`
		SELECT
			created_at,
			COALESCE(vin, ''),
			COALESCE(make, ''),
			COALESCE(model, ''),
			COALESCE(year, 0),
			estimated_value
		FROM valuations
		WHERE (? = '' OR COALESCE(make, '') LIKE ? OR COALESCE(model, '') LIKE ? OR COALESCE(vin, '') LIKE ?)
		ORDER BY datetime(created_at) DESC, id DESC
	`, query, search, search, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]valuationListItem, 0)
	for rows.Next() {
		var item valuationListItem
		if err := rows.Scan(&item.CreatedAt, &item.VIN, &item.Make, &item.Model, &item.Year, &item.EstimatedValue); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func validZIP(zip string) bool {
	if len(zip) != 5 {
		return false
	}
	for _, r := range zip {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

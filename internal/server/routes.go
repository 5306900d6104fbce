package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/markerlab/markerlab/internal/derive"
	"github.com/markerlab/markerlab/internal/dispatcher"
	"github.com/markerlab/markerlab/internal/review"
	"github.com/markerlab/markerlab/internal/worker"
	"github.com/markerlab/markerlab/pkg/core"
)

func NewRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Route("/scenes/{sceneID}", func(r chi.Router) {
		r.Get("/swimlanes", swimlanesHandler(cfg))

		r.Get("/shot-boundaries", listShotBoundariesHandler(cfg))
		r.Post("/shot-boundaries", addShotBoundaryHandler(cfg))
		r.Delete("/shot-boundaries", removeShotBoundaryHandler(cfg))

		r.Get("/derivations", analyzeHandler(cfg))
		r.Post("/derivations", materializeHandler(cfg))

		r.Get("/markers/{markerID}/slot-suggestions", slotSuggestionsHandler(cfg))
		r.Put("/markers/{markerID}/slots", assignSlotsHandler(cfg))

		r.Post("/review", reviewHandler(cfg))
		if cfg.Dispatcher != nil {
			r.Post("/keys", keyHandler(cfg))
		}
	})

	r.Get("/derivation-rules", listRulesHandler(cfg))
	r.Post("/derivation-rules", saveRuleHandler(cfg))
	r.Delete("/derivation-rules/{id}", deleteRuleHandler(cfg))

	r.Get("/slot-definitions/{tagID}", getSlotSetHandler(cfg))
	r.Put("/slot-definitions/{tagID}", saveSlotSetHandler(cfg))

	return r
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return false
	}
	return true
}

func healthHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:  "ok",
			Stash:   "unknown",
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		}
		if cfg.Health != nil {
			if err := cfg.Health(r.Context()); err != nil {
				resp.Status = "degraded"
				resp.Stash = err.Error()
			} else {
				resp.Stash = "ok"
			}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// viewFromQuery reads the optional zoom, containerWidth and labelWidth parameters.
func viewFromQuery(r *http.Request) (*worker.View, error) {
	q := r.URL.Query()
	if q.Get("containerWidth") == "" && q.Get("zoom") == "" {
		return nil, nil
	}
	view := &worker.View{Zoom: 1}
	for name, dst := range map[string]*float64{
		"zoom":           &view.Zoom,
		"containerWidth": &view.ContainerWidth,
		"labelWidth":     &view.LabelWidth,
	} {
		if s := q.Get(name); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, errors.New("bad " + name)
			}
			*dst = v
		}
	}
	return view, nil
}

func swimlanesHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := viewFromQuery(r)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		lanes, err := cfg.Service.SceneSwimlanes(r.Context(), chi.URLParam(r, "sceneID"), view)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, lanes)
	}
}

func listShotBoundariesHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bs, err := cfg.Service.ShotBoundaries(r.Context(), chi.URLParam(r, "sceneID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, ShotBoundariesResponse{Boundaries: boundariesToResponse(bs)})
	}
}

func addShotBoundaryHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlayheadRequest
		if !decode(w, r, &req) {
			return
		}
		res, err := cfg.Service.AddShotBoundary(r.Context(), chi.URLParam(r, "sceneID"), req.Time, req.Duration)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, shotResultToResponse(res))
	}
}

func removeShotBoundaryHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlayheadRequest
		if !decode(w, r, &req) {
			return
		}
		res, err := cfg.Service.RemoveShotBoundary(r.Context(), chi.URLParam(r, "sceneID"), req.Time, req.Duration)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, shotResultToResponse(res))
	}
}

func analyzeHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := cfg.Service.AnalyzeScene(r.Context(), chi.URLParam(r, "sceneID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, analysisToResponse(a))
	}
}

func materializeHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := cfg.Service.MaterializeScene(r.Context(), chi.URLParam(r, "sceneID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, MaterializeResponse{
			Analysis: analysisToResponse(res.Analysis),
			Created:  markersToResponse(res.Created),
		})
	}
}

func slotSuggestionsHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := cfg.Service.SuggestSlots(r.Context(), chi.URLParam(r, "sceneID"), chi.URLParam(r, "markerID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, suggestionsToResponse(s))
	}
}

func assignSlotsHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AssignSlotsRequest
		if !decode(w, r, &req) {
			return
		}
		err := cfg.Service.AssignSlots(r.Context(), chi.URLParam(r, "sceneID"), chi.URLParam(r, "markerID"), slotsFromPayload(req.Assignments))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func reviewHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReviewRequest
		if !decode(w, r, &req) {
			return
		}
		kind, ok := review.ParseKind(req.Command)
		if !ok {
			WriteError(w, http.StatusBadRequest, "unknown command: "+req.Command, "BAD_REQUEST")
			return
		}
		res, err := cfg.Service.ApplyReview(r.Context(), chi.URLParam(r, "sceneID"), req.SelectedID, review.Command{Kind: kind, Time: req.Time})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, reviewToResponse(res))
	}
}

// keyHandler runs whatever command the pressed key is bound to.
func keyHandler(cfg Config) http.HandlerFunc {
	keys := cfg.Keys
	if keys == nil {
		keys = dispatcher.DefaultKeyBindings()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req KeyRequest
		if !decode(w, r, &req) {
			return
		}
		sceneID := chi.URLParam(r, "sceneID")
		t := strconv.FormatFloat(req.Time, 'f', -1, 64)

		cmd, ok := keys.Lookup(req.Key)
		if !ok {
			WriteError(w, http.StatusNotFound, "no binding for key: "+req.Key, "NOT_FOUND")
			return
		}
		args := commandArgs(cmd, sceneID, req.SelectedID, t)

		out, err := cfg.Dispatcher.Dispatch(dispatcher.Event{
			Command:   cmd,
			Args:      args,
			Timestamp: time.Now(),
			Context:   r.Context(),
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		switch v := out.(type) {
		case worker.ReviewResult:
			WriteJSON(w, http.StatusOK, reviewToResponse(v))
		case worker.ShotResult:
			WriteJSON(w, http.StatusOK, shotResultToResponse(v))
		case worker.MaterializeResult:
			WriteJSON(w, http.StatusOK, MaterializeResponse{Analysis: analysisToResponse(v.Analysis), Created: markersToResponse(v.Created)})
		case derive.Analysis:
			WriteJSON(w, http.StatusOK, analysisToResponse(v))
		case worker.SlotSuggestions:
			WriteJSON(w, http.StatusOK, suggestionsToResponse(v))
		case dispatcher.Queued:
			WriteJSON(w, http.StatusAccepted, v)
		case nil:
			w.WriteHeader(http.StatusAccepted)
		default:
			WriteJSON(w, http.StatusOK, v)
		}
	}
}

// commandArgs lays out arguments the way the worker handlers expect them.
func commandArgs(cmd, sceneID, selectedID, t string) []string {
	switch {
	case strings.HasPrefix(cmd, ":SHOT:"):
		return []string{sceneID, t}
	case strings.HasPrefix(cmd, ":DERIVE:"):
		return []string{sceneID}
	default:
		return []string{sceneID, selectedID, t}
	}
}

func markersToResponse(ms []core.Marker) []MarkerResponse {
	out := make([]MarkerResponse, len(ms))
	for i, m := range ms {
		out[i] = markerToResponse(m)
	}
	return out
}

func listRulesHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rules, err := cfg.Service.DerivationRules(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		resp := RulesResponse{Rules: make([]RulePayload, len(rules))}
		for i, rule := range rules {
			resp.Rules[i] = ruleToPayload(rule)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func saveRuleHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RulePayload
		if !decode(w, r, &req) {
			return
		}
		rule := ruleFromPayload(req)
		if err := cfg.Service.SaveDerivationRule(r.Context(), &rule); err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, ruleToPayload(rule))
	}
}

func deleteRuleHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Service.DeleteDerivationRule(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func getSlotSetHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		set, err := cfg.Service.SlotDefinitionSet(r.Context(), chi.URLParam(r, "tagID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, slotSetToPayload(set))
	}
}

func saveSlotSetHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SlotSetPayload
		if !decode(w, r, &req) {
			return
		}
		req.TagID = chi.URLParam(r, "tagID")
		set := slotSetFromPayload(req)
		if err := cfg.Service.SaveSlotDefinitionSet(r.Context(), &set); err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, slotSetToPayload(set))
	}
}

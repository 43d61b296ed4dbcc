package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"care-session-service/internal/auth"
)

// Router wraps the standard library mux; no third-party routing needed.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterHealthRoute is unauthenticated so load balancers can probe it.
func (r *Router) RegisterHealthRoute() {
	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "care-session-service",
		})
	})
}

func (r *Router) RegisterSessionRoutes(h *SessionHandler, mw *AuthMiddleware) {
	r.Handle("/care-sessions/create", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		mw.Require(auth.PermSessionCreate, h.Create)(w, req)
	})

	r.Handle("/care-sessions", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		mw.Require(auth.PermSessionRead, h.List)(w, req)
	})

	// /care-sessions/{id} and /care-sessions/{id}/complete
	r.Handle("/care-sessions/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/care-sessions/")
		if rest == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		if id, ok := strings.CutSuffix(rest, "/complete"); ok {
			if id == "" || strings.Contains(id, "/") {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			if req.Method != http.MethodPut {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			mw.Require(auth.PermSessionUpdate, func(w http.ResponseWriter, req *http.Request) {
				h.Complete(w, req, id)
			})(w, req)
			return
		}

		if strings.Contains(rest, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		id := rest

		switch req.Method {
		case http.MethodGet:
			mw.Require(auth.PermSessionRead, func(w http.ResponseWriter, req *http.Request) {
				h.Get(w, req, id)
			})(w, req)
		case http.MethodPatch:
			mw.Require(auth.PermSessionAdmin, func(w http.ResponseWriter, req *http.Request) {
				h.Update(w, req, id)
			})(w, req)
		case http.MethodDelete:
			mw.Require(auth.PermSessionAdmin, func(w http.ResponseWriter, req *http.Request) {
				h.Delete(w, req, id)
			})(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func (r *Router) RegisterFeedbackRoutes(h *FeedbackHandler, mw *AuthMiddleware) {
	r.Handle("/feedback", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodPost:
			mw.Require(auth.PermFeedbackCreate, h.Create)(w, req)
		case http.MethodGet:
			mw.Require(auth.PermFeedbackRead, h.List)(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	r.Handle("/feedback/analytics/daily", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		mw.Require(auth.PermFeedbackRead, h.DailyAnalytics)(w, req)
	})

	r.Handle("/feedback/analytics/weekly", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		mw.Require(auth.PermFeedbackRead, h.WeeklyAnalytics)(w, req)
	})

	r.Handle("/feedback/analytics/top-caregivers", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		mw.Require(auth.PermFeedbackRead, h.TopCaregivers)(w, req)
	})

	r.Handle("/feedback/analytics/patient/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		patientID := strings.TrimPrefix(req.URL.Path, "/feedback/analytics/patient/")
		if patientID == "" || strings.Contains(patientID, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		mw.Require(auth.PermFeedbackRead, func(w http.ResponseWriter, req *http.Request) {
			h.PatientLifetime(w, req, patientID)
		})(w, req)
	})

	// /feedback/{id}; a bare "/feedback/" is the collection itself.
	r.Handle("/feedback/", func(w http.ResponseWriter, req *http.Request) {
		id := strings.TrimPrefix(req.URL.Path, "/feedback/")
		if id == "" {
			switch req.Method {
			case http.MethodPost:
				mw.Require(auth.PermFeedbackCreate, h.Create)(w, req)
			case http.MethodGet:
				mw.Require(auth.PermFeedbackRead, h.List)(w, req)
			default:
				w.WriteHeader(http.StatusMethodNotAllowed)
			}
			return
		}
		if strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		switch req.Method {
		case http.MethodGet:
			mw.Require(auth.PermFeedbackRead, func(w http.ResponseWriter, req *http.Request) {
				h.Get(w, req, id)
			})(w, req)
		case http.MethodDelete:
			mw.Require(auth.PermSessionAdmin, func(w http.ResponseWriter, req *http.Request) {
				h.Delete(w, req, id)
			})(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func (r *Router) RegisterReportRoutes(h *ReportHandler, mw *AuthMiddleware) {
	r.Handle("/reports/sessions/period", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		mw.Require(auth.PermSessionReport, h.Period)(w, req)
	})

	r.Handle("/reports/sessions/period/download", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		mw.Require(auth.PermSessionReport, h.PeriodDownload)(w, req)
	})

	r.Handle("/reports/sessions/all", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		mw.Require(auth.PermSessionReport, h.All)(w, req)
	})

	r.Handle("/reports/sessions/all/download", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		mw.Require(auth.PermSessionReport, h.AllDownload)(w, req)
	})

	// /reports/sessions/{id}
	r.Handle("/reports/sessions/", func(w http.ResponseWriter, req *http.Request) {
		id := strings.TrimPrefix(req.URL.Path, "/reports/sessions/")
		if id == "" || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		mw.Require(auth.PermSessionReport, func(w http.ResponseWriter, req *http.Request) {
			h.Get(w, req, id)
		})(w, req)
	})
}

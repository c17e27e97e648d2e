package server

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/flock/internal/auth"
	"github.com/dukerupert/flock/internal/config"
	"github.com/dukerupert/flock/internal/email"
	"github.com/dukerupert/flock/internal/handler"
	"github.com/dukerupert/flock/internal/livestream"
	"github.com/dukerupert/flock/internal/middleware"
	"github.com/dukerupert/flock/internal/notify"
	"github.com/dukerupert/flock/internal/report"
	"github.com/dukerupert/flock/internal/sms"
	"github.com/dukerupert/flock/internal/store"
	"github.com/dukerupert/flock/internal/vimeo"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Clients groups the outbound providers. A nil field falls back to a client
// built from Config.
type Clients struct {
	Email *email.Client
	SMS   *sms.Client
	Vimeo *vimeo.Client
}

type Server struct {
	db          *sql.DB
	cfg         *config.Config
	tokens      *auth.Tokens
	userStore   *store.UserStore
	memberH     *handler.MemberHandler
	attendanceH *handler.AttendanceHandler
	absenceH    *handler.AbsenceHandler
	streamH     *handler.StreamHandler
	reportH     *handler.ReportHandler
	notifyH     *handler.NotifyHandler
	authH       *handler.AuthHandler
	userH       *handler.UserHandler
	scheduler   *livestream.Scheduler
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

// New wires stores, services and handlers. db may be nil, in which case
// every data route answers 503.
func New(db *sql.DB, cfg *config.Config, clients Clients, logger *slog.Logger) *Server {
	if clients.Email == nil {
		clients.Email = email.NewClient(cfg.PostmarkToken, cfg.EmailFrom)
	}
	if clients.SMS == nil {
		clients.SMS = sms.NewClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	}
	if clients.Vimeo == nil {
		clients.Vimeo = vimeo.NewClient(cfg.VimeoAccessToken)
	}

	s := &Server{
		db:          db,
		cfg:         cfg,
		tokens:      auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL),
		rateLimiter: middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute),
		logger:      logger,
	}
	if db == nil {
		logger.Warn("no database configured; data routes will return 503")
		return s
	}

	memberStore := store.NewMemberStore(db)
	attendanceStore := store.NewAttendanceStore(db)
	checkinStore := store.NewCheckinStore(db)
	livestreamStore := store.NewLivestreamStore(db)
	s.userStore = store.NewUserStore(db)

	engine := report.NewEngine(memberStore, attendanceStore, checkinStore, cfg.Location)
	notifier := notify.New(clients.Email, clients.SMS, cfg.SiteURL, logger.With("component", "notify"))
	live := livestream.NewService(livestreamStore, clients.Vimeo, cfg.VimeoVideoID, logger.With("component", "livestream"))

	s.memberH = handler.NewMemberHandler(memberStore, logger.With("component", "member"))
	s.attendanceH = handler.NewAttendanceHandler(attendanceStore, memberStore, engine, logger.With("component", "attendance"))
	s.absenceH = handler.NewAbsenceHandler(memberStore, checkinStore, live, notifier, engine, logger.With("component", "absence"))
	s.streamH = handler.NewStreamHandler(live, logger.With("component", "stream"))
	s.reportH = handler.NewReportHandler(engine, logger.With("component", "report"))
	s.notifyH = handler.NewNotifyHandler(memberStore, engine, notifier, cfg.PastorEmail, logger.With("component", "notify_handler"))
	s.authH = handler.NewAuthHandler(s.userStore, s.tokens, cfg.AppPassword, logger.With("component", "auth"))
	s.userH = handler.NewUserHandler(s.userStore, logger.With("component", "user"))
	s.scheduler = livestream.NewScheduler(live, livestreamStore, cfg.Location, cfg.RotationCheckInterval, logger)

	return s
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Scheduler returns the password rotation scheduler, or nil without a database.
func (s *Server) Scheduler() *livestream.Scheduler {
	return s.scheduler
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.Health)
	mux.Handle("GET /metrics", promhttp.Handler())

	if s.db == nil {
		mux.Handle("/", handler.Unavailable(s.logger))
	} else {
		s.registerRoutes(mux)
	}

	h := middleware.Metrics(mux)
	h = middleware.RequestLogger(s.logger.With("component", "http"))(h)
	return middleware.CORS(h)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Public routes
	mux.HandleFunc("POST /auth", s.rateLimitedHandler(s.authH.Auth))
	mux.HandleFunc("POST /absence", s.rateLimitedHandler(s.absenceH.Submit))
	mux.HandleFunc("POST /verify-stream-code", s.rateLimitedHandler(s.streamH.Verify))

	staff := middleware.RequireAuth(s.tokens, s.userStore)
	protect := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, staff(h))
	}
	admin := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, staff(middleware.RequireAdmin(h)))
	}

	// Members
	protect("GET /members", s.memberH.List)
	protect("POST /members", s.memberH.Create)
	protect("POST /members/import", s.memberH.Import)
	protect("GET /members/{id}", s.memberH.Get)
	protect("PUT /members/{id}", s.memberH.Update)
	protect("DELETE /members/{id}", s.memberH.Delete)

	// Attendance
	protect("POST /attendance", s.attendanceH.Record)
	protect("GET /attendance", s.attendanceH.List)
	protect("GET /attendance/summary", s.attendanceH.Summary)

	// Reports
	protect("GET /member-absence-report", s.reportH.MemberAbsence)
	protect("GET /absentee-dashboard", s.reportH.Dashboard)

	// Livestream
	protect("GET /vimeo-password", s.streamH.GetPassword)
	protect("POST /vimeo-password", s.streamH.RotatePassword)
	protect("GET /rotation-schedule", s.streamH.GetSchedule)
	protect("PUT /rotation-schedule", s.streamH.UpdateSchedule)
	protect("GET /stream-codes", s.streamH.ListCodes)
	protect("POST /stream-codes/{code}/revoke", s.streamH.RevokeCode)

	// Notifications
	protect("POST /broadcast", s.notifyH.Broadcast)
	protect("POST /notify-absentees", s.notifyH.NotifyAbsentees)
	protect("POST /send-report", s.notifyH.SendReport)
	protect("POST /absentee-report", s.notifyH.AbsenteeReport)

	// Users
	admin("GET /users", s.userH.List)
	admin("POST /users", s.userH.Create)
	admin("DELETE /users/{id}", s.userH.Delete)
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	return middleware.RateLimit(s.rateLimiter)(h).ServeHTTP
}

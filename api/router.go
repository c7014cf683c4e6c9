package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/osr-alliance/leadtrack/relay"
	"github.com/osr-alliance/leadtrack/store"
)

// Sender relays one SMS; *relay.Relay implements it.
type Sender interface {
	Send(ctx context.Context, req relay.SendRequest) (relay.SendResponse, error)
}

// Pinger reports whether the database is reachable; *sqlx.DB implements it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Config struct {
	Store  store.Store
	Sender Sender
	DB     Pinger // optional; /readyz always answers ready without it

	SendRatePerSecond float64 // zero disables the /send-text limiter
	SendRateBurst     int

	Logger *logrus.Entry
}

// NewRouter wires every HTTP route onto a gorilla/mux router.
func NewRouter(conf *Config) *mux.Router {
	logger := conf.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	logger = logger.WithField("component", "api")

	l := &lead{
		store: conf.Store,
		log:   logger,
	}
	s := &sms{
		sender: conf.Sender,
		log:    logger,
	}
	h := &health{
		db: conf.DB,
	}

	router := mux.NewRouter()
	router.Use(accessLog(logger))
	router.NotFoundHandler = accessLog(logger)(http.HandlerFunc(notFound))
	router.MethodNotAllowedHandler = accessLog(logger)(http.HandlerFunc(methodNotAllowed))

	router.HandleFunc("/leads", l.Create).Methods(http.MethodPost)
	router.HandleFunc("/leads", l.List).Methods(http.MethodGet)
	router.HandleFunc("/leads/{id}", l.Get).Methods(http.MethodGet)

	send := http.Handler(http.HandlerFunc(s.Send))
	if conf.SendRatePerSecond > 0 {
		send = rateLimit(conf.SendRatePerSecond, conf.SendRateBurst)(send)
	}
	router.Handle("/send-text", send).Methods(http.MethodPost)

	router.HandleFunc("/healthz", h.Live).Methods(http.MethodGet)
	router.HandleFunc("/readyz", h.Ready).Methods(http.MethodGet)

	return router
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"leveled-quiz-service/internal/app"
)

// NewRouter wires the REST API, the ranking websocket and the ops endpoints.
func NewRouter(service *app.QuizService, tokens TokenIssuer) http.Handler {
	r := mux.NewRouter()

	h := NewHandler(service, tokens)
	ws := NewWSHandler(service)
	requireUser := RequireUser(tokens)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	ranked := r.PathPrefix("/ws").Subrouter()
	ranked.Use(requireUser)
	ranked.HandleFunc("/ranked", ws.ServeRanking).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.Use(observeDuration)

	// public
	v1.HandleFunc("/users/register", h.Register).Methods(http.MethodPost)

	api := v1.NewRoute().Subrouter()
	api.Use(requireUser)

	api.HandleFunc("/quiz/{categoryId}/{level}", h.GetQuiz).Methods(http.MethodGet)
	api.HandleFunc("/quiz/completed", h.CompleteQuiz).Methods(http.MethodPost)

	api.HandleFunc("/question/random/{level}", h.GetRandomQuestions).Methods(http.MethodGet)
	api.HandleFunc("/question/rpdfire", h.GetRapidFire).Methods(http.MethodGet)
	api.HandleFunc("/question/rpdfire/completed", h.CompleteRapidFire).Methods(http.MethodPost)
	api.HandleFunc("/question/create", h.CreateQuestions).Methods(http.MethodPost)
	api.HandleFunc("/question/create/{topicId}", h.CreateQuestions).Methods(http.MethodPost)

	api.HandleFunc("/topic/create", h.CreateTopic).Methods(http.MethodPost)
	api.HandleFunc("/topic/{topicId}", h.GetTopic).Methods(http.MethodGet)
	api.HandleFunc("/topic/{topicId}", h.UpdateTopic).Methods(http.MethodPut)

	api.HandleFunc("/category/create", h.CreateCategory).Methods(http.MethodPost)
	api.HandleFunc("/category/get", h.GetCategories).Methods(http.MethodGet)

	api.HandleFunc("/users/ranked", h.RankedUsers).Methods(http.MethodGet)

	return r
}

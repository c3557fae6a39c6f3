package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"leveled-quiz-service/internal/app"
	"leveled-quiz-service/internal/domain"
)

// Handler serves the REST API on top of the quiz service.
type Handler struct {
	service *app.QuizService
	tokens  TokenIssuer
}

// TokenIssuer is implemented by *auth.Issuer.
type TokenIssuer interface {
	TokenVerifier
	Issue(userID string) (string, error)
}

func NewHandler(service *app.QuizService, tokens TokenIssuer) *Handler {
	return &Handler{service: service, tokens: tokens}
}

type completionRequest struct {
	QuizResult  int    `json:"quizResult"`
	StarsEarned int    `json:"starsEarned"`
	RunID       string `json:"runId,omitempty"`
}

type categoryRequest struct {
	Name   string   `json:"name"`
	Topics []string `json:"topics"`
}

type registerRequest struct {
	Username string `json:"username"`
}

type registerResponse struct {
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

// Register creates a user and returns a token for it.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.service.RegisterUser(r.Context(), req.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "user registered", registerResponse{User: user, Token: token})
}

func (h *Handler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	categoryNumber, ok := pathInt(w, r, "categoryId")
	if !ok {
		return
	}
	level, ok := pathInt(w, r, "level")
	if !ok {
		return
	}
	quiz, err := h.service.GetQuiz(r.Context(), categoryNumber, level)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "quiz composed", quiz)
}

func (h *Handler) GetRandomQuestions(w http.ResponseWriter, r *http.Request) {
	level, ok := pathInt(w, r, "level")
	if !ok {
		return
	}
	count := app.DefaultRandomCount
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeFail(w, http.StatusBadRequest, fmt.Sprintf("count must be an integer, got %q", raw), nil)
			return
		}
		count = n
	}
	set, err := h.service.GetRandomQuestions(r.Context(), level, count)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "questions sampled", set)
}

func (h *Handler) GetRapidFire(w http.ResponseWriter, r *http.Request) {
	set, err := h.service.GetRapidFireSet(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	message := "rapid fire issued"
	if len(set.Questions) == 0 {
		message = "rapid fire already played today"
	}
	writeSuccess(w, http.StatusOK, message, set)
}

func (h *Handler) CompleteQuiz(w http.ResponseWriter, r *http.Request) {
	h.complete(w, r, false)
}

func (h *Handler) CompleteRapidFire(w http.ResponseWriter, r *http.Request) {
	h.complete(w, r, true)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request, rapidFire bool) {
	var req completionRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.service.CompleteQuiz(r.Context(), UserID(r.Context()), domain.Completion{
		QuizResult:  req.QuizResult,
		StarsEarned: req.StarsEarned,
		RapidFire:   rapidFire,
		RunID:       req.RunID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "stats updated", user)
}

// CreateQuestions accepts a JSON array of questions, optionally filed under {topicId}.
func (h *Handler) CreateQuestions(w http.ResponseWriter, r *http.Request) {
	var inputs []app.QuestionInput
	if !decode(w, r, &inputs) {
		return
	}
	res, err := h.service.CreateQuestions(r.Context(), mux.Vars(r)["topicId"], inputs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, fmt.Sprintf("%d questions created", len(res.Created)), res)
}

func (h *Handler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	var in app.TopicInput
	if !decode(w, r, &in) {
		return
	}
	topic, err := h.service.CreateTopic(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "topic created", topic)
}

func (h *Handler) UpdateTopic(w http.ResponseWriter, r *http.Request) {
	var in app.TopicInput
	if !decode(w, r, &in) {
		return
	}
	topic, err := h.service.UpdateTopic(r.Context(), mux.Vars(r)["topicId"], in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "topic updated", topic)
}

func (h *Handler) GetTopic(w http.ResponseWriter, r *http.Request) {
	topic, err := h.service.GetTopic(r.Context(), mux.Vars(r)["topicId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "topic found", topic)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decode(w, r, &req) {
		return
	}
	category, err := h.service.CreateCategory(r.Context(), req.Name, req.Topics)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "category created", category)
}

// GetCategories returns one category when ?id= is set, otherwise all of them.
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("id"); id != "" {
		category, err := h.service.GetCategory(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, "category found", category)
		return
	}
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "categories listed", categories)
}

func (h *Handler) RankedUsers(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeFail(w, http.StatusBadRequest, fmt.Sprintf("limit must be a non-negative integer, got %q", raw), nil)
			return
		}
		limit = n
	}
	users, err := h.service.RankedUsers(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "ranking", users)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return false
	}
	return true
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := mux.Vars(r)[name]
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeFail(w, http.StatusBadRequest, fmt.Sprintf("%s must be an integer, got %q", name, raw), nil)
		return 0, false
	}
	return n, true
}

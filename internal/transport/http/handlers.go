package http

import (
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"quiz-player/internal/api"
	"quiz-player/internal/app"
	"quiz-player/internal/domain"
)

const maxBodyBytes = 1 << 20

// AttemptHandler serves the grading endpoints used by the player.
type AttemptHandler struct {
	service *app.AttemptService
}

func NewAttemptHandler(service *app.AttemptService) *AttemptHandler {
	return &AttemptHandler{service: service}
}

func (h *AttemptHandler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.GetQuiz(r.Context(), chi.URLParam(r, "quizId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *AttemptHandler) Start(w http.ResponseWriter, r *http.Request) {
	var device api.StartRequest
	if err := decode(r, &device, true); err != nil {
		writeError(w, err)
		return
	}
	sub, err := h.service.StartAttempt(r.Context(), chi.URLParam(r, "quizId"), learner(r), device)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *AttemptHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var body api.AnswerRequest
	if err := decode(r, &body, false); err != nil {
		writeError(w, err)
		return
	}
	if body.QuestionID == "" {
		writeError(w, errors.Wrap(errBadRequest, "questionId is required"))
		return
	}
	feedback, err := h.service.RecordAnswer(r.Context(), learner(r), chi.URLParam(r, "submissionId"), domain.AnswerSubmission{
		QuestionID:       body.QuestionID,
		Answer:           body.Answer(),
		TimeSpentSeconds: body.TimeSpent,
		HintsUsed:        body.HintsUsed,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	out := api.AnswerResponse{}
	if feedback != nil {
		correct := feedback.IsCorrect
		out.IsCorrect = &correct
		out.Explanation = feedback.Explanation
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AttemptHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var body api.CompleteRequest
	if err := decode(r, &body, false); err != nil {
		writeError(w, err)
		return
	}
	sub, err := h.service.CompleteAttempt(r.Context(), learner(r), chi.URLParam(r, "submissionId"), body.TotalTimeSpent)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.CompleteResponse{
		Submission: sub,
		Passed:     sub.Passed,
		Percentage: sub.Percentage,
	})
}

func (h *AttemptHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	var body api.AbandonRequest
	if err := decode(r, &body, true); err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.Abandon(r.Context(), learner(r), chi.URLParam(r, "submissionId"), body.TotalTimeSpent); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AttemptHandler) Board(w http.ResponseWriter, r *http.Request) {
	board, err := h.service.Board(r.Context(), chi.URLParam(r, "quizId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

var errBadRequest = errors.New("bad request")

func learner(r *http.Request) string {
	return r.Header.Get(api.LearnerHeader)
}

// decode reads a JSON body. An empty body is accepted when optional is set.
func decode(r *http.Request, v any, optional bool) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errors.Wrap(errBadRequest, err.Error())
	}
	if len(raw) == 0 {
		if optional {
			return nil
		}
		return errors.Wrap(errBadRequest, "request body is required")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrap(errBadRequest, "invalid JSON body")
	}
	return nil
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, domain.ErrMissingLearner):
		return http.StatusUnauthorized, "missing_learner"
	case errors.Is(err, domain.ErrQuizNotFound):
		return http.StatusNotFound, "quiz_not_found"
	case errors.Is(err, domain.ErrSubmissionNotFound):
		return http.StatusNotFound, "submission_not_found"
	case errors.Is(err, domain.ErrBoardNotFound):
		return http.StatusNotFound, "board_not_found"
	case errors.Is(err, domain.ErrMaxAttemptsExceeded):
		return http.StatusForbidden, "max_attempts_exceeded"
	case errors.Is(err, domain.ErrSubmissionClosed):
		return http.StatusConflict, "submission_closed"
	case errors.Is(err, domain.ErrQuestionNotFound):
		return http.StatusUnprocessableEntity, "question_not_found"
	case errors.Is(err, domain.ErrOptionNotFound):
		return http.StatusUnprocessableEntity, "option_not_found"
	case errors.Is(err, domain.ErrAnswerMismatch):
		return http.StatusUnprocessableEntity, "answer_mismatch"
	}
	return http.StatusInternalServerError, "internal"
}

func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, api.ErrorResponse{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

package http

import "github.com/fyrsmithlabs/tutord/internal/quiz"

// OnboardRequest is the request body for PUT /api/v1/session.
type OnboardRequest struct {
	UserName       string `json:"user_name"`
	StudySubject   string `json:"study_subject"`
	StudyGoal      string `json:"study_goal"`
	ExpertiseLevel string `json:"expertise_level"`
}

// IngestResponse is the response body for POST /api/v1/ingest.
type IngestResponse struct {
	Files  int `json:"files"`
	Chunks int `json:"chunks"`
}

// GenerateRequest is the request body for POST /api/v1/courses.
type GenerateRequest struct {
	Topic string `json:"topic"`
}

// GenerateAccepted is the 202 response body for POST /api/v1/courses.
type GenerateAccepted struct {
	RunID string `json:"run_id"`
}

// CancelResponse is the response body for POST /api/v1/courses/cancel.
type CancelResponse struct {
	Status string `json:"status"`
}

// QuestionView is a quiz question without its answer key, safe to
// hand to the quiz taker.
type QuestionView struct {
	Number  int      `json:"question_no"`
	Text    string   `json:"question_text"`
	Options []string `json:"options"`
}

// QuizResponse is the response body for POST and GET /api/v1/quiz.
type QuizResponse struct {
	Questions []QuestionView `json:"questions"`
}

// ScoreRequest is the request body for POST /api/v1/quiz/score.
// Answers are 1-based option picks in question order.
type ScoreRequest struct {
	Answers []int `json:"answers"`
}

// ChatRequest is the request body for POST /api/v1/chat. SlideContext
// optionally pins the slide the user is currently looking at.
type ChatRequest struct {
	Message      string `json:"message"`
	SlideContext string `json:"slide_context,omitempty"`
}

// ChatResponse is the response body for POST /api/v1/chat.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ErrorResponse is the uniform error body for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func quizView(questions []quiz.Question) QuizResponse {
	views := make([]QuestionView, len(questions))
	for i, q := range questions {
		views[i] = QuestionView{
			Number:  q.Number,
			Text:    q.Text,
			Options: q.Options[:],
		}
	}
	return QuizResponse{Questions: views}
}

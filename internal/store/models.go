package store

import "time"

// PendingAnswer is the sentinel answer a QAPair carries between question
// submission and resolution.
const PendingAnswer = "..."

// QAPair is one question/answer exchange. Timestamps are RFC3339 strings, the
// shape the session documents use on the wire; they are sorted leniently, never
// parsed strictly (a malformed value must not break history listing).
type QAPair struct {
	ID              string `json:"id"`
	QuestionText    string `json:"questionText"`
	Answer          string `json:"answer"`
	Timestamp       string `json:"timestamp"`
	UploadedFileURI string `json:"uploadedFileUri,omitempty"`
	FileName        string `json:"fileName,omitempty"`
}

// Pending reports whether the pair is still waiting for its answer.
func (p *QAPair) Pending() bool {
	return p.Answer == PendingAnswer
}

// ChatSession is one conversation with fixed class-level/subject context.
// Messages are in insertion order, which is chronological order.
type ChatSession struct {
	ID         string   `json:"id"`
	UserID     string   `json:"userId"`
	Title      string   `json:"title"`
	Messages   []QAPair `json:"messages"`
	ClassLevel string   `json:"classLevel"`
	Subject    string   `json:"subject"`
	StartTime  string   `json:"startTime"`
}

// Pair returns the message with the given pair id, or nil.
func (s *ChatSession) Pair(pairID string) *QAPair {
	for i := range s.Messages {
		if s.Messages[i].ID == pairID {
			return &s.Messages[i]
		}
	}
	return nil
}

type UserProfile struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	PhotoURL     string    `json:"photoURL"`
	TokenBalance int       `json:"tokenBalance"`
	PasswordHash string    `json:"-"` // Do not expose this in JSON responses
	CreatedAt    time.Time `json:"createdAt"`
}

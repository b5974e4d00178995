package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"pintarai.app/server/internal/catalog"
	"pintarai.app/server/internal/store"
)

var (
	ErrEmptyQuestion  = errors.New("question must not be empty")
	ErrMissingContext = errors.New("class level and subject must be selected first")
	ErrSessionNotFound = errors.New("chat session not found")
	// ErrPairNotFound marks a resolution targeting a pair that no longer
	// exists; the late response is discarded rather than applied elsewhere.
	ErrPairNotFound = errors.New("question pair not found")
	// ErrPairResolved marks a resolution targeting a pair that already holds a
	// different terminal answer.
	ErrPairResolved = errors.New("question pair already resolved")
)

// SessionService reconciles chat sessions between memory and the store, and
// runs the ask flow (token spend, pending append, generation, resolution,
// persistence).
type SessionService struct {
	dbStore   *store.SQLiteStore
	generator Generator
}

func NewSessionService(db *store.SQLiteStore, gen Generator) *SessionService {
	return &SessionService{
		dbStore:   db,
		generator: gen,
	}
}

// StartSession builds a new in-memory session shell. Nothing is persisted
// until the session carries at least one message.
func (s *SessionService) StartSession(userID, classLevel, subject, firstQuestion string) *store.ChatSession {
	return &store.ChatSession{
		ID:         uuid.NewString(),
		UserID:     userID,
		Title:      firstQuestion,
		Messages:   []store.QAPair{},
		ClassLevel: classLevel,
		Subject:    subject,
		StartTime:  time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// AppendPending appends a QAPair carrying the pending sentinel and returns its
// id for later resolution. Memory only; persistence happens on resolution.
func (s *SessionService) AppendPending(session *store.ChatSession, questionText, fileURI, fileName string) *store.QAPair {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	session.Messages = append(session.Messages, store.QAPair{
		ID:              now,
		QuestionText:    questionText,
		Answer:          store.PendingAnswer,
		Timestamp:       now,
		UploadedFileURI: fileURI,
		FileName:        fileName,
	})
	return &session.Messages[len(session.Messages)-1]
}

// Resolve replaces a pair's pending sentinel with the answer (or a visible
// error string). Re-resolving with the same answer is a no-op; a resolution
// for a missing or differently-resolved pair is rejected so a stale in-flight
// response can never mutate another turn.
func (s *SessionService) Resolve(session *store.ChatSession, pairID, answer string) error {
	pair := session.Pair(pairID)
	if pair == nil {
		return ErrPairNotFound
	}
	if !pair.Pending() {
		if pair.Answer == answer {
			return nil
		}
		return ErrPairResolved
	}
	pair.Answer = answer
	pair.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	return nil
}

// Persist upserts the session. Sessions with zero messages are never written:
// the call is an idempotent no-op for them.
func (s *SessionService) Persist(ctx context.Context, session *store.ChatSession) error {
	if len(session.Messages) == 0 {
		return nil
	}
	return s.dbStore.SaveSession(ctx, session)
}

func (s *SessionService) LoadByID(ctx context.Context, sessionID string) (*store.ChatSession, error) {
	return s.dbStore.GetSession(ctx, sessionID)
}

// ListByUser returns the user's sessions sorted descending by start time.
// The sort is lenient: sessions whose start time does not parse order last,
// in their stored order. Read errors are surfaced, not degraded to an empty
// list, so callers can tell "no history" from "history unavailable".
func (s *SessionService) ListByUser(ctx context.Context, userID string) ([]store.ChatSession, error) {
	sessions, err := s.dbStore.ListSessionsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sortSessionsByStartTime(sessions)
	return sessions, nil
}

func sortSessionsByStartTime(sessions []store.ChatSession) {
	keys := make(map[string]time.Time, len(sessions))
	parsed := make(map[string]bool, len(sessions))
	for _, sess := range sessions {
		if t, err := time.Parse(time.RFC3339, sess.StartTime); err == nil {
			keys[sess.ID] = t
			parsed[sess.ID] = true
		}
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		pi, pj := parsed[sessions[i].ID], parsed[sessions[j].ID]
		if !pi {
			return false
		}
		if !pj {
			return true
		}
		return keys[sessions[i].ID].After(keys[sessions[j].ID])
	})
}

func (s *SessionService) DeleteSession(ctx context.Context, sessionID, userID string) error {
	return s.dbStore.DeleteSession(ctx, sessionID, userID)
}

// DeleteAll clears the user's whole history as a single batch.
func (s *SessionService) DeleteAll(ctx context.Context, userID string) error {
	return s.dbStore.DeleteUserSessions(ctx, userID)
}

// Ask runs one question through the full flow: validate, spend a token, append
// the pending pair, call the generator, resolve, persist. With an empty
// sessionID a new session is started from classLevel/subject; otherwise the
// session is resumed and its own immutable context is used.
//
// A generator failure is not an error of the flow: the pair is resolved with a
// visible error string so the conversation always reaches a terminal state.
func (s *SessionService) Ask(ctx context.Context, userID, sessionID, classLevel, subject, questionText, fileURI, fileName string) (*store.ChatSession, error) {
	if questionText == "" {
		return nil, ErrEmptyQuestion
	}

	var session *store.ChatSession
	if sessionID == "" {
		if !catalog.ValidClassLevel(classLevel) || !catalog.ValidSubject(classLevel, subject) {
			return nil, ErrMissingContext
		}
		session = s.StartSession(userID, classLevel, subject, questionText)
	} else {
		var err error
		session, err = s.dbStore.GetSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if session == nil || session.UserID != userID {
			return nil, ErrSessionNotFound
		}
	}

	// The guarded decrement runs before anything is appended: an insufficient
	// balance rejects the question without enqueueing it.
	if err := s.dbStore.SpendToken(ctx, userID); err != nil {
		return nil, err
	}

	pair := s.AppendPending(session, questionText, fileURI, fileName)
	pairID := pair.ID

	answer, err := s.generator.AnswerQuestion(ctx, AnswerInput{
		ClassLevel:      session.ClassLevel,
		Subject:         session.Subject,
		QuestionText:    questionText,
		UploadedFileURI: fileURI,
	})
	if err != nil {
		log.Error().Err(err).Str("session_id", session.ID).Msg("Answer generation failed")
		answer = fmt.Sprintf("Maaf, terjadi kesalahan: %v", err)
	}

	if err := s.Resolve(session, pairID, answer); err != nil {
		// The pair vanished or was resolved by someone else; drop the response.
		log.Warn().Err(err).Str("session_id", session.ID).Str("pair_id", pairID).Msg("Discarding stale resolution")
		return session, nil
	}

	if err := s.Persist(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	return session, nil
}

package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/quizdesk/quizbot/core/logger"
	"github.com/quizdesk/quizbot/internal/quiz"
)

const uniqueViolation = "23505"

// SQLStore implements Store over PostgreSQL via sqlx.
type SQLStore struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewSQLStore wraps an already connected pool.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db, log: logger.Results}
}

// RegisterStudent inserts a new student. A second registration for the same
// user id fails with quiz.ErrIntegrityViolation and leaves the first record
// unchanged.
func (s *SQLStore) RegisterStudent(ctx context.Context, firstName, lastName string, userID int64) (Student, error) {
	var st Student
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO students (first_name, last_name, user_id)
		VALUES ($1, $2, $3)
		RETURNING id, first_name, last_name, user_id, registered_at
	`, firstName, lastName, userID).StructScan(&st)
	if isUniqueViolation(err) {
		return Student{}, fmt.Errorf("%w: user %d already registered", quiz.ErrIntegrityViolation, userID)
	}
	if err != nil {
		return Student{}, fmt.Errorf("register student: %w", err)
	}

	s.log.Info("student registered",
		slog.String("event", "student.register"),
		slog.Int64("student_id", st.ID),
		slog.Int64("user_id", userID),
	)
	return st, nil
}

// StudentByUserID resolves the student owning the given external user id.
func (s *SQLStore) StudentByUserID(ctx context.Context, userID int64) (Student, error) {
	var st Student
	err := s.db.GetContext(ctx, &st, `
		SELECT id, first_name, last_name, user_id, registered_at
		FROM students WHERE user_id = $1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, fmt.Errorf("%w: student for user %d", quiz.ErrNotFound, userID)
	}
	if err != nil {
		return Student{}, fmt.Errorf("student by user id: %w", err)
	}
	return st, nil
}

// StudentByID fetches one student by primary key.
func (s *SQLStore) StudentByID(ctx context.Context, id int64) (Student, error) {
	var st Student
	err := s.db.GetContext(ctx, &st, `
		SELECT id, first_name, last_name, user_id, registered_at
		FROM students WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, fmt.Errorf("%w: student %d", quiz.ErrNotFound, id)
	}
	if err != nil {
		return Student{}, fmt.Errorf("student by id: %w", err)
	}
	return st, nil
}

// ListStudents returns all registered students ordered by registration time.
func (s *SQLStore) ListStudents(ctx context.Context) ([]Student, error) {
	var out []Student
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, first_name, last_name, user_id, registered_at
		FROM students ORDER BY registered_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return out, nil
}

// UpsertAssignment gives the bank to the student; re-assigning resets the
// completed flag in one atomic statement.
func (s *SQLStore) UpsertAssignment(ctx context.Context, studentID int64, bank string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assignments (student_id, bank_name, completed)
		VALUES ($1, $2, FALSE)
		ON CONFLICT (student_id, bank_name)
		DO UPDATE SET completed = FALSE, assigned_at = NOW()
	`, studentID, bank)
	if err != nil {
		return fmt.Errorf("upsert assignment: %w", err)
	}

	s.log.Info("assignment upserted",
		slog.String("event", "assignment.upsert"),
		slog.Int64("student_id", studentID),
		slog.String("bank", bank),
	)
	return nil
}

// ListPendingAssignments returns the student's assignments not yet completed.
func (s *SQLStore) ListPendingAssignments(ctx context.Context, studentID int64) ([]Assignment, error) {
	var out []Assignment
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, student_id, bank_name, completed, assigned_at
		FROM assignments
		WHERE student_id = $1 AND completed = FALSE
		ORDER BY assigned_at, id
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("list pending assignments: %w", err)
	}
	return out, nil
}

// SubmitResult inserts the record, marks the student's assignment for the
// bank completed and recomputes every rank of the bank, all in one
// transaction. A per-bank advisory lock taken up front serializes concurrent
// submissions: row locks alone never see another transaction's fresh insert,
// so without it two first-time submitters would both rank themselves 1.
func (s *SQLStore) SubmitResult(ctx context.Context, rec ResultRecord) (ResultRecord, error) {
	start := time.Now()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return ResultRecord{}, fmt.Errorf("submit result: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, rec.Bank); err != nil {
		return ResultRecord{}, fmt.Errorf("lock bank standings: %w", err)
	}

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO results (student_id, bank_name, correct_answers, wrong_answers, total_questions)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, student_id, bank_name, correct_answers, wrong_answers, total_questions, rank, submitted_at
	`, rec.StudentID, rec.Bank, rec.Correct, rec.Wrong, rec.Total).StructScan(&rec)
	if err != nil {
		return ResultRecord{}, fmt.Errorf("insert result: %w", err)
	}

	// The assignment may have been removed while the student was answering;
	// the result still counts, so a zero-row update is not an error.
	if _, err := tx.ExecContext(ctx, `
		UPDATE assignments SET completed = TRUE
		WHERE student_id = $1 AND bank_name = $2
	`, rec.StudentID, rec.Bank); err != nil {
		return ResultRecord{}, fmt.Errorf("complete assignment: %w", err)
	}

	var all []ResultRecord
	err = tx.SelectContext(ctx, &all, `
		SELECT id, student_id, bank_name, correct_answers, wrong_answers, total_questions, rank, submitted_at
		FROM results WHERE bank_name = $1
	`, rec.Bank)
	if err != nil {
		return ResultRecord{}, fmt.Errorf("load bank standings: %w", err)
	}

	for _, ra := range RankOrder(all) {
		if _, err := tx.ExecContext(ctx, `UPDATE results SET rank = $1 WHERE id = $2`, ra.Rank, ra.ResultID); err != nil {
			return ResultRecord{}, fmt.Errorf("rewrite rank: %w", err)
		}
		if ra.ResultID == rec.ID {
			r := ra.Rank
			rec.Rank = &r
		}
	}

	if err := tx.Commit(); err != nil {
		return ResultRecord{}, fmt.Errorf("submit result: %w", err)
	}

	s.log.Info("result submitted",
		slog.String("event", "result.submit"),
		slog.Int64("student_id", rec.StudentID),
		slog.String("bank", rec.Bank),
		slog.Int("correct", rec.Correct),
		slog.Int("total", rec.Total),
		slog.Int("ranked", len(all)),
		slog.Duration("duration", logger.Took(start)),
	)
	return rec, nil
}

// ListResultsByBank returns the bank's standings ordered by rank.
func (s *SQLStore) ListResultsByBank(ctx context.Context, bank string) ([]ResultRecord, error) {
	var out []ResultRecord
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, student_id, bank_name, correct_answers, wrong_answers, total_questions, rank, submitted_at
		FROM results WHERE bank_name = $1
		ORDER BY rank NULLS LAST, id
	`, bank)
	if err != nil {
		return nil, fmt.Errorf("list results by bank: %w", err)
	}
	return out, nil
}

// ListResultsByStudent returns the student's most recent results, newest first.
func (s *SQLStore) ListResultsByStudent(ctx context.Context, studentID int64, limit int) ([]ResultRecord, error) {
	if limit <= 0 {
		limit = 5
	}
	var out []ResultRecord
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, student_id, bank_name, correct_answers, wrong_answers, total_questions, rank, submitted_at
		FROM results WHERE student_id = $1
		ORDER BY submitted_at DESC, id DESC
		LIMIT $2
	`, studentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list results by student: %w", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

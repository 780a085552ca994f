// Package results persists students, assignments and result records in
// PostgreSQL and recomputes comparative ranks on every submission.
package results

import (
	"context"
	"time"
)

// Student is a registered quiz taker. UserID is the external chat identity
// and is unique: registering twice fails instead of overwriting.
type Student struct {
	ID           int64     `db:"id"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	UserID       int64     `db:"user_id"`
	RegisteredAt time.Time `db:"registered_at"`
}

// Assignment records that a student has been given a bank to complete.
// Re-assigning the same (student, bank) pair resets Completed to false.
type Assignment struct {
	ID         int64     `db:"id"`
	StudentID  int64     `db:"student_id"`
	Bank       string    `db:"bank_name"`
	Completed  bool      `db:"completed"`
	AssignedAt time.Time `db:"assigned_at"`
}

// ResultRecord is the persisted outcome of one completed run over one bank.
// Rank is nil until the first recomputation covering the record finishes.
type ResultRecord struct {
	ID          int64     `db:"id"`
	StudentID   int64     `db:"student_id"`
	Bank        string    `db:"bank_name"`
	Correct     int       `db:"correct_answers"`
	Wrong       int       `db:"wrong_answers"`
	Total       int       `db:"total_questions"`
	Rank        *int      `db:"rank"`
	SubmittedAt time.Time `db:"submitted_at"`
}

// Store is the persistence contract consumed by the workflow engine.
type Store interface {
	RegisterStudent(ctx context.Context, firstName, lastName string, userID int64) (Student, error)
	StudentByUserID(ctx context.Context, userID int64) (Student, error)
	StudentByID(ctx context.Context, id int64) (Student, error)
	ListStudents(ctx context.Context) ([]Student, error)

	UpsertAssignment(ctx context.Context, studentID int64, bank string) error
	ListPendingAssignments(ctx context.Context, studentID int64) ([]Assignment, error)

	// SubmitResult inserts the record, marks the matching assignment completed
	// and rewrites every rank of the record's bank, all atomically: a failed
	// submit leaves no result behind and the assignment still pending, and
	// concurrent submissions for one bank never rank against a stale set.
	SubmitResult(ctx context.Context, rec ResultRecord) (ResultRecord, error)
	ListResultsByBank(ctx context.Context, bank string) ([]ResultRecord, error)
	ListResultsByStudent(ctx context.Context, studentID int64, limit int) ([]ResultRecord, error)
}

package workflow

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/quizdesk/quizbot/internal/quiz"
	"github.com/quizdesk/quizbot/internal/results"
)

// fakeBanks is an in-memory bank.Repository for engine tests.
type fakeBanks struct {
	mu    sync.Mutex
	banks map[string]quiz.TestBank
	// failSave makes every Save fail, for partial-write tests.
	failSave bool
}

func newFakeBanks() *fakeBanks {
	return &fakeBanks{banks: make(map[string]quiz.TestBank)}
}

func (f *fakeBanks) List() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for n := range f.banks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeBanks) Create(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.banks[name]; ok {
		return fmt.Errorf("%w: bank %q", quiz.ErrDuplicateName, name)
	}
	f.banks[name] = quiz.TestBank{Name: name}
	return nil
}

func (f *fakeBanks) Load(name string) (quiz.TestBank, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.banks[name]
	if !ok {
		return quiz.TestBank{}, fmt.Errorf("%w: bank %q", quiz.ErrNotFound, name)
	}
	return b, nil
}

func (f *fakeBanks) Save(name string, b quiz.TestBank) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave {
		return fmt.Errorf("disk full")
	}
	f.banks[name] = b
	return nil
}

func (f *fakeBanks) Delete(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.banks[name]; !ok {
		return fmt.Errorf("%w: bank %q", quiz.ErrNotFound, name)
	}
	delete(f.banks, name)
	return nil
}

func (f *fakeBanks) Update(name string, fn func(*quiz.TestBank) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.banks[name]
	if !ok {
		return fmt.Errorf("%w: bank %q", quiz.ErrNotFound, name)
	}
	if err := fn(&b); err != nil {
		return err
	}
	if f.failSave {
		return fmt.Errorf("disk full")
	}
	f.banks[name] = b
	return nil
}

// fakeResults is an in-memory results.Store mirroring the SQL store's submit
// semantics: result insert, assignment completion and rank rewrite happen
// atomically under one lock, ranked with the same pure RankOrder.
type fakeResults struct {
	mu          sync.Mutex
	students    []results.Student
	assignments []results.Assignment
	records     []results.ResultRecord
	nextID      int64
	now         time.Time
	// failSubmit makes SubmitResult fail, for retry tests.
	failSubmit bool
}

func newFakeResults() *fakeResults {
	return &fakeResults{nextID: 1, now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (f *fakeResults) id() int64 {
	id := f.nextID
	f.nextID++
	return id
}

func (f *fakeResults) tick() time.Time {
	f.now = f.now.Add(time.Second)
	return f.now
}

func (f *fakeResults) RegisterStudent(_ context.Context, firstName, lastName string, userID int64) (results.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, st := range f.students {
		if st.UserID == userID {
			return results.Student{}, fmt.Errorf("%w: user %d", quiz.ErrIntegrityViolation, userID)
		}
	}
	st := results.Student{ID: f.id(), FirstName: firstName, LastName: lastName, UserID: userID, RegisteredAt: f.tick()}
	f.students = append(f.students, st)
	return st, nil
}

func (f *fakeResults) StudentByUserID(_ context.Context, userID int64) (results.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, st := range f.students {
		if st.UserID == userID {
			return st, nil
		}
	}
	return results.Student{}, fmt.Errorf("%w: student for user %d", quiz.ErrNotFound, userID)
}

func (f *fakeResults) StudentByID(_ context.Context, id int64) (results.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, st := range f.students {
		if st.ID == id {
			return st, nil
		}
	}
	return results.Student{}, fmt.Errorf("%w: student %d", quiz.ErrNotFound, id)
}

func (f *fakeResults) ListStudents(_ context.Context) ([]results.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]results.Student(nil), f.students...), nil
}

func (f *fakeResults) UpsertAssignment(_ context.Context, studentID int64, bank string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, a := range f.assignments {
		if a.StudentID == studentID && a.Bank == bank {
			f.assignments[i].Completed = false
			return nil
		}
	}
	f.assignments = append(f.assignments, results.Assignment{
		ID: f.id(), StudentID: studentID, Bank: bank, AssignedAt: f.tick(),
	})
	return nil
}

func (f *fakeResults) ListPendingAssignments(_ context.Context, studentID int64) ([]results.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []results.Assignment
	for _, a := range f.assignments {
		if a.StudentID == studentID && !a.Completed {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeResults) SubmitResult(_ context.Context, rec results.ResultRecord) (results.ResultRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSubmit {
		return results.ResultRecord{}, fmt.Errorf("connection reset")
	}
	rec.ID = f.id()
	rec.SubmittedAt = f.tick()
	f.records = append(f.records, rec)
	for i, a := range f.assignments {
		if a.StudentID == rec.StudentID && a.Bank == rec.Bank {
			f.assignments[i].Completed = true
		}
	}

	var bankRecs []results.ResultRecord
	for _, r := range f.records {
		if r.Bank == rec.Bank {
			bankRecs = append(bankRecs, r)
		}
	}
	for _, ra := range results.RankOrder(bankRecs) {
		for i := range f.records {
			if f.records[i].ID == ra.ResultID {
				rank := ra.Rank
				f.records[i].Rank = &rank
				if ra.ResultID == rec.ID {
					rec.Rank = &rank
				}
			}
		}
	}
	return rec, nil
}

func (f *fakeResults) ListResultsByBank(_ context.Context, bank string) ([]results.ResultRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []results.ResultRecord
	for _, r := range f.records {
		if r.Bank == bank {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].Rank, out[j].Rank
		switch {
		case ri == nil:
			return false
		case rj == nil:
			return true
		default:
			return *ri < *rj
		}
	})
	return out, nil
}

func (f *fakeResults) ListResultsByStudent(_ context.Context, studentID int64, limit int) ([]results.ResultRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []results.ResultRecord
	for i := len(f.records) - 1; i >= 0 && len(out) < limit; i-- {
		if f.records[i].StudentID == studentID {
			out = append(out, f.records[i])
		}
	}
	return out, nil
}

// fakeNotifier records out-of-band notifications.
type fakeNotifier struct {
	mu   sync.Mutex
	sent map[int64][]Prompt
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{sent: make(map[int64][]Prompt)}
}

func (f *fakeNotifier) Notify(userID int64, p Prompt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[userID] = append(f.sent[userID], p)
	return nil
}

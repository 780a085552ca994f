package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/quizdesk/quizbot/internal/quiz"
	"github.com/quizdesk/quizbot/internal/session"
)

func fourOptions(texts [4]string) []quiz.AnswerOption {
	out := make([]quiz.AnswerOption, 4)
	for i, l := range quiz.Labels {
		out[i] = quiz.AnswerOption{Label: l, Text: texts[i]}
	}
	return out
}

func seedBank(banks *fakeBanks, name string, tests ...quiz.TestDefinition) {
	banks.banks[name] = quiz.TestBank{Name: name, Tests: tests}
}

// assign drives the whole assignment dialogue as the given admin.
func assign(t *testing.T, e *Engine, adm User, bankName string, studentID int64) {
	t.Helper()
	mustHandle(t, e, adm, BeginAssignment{})
	mustHandle(t, e, adm, SelectBank{Name: bankName})
	mustHandle(t, e, adm, SelectStudent{StudentID: studentID})
}

func TestAssignDeliverAndRank(t *testing.T) {
	e, banks, res, notify, sessions := newTestEngine(t)
	adm := admin(1)
	first := student(100)
	second := student(200)
	ctx := context.Background()

	seedBank(banks, "math1.json", quiz.TestDefinition{ID: 1, Questions: []quiz.Question{{
		Prompt:  "2+2?",
		Options: fourOptions([4]string{"3", "4", "5", "6"}),
		Correct: quiz.LabelB,
	}}})

	register(t, e, first, "Ada", "Lovelace")
	register(t, e, second, "Grace", "Hopper")
	st1, _ := res.StudentByUserID(ctx, first.ID)
	st2, _ := res.StudentByUserID(ctx, second.ID)

	assign(t, e, adm, "math1.json", st1.ID)
	assign(t, e, adm, "math1.json", st2.ID)

	// Assignment pings each student out of band.
	if len(notify.sent[first.ID]) != 1 || len(notify.sent[second.ID]) != 1 {
		t.Fatalf("notifications: %d / %d", len(notify.sent[first.ID]), len(notify.sent[second.ID]))
	}

	// First student answers correctly.
	mustHandle(t, e, first, BeginDelivery{})
	p := mustHandle(t, e, first, SelectAssignment{Bank: "math1.json"})
	if !strings.Contains(p.Text, "Question 1 of 1") {
		t.Fatalf("question prompt %q", p.Text)
	}
	p = mustHandle(t, e, first, SubmitAnswer{Label: quiz.LabelB})
	if !strings.Contains(p.Text, "Correct: 1") || !strings.Contains(p.Text, "Your rank: 1") {
		t.Fatalf("summary %q", p.Text)
	}
	if sessions.InProgress(first.ID) {
		t.Fatal("completed run left a session open")
	}

	// Second student answers wrong and ranks below.
	mustHandle(t, e, second, BeginDelivery{})
	mustHandle(t, e, second, SelectAssignment{Bank: "math1.json"})
	p = mustHandle(t, e, second, SubmitAnswer{Label: quiz.LabelC})
	if !strings.Contains(p.Text, "Correct: 0") || !strings.Contains(p.Text, "Your rank: 2") {
		t.Fatalf("summary %q", p.Text)
	}

	// Standings order by percentage.
	recs, err := res.ListResultsByBank(ctx, "math1.json")
	if err != nil {
		t.Fatalf("ListResultsByBank: %v", err)
	}
	if len(recs) != 2 || recs[0].StudentID != st1.ID || recs[1].StudentID != st2.ID {
		t.Fatalf("standings %+v", recs)
	}

	// Both assignments are completed now.
	for _, st := range []int64{st1.ID, st2.ID} {
		pending, _ := res.ListPendingAssignments(ctx, st)
		if len(pending) != 0 {
			t.Fatalf("student %d still has pending assignments: %+v", st, pending)
		}
	}

	// The admin standings view names the students in rank order.
	p = mustHandle(t, e, adm, ShowBankResults{Bank: "math1.json"})
	if !strings.Contains(p.Text, "Ada Lovelace") || !strings.Contains(p.Text, "Grace Hopper") {
		t.Fatalf("standings text %q", p.Text)
	}
	if strings.Index(p.Text, "Ada") > strings.Index(p.Text, "Grace") {
		t.Fatalf("standings order wrong: %q", p.Text)
	}
}

func TestDeliveryFlattensBankWithGlobalNumbering(t *testing.T) {
	e, banks, res, _, _ := newTestEngine(t)
	stu := student(100)
	ctx := context.Background()

	q := func(prompt string, correct quiz.Label) quiz.Question {
		return quiz.Question{Prompt: prompt, Options: fourOptions([4]string{"a", "b", "c", "d"}), Correct: correct}
	}
	seedBank(banks, "mix.json",
		quiz.TestDefinition{ID: 1, Questions: []quiz.Question{q("q1?", quiz.LabelA)}},
		quiz.TestDefinition{ID: 2, Questions: []quiz.Question{q("q2?", quiz.LabelB), q("q3?", quiz.LabelC)}},
	)

	register(t, e, stu, "Ada", "Lovelace")
	st, _ := res.StudentByUserID(ctx, stu.ID)
	if err := res.UpsertAssignment(ctx, st.ID, "mix.json"); err != nil {
		t.Fatalf("UpsertAssignment: %v", err)
	}

	mustHandle(t, e, stu, BeginDelivery{})
	p := mustHandle(t, e, stu, SelectAssignment{Bank: "mix.json"})
	if !strings.Contains(p.Text, "Question 1 of 3") || !strings.Contains(p.Text, "q1?") {
		t.Fatalf("first prompt %q", p.Text)
	}
	p = mustHandle(t, e, stu, SubmitAnswer{Label: quiz.LabelA})
	if !strings.Contains(p.Text, "Question 2 of 3") || !strings.Contains(p.Text, "q2?") {
		t.Fatalf("second prompt %q", p.Text)
	}
	p = mustHandle(t, e, stu, SubmitAnswer{Label: quiz.LabelB})
	if !strings.Contains(p.Text, "Question 3 of 3") || !strings.Contains(p.Text, "q3?") {
		t.Fatalf("third prompt %q", p.Text)
	}
	p = mustHandle(t, e, stu, SubmitAnswer{Label: quiz.LabelD})
	if !strings.Contains(p.Text, "Correct: 2") || !strings.Contains(p.Text, "Wrong: 1") {
		t.Fatalf("summary %q", p.Text)
	}
}

func TestDeliveryRequiresRegistration(t *testing.T) {
	e, _, _, _, sessions := newTestEngine(t)
	stu := student(100)

	p, err := e.Handle(context.Background(), stu, BeginDelivery{})
	if !errors.Is(err, quiz.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if !strings.Contains(p.Text, "register") {
		t.Fatalf("prompt %q", p.Text)
	}
	if len(p.Choices) == 0 {
		t.Fatal("prompt should offer the registration entry")
	}
	if sessions.InProgress(stu.ID) {
		t.Fatal("rejected delivery opened a session")
	}
}

func TestDeliveryWithNothingPending(t *testing.T) {
	e, _, _, _, sessions := newTestEngine(t)
	stu := student(100)
	register(t, e, stu, "Ada", "Lovelace")

	p := mustHandle(t, e, stu, BeginDelivery{})
	if !strings.Contains(p.Text, "no new tests") {
		t.Fatalf("prompt %q", p.Text)
	}
	if sessions.InProgress(stu.ID) {
		t.Fatal("empty delivery opened a session")
	}
}

func TestDeliveryEmptyBankReturnsToIdle(t *testing.T) {
	e, banks, res, _, sessions := newTestEngine(t)
	stu := student(100)
	ctx := context.Background()

	seedBank(banks, "hollow.json", quiz.TestDefinition{ID: 1})
	register(t, e, stu, "Ada", "Lovelace")
	st, _ := res.StudentByUserID(ctx, stu.ID)
	_ = res.UpsertAssignment(ctx, st.ID, "hollow.json")

	mustHandle(t, e, stu, BeginDelivery{})
	_, err := e.Handle(ctx, stu, SelectAssignment{Bank: "hollow.json"})
	if !errors.Is(err, quiz.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if sessions.InProgress(stu.ID) {
		t.Fatal("empty bank should drop the session")
	}
}

func TestFailedSubmitKeepsSessionForRetry(t *testing.T) {
	e, banks, res, _, sessions := newTestEngine(t)
	stu := student(100)
	ctx := context.Background()

	seedBank(banks, "math1.json", quiz.TestDefinition{ID: 1, Questions: []quiz.Question{{
		Prompt:  "2+2?",
		Options: fourOptions([4]string{"3", "4", "5", "6"}),
		Correct: quiz.LabelB,
	}}})
	register(t, e, stu, "Ada", "Lovelace")
	st, _ := res.StudentByUserID(ctx, stu.ID)
	_ = res.UpsertAssignment(ctx, st.ID, "math1.json")

	mustHandle(t, e, stu, BeginDelivery{})
	mustHandle(t, e, stu, SelectAssignment{Bank: "math1.json"})

	res.failSubmit = true
	if _, err := e.Handle(ctx, stu, SubmitAnswer{Label: quiz.LabelB}); err == nil {
		t.Fatal("expected submit to fail")
	}
	got, ok := sessions.Get(stu.ID)
	if !ok || got.Step != session.StepAnsweringQuestion {
		t.Fatalf("failed submit should keep the run, got %+v", got)
	}

	// Retrying the completion must not grow the answer log.
	res.failSubmit = false
	p := mustHandle(t, e, stu, SubmitAnswer{Label: quiz.LabelB})
	if !strings.Contains(p.Text, "Questions: 1") || !strings.Contains(p.Text, "Correct: 1") {
		t.Fatalf("summary %q", p.Text)
	}
	recs, _ := res.ListResultsByBank(ctx, "math1.json")
	if len(recs) != 1 || recs[0].Total != 1 || recs[0].Correct != 1 {
		t.Fatalf("persisted %+v", recs)
	}
}

func TestFailedSubmitLeavesNoPartialState(t *testing.T) {
	e, banks, res, _, sessions := newTestEngine(t)
	stu := student(100)
	ctx := context.Background()

	seedBank(banks, "math1.json", quiz.TestDefinition{ID: 1, Questions: []quiz.Question{{
		Prompt:  "2+2?",
		Options: fourOptions([4]string{"3", "4", "5", "6"}),
		Correct: quiz.LabelB,
	}}})
	register(t, e, stu, "Ada", "Lovelace")
	st, _ := res.StudentByUserID(ctx, stu.ID)
	_ = res.UpsertAssignment(ctx, st.ID, "math1.json")

	mustHandle(t, e, stu, BeginDelivery{})
	mustHandle(t, e, stu, SelectAssignment{Bank: "math1.json"})

	res.failSubmit = true
	if _, err := e.Handle(ctx, stu, SubmitAnswer{Label: quiz.LabelB}); err == nil {
		t.Fatal("expected submit to fail")
	}

	// Result and completion flag commit together, so neither may appear alone.
	recs, _ := res.ListResultsByBank(ctx, "math1.json")
	if len(recs) != 0 {
		t.Fatalf("failed submit persisted a result: %+v", recs)
	}
	pending, _ := res.ListPendingAssignments(ctx, st.ID)
	if len(pending) != 1 {
		t.Fatalf("failed submit flipped the assignment: %+v", pending)
	}
	if !sessions.InProgress(stu.ID) {
		t.Fatal("failed submit dropped the session")
	}
}

func TestConcurrentSubmissionsYieldDenseRanks(t *testing.T) {
	e, banks, res, _, _ := newTestEngine(t)
	ctx := context.Background()
	const takers = 8

	seedBank(banks, "math1.json", quiz.TestDefinition{ID: 1, Questions: []quiz.Question{{
		Prompt:  "2+2?",
		Options: fourOptions([4]string{"3", "4", "5", "6"}),
		Correct: quiz.LabelB,
	}}})

	users := make([]User, takers)
	for i := range users {
		users[i] = student(int64(100 + i))
		register(t, e, users[i], fmt.Sprintf("Student%d", i), "Test")
		st, _ := res.StudentByUserID(ctx, users[i].ID)
		_ = res.UpsertAssignment(ctx, st.ID, "math1.json")
		mustHandle(t, e, users[i], BeginDelivery{})
		mustHandle(t, e, users[i], SelectAssignment{Bank: "math1.json"})
	}

	var wg sync.WaitGroup
	wg.Add(takers)
	for _, u := range users {
		go func(u User) {
			defer wg.Done()
			if _, err := e.Handle(ctx, u, SubmitAnswer{Label: quiz.LabelB}); err != nil {
				t.Errorf("submit for user %d: %v", u.ID, err)
			}
		}(u)
	}
	wg.Wait()

	recs, err := res.ListResultsByBank(ctx, "math1.json")
	if err != nil {
		t.Fatalf("ListResultsByBank: %v", err)
	}
	if len(recs) != takers {
		t.Fatalf("got %d records, want %d", len(recs), takers)
	}
	seen := make(map[int]bool, takers)
	for _, r := range recs {
		if r.Rank == nil {
			t.Fatalf("unranked record %+v", r)
		}
		seen[*r.Rank] = true
	}
	for want := 1; want <= takers; want++ {
		if !seen[want] {
			t.Fatalf("rank %d missing, ranks are not 1..%d: %+v", want, takers, recs)
		}
	}
}

func TestReassignmentResetsCompleted(t *testing.T) {
	e, banks, res, _, _ := newTestEngine(t)
	adm := admin(1)
	stu := student(100)
	ctx := context.Background()

	seedBank(banks, "math1.json", quiz.TestDefinition{ID: 1, Questions: []quiz.Question{{
		Prompt:  "2+2?",
		Options: fourOptions([4]string{"3", "4", "5", "6"}),
		Correct: quiz.LabelB,
	}}})
	register(t, e, stu, "Ada", "Lovelace")
	st, _ := res.StudentByUserID(ctx, stu.ID)

	assign(t, e, adm, "math1.json", st.ID)
	mustHandle(t, e, stu, BeginDelivery{})
	mustHandle(t, e, stu, SelectAssignment{Bank: "math1.json"})
	mustHandle(t, e, stu, SubmitAnswer{Label: quiz.LabelB})

	pending, _ := res.ListPendingAssignments(ctx, st.ID)
	if len(pending) != 0 {
		t.Fatalf("assignment not completed: %+v", pending)
	}

	// Re-assigning the same bank reopens it instead of duplicating it.
	assign(t, e, adm, "math1.json", st.ID)
	pending, _ = res.ListPendingAssignments(ctx, st.ID)
	if len(pending) != 1 || pending[0].Bank != "math1.json" {
		t.Fatalf("reassignment: %+v", pending)
	}
}

func TestShowMyResults(t *testing.T) {
	e, banks, res, _, _ := newTestEngine(t)
	adm := admin(1)
	stu := student(100)
	ctx := context.Background()

	_, err := e.Handle(ctx, stu, ShowMyResults{})
	if !errors.Is(err, quiz.ErrNotFound) {
		t.Fatalf("unregistered: want ErrNotFound, got %v", err)
	}

	register(t, e, stu, "Ada", "Lovelace")
	p := mustHandle(t, e, stu, ShowMyResults{})
	if !strings.Contains(p.Text, "not finished any tests") {
		t.Fatalf("empty results %q", p.Text)
	}

	seedBank(banks, "math1.json", quiz.TestDefinition{ID: 1, Questions: []quiz.Question{{
		Prompt:  "2+2?",
		Options: fourOptions([4]string{"3", "4", "5", "6"}),
		Correct: quiz.LabelB,
	}}})
	st, _ := res.StudentByUserID(ctx, stu.ID)
	assign(t, e, adm, "math1.json", st.ID)
	mustHandle(t, e, stu, BeginDelivery{})
	mustHandle(t, e, stu, SelectAssignment{Bank: "math1.json"})
	mustHandle(t, e, stu, SubmitAnswer{Label: quiz.LabelB})

	p = mustHandle(t, e, stu, ShowMyResults{})
	if !strings.Contains(p.Text, "math1.json") || !strings.Contains(p.Text, "1/1") {
		t.Fatalf("results %q", p.Text)
	}
}

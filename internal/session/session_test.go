package session

import (
	"sync"
	"testing"

	"github.com/quizdesk/quizbot/internal/quiz"
)

func TestPutGetClear(t *testing.T) {
	s := NewStore()

	if _, ok := s.Get(1); ok {
		t.Fatal("empty store returned a session")
	}

	s.Put(1, Session{Step: StepAwaitingQuestion})
	sess, ok := s.Get(1)
	if !ok || sess.Step != StepAwaitingQuestion {
		t.Fatalf("Get = %+v, %v", sess, ok)
	}
	if sess.UserID != 1 {
		t.Errorf("UserID = %d, want 1", sess.UserID)
	}

	s.Clear(1)
	if _, ok := s.Get(1); ok {
		t.Fatal("session survived Clear")
	}
}

func TestPutReplacesPriorSession(t *testing.T) {
	s := NewStore()
	s.Put(7, Session{Step: StepAwaitingQuestion, Authoring: &AuthoringDraft{Bank: "math1.json"}})
	s.Put(7, Session{Step: StepSelectingAssignment, Delivery: &DeliveryRun{Bank: "bio.json"}})

	sess, _ := s.Get(7)
	if sess.Step != StepSelectingAssignment {
		t.Errorf("Step = %q", sess.Step)
	}
	if sess.Authoring != nil {
		t.Error("old authoring scratch leaked into new session")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Put(2, Session{Step: StepAnsweringQuestion, Delivery: &DeliveryRun{Cursor: 0}})

	sess, _ := s.Get(2)
	sess.Step = StepIdle

	again, _ := s.Get(2)
	if again.Step != StepAnsweringQuestion {
		t.Error("mutating a Get result changed the stored session")
	}
}

func TestScratchDoesNotAliasStore(t *testing.T) {
	s := NewStore()
	s.Put(4, Session{Step: StepAwaitingCorrectChoice, Authoring: &AuthoringDraft{
		Bank:    "math1.json",
		Current: quiz.Question{Prompt: "2+2?"},
	}})

	// Mutating a Get result's scratch must not leak into the store.
	sess, _ := s.Get(4)
	sess.Authoring.Current.Correct = quiz.LabelB
	sess.Authoring.Questions = append(sess.Authoring.Questions, quiz.Question{Prompt: "leak?"})

	again, _ := s.Get(4)
	if again.Authoring.Current.Correct != "" || len(again.Authoring.Questions) != 0 {
		t.Fatalf("Get scratch aliases the stored draft: %+v", again.Authoring)
	}

	// Same for the value handed to Put: the caller keeps ownership.
	run := &DeliveryRun{Bank: "bio.json", Answers: []quiz.Label{quiz.LabelA}}
	s.Put(5, Session{Step: StepAnsweringQuestion, Delivery: run})
	run.Answers[0] = quiz.LabelD

	sess, _ = s.Get(5)
	if sess.Delivery.Answers[0] != quiz.LabelA {
		t.Fatalf("Put scratch aliases the caller's draft: %+v", sess.Delivery)
	}
}

func TestConcurrentUsersAreIsolated(t *testing.T) {
	s := NewStore()
	const users = 32
	var wg sync.WaitGroup
	wg.Add(users)
	for i := 0; i < users; i++ {
		go func(id int64) {
			defer wg.Done()
			s.Put(id, Session{Step: StepAnsweringQuestion, Delivery: &DeliveryRun{Cursor: int(id)}})
			sess, ok := s.Get(id)
			if !ok || sess.Delivery.Cursor != int(id) {
				t.Errorf("user %d saw foreign session %+v", id, sess)
			}
		}(int64(i))
	}
	wg.Wait()

	for i := 0; i < users; i++ {
		if !s.InProgress(int64(i)) {
			t.Errorf("user %d lost its session", i)
		}
	}
}

func TestInProgressIgnoresIdle(t *testing.T) {
	s := NewStore()
	s.Put(3, Session{Step: StepIdle})
	if s.InProgress(3) {
		t.Error("idle session reported in progress")
	}
}

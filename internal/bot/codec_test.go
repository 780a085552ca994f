package bot

import (
	"reflect"
	"testing"

	"github.com/quizdesk/quizbot/internal/quiz"
	"github.com/quizdesk/quizbot/internal/workflow"
)

func TestActionCodecRoundTrip(t *testing.T) {
	actions := []workflow.Action{
		workflow.BeginBankCreate{},
		workflow.BeginAuthoring{},
		workflow.BeginAssignment{},
		workflow.ShowBanks{},
		workflow.BeginRegistration{},
		workflow.BeginDelivery{},
		workflow.ShowMyResults{},
		workflow.ShowBankResults{Bank: "math1.json"},
		workflow.DeleteBank{Bank: "math1.json"},
		workflow.DeleteTest{Bank: "math1.json", TestID: 3},
		workflow.SelectBank{Name: "math1.json"},
		workflow.SelectStudent{StudentID: 42},
		workflow.SelectAssignment{Bank: "math1.json"},
		workflow.ChooseCorrect{Label: quiz.LabelB},
		workflow.Decide{Yes: true},
		workflow.Decide{Yes: false},
		workflow.SubmitAnswer{Label: quiz.LabelD},
		workflow.Cancel{},
	}

	seen := make(map[string]workflow.Action)
	for _, act := range actions {
		unique, payload, ok := encodeAction(act)
		if !ok {
			t.Fatalf("encodeAction(%T) not encodable", act)
		}
		// A unique with different payloads may repeat; a unique with the same
		// payload must not map to two actions.
		key := unique + "|" + payload
		if prev, dup := seen[key]; dup {
			t.Fatalf("encoding collision: %T and %T both map to %q", prev, act, key)
		}
		seen[key] = act

		got, err := decodeAction(unique, payload)
		if err != nil {
			t.Fatalf("decodeAction(%q, %q): %v", unique, payload, err)
		}
		if !reflect.DeepEqual(got, act) {
			t.Fatalf("round trip %T: got %#v", act, got)
		}
	}
}

func TestDecodeActionRejectsGarbage(t *testing.T) {
	cases := []struct{ unique, payload string }{
		{"nonsense", ""},
		{"pick_student", "not-a-number"},
		{"answer", "E"},
		{"pick_correct", ""},
		{"test_delete", "no-separator"},
		{"test_delete", "bank|NaN"},
	}
	for _, tc := range cases {
		if _, err := decodeAction(tc.unique, tc.payload); err == nil {
			t.Errorf("decodeAction(%q, %q) accepted garbage", tc.unique, tc.payload)
		}
	}
}

func TestDeleteTestPayloadSurvivesPipeInBankName(t *testing.T) {
	act := workflow.DeleteTest{Bank: "odd|name.json", TestID: 7}
	unique, payload, _ := encodeAction(act)
	got, err := decodeAction(unique, payload)
	if err != nil {
		t.Fatalf("decodeAction: %v", err)
	}
	if !reflect.DeepEqual(got, act) {
		t.Fatalf("got %#v", got)
	}
}

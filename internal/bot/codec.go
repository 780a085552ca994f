package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/quizdesk/quizbot/internal/quiz"
	"github.com/quizdesk/quizbot/internal/workflow"
)

// Callback uniques. Each workflow action that can ride on an inline button
// maps to exactly one unique; payloads carry the action's parameters.
const (
	cbCreateBank   = "menu_create_bank"
	cbAddTest      = "menu_add_test"
	cbAssign       = "menu_assign"
	cbShowBanks    = "menu_banks"
	cbRegister     = "menu_register"
	cbTakeTest     = "menu_take_test"
	cbMyResults    = "menu_my_results"
	cbBankResults  = "bank_results"
	cbBankDelete   = "bank_delete"
	cbTestDelete   = "test_delete"
	cbPickBank     = "pick_bank"
	cbPickStudent  = "pick_student"
	cbPickPending  = "pick_assignment"
	cbPickCorrect  = "pick_correct"
	cbDecide       = "decide"
	cbSubmitAnswer = "answer"
	cbCancel       = "cancel"
)

// encodeAction maps a workflow action onto a (unique, payload) pair for an
// inline button. Input is text-only and has no button form.
func encodeAction(act workflow.Action) (unique, payload string, ok bool) {
	switch a := act.(type) {
	case workflow.BeginBankCreate:
		return cbCreateBank, "", true
	case workflow.BeginAuthoring:
		return cbAddTest, "", true
	case workflow.BeginAssignment:
		return cbAssign, "", true
	case workflow.ShowBanks:
		return cbShowBanks, "", true
	case workflow.BeginRegistration:
		return cbRegister, "", true
	case workflow.BeginDelivery:
		return cbTakeTest, "", true
	case workflow.ShowMyResults:
		return cbMyResults, "", true
	case workflow.ShowBankResults:
		return cbBankResults, a.Bank, true
	case workflow.DeleteBank:
		return cbBankDelete, a.Bank, true
	case workflow.DeleteTest:
		return cbTestDelete, fmt.Sprintf("%s|%d", a.Bank, a.TestID), true
	case workflow.SelectBank:
		return cbPickBank, a.Name, true
	case workflow.SelectStudent:
		return cbPickStudent, strconv.FormatInt(a.StudentID, 10), true
	case workflow.SelectAssignment:
		return cbPickPending, a.Bank, true
	case workflow.ChooseCorrect:
		return cbPickCorrect, string(a.Label), true
	case workflow.Decide:
		if a.Yes {
			return cbDecide, "yes", true
		}
		return cbDecide, "no", true
	case workflow.SubmitAnswer:
		return cbSubmitAnswer, string(a.Label), true
	case workflow.Cancel:
		return cbCancel, "", true
	}
	return "", "", false
}

// decodeAction is the inverse of encodeAction.
func decodeAction(unique, payload string) (workflow.Action, error) {
	switch unique {
	case cbCreateBank:
		return workflow.BeginBankCreate{}, nil
	case cbAddTest:
		return workflow.BeginAuthoring{}, nil
	case cbAssign:
		return workflow.BeginAssignment{}, nil
	case cbShowBanks:
		return workflow.ShowBanks{}, nil
	case cbRegister:
		return workflow.BeginRegistration{}, nil
	case cbTakeTest:
		return workflow.BeginDelivery{}, nil
	case cbMyResults:
		return workflow.ShowMyResults{}, nil
	case cbBankResults:
		return workflow.ShowBankResults{Bank: payload}, nil
	case cbBankDelete:
		return workflow.DeleteBank{Bank: payload}, nil
	case cbTestDelete:
		sep := strings.LastIndex(payload, "|")
		if sep < 0 {
			return nil, fmt.Errorf("malformed test_delete payload %q", payload)
		}
		id, err := strconv.Atoi(payload[sep+1:])
		if err != nil {
			return nil, fmt.Errorf("malformed test_delete payload %q: %w", payload, err)
		}
		return workflow.DeleteTest{Bank: payload[:sep], TestID: id}, nil
	case cbPickBank:
		return workflow.SelectBank{Name: payload}, nil
	case cbPickStudent:
		id, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed pick_student payload %q: %w", payload, err)
		}
		return workflow.SelectStudent{StudentID: id}, nil
	case cbPickPending:
		return workflow.SelectAssignment{Bank: payload}, nil
	case cbPickCorrect:
		label, err := quiz.ParseLabel(payload)
		if err != nil {
			return nil, err
		}
		return workflow.ChooseCorrect{Label: label}, nil
	case cbDecide:
		return workflow.Decide{Yes: payload == "yes"}, nil
	case cbSubmitAnswer:
		label, err := quiz.ParseLabel(payload)
		if err != nil {
			return nil, err
		}
		return workflow.SubmitAnswer{Label: label}, nil
	case cbCancel:
		return workflow.Cancel{}, nil
	}
	return nil, fmt.Errorf("unknown callback %q", unique)
}

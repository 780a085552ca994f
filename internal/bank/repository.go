// Package bank persists named test banks and serializes concurrent
// read-modify-write cycles per bank name.
package bank

import "github.com/quizdesk/quizbot/internal/quiz"

// Repository is the storage contract for test banks. Implementations must
// make Update a serialized load-mutate-save cycle per bank name so that two
// concurrent finalizes never lose each other's tests.
type Repository interface {
	// List returns all bank names, sorted.
	List() ([]string, error)
	// Create makes a new empty bank. Fails with quiz.ErrDuplicateName if the
	// name is taken; the existing bank is left untouched.
	Create(name string) error
	// Load reads a bank. Fails with quiz.ErrNotFound when absent and
	// quiz.ErrMalformed when the stored form cannot be decoded.
	Load(name string) (quiz.TestBank, error)
	// Save overwrites the bank as one unit; a failed save leaves no partial write.
	Save(name string, b quiz.TestBank) error
	// Delete removes the bank. Fails with quiz.ErrNotFound when absent.
	Delete(name string) error
	// Update runs fn on the current contents of the bank and saves the result,
	// holding the bank's exclusive section for the whole cycle. An error from
	// fn aborts the update without saving.
	Update(name string, fn func(*quiz.TestBank) error) error
}

// Normalize appends the standard bank suffix when the proposed name lacks it.
func Normalize(name string) string {
	const suffix = ".json"
	if len(name) < len(suffix) || name[len(name)-len(suffix):] != suffix {
		return name + suffix
	}
	return name
}

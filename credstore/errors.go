package credstore

import "fmt"

type (
	AccountNotFound struct {
		Email string
	}

	DuplicateEmail struct {
		Email string
	}
)

func (a AccountNotFound) Error() string {
	return fmt.Sprintf("account %v not found", a.Email)
}

func (d DuplicateEmail) Error() string {
	return fmt.Sprintf("account %v already exists", d.Email)
}
